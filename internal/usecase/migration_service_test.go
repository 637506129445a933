package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"library-management-service/internal/domain"
)

// mockMigrationRepository はテスト用のモック。
type mockMigrationRepository struct {
	appliedMigrations map[string]*domain.Migration
	ensureErr         error
	ensureCalls       int
}

func newMockMigrationRepository() *mockMigrationRepository {
	return &mockMigrationRepository{
		appliedMigrations: make(map[string]*domain.Migration),
	}
}

func (m *mockMigrationRepository) EnsureTable(ctx context.Context) error {
	m.ensureCalls++
	return m.ensureErr
}

func (m *mockMigrationRepository) FindAllApplied(ctx context.Context) ([]*domain.Migration, error) {
	var result []*domain.Migration
	for _, migration := range m.appliedMigrations {
		result = append(result, migration)
	}
	return result, nil
}

func (m *mockMigrationRepository) IsMigrationApplied(ctx context.Context, version string) (bool, error) {
	_, exists := m.appliedMigrations[version]
	return exists, nil
}

func (m *mockMigrationRepository) markApplied(versions ...string) {
	now := time.Now()
	for _, v := range versions {
		m.appliedMigrations[v] = &domain.Migration{
			Version:   v,
			AppliedAt: &now,
			Status:    domain.MigrationStatusApplied,
		}
	}
}

// setupTestMigrationsDir はテスト用のmigrationsディレクトリを作成する。
func setupTestMigrationsDir(t *testing.T) string {
	t.Helper()

	migrationsDir := filepath.Join(t.TempDir(), "migrations")
	if err := os.MkdirAll(migrationsDir, 0755); err != nil {
		t.Fatalf("failed to create migrations dir: %v", err)
	}

	files := map[string]string{
		"001_create_users.sql": "CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL UNIQUE);",
		"002_create_books.sql": "CREATE TABLE books (id INTEGER PRIMARY KEY, user_id INTEGER NOT NULL, title TEXT NOT NULL);",
		"003_add_isbn.sql":     "ALTER TABLE books ADD COLUMN isbn TEXT;",
		"README.md":            "not a migration",
	}
	for filename, content := range files {
		if err := os.WriteFile(filepath.Join(migrationsDir, filename), []byte(content), 0644); err != nil {
			t.Fatalf("failed to create test migration file: %v", err)
		}
	}
	return migrationsDir
}

// setupTestDB はテスト用のインメモリSQLiteデータベースを作成する。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Exec("CREATE TABLE schema_migrations (version VARCHAR(14) PRIMARY KEY, applied_at DATETIME NOT NULL)").Error; err != nil {
		t.Fatalf("failed to create schema_migrations table: %v", err)
	}
	return db
}

func tableExists(t *testing.T, db *gorm.DB, table string) bool {
	t.Helper()
	var count int64
	if err := db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count).Error; err != nil {
		t.Fatalf("failed to check table %s: %v", table, err)
	}
	return count == 1
}

func TestMigrationService_ApplyMigrations(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := newMockMigrationRepository()
	service := NewMigrationService(repo, db, setupTestMigrationsDir(t))

	count, err := service.ApplyMigrations(ctx)
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 migrations applied, got %d", count)
	}
	if repo.ensureCalls != 1 {
		t.Errorf("expected EnsureTable to be called once, got %d", repo.ensureCalls)
	}

	for _, table := range []string{"users", "books"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s was not created", table)
		}
	}

	// 履歴は同じトランザクションで記録される
	var recorded int64
	if err := db.Table("schema_migrations").Count(&recorded).Error; err != nil {
		t.Fatalf("failed to count schema_migrations: %v", err)
	}
	if recorded != 3 {
		t.Errorf("expected 3 recorded versions, got %d", recorded)
	}
}

func TestMigrationService_ApplyMigrations_AlreadyApplied(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := newMockMigrationRepository()
	repo.markApplied("001", "002")

	// 003 は books を前提とするので先に作っておく
	if err := db.Exec("CREATE TABLE books (id INTEGER PRIMARY KEY)").Error; err != nil {
		t.Fatalf("failed to create books: %v", err)
	}

	service := NewMigrationService(repo, db, setupTestMigrationsDir(t))
	count, err := service.ApplyMigrations(ctx)
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 migration applied, got %d", count)
	}
	if tableExists(t, db, "users") {
		t.Error("users should not be created by an applied migration")
	}
}

func TestMigrationService_ApplyMigrations_InvalidSQL(t *testing.T) {
	ctx := context.Background()
	migrationsDir := setupTestMigrationsDir(t)
	db := setupTestDB(t)
	service := NewMigrationService(newMockMigrationRepository(), db, migrationsDir)

	invalidFile := filepath.Join(migrationsDir, "004_invalid.sql")
	if err := os.WriteFile(invalidFile, []byte("INVALID SQL SYNTAX;"), 0644); err != nil {
		t.Fatalf("failed to create invalid migration file: %v", err)
	}

	count, err := service.ApplyMigrations(ctx)
	if !errors.Is(err, domain.ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 migrations applied before failure, got %d", count)
	}

	// 失敗したバージョンは記録されない
	var recorded int64
	db.Table("schema_migrations").Where("version = ?", "004").Count(&recorded)
	if recorded != 0 {
		t.Errorf("failed migration must not be recorded")
	}
}

func TestMigrationService_InvalidFileName(t *testing.T) {
	migrationsDir := setupTestMigrationsDir(t)
	if err := os.WriteFile(filepath.Join(migrationsDir, "noversion.sql"), []byte("SELECT 1;"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	service := NewMigrationService(newMockMigrationRepository(), setupTestDB(t), migrationsDir)
	if _, err := service.ApplyMigrations(context.Background()); !errors.Is(err, domain.ErrInvalidMigrationFile) {
		t.Errorf("expected ErrInvalidMigrationFile, got %v", err)
	}
}

func TestMigrationService_DuplicateVersion(t *testing.T) {
	migrationsDir := setupTestMigrationsDir(t)
	if err := os.WriteFile(filepath.Join(migrationsDir, "001_again.sql"), []byte("SELECT 1;"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	service := NewMigrationService(newMockMigrationRepository(), setupTestDB(t), migrationsDir)
	if _, err := service.GetMigrationStatus(context.Background()); !errors.Is(err, domain.ErrInvalidMigrationFile) {
		t.Errorf("expected ErrInvalidMigrationFile, got %v", err)
	}
}

func TestMigrationService_EnsureTableError(t *testing.T) {
	repo := newMockMigrationRepository()
	repo.ensureErr = errors.New("permission denied")
	service := NewMigrationService(repo, setupTestDB(t), setupTestMigrationsDir(t))

	if _, err := service.ApplyMigrations(context.Background()); err == nil {
		t.Error("expected error when schema_migrations cannot be prepared")
	}
}

func TestMigrationService_GetMigrationStatus(t *testing.T) {
	ctx := context.Background()
	repo := newMockMigrationRepository()
	repo.markApplied("001")
	service := NewMigrationService(repo, setupTestDB(t), setupTestMigrationsDir(t))

	migrations, err := service.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}

	expected := []struct {
		version string
		name    string
		status  domain.MigrationStatus
	}{
		{"001", "create_users", domain.MigrationStatusApplied},
		{"002", "create_books", domain.MigrationStatusPending},
		{"003", "add_isbn", domain.MigrationStatusPending},
	}
	for i, want := range expected {
		got := migrations[i]
		if got.Version != want.version || got.Name != want.name || got.Status != want.status {
			t.Errorf("migrations[%d]: want %+v, got %+v", i, want, got)
		}
	}
	if migrations[0].AppliedAt == nil {
		t.Error("expected AppliedAt for applied migration")
	}
}
