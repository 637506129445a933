package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"library-management-service/internal/domain"
)

// setupTestDB はテスト用のインメモリSQLiteデータベースを作成する。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// :memory: は接続ごとに別DBになるため1本に固定する
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func createUser(t *testing.T, repo *UserRepository, email string) *domain.User {
	t.Helper()
	user := &domain.User{Username: "user", Email: email, PasswordHash: "hash"}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user := &domain.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if user.ID <= 0 {
		t.Errorf("expected generated ID, got %d", user.ID)
	}
	if user.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set, got zero value")
	}

	found, err := repo.FindByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if found == nil || found.ID != user.ID || found.Username != "alice" {
		t.Errorf("unexpected user: %+v", found)
	}

	byID, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if byID == nil || byID.Email != "alice@example.com" {
		t.Errorf("unexpected user: %+v", byID)
	}
}

func TestUserRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t))

	user, err := repo.FindByEmail(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil, got %+v", user)
	}

	user, err = repo.FindByID(ctx, 999)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil, got %+v", user)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t))
	createUser(t, repo, "dup@example.com")

	err := repo.Create(ctx, &domain.User{Username: "other", Email: "dup@example.com", PasswordHash: "hash"})
	if !errors.Is(err, domain.ErrEmailAlreadyExists) {
		t.Errorf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestBookRepository_FindAllByUserID_NewestFirst(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	users := NewUserRepository(db)
	repo := NewBookRepository(db)

	owner := createUser(t, users, "owner@example.com")
	other := createUser(t, users, "other@example.com")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		book := &domain.Book{Title: title, UserID: owner.ID, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := repo.Create(ctx, book); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if err := repo.Create(ctx, &domain.Book{Title: "not mine", UserID: other.ID}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	books, err := repo.FindAllByUserID(ctx, owner.ID)
	if err != nil {
		t.Fatalf("FindAllByUserID failed: %v", err)
	}
	if len(books) != 3 {
		t.Fatalf("expected 3 books, got %d", len(books))
	}
	want := []string{"third", "second", "first"}
	for i, b := range books {
		if b.Title != want[i] {
			t.Errorf("books[%d]: want %s, got %s", i, want[i], b.Title)
		}
		if b.UserID != owner.ID {
			t.Errorf("books[%d]: want user %d, got %d", i, owner.ID, b.UserID)
		}
	}

	empty, err := repo.FindAllByUserID(ctx, 12345)
	if err != nil {
		t.Fatalf("FindAllByUserID failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no books, got %d", len(empty))
	}
}

func TestBookRepository_FindByIDAndUserID(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	users := NewUserRepository(db)
	repo := NewBookRepository(db)

	owner := createUser(t, users, "owner@example.com")
	other := createUser(t, users, "other@example.com")

	book := &domain.Book{Title: "Go", Author: "Gopher", ISBN: "978-0", PublishedYear: 2015, UserID: owner.ID}
	if err := repo.Create(ctx, book); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if book.ID <= 0 || book.CreatedAt.IsZero() {
		t.Errorf("expected generated ID and CreatedAt, got %+v", book)
	}

	found, err := repo.FindByIDAndUserID(ctx, book.ID, owner.ID)
	if err != nil {
		t.Fatalf("FindByIDAndUserID failed: %v", err)
	}
	if found == nil || found.ISBN != "978-0" || found.PublishedYear != 2015 {
		t.Errorf("unexpected book: %+v", found)
	}

	// 他人の蔵書は存在しないものとして扱う
	found, err = repo.FindByIDAndUserID(ctx, book.ID, other.ID)
	if err != nil {
		t.Fatalf("FindByIDAndUserID failed: %v", err)
	}
	if found != nil {
		t.Errorf("expected nil, got %+v", found)
	}
}

func TestBookRepository_DeleteByIDAndUserID(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	users := NewUserRepository(db)
	repo := NewBookRepository(db)

	owner := createUser(t, users, "owner@example.com")
	other := createUser(t, users, "other@example.com")

	book := &domain.Book{Title: "Go", UserID: owner.ID}
	if err := repo.Create(ctx, book); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	deleted, err := repo.DeleteByIDAndUserID(ctx, book.ID, other.ID)
	if err != nil {
		t.Fatalf("DeleteByIDAndUserID failed: %v", err)
	}
	if deleted {
		t.Error("expected other user's delete to affect nothing")
	}

	deleted, err = repo.DeleteByIDAndUserID(ctx, book.ID, owner.ID)
	if err != nil {
		t.Fatalf("DeleteByIDAndUserID failed: %v", err)
	}
	if !deleted {
		t.Error("expected book to be deleted")
	}

	deleted, err = repo.DeleteByIDAndUserID(ctx, book.ID, owner.ID)
	if err != nil {
		t.Fatalf("DeleteByIDAndUserID failed: %v", err)
	}
	if deleted {
		t.Error("expected second delete to affect nothing")
	}
}

func TestMigrationRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewMigrationRepository(db)

	if err := repo.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable failed: %v", err)
	}

	applied, err := repo.IsMigrationApplied(ctx, "001")
	if err != nil {
		t.Fatalf("IsMigrationApplied failed: %v", err)
	}
	if applied {
		t.Error("expected 001 to be pending")
	}

	for _, v := range []string{"002", "001"} {
		if err := repo.RecordMigration(ctx, v); err != nil {
			t.Fatalf("RecordMigration(%s) failed: %v", v, err)
		}
	}

	applied, err = repo.IsMigrationApplied(ctx, "001")
	if err != nil {
		t.Fatalf("IsMigrationApplied failed: %v", err)
	}
	if !applied {
		t.Error("expected 001 to be applied")
	}

	all, err := repo.FindAllApplied(ctx)
	if err != nil {
		t.Fatalf("FindAllApplied failed: %v", err)
	}
	if len(all) != 2 || all[0].Version != "001" || all[1].Version != "002" {
		t.Fatalf("unexpected migrations: %+v", all)
	}
	if all[0].AppliedAt == nil || !all[0].IsApplied() {
		t.Errorf("expected applied migration with timestamp, got %+v", all[0])
	}
}
