package domain

import "time"

// MigrationStatus はスキーママイグレーションの適用状態。
type MigrationStatus string

const (
	MigrationStatusPending MigrationStatus = "pending"
	MigrationStatusApplied MigrationStatus = "applied"
)

// Migration は migrations ディレクトリ内の1ファイル分のスキーマ変更を表す。
type Migration struct {
	Version   string // "001" など、ファイル名の先頭
	Name      string
	FilePath  string
	Status    MigrationStatus
	AppliedAt *time.Time
}

// IsApplied は適用済みかどうかを返す。
func (m *Migration) IsApplied() bool {
	return m.Status == MigrationStatusApplied
}
