// Package repository はデータアクセス層の実装を提供する。
package repository

import (
	"time"

	"gorm.io/gorm"

	"library-management-service/internal/domain"
)

// UserModel はusersテーブルのモデル。
type UserModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"type:varchar(100);not null;default:''"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex:uk_users_email"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime"`
}

// TableName はテーブル名を返す。
func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) toDomain() *domain.User {
	return &domain.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

// BookModel はbooksテーブルのモデル。
type BookModel struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	Title         string    `gorm:"type:varchar(255);not null"`
	Author        string    `gorm:"type:varchar(255);not null;default:''"`
	ISBN          string    `gorm:"column:isbn;type:varchar(32);not null;default:''"`
	PublishedYear int       `gorm:"not null;default:0"`
	UserID        int64     `gorm:"not null;index:idx_books_user_created,priority:1"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime;index:idx_books_user_created,priority:2"`
}

// TableName はテーブル名を返す。
func (BookModel) TableName() string {
	return "books"
}

func (m *BookModel) toDomain() *domain.Book {
	return &domain.Book{
		ID:            m.ID,
		Title:         m.Title,
		Author:        m.Author,
		ISBN:          m.ISBN,
		PublishedYear: m.PublishedYear,
		UserID:        m.UserID,
		CreatedAt:     m.CreatedAt,
	}
}

// AutoMigrate はモデル定義からテーブルを作成する。
// ローカル開発（SQLite）とテスト用。本番のMySQLは migrations/ のSQLを使う。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{}, &BookModel{}, &SchemaMigrationModel{})
}
