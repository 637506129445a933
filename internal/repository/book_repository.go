package repository

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"library-management-service/internal/domain"
)

// BookRepository は蔵書のデータアクセスを提供する。
// すべての操作は所有者のユーザーIDで絞り込む。
type BookRepository struct {
	db *gorm.DB
}

// NewBookRepository は新しいBookRepositoryを生成する。
func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

// FindAllByUserID は指定されたユーザーの蔵書を新しい順に取得する。
func (r *BookRepository) FindAllByUserID(ctx context.Context, userID int64) ([]*domain.Book, error) {
	var models []BookModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&models).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to find books by user_id",
			"operation", "find_all_by_user_id",
			"user_id", userID,
			"error", err,
		)
		return nil, err
	}

	books := make([]*domain.Book, len(models))
	for i, m := range models {
		books[i] = m.toDomain()
	}
	return books, nil
}

// FindByIDAndUserID は指定されたユーザーの蔵書を取得する。存在しない場合は nil を返す。
func (r *BookRepository) FindByIDAndUserID(ctx context.Context, id, userID int64) (*domain.Book, error) {
	var model BookModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to find book",
			"operation", "find_by_id_and_user_id",
			"book_id", id,
			"user_id", userID,
			"error", err,
		)
		return nil, err
	}
	return model.toDomain(), nil
}

// Create は新しい蔵書を保存する。
func (r *BookRepository) Create(ctx context.Context, book *domain.Book) error {
	model := &BookModel{
		Title:         book.Title,
		Author:        book.Author,
		ISBN:          book.ISBN,
		PublishedYear: book.PublishedYear,
		UserID:        book.UserID,
		CreatedAt:     book.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		slog.ErrorContext(ctx, "failed to create book",
			"operation", "create_book",
			"user_id", book.UserID,
			"error", err,
		)
		return err
	}
	book.ID = model.ID
	book.CreatedAt = model.CreatedAt
	return nil
}

// DeleteByIDAndUserID は指定されたユーザーの蔵書を削除する。削除した場合は true を返す。
func (r *BookRepository) DeleteByIDAndUserID(ctx context.Context, id, userID int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&BookModel{})
	if result.Error != nil {
		slog.ErrorContext(ctx, "failed to delete book",
			"operation", "delete_by_id_and_user_id",
			"book_id", id,
			"user_id", userID,
			"error", result.Error,
		)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
