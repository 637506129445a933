package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"library-management-service/internal/domain"
)

// BookRepository は蔵書のデータアクセスのインターフェース。
type BookRepository interface {
	FindAllByUserID(ctx context.Context, userID int64) ([]*domain.Book, error)
	FindByIDAndUserID(ctx context.Context, id, userID int64) (*domain.Book, error)
	Create(ctx context.Context, book *domain.Book) error
	DeleteByIDAndUserID(ctx context.Context, id, userID int64) (bool, error)
}

// BookService は蔵書に関するビジネスロジックを提供する。
// すべての操作はリクエスト主体のユーザーIDに限定される。
type BookService struct {
	repo BookRepository
	now  func() time.Time
}

// NewBookService は新しいBookServiceを生成する。
func NewBookService(repo BookRepository) *BookService {
	return &BookService{
		repo: repo,
		now:  time.Now,
	}
}

// ListBooks はユーザーの蔵書を新しい順に返す。
func (s *BookService) ListBooks(ctx context.Context, userID int64) ([]*domain.Book, error) {
	books, err := s.repo.FindAllByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	return books, nil
}

// GetBook はユーザーの蔵書を1件返す。
func (s *BookService) GetBook(ctx context.Context, userID, id int64) (*domain.Book, error) {
	book, err := s.repo.FindByIDAndUserID(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("finding book: %w", err)
	}
	if book == nil {
		return nil, domain.ErrBookNotFound
	}
	return book, nil
}

// CreateBook は蔵書を登録する。タイトルは必須。
func (s *BookService) CreateBook(ctx context.Context, userID int64, in domain.BookInput) (*domain.Book, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidBook)
	}
	if in.PublishedYear < 0 {
		return nil, fmt.Errorf("%w: published year must not be negative", domain.ErrInvalidBook)
	}

	book := &domain.Book{
		Title:         in.Title,
		Author:        in.Author,
		ISBN:          in.ISBN,
		PublishedYear: in.PublishedYear,
		UserID:        userID,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("creating book: %w", err)
	}
	return book, nil
}

// DeleteBook はユーザーの蔵書を削除する。
func (s *BookService) DeleteBook(ctx context.Context, userID, id int64) error {
	deleted, err := s.repo.DeleteByIDAndUserID(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("deleting book: %w", err)
	}
	if !deleted {
		return domain.ErrBookNotFound
	}
	return nil
}
