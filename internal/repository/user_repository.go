package repository

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"library-management-service/internal/domain"
)

// UserRepository はユーザーのデータアクセスを提供する。
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository は新しいUserRepositoryを生成する。
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail はメールアドレスでユーザーを取得する。存在しない場合は nil を返す。
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to find user by email",
			"operation", "find_by_email",
			"error", err,
		)
		return nil, err
	}
	return model.toDomain(), nil
}

// FindByID はIDでユーザーを取得する。存在しない場合は nil を返す。
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to find user by id",
			"operation", "find_by_id",
			"user_id", id,
			"error", err,
		)
		return nil, err
	}
	return model.toDomain(), nil
}

// Create は新しいユーザーを保存し、採番されたIDと作成日時を反映する。
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	model := &UserModel{
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrEmailAlreadyExists
		}
		slog.ErrorContext(ctx, "failed to create user",
			"operation", "create_user",
			"error", err,
		)
		return err
	}
	user.ID = model.ID
	user.CreatedAt = model.CreatedAt
	return nil
}
