// Package usecase はアプリケーションのユースケースを実装する。
package usecase

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"library-management-service/internal/domain"
)

// UserRepository はユーザーのデータアクセスのインターフェース。
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
}

// TokenIssuer はセッショントークンの発行インターフェース。
type TokenIssuer interface {
	Issue(userID int64, email string) (string, error)
}

// AuthService はサインアップとログインのビジネスロジックを提供する。
type AuthService struct {
	users    UserRepository
	tokens   TokenIssuer
	hashCost int
}

// NewAuthService は新しいAuthServiceを生成する。
func NewAuthService(users UserRepository, tokens TokenIssuer) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		hashCost: bcrypt.DefaultCost,
	}
}

// Signup はユーザーを登録し、トークンを発行する。
func (s *AuthService) Signup(ctx context.Context, username, email, password string) (*domain.AuthResult, error) {
	if email == "" || password == "" {
		return nil, domain.ErrMissingCredentials
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("checking existing user: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, domain.ErrPasswordTooLong
		}
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return s.issue(user)
}

// Login は認証情報を検証し、トークンを発行する。
// ユーザーが存在しない場合とパスワード不一致は区別しない。
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	if email == "" || password == "" {
		return nil, domain.ErrMissingCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*domain.AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}
	return &domain.AuthResult{
		UserID:   user.ID,
		Username: user.Username,
		Token:    token,
	}, nil
}
