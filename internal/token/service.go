// Package token はセッショントークンの発行と検証を提供する。
//
// トークンは HS256 で署名した JWT で、全クレームを暗号化した封筒を私的クレーム "dat" に
// 一つだけ持つ。外側の JWT は標準の exp を持つので、復号前に署名と有効期限を検証できる。
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"library-management-service/internal/domain"
)

const (
	// DefaultTTL はトークンの有効期間。
	DefaultTTL = 24 * time.Hour

	minSigningKeyLen = 32
)

// ClaimsCipher はクレーム封筒の暗号化インターフェース。
type ClaimsCipher interface {
	Encrypt(plaintext string) string
	Decrypt(ciphertext string) (string, error)
}

// Config はトークンサービスの設定。
type Config struct {
	SigningKey []byte
	Issuer     string
	Audience   string
	TTL        time.Duration
}

// Option はサービス生成時のオプション。
type Option func(*Service)

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service はトークンの発行・検証を行う。生成後は不変なので並行利用してよい。
type Service struct {
	cfg    Config
	cipher ClaimsCipher
	now    func() time.Time
}

// sessionClaims は暗号化される封筒の中身。
type sessionClaims struct {
	UserID    int64  `json:"uid"`
	Email     string `json:"eml"`
	TokenID   string `json:"jti"`
	NotBefore int64  `json:"nbf"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	Issuer    string `json:"iss"`
	Audience  string `json:"aud"`
}

// containerClaims は署名される外側の JWT クレーム。
type containerClaims struct {
	Data string `json:"dat"`
	jwt.RegisteredClaims
}

// NewService は新しい Service を生成する。
func NewService(cfg Config, claimsCipher ClaimsCipher, opts ...Option) (*Service, error) {
	if len(cfg.SigningKey) < minSigningKeyLen {
		return nil, fmt.Errorf("signing key must be at least %d bytes", minSigningKeyLen)
	}
	if claimsCipher == nil {
		return nil, errors.New("claims cipher is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	s := &Service{
		cfg:    cfg,
		cipher: claimsCipher,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue はユーザーIDとメールアドレスからトークンを発行する。
func (s *Service) Issue(userID int64, email string) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("invalid user id %d", userID)
	}
	if email == "" {
		return "", errors.New("email is required")
	}

	now := s.now()
	exp := now.Add(s.cfg.TTL)

	raw, err := json.Marshal(sessionClaims{
		UserID:    userID,
		Email:     email,
		TokenID:   uuid.NewString(),
		NotBefore: now.Unix(),
		IssuedAt:  now.Unix(),
		ExpiresAt: exp.Unix(),
		Issuer:    s.cfg.Issuer,
		Audience:  s.cfg.Audience,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling claims: %w", err)
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, containerClaims{
		Data: s.cipher.Encrypt(string(raw)),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.cipher.Encrypt(strconv.FormatInt(userID, 10)),
			ExpiresAt: jwt.NewNumericDate(exp),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	signed, err := tok.SignedString(s.cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し主体を返す。
// 失敗時は理由によらず domain.ErrUnauthenticated を返す。
func (s *Service) Verify(tokenString string) (*domain.Principal, error) {
	container, err := s.parseContainer(tokenString)
	if err != nil {
		s.reject("container", err)
		return nil, domain.ErrUnauthenticated
	}

	claims, err := s.openEnvelope(container.Data)
	if err != nil {
		s.reject("envelope", err)
		return nil, domain.ErrUnauthenticated
	}

	return &domain.Principal{
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}

// SubjectOf は外側の JWT の sub から識別子を取り出す。
// 封筒とは独立に解釈されるので、主体との整合性チェックに使う。
func (s *Service) SubjectOf(tokenString string) (int64, error) {
	container, err := s.parseContainer(tokenString)
	if err != nil {
		s.reject("container", err)
		return 0, domain.ErrUnauthenticated
	}
	plain, err := s.cipher.Decrypt(container.Subject)
	if err != nil {
		s.reject("subject", err)
		return 0, domain.ErrUnauthenticated
	}
	id, err := strconv.ParseInt(plain, 10, 64)
	if err != nil || id <= 0 {
		s.reject("subject", fmt.Errorf("invalid subject %q", plain))
		return 0, domain.ErrUnauthenticated
	}
	return id, nil
}

// parseContainer は署名と外側の exp/nbf を検証する。
func (s *Service) parseContainer(tokenString string) (*containerClaims, error) {
	if tokenString == "" {
		return nil, errors.New("empty token")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)
	claims := &containerClaims{}
	tok, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.cfg.SigningKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Data == "" {
		return nil, errors.New("missing claims envelope")
	}
	return claims, nil
}

// openEnvelope は封筒を復号し、クレーム単位の期限と発行者・対象者を再検証する。
// 復号した exp を正とする。
func (s *Service) openEnvelope(data string) (*sessionClaims, error) {
	plain, err := s.cipher.Decrypt(data)
	if err != nil {
		return nil, err
	}
	var claims sessionClaims
	if err := json.Unmarshal([]byte(plain), &claims); err != nil {
		return nil, fmt.Errorf("parsing claims: %w", err)
	}

	now := s.now().Unix()
	switch {
	case claims.UserID <= 0:
		return nil, errors.New("missing uid")
	case now >= claims.ExpiresAt:
		return nil, errors.New("claims expired")
	case now < claims.NotBefore:
		return nil, errors.New("claims not yet valid")
	case claims.Issuer != s.cfg.Issuer:
		return nil, errors.New("issuer mismatch")
	case claims.Audience != s.cfg.Audience:
		return nil, errors.New("audience mismatch")
	}
	return &claims, nil
}

func (s *Service) reject(phase string, err error) {
	slog.Debug("token rejected", "phase", phase, "error", err)
}
