package infra

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"library-management-service/config"
)

// ErrSigningKeyMissing は署名鍵がどこにも設定されていない場合のエラー。
var ErrSigningKeyMissing = errors.New("JWT_SECRET_KEY or JWT_SECRET_KMS_CIPHERTEXT is required")

// Decrypter は鍵の暗号文を復号する。KMSClient が実装する。
type Decrypter interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// ResolveSigningKey はトークン署名鍵を決定する。
// JWT_SECRET_KMS_CIPHERTEXT (Base64) があれば KMS で復号した値を優先する。
func ResolveSigningKey(ctx context.Context, cfg *config.Config, d Decrypter) ([]byte, error) {
	if cfg.JWTSecretKMSCiphertext == "" {
		if cfg.JWTSecretKey == "" {
			return nil, ErrSigningKeyMissing
		}
		return []byte(cfg.JWTSecretKey), nil
	}

	if d == nil {
		return nil, fmt.Errorf("JWT_SECRET_KMS_CIPHERTEXT is set but no decrypter is configured")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(cfg.JWTSecretKMSCiphertext)
	if err != nil {
		return nil, fmt.Errorf("decoding JWT_SECRET_KMS_CIPHERTEXT: %w", err)
	}
	key, err := d.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("unwrapping signing key: %w", err)
	}
	if len(key) == 0 {
		return nil, ErrSigningKeyMissing
	}
	return key, nil
}
