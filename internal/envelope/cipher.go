// Package envelope はパスフレーズから決定的に導出した鍵による AES-256-CBC 暗号を提供する。
//
// 鍵は SHA-256(パスフレーズ) の32バイト、IV はその先頭16バイト。IV を送らないため
// 同じ平文は常に同じ暗号文になる。ブラウザ側の実装と同じ導出をしているので変更しないこと。
package envelope

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"runtime"
	"unicode/utf8"
)

// ErrDecrypt は暗号文を復号できない場合のエラー。
var ErrDecrypt = errors.New("envelope: cannot decrypt")

// Cipher は鍵と IV を保持する。生成後は読み取り専用なので並行利用してよい。
type Cipher struct {
	block cipher.Block
	key   []byte
	iv    []byte
}

// New はパスフレーズから Cipher を生成する。
func New(secret string) *Cipher {
	sum := sha256.Sum256([]byte(secret))
	key := sum[:]
	block, err := aes.NewCipher(key)
	if err != nil {
		// 32バイト鍵なので発生しない
		panic(fmt.Sprintf("envelope: aes.NewCipher: %v", err))
	}
	return &Cipher{
		block: block,
		key:   key,
		iv:    append([]byte(nil), key[:aes.BlockSize]...),
	}
}

// HostEntropy はホスト固有の鍵素材を返す。
func HostEntropy() (string, error) {
	host, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("reading hostname: %w", err)
	}
	return fmt.Sprintf("%s_%s/%s_LibraryManagement", host, runtime.GOOS, runtime.GOARCH), nil
}

// NewHost はホスト固有のエントロピーを鍵とする Cipher を生成する。
// 同じサーバーが発行・検証するトークンクレームの秘匿にだけ使う。
func NewHost() (*Cipher, error) {
	entropy, err := HostEntropy()
	if err != nil {
		return nil, err
	}
	return New(entropy), nil
}

// Encrypt は平文の UTF-8 バイト列を暗号化し Base64 で返す。空文字列はそのまま返す。
func (c *Cipher) Encrypt(plaintext string) string {
	if plaintext == "" {
		return plaintext
	}
	padded := pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out)
}

// Decrypt は Base64 の暗号文を復号する。空文字列はそのまま返す。
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return ciphertext, nil
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64", ErrDecrypt)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: invalid length %d", ErrDecrypt, len(raw))
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, raw)
	plain, err := unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return "", fmt.Errorf("%w: plaintext is not utf-8", ErrDecrypt)
	}
	return string(plain), nil
}

// pad は PKCS#7 パディングを付与する。
func pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, blockSize int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
		}
	}
	return b[:len(b)-n], nil
}
