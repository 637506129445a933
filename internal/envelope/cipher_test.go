package envelope

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const browserSecret = "LibraryManagement_SecretKey_2024_DoNotShare"

func TestNew_DerivesKeyAndIVFromDigest(t *testing.T) {
	c := New(browserSecret)
	sum := sha256.Sum256([]byte(browserSecret))

	require.Equal(t, sum[:], c.key)
	require.Equal(t, sum[:16], c.iv)
}

// ブラウザ (Web Crypto AES-CBC) と同じ暗号文になることを固定値で確認する。
func TestEncrypt_KnownVectors(t *testing.T) {
	c := New(browserSecret)

	tests := []struct {
		plaintext  string
		ciphertext string
	}{
		{"Hello, Library!", "Nu4Vhq7OVn6maA+fJi3OHw=="},
		{`{"email":"a@x.com","password":"p"}`, "SaB2uUFLNIdspQNvPCZiKUWVi3SM8sSf2PSNDC0fCMFKtDD8mMFzWUHg41zLtQdy"},
		{"日本語の本 📚", "HCH56c3MF/8BeVLD07Heti1XEIA6/66i5nmj/olzYgE="},
		{"[]", "F2I877QLFH+3BlEFhA5wDg=="},
	}
	for _, tt := range tests {
		t.Run(tt.plaintext, func(t *testing.T) {
			require.Equal(t, tt.ciphertext, c.Encrypt(tt.plaintext))

			got, err := c.Decrypt(tt.ciphertext)
			require.NoError(t, err)
			require.Equal(t, tt.plaintext, got)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	host, err := NewHost()
	require.NoError(t, err)

	ciphers := map[string]*Cipher{
		"shared": New(browserSecret),
		"host":   host,
	}
	inputs := []string{
		"",
		"a",
		"exactly sixteen!",
		`{"title":"T","author":"A","isbn":"123","publishedYear":2020}`,
		"マルチバイト文字列とemoji 🙂",
	}

	for name, c := range ciphers {
		for _, in := range inputs {
			out, err := c.Decrypt(c.Encrypt(in))
			require.NoError(t, err, name)
			require.Equal(t, in, out, name)
		}
	}
}

func TestEncrypt_Deterministic(t *testing.T) {
	c := New("some-secret")

	first := c.Encrypt("same input")
	second := c.Encrypt("same input")

	require.Equal(t, first, second)
	require.NotEqual(t, first, c.Encrypt("other input"))
}

func TestEncrypt_EmptyPassesThrough(t *testing.T) {
	c := New("some-secret")

	require.Equal(t, "", c.Encrypt(""))

	out, err := c.Decrypt("")
	require.NoError(t, err)
	require.Equal(t, "", out)
}

func TestDecrypt_Malformed(t *testing.T) {
	c := New("some-secret")

	tests := map[string]string{
		"not base64":       "%%%not-base64%%%",
		"short block":      base64.StdEncoding.EncodeToString([]byte("short")),
		"unaligned length": base64.StdEncoding.EncodeToString(make([]byte, 17)),
		"bad padding":      badPadding(c),
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decrypt(in)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrDecrypt))
		})
	}
}

func TestDecrypt_WrongKeyNeverYieldsPlaintext(t *testing.T) {
	ct := New("key-one").Encrypt("secret payload")

	got, err := New("key-two").Decrypt(ct)
	if err == nil {
		require.NotEqual(t, "secret payload", got)
	}
}

// badPadding は最終バイトが 0x00 になるブロックを作る。
func badPadding(c *Cipher) string {
	raw, _ := base64.StdEncoding.DecodeString(c.Encrypt("0123456789abcdef"))
	// 2ブロック目の直前の暗号文ブロックを書き換えると、最終ブロックの平文が変わる
	raw[len(raw)-17] ^= 0x10
	return base64.StdEncoding.EncodeToString(raw)
}
