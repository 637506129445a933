package middleware

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"library-management-service/pkg/httputil"
)

// PayloadCipher はリクエスト・レスポンス本文の暗号化インターフェース。
type PayloadCipher interface {
	Encrypt(plaintext string) string
	Decrypt(ciphertext string) (string, error)
}

// DecryptRequest は POST/PUT の暗号化された本文を復号して後続に渡す。
// 本文が '{' か '[' で始まる場合は平文の JSON とみなしてそのまま渡す。
// maxBodyBytes が正の場合は本文サイズを制限する。
func DecryptRequest(c PayloadCipher, maxBodyBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut {
				next.ServeHTTP(w, r)
				return
			}

			body := r.Body
			if maxBodyBytes > 0 {
				body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			}
			raw, err := io.ReadAll(body)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					httputil.Error(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large")
					return
				}
				httputil.Error(w, http.StatusBadRequest, "INVALID_PAYLOAD", "invalid encrypted payload")
				return
			}

			trimmed := strings.TrimSpace(string(raw))
			if trimmed == "" || trimmed[0] == '{' || trimmed[0] == '[' {
				replaceBody(r, raw)
				next.ServeHTTP(w, r)
				return
			}

			plain, err := c.Decrypt(trimmed)
			if err != nil {
				slog.WarnContext(r.Context(), "payload rejected", "path", r.URL.Path, "error", err)
				httputil.Error(w, http.StatusBadRequest, "INVALID_PAYLOAD", "invalid encrypted payload")
				return
			}

			replaceBody(r, []byte(plain))
			r.Header.Set("Content-Type", "application/json")
			next.ServeHTTP(w, r)
		})
	}
}

func replaceBody(r *http.Request, b []byte) {
	r.Body = io.NopCloser(bytes.NewReader(b))
	r.ContentLength = int64(len(b))
	r.Header.Set("Content-Length", strconv.Itoa(len(b)))
}

// EncryptResponse は成功した JSON レスポンスの本文を暗号化する。
// ハンドラの出力はすべてバッファし、ハンドラが戻るまで実際のライターには書き込まない。
func EncryptResponse(c PayloadCipher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bw := newBufferedResponseWriter()
			next.ServeHTTP(bw, r)

			body := bw.buf.Bytes()
			if shouldEncrypt(bw.status, bw.header.Get("Content-Type"), body) {
				ciphertext := c.Encrypt(string(body))
				bw.header.Set("Content-Type", "text/plain; charset=utf-8")
				bw.header.Set("Content-Length", strconv.Itoa(len(ciphertext)))
				body = []byte(ciphertext)
			}

			dst := w.Header()
			for k, v := range bw.header {
				dst[k] = v
			}
			w.WriteHeader(bw.status)
			if _, err := w.Write(body); err != nil {
				slog.ErrorContext(r.Context(), "failed to write response", "error", err)
			}
		})
	}
}

func shouldEncrypt(status int, contentType string, body []byte) bool {
	if status < 200 || status >= 300 || len(body) == 0 {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

// bufferedResponseWriter はレスポンスをメモリに溜める http.ResponseWriter。
type bufferedResponseWriter struct {
	header      http.Header
	buf         bytes.Buffer
	status      int
	wroteHeader bool
}

func newBufferedResponseWriter() *bufferedResponseWriter {
	return &bufferedResponseWriter{
		header: make(http.Header),
		status: http.StatusOK,
	}
}

func (b *bufferedResponseWriter) Header() http.Header {
	return b.header
}

func (b *bufferedResponseWriter) WriteHeader(status int) {
	if b.wroteHeader {
		return
	}
	b.status = status
	b.wroteHeader = true
}

func (b *bufferedResponseWriter) Write(p []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	return b.buf.Write(p)
}
