package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"library-management-service/internal/domain"
	"library-management-service/pkg/httputil"
)

// DefaultExemptPrefix は認証不要なパスの接頭辞。
const DefaultExemptPrefix = "/api/auth/"

// TokenVerifier はセッショントークンの検証インターフェース。
type TokenVerifier interface {
	Verify(token string) (*domain.Principal, error)
	SubjectOf(token string) (int64, error)
}

// RequireSession は Bearer トークンを検証し、主体をコンテキストに格納する。
// exemptPrefixes に一致するパスは検証しない。未指定なら DefaultExemptPrefix を使う。
func RequireSession(v TokenVerifier, exemptPrefixes ...string) func(http.Handler) http.Handler {
	if len(exemptPrefixes) == 0 {
		exemptPrefixes = []string{DefaultExemptPrefix}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExempt(r.URL.Path, exemptPrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			tokenString := extractBearerToken(r)
			if tokenString == "" {
				slog.WarnContext(ctx, "session rejected", "reason", "missing token", "path", r.URL.Path)
				httputil.Error(w, http.StatusUnauthorized, "UNAUTHENTICATED", "token missing")
				return
			}

			principal, err := v.Verify(tokenString)
			if err != nil {
				slog.WarnContext(ctx, "session rejected", "reason", "invalid token", "path", r.URL.Path)
				httputil.Error(w, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid token")
				return
			}

			subject, err := v.SubjectOf(tokenString)
			if err != nil || subject != principal.UserID {
				slog.WarnContext(ctx, "session rejected",
					"reason", "inconsistent token",
					"path", r.URL.Path,
					"user_id", principal.UserID,
				)
				httputil.Error(w, http.StatusBadRequest, "INCONSISTENT_TOKEN", "inconsistent token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}

func isExempt(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
