package middleware

import (
	"context"

	"library-management-service/internal/domain"
)

type contextKey int

const principalContextKey contextKey = iota

// WithPrincipal は主体を格納したコンテキストを返す。
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext はコンテキストから主体を取り出す。
// RequireSession を通過していないリクエストでは false を返す。
func PrincipalFromContext(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*domain.Principal)
	return p, ok && p != nil
}
