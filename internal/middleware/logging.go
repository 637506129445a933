// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"time"
)

// 監査ログの結果値。
const (
	AuditSuccess = "SUCCESS"
	AuditFailed  = "FAILED"
)

// WriteAuditLog は監査ログを出力する。
// userID が不明な操作（ログイン失敗など）は 0 を渡す。
func WriteAuditLog(ctx context.Context, operation string, userID int64, result string) {
	attrs := []any{
		"operation", operation,
		"result", result,
		"timestamp", time.Now().UTC().Format(time.RFC3339),
	}
	if userID > 0 {
		attrs = append(attrs, "user_id", userID)
	}
	slog.InfoContext(ctx, "audit", attrs...)
}
