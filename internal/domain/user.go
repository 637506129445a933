package domain

import "time"

// User はアカウントエンティティを表す。
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// AuthResult はサインアップ・ログイン成功時の結果を表す。
type AuthResult struct {
	UserID   int64
	Username string
	Token    string
}
