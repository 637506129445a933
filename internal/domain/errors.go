package domain

import "errors"

var (
	// ErrUnauthenticated はトークンが欠落・不正・期限切れ・改ざんされている場合のエラー。
	// 失敗理由は呼び出し元に区別させない。
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrMalformedPayload は暗号化ペイロードを復号できない場合のエラー。
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrInconsistentPrincipal はトークン内の主体と識別クレームが一致しない場合のエラー。
	ErrInconsistentPrincipal = errors.New("inconsistent principal")

	// ErrMissingCredentials はメールアドレスまたはパスワードが空の場合のエラー。
	ErrMissingCredentials = errors.New("email and password are required")

	// ErrEmailAlreadyExists は同じメールアドレスのユーザーが既に存在する場合のエラー。
	ErrEmailAlreadyExists = errors.New("user already exists")

	// ErrPasswordTooLong はパスワードがハッシュ可能な長さ（72バイト）を超える場合のエラー。
	ErrPasswordTooLong = errors.New("password is too long")

	// ErrInvalidCredentials はログイン認証に失敗した場合のエラー。
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrBookNotFound は指定された蔵書が存在しない、または他ユーザーの所有である場合のエラー。
	ErrBookNotFound = errors.New("book not found")

	// ErrInvalidBook は蔵書の入力値が不正な場合のエラー。
	ErrInvalidBook = errors.New("invalid book")

	// ErrMigrationFailed はマイグレーション実行時のエラー。
	ErrMigrationFailed = errors.New("migration failed")

	// ErrInvalidMigrationFile はマイグレーションファイルのフォーマットが不正な場合のエラー。
	ErrInvalidMigrationFile = errors.New("invalid migration file")
)
