package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"library-management-service/internal/middleware"
	"library-management-service/pkg/httputil"
)

// RouterDeps はルーターの依存関係。
type RouterDeps struct {
	Auth  *AuthHandler
	Books *BookHandler

	// PayloadCipher はブラウザと共有する本文暗号。
	PayloadCipher middleware.PayloadCipher
	Verifier      middleware.TokenVerifier

	AllowedOrigins []string
	MaxBodyBytes   int64
}

// NewRouter はルーターを生成する。
// 処理順: 復号 → セッション検証 → ハンドラ → 暗号化。
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// ミドルウェア
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Location"},
	}).Handler)
	r.Use(middleware.EncryptResponse(d.PayloadCipher))
	r.Use(middleware.DecryptRequest(d.PayloadCipher, d.MaxBodyBytes))
	r.Use(middleware.RequireSession(d.Verifier, middleware.DefaultExemptPrefix, "/healthz"))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// ルート定義
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", d.Auth.Signup)
		r.Post("/login", d.Auth.Login)
	})
	r.Route("/api/books", func(r chi.Router) {
		r.Get("/", d.Books.ListBooks)
		r.Post("/", d.Books.CreateBook)
		r.Get("/{id}", d.Books.GetBook)
		r.Delete("/{id}", d.Books.DeleteBook)
	})

	return r
}
