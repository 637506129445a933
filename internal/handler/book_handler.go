package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"library-management-service/internal/domain"
	"library-management-service/internal/middleware"
	"library-management-service/internal/usecase"
	"library-management-service/pkg/httputil"
)

// BookHandler は蔵書のHTTPハンドラ。
// 主体は RequireSession がコンテキストに格納したものを使う。
type BookHandler struct {
	service *usecase.BookService
}

// NewBookHandler は新しいBookHandlerを生成する。
func NewBookHandler(service *usecase.BookService) *BookHandler {
	return &BookHandler{service: service}
}

// BookRequest は蔵書登録のリクエスト形式。
type BookRequest struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	ISBN          string `json:"isbn"`
	PublishedYear int    `json:"publishedYear"`
}

// BookResponse は蔵書のレスポンス形式。
type BookResponse struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	ISBN          string `json:"isbn"`
	PublishedYear int    `json:"publishedYear"`
	UserID        int64  `json:"userId"`
	CreatedAt     string `json:"createdAt"`
}

func toBookResponse(b *domain.Book) BookResponse {
	return BookResponse{
		ID:            b.ID,
		Title:         b.Title,
		Author:        b.Author,
		ISBN:          b.ISBN,
		PublishedYear: b.PublishedYear,
		UserID:        b.UserID,
		CreatedAt:     b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func validateBookID(idStr string) (int64, error) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid book id %q", idStr)
	}
	return id, nil
}

// principalOrReject は主体を取り出す。RequireSession の外で呼ばれた場合は 401 を返す。
func principalOrReject(w http.ResponseWriter, r *http.Request) (*domain.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "UNAUTHENTICATED", "token missing")
		return nil, false
	}
	return p, true
}

// ListBooks は主体の蔵書一覧を返す。
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrReject(w, r)
	if !ok {
		return
	}

	books, err := h.service.ListBooks(r.Context(), p.UserID)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "LIST_BOOKS", p.UserID, middleware.AuditFailed)
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	middleware.WriteAuditLog(r.Context(), "LIST_BOOKS", p.UserID, middleware.AuditSuccess)
	response := make([]BookResponse, len(books))
	for i, b := range books {
		response[i] = toBookResponse(b)
	}
	httputil.JSON(w, http.StatusOK, response)
}

// GetBook は主体の蔵書を1件返す。
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrReject(w, r)
	if !ok {
		return
	}

	id, err := validateBookID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_BOOK_ID", "invalid book id")
		return
	}

	book, err := h.service.GetBook(r.Context(), p.UserID, id)
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			httputil.Error(w, http.StatusNotFound, "BOOK_NOT_FOUND", "book not found")
			return
		}
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	httputil.JSON(w, http.StatusOK, toBookResponse(book))
}

// CreateBook は蔵書を登録する。
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrReject(w, r)
	if !ok {
		return
	}

	var req BookRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	book, err := h.service.CreateBook(r.Context(), p.UserID, domain.BookInput{
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		PublishedYear: req.PublishedYear,
	})
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "CREATE_BOOK", p.UserID, middleware.AuditFailed)
		if errors.Is(err, domain.ErrInvalidBook) {
			httputil.Error(w, http.StatusBadRequest, "INVALID_BOOK", "title is required and published year must not be negative")
			return
		}
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	middleware.WriteAuditLog(r.Context(), "CREATE_BOOK", p.UserID, middleware.AuditSuccess)
	w.Header().Set("Location", fmt.Sprintf("/api/books/%d", book.ID))
	httputil.JSON(w, http.StatusCreated, toBookResponse(book))
}

// DeleteBook は主体の蔵書を削除する。他ユーザーの蔵書は 404 になる。
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrReject(w, r)
	if !ok {
		return
	}

	id, err := validateBookID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_BOOK_ID", "invalid book id")
		return
	}

	if err := h.service.DeleteBook(r.Context(), p.UserID, id); err != nil {
		middleware.WriteAuditLog(r.Context(), "DELETE_BOOK", p.UserID, middleware.AuditFailed)
		if errors.Is(err, domain.ErrBookNotFound) {
			httputil.Error(w, http.StatusNotFound, "BOOK_NOT_FOUND", "book not found")
			return
		}
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	middleware.WriteAuditLog(r.Context(), "DELETE_BOOK", p.UserID, middleware.AuditSuccess)
	httputil.Message(w, http.StatusOK, "book deleted successfully")
}
