// Package handler はHTTPハンドラを提供する。
package handler

import (
	"errors"
	"net/http"

	"library-management-service/internal/domain"
	"library-management-service/internal/middleware"
	"library-management-service/internal/usecase"
	"library-management-service/pkg/httputil"
)

// AuthHandler はサインアップとログインのHTTPハンドラ。
type AuthHandler struct {
	service *usecase.AuthService
}

// NewAuthHandler は新しいAuthHandlerを生成する。
func NewAuthHandler(service *usecase.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// SignupRequest はサインアップのリクエスト形式。
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest はログインのリクエスト形式。
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse は認証成功時のレスポンス形式。
type AuthResponse struct {
	UserID   int64  `json:"userId"`
	Token    string `json:"token"`
	Username string `json:"username"`
}

func toAuthResponse(r *domain.AuthResult) AuthResponse {
	return AuthResponse{
		UserID:   r.UserID,
		Token:    r.Token,
		Username: r.Username,
	}
}

// Signup はユーザーを登録してトークンを返す。
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	result, err := h.service.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "SIGNUP", 0, middleware.AuditFailed)
		switch {
		case errors.Is(err, domain.ErrMissingCredentials):
			httputil.Error(w, http.StatusBadRequest, "MISSING_CREDENTIALS", "email and password are required")
		case errors.Is(err, domain.ErrEmailAlreadyExists):
			httputil.Error(w, http.StatusBadRequest, "USER_ALREADY_EXISTS", "user already exists")
		case errors.Is(err, domain.ErrPasswordTooLong):
			httputil.Error(w, http.StatusBadRequest, "PASSWORD_TOO_LONG", "password is too long")
		default:
			httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return
	}

	middleware.WriteAuditLog(r.Context(), "SIGNUP", result.UserID, middleware.AuditSuccess)
	httputil.JSON(w, http.StatusOK, toAuthResponse(result))
}

// Login は認証情報を検証してトークンを返す。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "LOGIN", 0, middleware.AuditFailed)
		switch {
		case errors.Is(err, domain.ErrMissingCredentials):
			httputil.Error(w, http.StatusBadRequest, "MISSING_CREDENTIALS", "email and password are required")
		case errors.Is(err, domain.ErrInvalidCredentials):
			httputil.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials")
		default:
			httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return
	}

	middleware.WriteAuditLog(r.Context(), "LOGIN", result.UserID, middleware.AuditSuccess)
	httputil.JSON(w, http.StatusOK, toAuthResponse(result))
}
