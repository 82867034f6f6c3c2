package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/iudanet/authkeeper/internal/models"
	"github.com/iudanet/authkeeper/internal/server/auth"
	"github.com/iudanet/authkeeper/internal/validation"
	"github.com/iudanet/authkeeper/pkg/api"
)

// AuthService определяет операции жизненного цикла учетных данных и сессий
type AuthService interface {
	Register(ctx context.Context, p auth.RegisterParams) (*auth.AuthResult, error)
	Login(ctx context.Context, p auth.LoginParams) (*auth.AuthResult, error)
	Logout(ctx context.Context, accessToken string)
	Refresh(ctx context.Context, refreshToken string) (*auth.RefreshResult, error)
	VerifyEmail(ctx context.Context, codeID string) (*models.UserView, error)
	SendPasswordResetEmail(ctx context.Context, email string) (*auth.ResetRequestResult, error)
	ResetPassword(ctx context.Context, p auth.ResetPasswordParams) (*models.UserView, error)
	Authenticate(ctx context.Context, accessToken string) (*auth.Principal, error)
	CurrentUser(ctx context.Context, userID string) (*models.UserView, error)
	ListSessions(ctx context.Context, p auth.Principal) ([]auth.SessionView, error)
	DeleteSession(ctx context.Context, p auth.Principal, sessionID string) error
}

// AuthHandler обрабатывает запросы /auth/*
type AuthHandler struct {
	logger  *slog.Logger
	service AuthService
	cookies CookieConfig
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, service AuthService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{
		logger:  logger,
		service: service,
		cookies: cookies,
	}
}

// Register обрабатывает POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	if err := validation.ValidateRegister(&req); err != nil {
		WriteError(h.logger, w, r, validationError(err))
		return
	}

	result, err := h.service.Register(ctx, auth.RegisterParams{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	h.cookies.setAuthCookies(w, result.AccessToken, result.RefreshToken)
	sendJSON(h.logger, w, result.User, http.StatusCreated)
}

// Login обрабатывает POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	if err := validation.ValidateLogin(&req); err != nil {
		WriteError(h.logger, w, r, validationError(err))
		return
	}

	result, err := h.service.Login(ctx, auth.LoginParams{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	h.cookies.setAuthCookies(w, result.AccessToken, result.RefreshToken)
	sendJSON(h.logger, w, result.User, http.StatusOK)
}

// Logout обрабатывает GET /auth/logout
// Всегда успешен: cookie очищаются даже без валидного токена
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(r.Context(), TokenFromRequest(r, AccessTokenCookie))

	h.cookies.clearAuthCookies(w)
	sendJSON(h.logger, w, api.MessageResponse{Message: "Logout successful"}, http.StatusOK)
}

// Refresh обрабатывает GET /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := TokenFromRequest(r, RefreshTokenCookie)
	if refreshToken == "" {
		WriteError(h.logger, w, r, &auth.Error{Kind: auth.KindUnauthorized, Message: "Missing refresh token"})
		return
	}

	result, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	h.cookies.setAccessCookie(w, result.AccessToken)
	// refresh cookie обновляется только при продлении сессии
	if result.RefreshToken != "" {
		h.cookies.setRefreshCookie(w, result.RefreshToken)
	}

	sendJSON(h.logger, w, api.MessageResponse{Message: "Access token refreshed"}, http.StatusOK)
}

// VerifyEmail обрабатывает GET /auth/email/verify/{code}
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if err := validation.ValidateCode(code); err != nil {
		WriteError(h.logger, w, r, validationError(err))
		return
	}

	if _, err := h.service.VerifyEmail(r.Context(), code); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	sendJSON(h.logger, w, api.MessageResponse{Message: "Email was successfully verified"}, http.StatusOK)
}

// ForgotPassword обрабатывает POST /auth/password/forgot
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req api.ForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	if err := validation.ValidateForgotPassword(&req); err != nil {
		WriteError(h.logger, w, r, validationError(err))
		return
	}

	result, err := h.service.SendPasswordResetEmail(r.Context(), req.Email)
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	// ссылка со секретным кодом уходит только в письмо
	sendJSON(h.logger, w, api.ForgotPasswordResponse{
		Message: "Password reset email sent",
		EmailID: result.EmailID,
	}, http.StatusOK)
}

// ResetPassword обрабатывает POST /auth/password/reset
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req api.ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	if err := validation.ValidateResetPassword(&req); err != nil {
		WriteError(h.logger, w, r, validationError(err))
		return
	}

	if _, err := h.service.ResetPassword(r.Context(), auth.ResetPasswordParams{
		VerificationCode: req.VerificationCode,
		Password:         req.Password,
	}); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	h.cookies.clearAuthCookies(w)
	sendJSON(h.logger, w, api.MessageResponse{Message: "Password reset successful"}, http.StatusOK)
}
