package api

import (
	"time"

	"github.com/iudanet/authkeeper/internal/models"
)

// RegisterRequest представляет запрос на регистрацию нового пользователя
type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest запрашивает письмо для сброса пароля
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest завершает сброс пароля
type ResetPasswordRequest struct {
	VerificationCode string `json:"verificationCode"`
	Password         string `json:"password"`
}

// UserResponse is the projected user returned by register, login and /user.
type UserResponse = models.UserView

// MessageResponse представляет простой ответ с сообщением
type MessageResponse struct {
	Message string `json:"message"`
}

// ForgotPasswordResponse confirms that a reset email was dispatched.
type ForgotPasswordResponse struct {
	Message string `json:"message"`
	EmailID string `json:"emailId"`
}

// SessionResponse описывает одну активную сессию пользователя
type SessionResponse struct {
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	ID        string    `json:"id"`
	UserAgent string    `json:"userAgent,omitempty"`
	IsCurrent bool      `json:"isCurrent,omitempty"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error     string `json:"error"`               // описание ошибки
	Message   string `json:"message,omitempty"`   // дополнительное сообщение
	ErrorCode string `json:"errorCode,omitempty"` // машиночитаемый код (например, InvalidAccessToken)
}

// ErrorCodeInvalidAccessToken tells the client to call /auth/refresh.
const ErrorCodeInvalidAccessToken = "InvalidAccessToken"

// Имена и путь транспортных cookie, общие для сервера и клиента
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
	RefreshPath        = "/auth/refresh"
)
