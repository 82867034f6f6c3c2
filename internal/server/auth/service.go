// Package auth implements the session and verification-code lifecycle:
// registration, login, logout, token refresh, email verification and
// password reset. It returns plain data and typed errors; cookies and
// status codes belong to the HTTP layer.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/authkeeper/internal/clock"
	"github.com/iudanet/authkeeper/internal/models"
	"github.com/iudanet/authkeeper/internal/server/accounts"
	"github.com/iudanet/authkeeper/internal/server/config"
	"github.com/iudanet/authkeeper/internal/server/mail"
	"github.com/iudanet/authkeeper/internal/server/storage"
	"github.com/iudanet/authkeeper/internal/server/token"
)

// Config holds the timing policy and link origin of the service.
type Config struct {
	AppOrigin            string
	SessionTTL           time.Duration
	RenewalWindow        time.Duration
	EmailVerificationTTL time.Duration
	PasswordResetTTL     time.Duration
	ResetLimitWindow     time.Duration
	ResetLimitMax        int
}

// ConfigFrom extracts the service settings from the server config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		AppOrigin:            cfg.AppOrigin,
		SessionTTL:           cfg.Session.TTL,
		RenewalWindow:        cfg.Session.RenewalWindow,
		EmailVerificationTTL: cfg.Codes.EmailVerificationTTL,
		PasswordResetTTL:     cfg.Codes.PasswordResetTTL,
		ResetLimitWindow:     cfg.Codes.ResetLimitWindow,
		ResetLimitMax:        cfg.Codes.ResetLimitMax,
	}
}

// Service is the auth orchestrator.
type Service struct {
	logger   *slog.Logger
	accounts *accounts.Directory
	sessions storage.SessionStorage
	codes    storage.VerificationCodeStorage
	tokens   *token.Codec
	mailer   mail.Mailer
	now      clock.Clock
	cfg      Config
}

// NewService creates the auth service. A nil clock means the system clock.
func NewService(
	logger *slog.Logger,
	cfg Config,
	directory *accounts.Directory,
	sessions storage.SessionStorage,
	codes storage.VerificationCodeStorage,
	tokens *token.Codec,
	mailer mail.Mailer,
	now clock.Clock,
) *Service {
	if now == nil {
		now = clock.System
	}
	cfg.AppOrigin = strings.TrimRight(cfg.AppOrigin, "/")

	return &Service{
		logger:   logger,
		accounts: directory,
		sessions: sessions,
		codes:    codes,
		tokens:   tokens,
		mailer:   mailer,
		now:      now,
		cfg:      cfg,
	}
}

// RegisterParams is the input of Register.
type RegisterParams struct {
	Name      string
	Email     string
	Password  string
	UserAgent string
}

// LoginParams is the input of Login.
type LoginParams struct {
	Email     string
	Password  string
	UserAgent string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User         models.UserView
	SessionID    string
	AccessToken  string
	RefreshToken string
}

// Register creates an account, sends the verification email and opens a session.
//
// The steps are not transactional: a failure after the user row is written
// leaves an account without a session, which the user can still log into.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*AuthResult, error) {
	exists, err := s.accounts.ExistsByEmail(ctx, p.Email)
	if err != nil {
		return nil, internal("check email", err)
	}
	if exists {
		return nil, newError(KindConflict, MsgEmailExists, nil)
	}

	user, err := s.accounts.Create(ctx, accounts.NewAccount{
		Name:     p.Name,
		Email:    p.Email,
		Password: p.Password,
	})
	if err != nil {
		// уникальность email гарантирует хранилище, ExistsByEmail лишь быстрый путь
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			return nil, newError(KindConflict, MsgEmailExists, err)
		}
		return nil, internal("create user", err)
	}

	code, err := s.createCode(ctx, user.ID, models.EmailVerification, s.cfg.EmailVerificationTTL)
	if err != nil {
		return nil, err
	}

	// письмо с подтверждением не критично для регистрации
	if _, err := s.mailer.Send(ctx, mail.VerifyEmail(user.Email, s.VerifyEmailURL(code.ID))); err != nil {
		s.logger.WarnContext(ctx, "failed to send verification email",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}

	result, err := s.openSession(ctx, user, p.UserAgent)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered successfully",
		slog.String("user_id", user.ID),
		slog.String("session_id", result.SessionID))

	return result, nil
}

// Login checks credentials and opens a new session.
// Unknown email and wrong password fail identically.
func (s *Service) Login(ctx context.Context, p LoginParams) (*AuthResult, error) {
	user, err := s.accounts.Authenticate(ctx, p.Email, p.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			return nil, newError(KindUnauthorized, MsgInvalidCredentials, err)
		}
		return nil, internal("authenticate", err)
	}

	result, err := s.openSession(ctx, user, p.UserAgent)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in successfully",
		slog.String("user_id", user.ID),
		slog.String("session_id", result.SessionID))

	return result, nil
}

// openSession создает сессию и подписывает пару токенов
func (s *Service) openSession(ctx context.Context, user *models.User, userAgent string) (*AuthResult, error) {
	now := s.now()
	session := &models.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: clock.FromNow(now, s.cfg.SessionTTL),
	}

	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, internal("create session", err)
	}

	refreshToken, err := s.tokens.SignRefresh(session.ID)
	if err != nil {
		return nil, internal("sign refresh token", err)
	}

	accessToken, err := s.tokens.SignAccess(session.ID, user.ID)
	if err != nil {
		return nil, internal("sign access token", err)
	}

	return &AuthResult{
		User:         user.View(),
		SessionID:    session.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// createCode создает код подтверждения; ID кода и есть секрет, отправляемый пользователю
func (s *Service) createCode(
	ctx context.Context,
	userID string,
	codeType models.VerificationCodeType,
	ttl time.Duration,
) (*models.VerificationCode, error) {
	now := s.now()
	code := &models.VerificationCode{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      codeType,
		CreatedAt: now,
		ExpiresAt: clock.FromNow(now, ttl),
	}

	if err := s.codes.CreateCode(ctx, code); err != nil {
		return nil, internal(fmt.Sprintf("create %s code", codeType), err)
	}

	return code, nil
}

// VerifyEmailURL is the link sent in the verification email.
func (s *Service) VerifyEmailURL(codeID string) string {
	return s.cfg.AppOrigin + "/auth/email/verified/" + codeID
}

// PasswordResetURL is the link sent in the password reset email.
// exp is the code expiry in Unix milliseconds.
func (s *Service) PasswordResetURL(codeID string, expiresAt time.Time) string {
	return fmt.Sprintf("%s/password/reset?code=%s&exp=%d", s.cfg.AppOrigin, codeID, expiresAt.UnixMilli())
}
