package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/iudanet/authkeeper/internal/clock"
	"github.com/iudanet/authkeeper/internal/models"
	"github.com/iudanet/authkeeper/internal/server/mail"
	"github.com/iudanet/authkeeper/internal/server/storage"
)

// ResetRequestResult is returned by SendPasswordResetEmail.
type ResetRequestResult struct {
	URL     string
	EmailID string
}

// ResetPasswordParams is the input of ResetPassword.
type ResetPasswordParams struct {
	VerificationCode string
	Password         string
}

// VerifyEmail consumes an email verification code and marks its user verified.
func (s *Service) VerifyEmail(ctx context.Context, codeID string) (*models.UserView, error) {
	code, err := s.consumeCode(ctx, codeID, models.EmailVerification, MsgInvalidCode)
	if err != nil {
		return nil, err
	}

	user, err := s.accounts.SetVerified(ctx, code.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, newError(KindInternal, MsgVerifyEmailFailed, err)
		}
		return nil, internal("set verified", err)
	}

	s.logger.InfoContext(ctx, "email verified", slog.String("user_id", user.ID))

	view := user.View()
	return &view, nil
}

// SendPasswordResetEmail issues a password reset code and emails the link.
// Unlike registration, a delivery failure fails the request.
func (s *Service) SendPasswordResetEmail(ctx context.Context, email string) (*ResetRequestResult, error) {
	user, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, newError(KindNotFound, MsgUserNotFound, err)
		}
		return nil, internal("get user", err)
	}

	// счетчик читается без транзакции: при гонке может пройти один лишний код
	now := s.now()
	count, err := s.codes.CountCodesSince(ctx, user.ID, models.PasswordReset, clock.Ago(now, s.cfg.ResetLimitWindow), now)
	if err != nil {
		return nil, internal("count reset codes", err)
	}
	if count > s.cfg.ResetLimitMax {
		s.logger.WarnContext(ctx, "password reset rate limited",
			slog.String("user_id", user.ID),
			slog.Int("recent_codes", count))
		return nil, newError(KindTooManyRequests, MsgTooManyRequests, nil)
	}

	code, err := s.createCode(ctx, user.ID, models.PasswordReset, s.cfg.PasswordResetTTL)
	if err != nil {
		return nil, err
	}

	url := s.PasswordResetURL(code.ID, code.ExpiresAt)
	emailID, err := s.mailer.Send(ctx, mail.PasswordReset(user.Email, url))
	if err != nil || emailID == "" {
		if err == nil {
			err = errors.New("mailer returned no confirmation id")
		}
		return nil, newError(KindInternal, MsgResetEmailFailed, err)
	}

	s.logger.InfoContext(ctx, "password reset email sent",
		slog.String("user_id", user.ID),
		slog.String("email_id", emailID))

	return &ResetRequestResult{URL: url, EmailID: emailID}, nil
}

// ResetPassword consumes a reset code, sets the new password and revokes
// every session of the user.
func (s *Service) ResetPassword(ctx context.Context, p ResetPasswordParams) (*models.UserView, error) {
	code, err := s.consumeCode(ctx, p.VerificationCode, models.PasswordReset, MsgInvalidResetCode)
	if err != nil {
		return nil, err
	}

	user, err := s.accounts.UpdatePassword(ctx, code.UserID, p.Password)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, newError(KindInternal, MsgResetPasswordFailed, err)
		}
		return nil, internal("update password", err)
	}

	revoked, err := s.sessions.DeleteUserSessions(ctx, user.ID)
	if err != nil {
		return nil, internal("delete user sessions", err)
	}

	s.logger.InfoContext(ctx, "password reset",
		slog.String("user_id", user.ID),
		slog.Int("sessions_revoked", revoked))

	view := user.View()
	return &view, nil
}

// consumeCode находит действующий код и удаляет его до изменения данных.
// Удаление служит атомарным захватом: при гонке второй вызов получит not found.
func (s *Service) consumeCode(
	ctx context.Context,
	codeID string,
	codeType models.VerificationCodeType,
	notFoundMsg string,
) (*models.VerificationCode, error) {
	code, err := s.codes.FindValidCode(ctx, codeID, codeType, s.now())
	if err != nil {
		if errors.Is(err, storage.ErrCodeNotFound) {
			return nil, newError(KindNotFound, notFoundMsg, err)
		}
		return nil, internal("find code", err)
	}

	if err := s.codes.DeleteCode(ctx, code.ID); err != nil {
		if errors.Is(err, storage.ErrCodeNotFound) {
			return nil, newError(KindNotFound, notFoundMsg, err)
		}
		return nil, internal("delete code", err)
	}

	return code, nil
}
