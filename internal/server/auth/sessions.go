package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/iudanet/authkeeper/internal/clock"
	"github.com/iudanet/authkeeper/internal/models"
	"github.com/iudanet/authkeeper/internal/server/storage"
	"github.com/iudanet/authkeeper/internal/server/token"
)

// RefreshResult is returned by Refresh. RefreshToken is empty unless the
// session was close enough to expiry to be extended.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// Principal identifies the caller of an authenticated request.
type Principal struct {
	UserID    string
	SessionID string
}

// SessionView is a session as listed to its owner.
type SessionView struct {
	models.Session
	Current bool
}

// Logout deletes the session named by the access token, if the token is valid.
// It never fails: the caller clears cookies regardless.
func (s *Service) Logout(ctx context.Context, accessToken string) {
	claims, ok := s.tokens.Verify(accessToken, token.Access)
	if !ok {
		return
	}

	if err := s.sessions.DeleteSession(ctx, claims.SessionID); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete session on logout",
			slog.String("session_id", claims.SessionID),
			slog.Any("error", err))
		return
	}

	s.logger.InfoContext(ctx, "user logged out successfully",
		slog.String("user_id", claims.UserID),
		slog.String("session_id", claims.SessionID))
}

// Refresh issues a new access token for the session bound to refreshToken.
// When the session expires within the renewal window it is extended and a
// new refresh token is issued as well.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, ok := s.tokens.Verify(refreshToken, token.Refresh)
	if !ok {
		return nil, newError(KindUnauthorized, MsgInvalidRefreshToken, nil)
	}

	now := s.now()
	session, err := s.activeSession(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}

	result := &RefreshResult{}

	if session.ExpiresAt.Sub(now) <= s.cfg.RenewalWindow {
		session.ExpiresAt = clock.FromNow(now, s.cfg.SessionTTL)
		if err := s.sessions.SaveSession(ctx, session); err != nil {
			if errors.Is(err, storage.ErrSessionNotFound) {
				return nil, newError(KindUnauthorized, MsgSessionExpired, err)
			}
			return nil, internal("save session", err)
		}

		result.RefreshToken, err = s.tokens.SignRefresh(session.ID)
		if err != nil {
			return nil, internal("sign refresh token", err)
		}

		s.logger.InfoContext(ctx, "session renewed",
			slog.String("session_id", session.ID),
			slog.Time("expires_at", session.ExpiresAt))
	}

	result.AccessToken, err = s.tokens.SignAccess(session.ID, session.UserID)
	if err != nil {
		return nil, internal("sign access token", err)
	}

	return result, nil
}

// Authenticate validates an access token and checks that its session is
// still alive, so logout and password reset revoke access immediately.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	claims, ok := s.tokens.Verify(accessToken, token.Access)
	if !ok || claims.UserID == "" {
		return nil, newError(KindUnauthorized, MsgInvalidAccessToken, nil)
	}

	session, err := s.activeSession(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}

	return &Principal{UserID: session.UserID, SessionID: session.ID}, nil
}

// activeSession загружает сессию; отсутствующая и истекшая сессии неотличимы
func (s *Service) activeSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, newError(KindUnauthorized, MsgSessionExpired, err)
		}
		return nil, internal("get session", err)
	}

	if !session.Active(s.now()) {
		return nil, newError(KindUnauthorized, MsgSessionExpired, nil)
	}

	return session, nil
}

// CurrentUser returns the projected user of an authenticated request.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*models.UserView, error) {
	user, err := s.accounts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, newError(KindNotFound, MsgUserNotFound, err)
		}
		return nil, internal("get user", err)
	}

	view := user.View()
	return &view, nil
}

// ListSessions returns the caller's unexpired sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, p Principal) ([]SessionView, error) {
	sessions, err := s.sessions.ListActiveSessions(ctx, p.UserID, s.now())
	if err != nil {
		return nil, internal("list sessions", err)
	}

	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, SessionView{
			Session: *session,
			Current: session.ID == p.SessionID,
		})
	}

	return views, nil
}

// DeleteSession revokes one of the caller's sessions.
func (s *Service) DeleteSession(ctx context.Context, p Principal, sessionID string) error {
	if err := s.sessions.DeleteUserSession(ctx, sessionID, p.UserID); err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return newError(KindNotFound, MsgSessionNotFound, err)
		}
		return internal("delete session", err)
	}

	s.logger.InfoContext(ctx, "session revoked",
		slog.String("user_id", p.UserID),
		slog.String("session_id", sessionID))

	return nil
}
