package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/iudanet/authkeeper/internal/server/auth"
	"github.com/iudanet/authkeeper/internal/server/handlers"
	"github.com/iudanet/authkeeper/pkg/api"
)

// Authenticator проверяет access токен и возвращает владельца сессии
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*auth.Principal, error)
}

// AuthMiddleware создает middleware для проверки access токена.
// Токен берется из cookie accessToken или заголовка Authorization: Bearer.
func AuthMiddleware(logger *slog.Logger, authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			accessToken := handlers.TokenFromRequest(r, handlers.AccessTokenCookie)
			if accessToken == "" {
				logger.WarnContext(ctx, "Missing access token", slog.String("path", r.URL.Path))
				handlers.SendError(logger, w, "Not authorized", api.ErrorCodeInvalidAccessToken, http.StatusUnauthorized)
				return
			}

			principal, err := authn.Authenticate(ctx, accessToken)
			if err != nil {
				if auth.KindOf(err) != auth.KindUnauthorized {
					handlers.WriteError(logger, w, r, err)
					return
				}
				// клиент должен вызвать /auth/refresh
				logger.WarnContext(ctx, "Invalid access token", slog.Any("error", err))
				handlers.SendError(logger, w, auth.MessageOf(err), api.ErrorCodeInvalidAccessToken, http.StatusUnauthorized)
				return
			}

			logger.DebugContext(ctx, "User authenticated",
				slog.String("user_id", principal.UserID),
				slog.String("session_id", principal.SessionID))

			next.ServeHTTP(w, r.WithContext(handlers.WithPrincipal(ctx, *principal)))
		})
	}
}
