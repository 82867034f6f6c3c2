// Package server собирает HTTP маршруты и управляет жизненным циклом http.Server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/authkeeper/internal/server/handlers"
	"github.com/iudanet/authkeeper/internal/server/middleware"
)

const shutdownTimeout = 10 * time.Second

// Deps - зависимости, из которых собирается сервер
type Deps struct {
	Logger    *slog.Logger
	Service   handlers.AuthService
	Store     handlers.Pinger
	Limiter   middleware.Limiter
	Proxies   middleware.TrustedProxies
	Cookies   handlers.CookieConfig
	AppOrigin string
	Version   string
}

// Server - HTTP сервер authkeeper
type Server struct {
	logger *slog.Logger
	http   *http.Server
}

// New создает сервер, слушающий addr
func New(addr string, deps Deps) *Server {
	return &Server{
		logger: deps.Logger,
		http: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(deps),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// NewRouter регистрирует все маршруты и оборачивает их в middleware
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger

	healthHandler := handlers.NewHealthHandler(logger, deps.Store, deps.Version)
	authHandler := handlers.NewAuthHandler(logger, deps.Service, deps.Cookies)
	userHandler := handlers.NewUserHandler(logger, deps.Service)

	rateLimit := middleware.RateLimitMiddleware(deps.Limiter, deps.Proxies, logger)
	authenticate := middleware.AuthMiddleware(logger, deps.Service)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", healthHandler.Health)

	// Публичные маршруты /auth/* с ограничением частоты по IP
	mux.Handle("POST /auth/register", rateLimit(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /auth/login", rateLimit(http.HandlerFunc(authHandler.Login)))
	mux.Handle("GET /auth/logout", rateLimit(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /auth/refresh", rateLimit(http.HandlerFunc(authHandler.Refresh)))
	mux.Handle("GET /auth/email/verify/{code}", rateLimit(http.HandlerFunc(authHandler.VerifyEmail)))
	mux.Handle("POST /auth/password/forgot", rateLimit(http.HandlerFunc(authHandler.ForgotPassword)))
	mux.Handle("POST /auth/password/reset", rateLimit(http.HandlerFunc(authHandler.ResetPassword)))

	// Защищенные маршруты
	mux.Handle("GET /user", authenticate(http.HandlerFunc(userHandler.GetUser)))
	mux.Handle("GET /sessions", authenticate(http.HandlerFunc(userHandler.ListSessions)))
	mux.Handle("DELETE /sessions/{id}", authenticate(http.HandlerFunc(userHandler.DeleteSession)))

	// Снаружи внутрь: request id -> logging -> recovery -> CORS -> mux
	var handler http.Handler = mux
	handler = middleware.CORSMiddleware(deps.AppOrigin)(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)
	handler = middleware.LoggingWithSkip(logger, []string{"/"})(handler)
	handler = middleware.RequestID(handler)

	return handler
}

// Run запускает сервер и блокируется до отмены ctx, после чего
// корректно завершает обработку текущих запросов.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("Server listening", slog.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen and serve: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return <-errCh
}
