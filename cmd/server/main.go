package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/iudanet/authkeeper/internal/crypto"
	"github.com/iudanet/authkeeper/internal/server"
	"github.com/iudanet/authkeeper/internal/server/accounts"
	"github.com/iudanet/authkeeper/internal/server/auth"
	"github.com/iudanet/authkeeper/internal/server/config"
	"github.com/iudanet/authkeeper/internal/server/handlers"
	"github.com/iudanet/authkeeper/internal/server/mail"
	"github.com/iudanet/authkeeper/internal/server/middleware"
	"github.com/iudanet/authkeeper/internal/server/storage"
	"github.com/iudanet/authkeeper/internal/server/storage/memory"
	"github.com/iudanet/authkeeper/internal/server/storage/sqlstore"
	"github.com/iudanet/authkeeper/internal/server/token"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" {
			printVersion()
			os.Exit(0)
		}
	}

	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "authkeeper server: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proxies, err := middleware.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		return fmt.Errorf("invalid ratelimit.trusted_proxies: %w", err)
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", slog.Any("error", err))
		}
	}()

	limiter, closeLimiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	tokens, err := token.New(cfg.JWT, nil)
	if err != nil {
		return err
	}

	directory := accounts.NewDirectory(store, crypto.NewBcryptHasher(cfg.BcryptCost), nil)
	mailer := mail.NewLogMailer(logger, cfg.Mail.From)
	svc := auth.NewService(logger, auth.ConfigFrom(cfg), directory, store, store, tokens, mailer, nil)

	logger.Info("authkeeper server starting",
		slog.String("version", Version),
		slog.String("env", cfg.Env),
		slog.String("database", cfg.Database.Driver))

	srv := server.New(cfg.Addr, server.Deps{
		Logger:  logger,
		Service: svc,
		Store:   store,
		Limiter: limiter,
		Proxies: proxies,
		Cookies: handlers.CookieConfig{
			AccessTTL:  cfg.JWT.AccessTTL,
			RefreshTTL: cfg.JWT.RefreshTTL,
			Secure:     !cfg.IsDevelopment(),
		},
		AppOrigin: cfg.AppOrigin,
		Version:   Version,
	})

	if err := srv.Run(ctx); err != nil {
		return err
	}

	logger.Info("Server stopped")
	return nil
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})), nil
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if cfg.Database.Driver == config.DriverMemory {
		return memory.New(), nil
	}

	dialect, err := sqlstore.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	store, err := sqlstore.New(ctx, dialect, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Database.Driver, err)
	}

	return store, nil
}

// newLimiter выбирает Redis, если он настроен, иначе лимит хранится в памяти процесса
func newLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (middleware.Limiter, func(), error) {
	if cfg.Redis.Addr == "" {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, logger)
		return limiter, limiter.Stop, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close redis client", slog.Any("error", err))
		}
	}

	return middleware.NewRedisLimiter(client, cfg.RateLimit.Requests, cfg.RateLimit.Window), closeFn, nil
}

func printVersion() {
	fmt.Printf("authkeeper server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
