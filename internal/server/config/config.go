// Package config собирает конфигурацию сервера: значения по умолчанию,
// необязательный файл конфигурации, переменные окружения AUTHKEEPER_* и флаги.
// Config строится один раз при старте и передается в компоненты явно.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/iudanet/authkeeper/internal/clock"
)

// EnvPrefix is the prefix of environment overrides, e.g. AUTHKEEPER_JWT_ACCESS_SECRET.
const EnvPrefix = "AUTHKEEPER"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds runtime settings for the authkeeper server.
type Config struct {
	Database   DatabaseConfig  `mapstructure:"database"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Mail       MailConfig      `mapstructure:"mail"`
	Log        LogConfig       `mapstructure:"log"`
	Env        string          `mapstructure:"env"`
	Addr       string          `mapstructure:"addr"`
	AppOrigin  string          `mapstructure:"app_origin"`
	JWT        JWTConfig       `mapstructure:"jwt"`
	Session    SessionConfig   `mapstructure:"session"`
	Codes      CodesConfig     `mapstructure:"codes"`
	RateLimit  RateLimitConfig `mapstructure:"ratelimit"`
	BcryptCost int             `mapstructure:"bcrypt_cost"`
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres | memory
	DSN    string `mapstructure:"dsn"`
}

// JWTConfig содержит секреты и время жизни токенов
type JWTConfig struct {
	AccessSecret  string        `mapstructure:"access_secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	Audience      string        `mapstructure:"audience"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
}

// SessionConfig controls session lifetime and lazy renewal.
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	RenewalWindow time.Duration `mapstructure:"renewal_window"`
}

// CodesConfig controls verification code lifetimes and the reset rate limit.
type CodesConfig struct {
	EmailVerificationTTL time.Duration `mapstructure:"email_verification_ttl"`
	PasswordResetTTL     time.Duration `mapstructure:"password_reset_ttl"`
	ResetLimitWindow     time.Duration `mapstructure:"reset_limit_window"`
	// ResetLimitMax - сколько неистекших кодов сброса допускается в окне до отказа
	ResetLimitMax int `mapstructure:"reset_limit_max"`
}

// RateLimitConfig is the per-IP limit applied to /auth endpoints.
// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is believed;
// when empty the limit is keyed on the socket address.
type RateLimitConfig struct {
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
	Requests       int           `mapstructure:"requests"`
	Window         time.Duration `mapstructure:"window"`
}

// RedisConfig enables the shared rate limiter when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MailConfig содержит адрес отправителя писем
type MailConfig struct {
	From string `mapstructure:"from"`
}

// LogConfig sets the slog level: debug, info, warn or error.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Default returns development defaults.
// Secrets are intentionally empty: the server refuses to start without them.
func Default() *Config {
	return &Config{
		Env:       "development",
		Addr:      ":8080",
		AppOrigin: "http://localhost:5173",
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			DSN:    "authkeeper.db",
		},
		JWT: JWTConfig{
			Audience:   "user",
			AccessTTL:  clock.FifteenMinutes,
			RefreshTTL: clock.ThirtyDays,
		},
		Session: SessionConfig{
			TTL:           clock.ThirtyDays,
			RenewalWindow: clock.OneDay,
		},
		Codes: CodesConfig{
			EmailVerificationTTL: clock.OneYear,
			PasswordResetTTL:     clock.OneHour,
			ResetLimitWindow:     clock.FiveMinutes,
			ResetLimitMax:        1,
		},
		RateLimit: RateLimitConfig{
			Requests: 20,
			Window:   time.Minute,
		},
		Mail: MailConfig{From: "authkeeper <no-reply@localhost>"},
		Log:  LogConfig{Level: "info"},
	}
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.AccessSecret == "" {
		errs = append(errs, errors.New("jwt.access_secret is required"))
	}
	if c.JWT.RefreshSecret == "" {
		errs = append(errs, errors.New("jwt.refresh_secret is required"))
	}
	if c.JWT.AccessSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, errors.New("jwt.access_secret and jwt.refresh_secret must differ"))
	}

	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}

	durations := map[string]time.Duration{
		"jwt.access_ttl":               c.JWT.AccessTTL,
		"jwt.refresh_ttl":              c.JWT.RefreshTTL,
		"session.ttl":                  c.Session.TTL,
		"session.renewal_window":       c.Session.RenewalWindow,
		"codes.email_verification_ttl": c.Codes.EmailVerificationTTL,
		"codes.password_reset_ttl":     c.Codes.PasswordResetTTL,
		"codes.reset_limit_window":     c.Codes.ResetLimitWindow,
		"ratelimit.window":             c.RateLimit.Window,
	}
	for key, d := range durations {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", key))
		}
	}

	if c.Codes.ResetLimitMax < 0 {
		errs = append(errs, errors.New("codes.reset_limit_max must not be negative"))
	}
	if c.RateLimit.Requests <= 0 {
		errs = append(errs, errors.New("ratelimit.requests must be positive"))
	}
	if c.AppOrigin == "" {
		errs = append(errs, errors.New("app_origin is required"))
	}

	return errors.Join(errs...)
}

// Load builds a Config: defaults, then the optional config file, then
// AUTHKEEPER_* environment variables, then command-line flags.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("authkeeper-server", pflag.ContinueOnError)
	configFile := fs.StringP("config", "c", "", "path to config file (yaml, json or toml)")
	fs.StringP("addr", "a", "", "address to listen on")
	fs.String("app-origin", "", "frontend origin used in emailed links")
	fs.StringP("database-driver", "d", "", "storage backend: sqlite, postgres or memory")
	fs.String("database-dsn", "", "database DSN or sqlite file path")
	fs.String("redis-addr", "", "redis address for the shared rate limiter")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.StringSlice("trusted-proxies", nil, "proxy IPs or CIDRs allowed to set X-Forwarded-For")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	flagKeys := map[string]string{
		"addr":            "addr",
		"app-origin":      "app_origin",
		"database-driver": "database.driver",
		"database-dsn":    "database.dsn",
		"redis-addr":      "redis.addr",
		"log-level":       "log.level",
		"trusted-proxies": "ratelimit.trusted_proxies",
	}
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, nil
}

// setDefaults регистрирует все ключи в viper, чтобы AutomaticEnv видел вложенные поля
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("env", d.Env)
	v.SetDefault("addr", d.Addr)
	v.SetDefault("app_origin", d.AppOrigin)
	v.SetDefault("bcrypt_cost", d.BcryptCost)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("jwt.access_secret", d.JWT.AccessSecret)
	v.SetDefault("jwt.refresh_secret", d.JWT.RefreshSecret)
	v.SetDefault("jwt.audience", d.JWT.Audience)
	v.SetDefault("jwt.access_ttl", d.JWT.AccessTTL)
	v.SetDefault("jwt.refresh_ttl", d.JWT.RefreshTTL)
	v.SetDefault("session.ttl", d.Session.TTL)
	v.SetDefault("session.renewal_window", d.Session.RenewalWindow)
	v.SetDefault("codes.email_verification_ttl", d.Codes.EmailVerificationTTL)
	v.SetDefault("codes.password_reset_ttl", d.Codes.PasswordResetTTL)
	v.SetDefault("codes.reset_limit_window", d.Codes.ResetLimitWindow)
	v.SetDefault("codes.reset_limit_max", d.Codes.ResetLimitMax)
	v.SetDefault("ratelimit.requests", d.RateLimit.Requests)
	v.SetDefault("ratelimit.window", d.RateLimit.Window)
	v.SetDefault("ratelimit.trusted_proxies", d.RateLimit.TrustedProxies)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("mail.from", d.Mail.From)
	v.SetDefault("log.level", d.Log.Level)
}
