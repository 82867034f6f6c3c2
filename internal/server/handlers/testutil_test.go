package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/authkeeper/internal/crypto"
	"github.com/iudanet/authkeeper/internal/server/accounts"
	"github.com/iudanet/authkeeper/internal/server/auth"
	"github.com/iudanet/authkeeper/internal/server/config"
	"github.com/iudanet/authkeeper/internal/server/mail"
	"github.com/iudanet/authkeeper/internal/server/storage/memory"
	"github.com/iudanet/authkeeper/internal/server/token"
)

var startTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// setupTestLogger создает logger для тестов
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// captureMailer запоминает отправленные письма
type captureMailer struct {
	sent []mail.Message
	mu   sync.Mutex
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return "email-" + msg.To, nil
}

// lastLink возвращает ссылку из последнего письма
func (m *captureMailer) lastLink(t *testing.T) *url.URL {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)

	text := m.sent[len(m.sent)-1].Text
	idx := strings.Index(text, "http://")
	require.GreaterOrEqual(t, idx, 0, "no link in %q", text)

	u, err := url.Parse(strings.TrimSpace(text[idx:]))
	require.NoError(t, err)
	return u
}

type testEnv struct {
	now     time.Time
	svc     *auth.Service
	store   *memory.Storage
	mailer  *captureMailer
	auth    *AuthHandler
	user    *UserHandler
	cookies CookieConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{now: startTime}
	clk := func() time.Time { return env.now }

	cfg := config.Default()
	cfg.AppOrigin = "http://app.test"
	cfg.JWT.AccessSecret = "access-secret"
	cfg.JWT.RefreshSecret = "refresh-secret"

	tokens, err := token.New(cfg.JWT, clk)
	require.NoError(t, err)

	env.store = memory.New()
	env.mailer = &captureMailer{}
	logger := setupTestLogger()
	directory := accounts.NewDirectory(env.store, crypto.NewBcryptHasher(bcrypt.MinCost), clk)
	env.svc = auth.NewService(logger, auth.ConfigFrom(cfg), directory, env.store, env.store, tokens, env.mailer, clk)

	env.cookies = CookieConfig{Now: clk, AccessTTL: cfg.JWT.AccessTTL, RefreshTTL: cfg.JWT.RefreshTTL}
	env.auth = NewAuthHandler(logger, env.svc, env.cookies)
	env.user = NewUserHandler(logger, env.svc)

	return env
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(dst))
}

// cookieByName находит cookie, выставленную ответом
func cookieByName(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// register регистрирует пользователя через handler и возвращает обе cookie
func (e *testEnv) register(t *testing.T, email string) (access, refresh *http.Cookie) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/auth/register", jsonBody(t, map[string]string{
		"name":            "Alice",
		"email":           email,
		"password":        "secret1",
		"confirmPassword": "secret1",
	}))
	req.Header.Set("User-Agent", "test-agent")
	w := httptest.NewRecorder()

	e.auth.Register(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	access = cookieByName(w, AccessTokenCookie)
	refresh = cookieByName(w, RefreshTokenCookie)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	return access, refresh
}

// login выполняет вход и возвращает обе cookie
func (e *testEnv) login(t *testing.T, email, password string) (access, refresh *http.Cookie) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/auth/login", jsonBody(t, map[string]string{
		"email":    email,
		"password": password,
	}))
	w := httptest.NewRecorder()

	e.auth.Login(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	return cookieByName(w, AccessTokenCookie), cookieByName(w, RefreshTokenCookie)
}

// authenticated кладет в контекст запроса пользователя, как это делает middleware
func (e *testEnv) authenticated(t *testing.T, r *http.Request, access *http.Cookie) *http.Request {
	t.Helper()
	p, err := e.svc.Authenticate(r.Context(), access.Value)
	require.NoError(t, err)
	return r.WithContext(WithPrincipal(r.Context(), *p))
}
