package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/authkeeper/internal/client/storage"
	"github.com/iudanet/authkeeper/internal/crypto"
	"github.com/iudanet/authkeeper/internal/server"
	"github.com/iudanet/authkeeper/internal/server/accounts"
	"github.com/iudanet/authkeeper/internal/server/auth"
	"github.com/iudanet/authkeeper/internal/server/config"
	"github.com/iudanet/authkeeper/internal/server/handlers"
	"github.com/iudanet/authkeeper/internal/server/mail"
	"github.com/iudanet/authkeeper/internal/server/middleware"
	"github.com/iudanet/authkeeper/internal/server/storage/memory"
	"github.com/iudanet/authkeeper/internal/server/token"
	"github.com/iudanet/authkeeper/pkg/api"
)

// memStore хранит сессию клиента в памяти
type memStore struct {
	auth *storage.AuthData
	mu   sync.Mutex
}

func (m *memStore) SaveAuth(_ context.Context, a *storage.AuthData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.auth = &cp
	return nil
}

func (m *memStore) GetAuth(context.Context) (*storage.AuthData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.auth == nil {
		return nil, storage.ErrAuthNotFound
	}
	cp := *m.auth
	return &cp, nil
}

func (m *memStore) DeleteAuth(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.auth == nil {
		return storage.ErrAuthNotFound
	}
	m.auth = nil
	return nil
}

// captureMailer запоминает тексты писем
type captureMailer struct {
	texts []string
	mu    sync.Mutex
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, msg.Text)
	return "email-id", nil
}

// lastCode достает код из последней ссылки в письме
func (m *captureMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.texts)

	text := m.texts[len(m.texts)-1]
	idx := strings.Index(text, "http://")
	require.GreaterOrEqual(t, idx, 0)
	link := strings.Fields(text[idx:])[0]

	if _, query, ok := strings.Cut(link, "code="); ok {
		code, _, _ := strings.Cut(query, "&")
		return code
	}
	return link[strings.LastIndex(link, "/")+1:]
}

type testServer struct {
	now    time.Time
	srv    *httptest.Server
	mailer *captureMailer
	mu     sync.Mutex
}

func (s *testServer) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *testServer) advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{now: time.Now(), mailer: &captureMailer{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.Default()
	cfg.AppOrigin = "http://app.test"
	cfg.JWT.AccessSecret = "access-secret"
	cfg.JWT.RefreshSecret = "refresh-secret"

	tokens, err := token.New(cfg.JWT, ts.clock)
	require.NoError(t, err)

	store := memory.New()
	directory := accounts.NewDirectory(store, crypto.NewBcryptHasher(bcrypt.MinCost), ts.clock)
	svc := auth.NewService(logger, auth.ConfigFrom(cfg), directory, store, store, tokens, ts.mailer, ts.clock)

	limiter := middleware.NewRateLimiter(1000, time.Minute, logger)
	t.Cleanup(limiter.Stop)

	ts.srv = httptest.NewServer(server.NewRouter(server.Deps{
		Logger:    logger,
		Service:   svc,
		Store:     store,
		Limiter:   limiter,
		Cookies:   handlers.CookieConfig{Now: ts.clock, AccessTTL: cfg.JWT.AccessTTL, RefreshTTL: cfg.JWT.RefreshTTL},
		AppOrigin: cfg.AppOrigin,
		Version:   "test",
	}))
	t.Cleanup(ts.srv.Close)

	return ts
}

func registerAlice(t *testing.T, c *Client) {
	t.Helper()
	_, err := c.Register(context.Background(), api.RegisterRequest{
		Name:            "Alice",
		Email:           "alice@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	})
	require.NoError(t, err)
}

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL, &memStore{})

	assert.NotNil(t, client)
	assert.Equal(t, baseURL, client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

func TestClient_RegisterStoresSession(t *testing.T) {
	ts := newTestServer(t)
	store := &memStore{}
	client := NewClient(ts.srv.URL, store)
	ctx := context.Background()

	resp, err := client.Register(ctx, api.RegisterRequest{
		Name:            "Alice",
		Email:           "alice@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", resp.Email)
	assert.False(t, resp.Verified)

	saved, err := store.GetAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", saved.Email)
	assert.NotEmpty(t, saved.AccessToken)
	assert.NotEmpty(t, saved.RefreshToken)
	assert.True(t, saved.AccessValid(ts.clock()))
	assert.True(t, saved.RefreshValid(ts.clock().Add(29*24*time.Hour)))

	user, err := client.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, user.ID)
}

func TestClient_LoginAndSessions(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	first := NewClient(ts.srv.URL, &memStore{})
	registerAlice(t, first)

	second := NewClient(ts.srv.URL, &memStore{})
	user, err := second.Login(ctx, api.LoginRequest{Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.Verified)

	sessions, err := second.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	var other string
	for _, s := range sessions {
		assert.Equal(t, userAgent, s.UserAgent)
		if !s.IsCurrent {
			other = s.ID
		}
	}
	require.NotEmpty(t, other)

	// Вторая сессия закрывает первую
	require.NoError(t, second.DeleteSession(ctx, other))

	// access токен первой сессии еще валиден, но сессия удалена
	_, err = first.CurrentUser(ctx)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
}

func TestClient_LoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	registerAlice(t, NewClient(ts.srv.URL, &memStore{}))

	store := &memStore{}
	client := NewClient(ts.srv.URL, store)
	_, err := client.Login(context.Background(), api.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid email or password", apiErr.Message)

	_, err = store.GetAuth(context.Background())
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)
}

func TestClient_RefreshesExpiredAccessToken(t *testing.T) {
	ts := newTestServer(t)
	store := &memStore{}
	client := NewClient(ts.srv.URL, store)
	ctx := context.Background()
	registerAlice(t, client)

	before, err := store.GetAuth(ctx)
	require.NoError(t, err)

	ts.advance(16 * time.Minute)

	_, err = client.CurrentUser(ctx)
	require.NoError(t, err)

	after, err := store.GetAuth(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before.AccessToken, after.AccessToken)
	// refresh токен ротируется только близко к истечению
	assert.Equal(t, before.RefreshToken, after.RefreshToken)
}

func TestClient_RefreshRotatesNearExpiry(t *testing.T) {
	ts := newTestServer(t)
	store := &memStore{}
	client := NewClient(ts.srv.URL, store)
	ctx := context.Background()
	registerAlice(t, client)

	before, err := store.GetAuth(ctx)
	require.NoError(t, err)

	ts.advance(29*24*time.Hour + time.Hour)
	require.NoError(t, client.Refresh(ctx))

	after, err := store.GetAuth(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before.RefreshToken, after.RefreshToken)
	assert.Greater(t, after.RefreshExpiresAt, before.RefreshExpiresAt)
}

func TestClient_RefreshWithoutSession(t *testing.T) {
	ts := newTestServer(t)
	client := NewClient(ts.srv.URL, &memStore{})

	err := client.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
}

func TestClient_Logout(t *testing.T) {
	ts := newTestServer(t)
	store := &memStore{}
	client := NewClient(ts.srv.URL, store)
	ctx := context.Background()
	registerAlice(t, client)

	require.NoError(t, client.Logout(ctx))

	_, err := store.GetAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)

	_, err = client.CurrentUser(ctx)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))

	// повторный logout без сессии тоже успешен
	require.NoError(t, client.Logout(ctx))
}

func TestClient_VerifyEmail(t *testing.T) {
	ts := newTestServer(t)
	client := NewClient(ts.srv.URL, &memStore{})
	ctx := context.Background()
	registerAlice(t, client)

	code := ts.mailer.lastCode(t)
	msg, err := client.VerifyEmail(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "Email was successfully verified", msg.Message)

	user, err := client.CurrentUser(ctx)
	require.NoError(t, err)
	assert.True(t, user.Verified)

	_, err = client.VerifyEmail(ctx, code)
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestClient_PasswordReset(t *testing.T) {
	ts := newTestServer(t)
	store := &memStore{}
	client := NewClient(ts.srv.URL, store)
	ctx := context.Background()
	registerAlice(t, client)

	resp, err := client.ForgotPassword(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Password reset email sent", resp.Message)
	assert.NotEmpty(t, resp.EmailID)

	code := ts.mailer.lastCode(t)
	_, err = client.ResetPassword(ctx, api.ResetPasswordRequest{VerificationCode: code, Password: "newsecret"})
	require.NoError(t, err)

	// сервер очищает cookie, локальная сессия удаляется
	_, err = store.GetAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)

	_, err = client.Login(ctx, api.LoginRequest{Email: "alice@example.com", Password: "secret1"})
	assert.True(t, IsStatus(err, http.StatusUnauthorized))

	_, err = client.Login(ctx, api.LoginRequest{Email: "alice@example.com", Password: "newsecret"})
	require.NoError(t, err)
}

func TestClient_ForgotPasswordUnknownUser(t *testing.T) {
	ts := newTestServer(t)
	client := NewClient(ts.srv.URL, &memStore{})

	_, err := client.ForgotPassword(context.Background(), "nobody@example.com")
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

// TestClient_ErrorResponses проверяет разбор ошибочных ответов
func TestClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMessage string
		wantCode    string
		status      int
	}{
		{
			name:        "message preferred",
			status:      http.StatusConflict,
			body:        `{"error":"Conflict","message":"Email already in use"}`,
			wantMessage: "Email already in use",
		},
		{
			name:        "error used without message",
			status:      http.StatusInternalServerError,
			body:        `{"error":"Internal Server Error"}`,
			wantMessage: "Internal Server Error",
		},
		{
			name:        "error code kept",
			status:      http.StatusUnauthorized,
			body:        `{"error":"Unauthorized","message":"Not authorized","errorCode":"InvalidAccessToken"}`,
			wantMessage: "Not authorized",
			wantCode:    api.ErrorCodeInvalidAccessToken,
		},
		{
			name:        "non JSON body",
			status:      http.StatusBadGateway,
			body:        "bad gateway",
			wantMessage: "bad gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, &memStore{})
			_, err := client.CurrentUser(context.Background())
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantCode, apiErr.ErrorCode)
		})
	}
}

// TestClient_RetriesOnceAfterRefresh проверяет, что повтор выполняется ровно один раз
func TestClient_RetriesOnceAfterRefresh(t *testing.T) {
	var userCalls, refreshCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case api.RefreshPath:
			refreshCalls++
			if ck, err := r.Cookie(api.RefreshTokenCookie); assert.NoError(t, err) {
				assert.Equal(t, "refresh", ck.Value)
			}
			_, err := r.Cookie(api.AccessTokenCookie)
			assert.ErrorIs(t, err, http.ErrNoCookie)
			http.SetCookie(w, &http.Cookie{Name: api.AccessTokenCookie, Value: "fresh", Path: "/", Expires: time.Now().Add(time.Minute)})
			_ = json.NewEncoder(w).Encode(api.MessageResponse{Message: "Access token refreshed"})
		case "/user":
			userCalls++
			_, err := r.Cookie(api.RefreshTokenCookie)
			assert.ErrorIs(t, err, http.ErrNoCookie)
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "Unauthorized", Message: "Invalid access token", ErrorCode: api.ErrorCodeInvalidAccessToken})
		}
	}))
	defer srv.Close()

	store := &memStore{auth: &storage.AuthData{AccessToken: "stale", RefreshToken: "refresh"}}
	client := NewClient(srv.URL, store)

	_, err := client.CurrentUser(context.Background())
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, 2, userCalls)
	assert.Equal(t, 1, refreshCalls)

	saved, err := store.GetAuth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", saved.AccessToken)
	assert.Equal(t, "refresh", saved.RefreshToken)
}
