// Package api is the HTTP client of the authkeeper server.
// It stores the server's auth cookies in a TokenStore and replays them,
// refreshing the access token once when the server reports it as invalid.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/iudanet/authkeeper/internal/client/storage"
	"github.com/iudanet/authkeeper/pkg/api"
)

const userAgent = "authkeeper-cli"

// TokenStore хранит cookie сессии между запусками клиента
type TokenStore interface {
	SaveAuth(ctx context.Context, auth *storage.AuthData) error
	GetAuth(ctx context.Context) (*storage.AuthData, error)
	DeleteAuth(ctx context.Context) error
}

// APIError is a non-2xx server response.
type APIError struct {
	Message    string
	ErrorCode  string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	store      TokenStore
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string, store TokenStore) *Client {
	return &Client{
		baseURL: baseURL,
		store:   store,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Ограничиваем количество редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		},
	}
}

// Register регистрирует нового пользователя; сервер сразу открывает сессию
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.UserResponse, error) {
	var resp api.UserResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/register", req, &resp); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	if err := c.rememberEmail(ctx, req.Email); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.UserResponse, error) {
	var resp api.UserResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	if err := c.rememberEmail(ctx, req.Email); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout завершает сессию на сервере и всегда удаляет локальные токены
func (c *Client) Logout(ctx context.Context) error {
	// Сервер закрывает сессию по access токену, поэтому истекший сначала обновляем
	if auth, err := c.session(ctx); err == nil && !auth.AccessValid(time.Now()) && auth.RefreshToken != "" {
		_ = c.Refresh(ctx)
	}

	reqErr := c.doRequest(ctx, http.MethodGet, "/auth/logout", nil, nil)

	if err := c.store.DeleteAuth(ctx); err != nil && !errors.Is(err, storage.ErrAuthNotFound) {
		return fmt.Errorf("failed to delete local session: %w", err)
	}
	if reqErr != nil {
		return fmt.Errorf("logout request failed: %w", reqErr)
	}
	return nil
}

// Refresh обменивает refresh cookie на новый access токен
func (c *Client) Refresh(ctx context.Context) error {
	if err := c.send(ctx, http.MethodGet, api.RefreshPath, nil, nil, false); err != nil {
		return fmt.Errorf("refresh request failed: %w", err)
	}
	return nil
}

// VerifyEmail подтверждает email кодом из письма
func (c *Client) VerifyEmail(ctx context.Context, code string) (*api.MessageResponse, error) {
	var resp api.MessageResponse
	if err := c.doRequest(ctx, http.MethodGet, "/auth/email/verify/"+url.PathEscape(code), nil, &resp); err != nil {
		return nil, fmt.Errorf("verify email request failed: %w", err)
	}
	return &resp, nil
}

// ForgotPassword запрашивает письмо со ссылкой сброса пароля
func (c *Client) ForgotPassword(ctx context.Context, email string) (*api.ForgotPasswordResponse, error) {
	var resp api.ForgotPasswordResponse
	req := api.ForgotPasswordRequest{Email: email}
	if err := c.doRequest(ctx, http.MethodPost, "/auth/password/forgot", req, &resp); err != nil {
		return nil, fmt.Errorf("forgot password request failed: %w", err)
	}
	return &resp, nil
}

// ResetPassword устанавливает новый пароль; все сессии пользователя закрываются
func (c *Client) ResetPassword(ctx context.Context, req api.ResetPasswordRequest) (*api.MessageResponse, error) {
	var resp api.MessageResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/password/reset", req, &resp); err != nil {
		return nil, fmt.Errorf("reset password request failed: %w", err)
	}
	return &resp, nil
}

// CurrentUser возвращает пользователя текущей сессии
func (c *Client) CurrentUser(ctx context.Context) (*api.UserResponse, error) {
	var resp api.UserResponse
	if err := c.doRequest(ctx, http.MethodGet, "/user", nil, &resp); err != nil {
		return nil, fmt.Errorf("get user request failed: %w", err)
	}
	return &resp, nil
}

// ListSessions возвращает активные сессии пользователя
func (c *Client) ListSessions(ctx context.Context) ([]api.SessionResponse, error) {
	var resp []api.SessionResponse
	if err := c.doRequest(ctx, http.MethodGet, "/sessions", nil, &resp); err != nil {
		return nil, fmt.Errorf("list sessions request failed: %w", err)
	}
	return resp, nil
}

// DeleteSession завершает одну из сессий пользователя
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete session request failed: %w", err)
	}
	return nil
}

// doRequest выполняет запрос и при InvalidAccessToken один раз обновляет токен
func (c *Client) doRequest(ctx context.Context, method, path string, body, result interface{}) error {
	err := c.send(ctx, method, path, body, result, true)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized ||
		apiErr.ErrorCode != api.ErrorCodeInvalidAccessToken {
		return err
	}

	auth, loadErr := c.session(ctx)
	if loadErr != nil || auth.RefreshToken == "" {
		return err
	}

	if refreshErr := c.Refresh(ctx); refreshErr != nil {
		return err
	}

	return c.send(ctx, method, path, body, result, true)
}

// send выполняет один HTTP запрос с cookie из хранилища
func (c *Client) send(ctx context.Context, method, path string, body, result interface{}, withAccess bool) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", userAgent)

	auth, err := c.session(ctx)
	if err != nil {
		return err
	}
	// Браузер отправляет refresh cookie только на RefreshPath, делаем так же
	if withAccess && auth.AccessToken != "" {
		req.AddCookie(&http.Cookie{Name: api.AccessTokenCookie, Value: auth.AccessToken})
	}
	if path == api.RefreshPath && auth.RefreshToken != "" {
		req.AddCookie(&http.Cookie{Name: api.RefreshTokenCookie, Value: auth.RefreshToken})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if err := c.storeCookies(ctx, resp.Cookies()); err != nil {
		return err
	}

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			apiErr.Message = errResp.Message
			if apiErr.Message == "" {
				apiErr.Message = errResp.Error
			}
			apiErr.ErrorCode = errResp.ErrorCode
		}
		return apiErr
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// session загружает сохраненные токены; пустая сессия не ошибка
func (c *Client) session(ctx context.Context) (*storage.AuthData, error) {
	auth, err := c.store.GetAuth(ctx)
	if errors.Is(err, storage.ErrAuthNotFound) {
		return &storage.AuthData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return auth, nil
}

// storeCookies применяет Set-Cookie ответа к локальной сессии
func (c *Client) storeCookies(ctx context.Context, cookies []*http.Cookie) error {
	auth, err := c.session(ctx)
	if err != nil {
		return err
	}

	changed := false
	for _, ck := range cookies {
		var token *string
		var expires *int64
		switch ck.Name {
		case api.AccessTokenCookie:
			token, expires = &auth.AccessToken, &auth.AccessExpiresAt
		case api.RefreshTokenCookie:
			token, expires = &auth.RefreshToken, &auth.RefreshExpiresAt
		default:
			continue
		}

		changed = true
		if ck.MaxAge < 0 || ck.Value == "" {
			*token, *expires = "", 0
			continue
		}
		*token, *expires = ck.Value, ck.Expires.Unix()
	}

	if !changed {
		return nil
	}

	if auth.AccessToken == "" && auth.RefreshToken == "" {
		if err := c.store.DeleteAuth(ctx); err != nil && !errors.Is(err, storage.ErrAuthNotFound) {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	}

	if err := c.store.SaveAuth(ctx, auth); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (c *Client) rememberEmail(ctx context.Context, email string) error {
	auth, err := c.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load session: %w", err)
	}
	auth.Email = email
	if err := c.store.SaveAuth(ctx, auth); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
