package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/iudanet/authkeeper/internal/clock"
	"github.com/iudanet/authkeeper/pkg/api"
)

const (
	// AccessTokenCookie имя cookie с access токеном
	AccessTokenCookie = api.AccessTokenCookie
	// RefreshTokenCookie имя cookie с refresh токеном
	RefreshTokenCookie = api.RefreshTokenCookie
	// RefreshPath путь, на который браузер отправляет refresh cookie
	RefreshPath = api.RefreshPath
)

// CookieConfig описывает параметры транспортных cookie
type CookieConfig struct {
	Now        clock.Clock
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Secure     bool
}

func (c CookieConfig) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c CookieConfig) cookie(name, value, path string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// setAccessCookie устанавливает accessToken на весь сайт
func (c CookieConfig) setAccessCookie(w http.ResponseWriter, accessToken string) {
	http.SetCookie(w, c.cookie(AccessTokenCookie, accessToken, "/", clock.FromNow(c.now(), c.AccessTTL)))
}

// setRefreshCookie устанавливает refreshToken только для RefreshPath
func (c CookieConfig) setRefreshCookie(w http.ResponseWriter, refreshToken string) {
	http.SetCookie(w, c.cookie(RefreshTokenCookie, refreshToken, RefreshPath, clock.FromNow(c.now(), c.RefreshTTL)))
}

func (c CookieConfig) setAuthCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	c.setAccessCookie(w, accessToken)
	c.setRefreshCookie(w, refreshToken)
}

// clearAuthCookies удаляет обе cookie; пути совпадают с путями установки
func (c CookieConfig) clearAuthCookies(w http.ResponseWriter) {
	for _, ck := range []*http.Cookie{
		c.cookie(AccessTokenCookie, "", "/", time.Unix(0, 0)),
		c.cookie(RefreshTokenCookie, "", RefreshPath, time.Unix(0, 0)),
	} {
		ck.MaxAge = -1
		http.SetCookie(w, ck)
	}
}

// TokenFromRequest returns the named cookie, falling back to an
// "Authorization: Bearer" header.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if ck, err := r.Cookie(cookieName); err == nil && ck.Value != "" {
		return ck.Value
	}

	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}

	return ""
}
