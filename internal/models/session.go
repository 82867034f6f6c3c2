package models

import "time"

// Session представляет одно авторизованное устройство (браузер) пользователя
type Session struct {
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserAgent string    `json:"userAgent,omitempty"`
}

// Active reports whether the session is still valid at now.
func (s *Session) Active(now time.Time) bool {
	return s.ExpiresAt.After(now)
}
