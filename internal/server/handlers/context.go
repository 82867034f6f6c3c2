package handlers

import (
	"context"

	"github.com/iudanet/authkeeper/internal/server/auth"
)

// contextKey тип для ключей контекста
type contextKey string

// PrincipalKey ключ для хранения аутентифицированного пользователя в контексте
const PrincipalKey contextKey = "principal"

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFromContext извлекает пользователя и сессию из контекста
func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(auth.Principal)
	return p, ok
}
