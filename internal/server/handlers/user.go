package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/authkeeper/internal/server/auth"
	"github.com/iudanet/authkeeper/pkg/api"
)

// UserHandler обрабатывает запросы аутентифицированного пользователя
type UserHandler struct {
	logger  *slog.Logger
	service AuthService
}

// NewUserHandler создает handler для /user и /sessions
func NewUserHandler(logger *slog.Logger, service AuthService) *UserHandler {
	return &UserHandler{
		logger:  logger,
		service: service,
	}
}

// principal достает пользователя, положенного в контекст middleware
func (h *UserHandler) principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "principal not found in context")
		SendError(h.logger, w, auth.MsgInvalidAccessToken, api.ErrorCodeInvalidAccessToken, http.StatusUnauthorized)
	}
	return p, ok
}

// GetUser обрабатывает GET /user
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	user, err := h.service.CurrentUser(r.Context(), p.UserID)
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	sendJSON(h.logger, w, user, http.StatusOK)
}

// ListSessions обрабатывает GET /sessions
func (h *UserHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	sessions, err := h.service.ListSessions(r.Context(), p)
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	resp := make([]api.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, api.SessionResponse{
			ID:        s.ID,
			UserAgent: s.UserAgent,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			IsCurrent: s.Current,
		})
	}

	sendJSON(h.logger, w, resp, http.StatusOK)
}

// DeleteSession обрабатывает DELETE /sessions/{id}
func (h *UserHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	sessionID := r.PathValue("id")
	if sessionID == "" {
		SendError(h.logger, w, "session id is required", "", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteSession(r.Context(), p, sessionID); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	sendJSON(h.logger, w, api.MessageResponse{Message: "Session removed"}, http.StatusOK)
}
