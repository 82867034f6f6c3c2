package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/authkeeper/internal/server/auth"
	"github.com/iudanet/authkeeper/pkg/api"
)

// statusOf maps a service error kind to an HTTP status code
func statusOf(kind auth.Kind) int {
	switch kind {
	case auth.KindBadRequest:
		return http.StatusBadRequest
	case auth.KindConflict:
		return http.StatusConflict
	case auth.KindUnauthorized:
		return http.StatusUnauthorized
	case auth.KindNotFound:
		return http.StatusNotFound
	case auth.KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// sendJSON отправляет JSON ответ
func sendJSON(logger *slog.Logger, w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// SendError отправляет JSON ответ с ошибкой
func SendError(logger *slog.Logger, w http.ResponseWriter, message, errorCode string, statusCode int) {
	resp := api.ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		ErrorCode: errorCode,
	}
	sendJSON(logger, w, resp, statusCode)
}

// WriteError maps a service error to its status and writes it.
// Internal causes are logged and never sent to the client.
func WriteError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	kind := auth.KindOf(err)
	status := statusOf(kind)

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	} else {
		logger.WarnContext(r.Context(), "request rejected",
			slog.String("kind", kind.String()),
			slog.Any("error", err))
	}

	errorCode := ""
	if kind == auth.KindUnauthorized && auth.MessageOf(err) == auth.MsgInvalidAccessToken {
		errorCode = api.ErrorCodeInvalidAccessToken
	}

	SendError(logger, w, auth.MessageOf(err), errorCode, status)
}

// decodeJSON читает тело запроса в dst; неизвестные поля игнорируются
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return auth.BadRequest("invalid request body", err)
	}
	return nil
}

// validationError превращает ошибку валидации в ответ 400
func validationError(err error) error {
	return auth.BadRequest(err.Error(), err)
}
