package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse — структура ответа с ошибкой.
//
// Портал показывает поле error в журнале бизнес-процесса, поэтому
// это строка, а код вынесен отдельно.
type ErrorResponse struct {
	Error        string    `json:"error"`
	Code         ErrorCode `json:"code"`
	InvocationID string    `json:"invocation_id,omitempty"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success отправляет успешный ответ.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message, invocationID string) {
	JSON(w, status, ErrorResponse{
		Error:        message,
		Code:         code,
		InvocationID: invocationID,
	})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message, "")
}

// NotFound отправляет ошибку 404.
func NotFound(w http.ResponseWriter, message, invocationID string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message, invocationID)
}

// InternalError отправляет ошибку 500.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error, invocationID string) {
	logger.Error("internal error", "error", err, "invocation_id", invocationID)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error", invocationID)
}
