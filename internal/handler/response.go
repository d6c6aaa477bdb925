package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"assistente-api/internal/service"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	writeJSON(w, status, Response{Success: true, Data: data, Message: message})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, getStatusCode(err), Response{Success: false, Error: publicMessage(err)})
}

// getStatusCode maps service sentinels onto HTTP status codes. Unknown
// errors collapse to 500 so internals never leak.
func getStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrInvalidCode):
		return http.StatusNotFound
	case errors.Is(err, service.ErrCooldownActive),
		errors.Is(err, service.ErrTooManyAttempts),
		errors.Is(err, service.ErrRetryTooSoon),
		errors.Is(err, service.ErrCodeExpired):
		return http.StatusForbidden
	case errors.Is(err, service.ErrCodeAlreadyUsed):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidPhone):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(err error) string {
	if errors.Is(err, service.ErrDeliveryFailed) {
		return err.Error()
	}
	if getStatusCode(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
