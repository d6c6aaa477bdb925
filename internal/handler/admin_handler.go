package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"assistente-api/internal/config"
	"assistente-api/internal/hashing"
	"assistente-api/internal/models"
)

// UserProvisioner is the slice of the user service the admin surface uses.
type UserProvisioner interface {
	CreateUser(ctx context.Context, phone, customerID string, isPaid bool) (*models.User, error)
}

// AdminHandler provisions identities ahead of their first payment. The whole
// surface sits behind a static API key and can be switched off entirely.
type AdminHandler struct {
	users UserProvisioner
	cfg   config.AdminConfig
}

func NewAdminHandler(users UserProvisioner, cfg config.AdminConfig) *AdminHandler {
	return &AdminHandler{users: users, cfg: cfg}
}

// RequireKey rejects requests without the admin API key.
func (h *AdminHandler) RequireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.cfg.Active {
			writeJSON(w, http.StatusNotFound, Response{Success: false, Error: "not found"})
			return
		}
		if !hashing.VerifyKey(r.Header.Get("X-Api-Key"), h.cfg.APIKey) {
			writeJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "invalid api key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createUserRequest struct {
	Phone      string `json:"phone"`
	CustomerID string `json:"customer_id"`
	IsPaid     bool   `json:"is_paid"`
}

type createUserResponse struct {
	Phone      string `json:"phone"`
	CustomerID string `json:"customer_id,omitempty"`
	IsPaid     bool   `json:"is_paid"`
}

// CreateUser registers an identity for the given phone.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	user, err := h.users.CreateUser(r.Context(), req.Phone, req.CustomerID, req.IsPaid)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, createUserResponse{
		Phone:      user.Phone,
		CustomerID: user.CustomerID,
		IsPaid:     user.IsPaid,
	}, "user created")
}
