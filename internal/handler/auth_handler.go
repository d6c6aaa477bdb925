package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"assistente-api/internal/util"
)

// OTPAuthenticator is the slice of the OTP service the auth endpoints use.
type OTPAuthenticator interface {
	RequestCode(ctx context.Context, phone string) error
	VerifyCode(ctx context.Context, phone, code string) (string, error)
}

// AuthHandler serves the OTP request and verification endpoints.
type AuthHandler struct {
	otp      OTPAuthenticator
	tokenTTL time.Duration
}

func NewAuthHandler(otp OTPAuthenticator, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{otp: otp, tokenTTL: tokenTTL}
}

type requestOTPRequest struct {
	Phone string `json:"phone"`
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type verifyOTPResponse struct {
	Token            string `json:"token"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

// RequestOTP issues and delivers a fresh code for a registered phone.
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req requestOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	phone := util.NormalizePhone(req.Phone)
	if !util.ValidPhone(phone) {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "invalid phone number"})
		return
	}

	if err := h.otp.RequestCode(r.Context(), phone); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, nil, "code sent")
}

// VerifyOTP exchanges a valid code for a session token.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	phone := util.NormalizePhone(req.Phone)
	if !util.ValidPhone(phone) || req.Code == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "phone and code are required"})
		return
	}

	sessionToken, err := h.otp.VerifyCode(r.Context(), phone, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, verifyOTPResponse{
		Token:            sessionToken,
		ExpiresInSeconds: int(h.tokenTTL.Seconds()),
	}, "authenticated")
}
