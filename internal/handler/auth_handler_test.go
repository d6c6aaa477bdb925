package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistente-api/internal/service"
)

type fakeOTP struct {
	requestErr error
	verifyErr  error
	token      string
	gotPhone   string
	gotCode    string
}

func (f *fakeOTP) RequestCode(_ context.Context, phone string) error {
	f.gotPhone = phone
	return f.requestErr
}

func (f *fakeOTP) VerifyCode(_ context.Context, phone, code string) (string, error) {
	f.gotPhone = phone
	f.gotCode = code
	if f.verifyErr != nil {
		return "", f.verifyErr
	}
	return f.token, nil
}

func postJSON(t *testing.T, handlerFunc http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handlerFunc(rec, req)
	return rec
}

func TestRequestOTPStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
	}{
		{"created", `{"phone":"11999990000"}`, nil, http.StatusCreated},
		{"bad body", `{`, nil, http.StatusBadRequest},
		{"bad phone", `{"phone":"abc"}`, nil, http.StatusBadRequest},
		{"unknown user", `{"phone":"11999990000"}`, service.ErrUserNotFound, http.StatusNotFound},
		{"cooldown", `{"phone":"11999990000"}`, service.ErrCooldownActive, http.StatusForbidden},
		{"delivery failed", `{"phone":"11999990000"}`, service.ErrDeliveryFailed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&fakeOTP{requestErr: tt.serviceErr}, 1800*time.Second)
			rec := postJSON(t, h.RequestOTP, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRequestOTPNormalizesPhone(t *testing.T) {
	otp := &fakeOTP{}
	h := NewAuthHandler(otp, 1800*time.Second)

	rec := postJSON(t, h.RequestOTP, `{"phone":"+55 (11) 99999-0000"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "5511999990000", otp.gotPhone)
}

func TestVerifyOTPStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
	}{
		{"ok", `{"phone":"11999990000","code":"123456"}`, nil, http.StatusOK},
		{"bad body", `{`, nil, http.StatusBadRequest},
		{"missing code", `{"phone":"11999990000"}`, nil, http.StatusBadRequest},
		{"invalid code", `{"phone":"11999990000","code":"000000"}`, service.ErrInvalidCode, http.StatusNotFound},
		{"too many attempts", `{"phone":"11999990000","code":"123456"}`, service.ErrTooManyAttempts, http.StatusForbidden},
		{"retry too soon", `{"phone":"11999990000","code":"123456"}`, service.ErrRetryTooSoon, http.StatusForbidden},
		{"expired", `{"phone":"11999990000","code":"123456"}`, service.ErrCodeExpired, http.StatusForbidden},
		{"already used", `{"phone":"11999990000","code":"123456"}`, service.ErrCodeAlreadyUsed, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&fakeOTP{verifyErr: tt.serviceErr, token: "session-token"}, 1800*time.Second)
			rec := postJSON(t, h.VerifyOTP, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestVerifyOTPReturnsToken(t *testing.T) {
	h := NewAuthHandler(&fakeOTP{token: "session-token"}, 1800*time.Second)

	rec := postJSON(t, h.VerifyOTP, `{"phone":"11999990000","code":"123456"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "session-token", data["token"])
}
