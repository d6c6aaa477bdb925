package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"assistente-api/internal/audit"
	"assistente-api/internal/bucketing"
	"assistente-api/internal/models"
	"assistente-api/internal/repository/scylla"
	"assistente-api/internal/token"
)

// IdentityChecker confirms the token subject still exists. A valid signature
// is not enough: the identity may have been deleted after the token was
// minted.
type IdentityChecker interface {
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
}

// Authenticator guards routes behind a bearer session token.
type Authenticator struct {
	issuer    *token.Issuer
	users     IdentityChecker
	auditor   *audit.Recorder
	bucketing *bucketing.BucketingManager
}

func NewAuthenticator(issuer *token.Issuer, users IdentityChecker, auditor *audit.Recorder, bucketingMgr *bucketing.BucketingManager) *Authenticator {
	return &Authenticator{
		issuer:    issuer,
		users:     users,
		auditor:   auditor,
		bucketing: bucketingMgr,
	}
}

// Guard rejects requests without a valid bearer token for a live identity.
// On success the verified claims are stored in the request context.
func (a *Authenticator) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			a.reject(w, r, http.StatusUnauthorized, "missing authorization header", "missing header", 0)
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			a.reject(w, r, http.StatusUnauthorized, "malformed authorization header", "malformed header", 0)
			return
		}

		claims, err := a.issuer.Verify(parts[1])
		if err != nil {
			if errors.Is(err, token.ErrTokenExpired) {
				a.reject(w, r, http.StatusUnauthorized, "token expired", "token expired", 0)
				return
			}
			a.reject(w, r, http.StatusUnauthorized, "invalid token", "invalid token", 0)
			return
		}

		bucket := a.bucketing.GetUserBucket(claims.Phone)
		if _, err := a.users.GetUserByPhone(r.Context(), claims.Phone); err != nil {
			if errors.Is(err, scylla.ErrUserNotFound) {
				a.reject(w, r, http.StatusNotFound, "user not found", "identity gone", bucket)
				return
			}
			a.reject(w, r, http.StatusInternalServerError, "internal error", "identity lookup failed", bucket)
			return
		}

		next.ServeHTTP(w, r.WithContext(token.SetAuth(r.Context(), claims)))
	})
}

func (a *Authenticator) reject(w http.ResponseWriter, r *http.Request, status int, message, reason string, bucket int) {
	if a.auditor != nil {
		a.auditor.Record(r.Context(), models.SecurityTokenRejected, bucket, reason)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
