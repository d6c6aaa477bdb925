package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistente-api/internal/bucketing"
	"assistente-api/internal/models"
	"assistente-api/internal/repository/scylla"
	"assistente-api/internal/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type fakeIdentityChecker struct {
	phones map[string]bool
}

func (f *fakeIdentityChecker) GetUserByPhone(_ context.Context, phone string) (*models.User, error) {
	if !f.phones[phone] {
		return nil, scylla.ErrUserNotFound
	}
	return &models.User{Phone: phone}, nil
}

func guardFixture(t *testing.T, phones ...string) (*Authenticator, *token.Issuer, *fakeClock) {
	t.Helper()

	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	issuer, err := token.NewIssuer(testSecret, 1800*time.Second, clk)
	require.NoError(t, err)

	checker := &fakeIdentityChecker{phones: make(map[string]bool)}
	for _, p := range phones {
		checker.phones[p] = true
	}

	return NewAuthenticator(issuer, checker, nil, bucketing.NewBucketingManager(16)), issuer, clk
}

func serveGuarded(auth *Authenticator, header string) (*httptest.ResponseRecorder, *token.Claims) {
	var seen *token.Claims
	handler := auth.Guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = token.GetAuth(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec, seen
}

func TestGuardAcceptsValidToken(t *testing.T) {
	auth, issuer, _ := guardFixture(t, "11999990000")

	tokenStr, err := issuer.Generate("11999990000")
	require.NoError(t, err)

	rec, claims := serveGuarded(auth, "Bearer "+tokenStr)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "11999990000", claims.Phone)
}

func TestGuardMissingHeader(t *testing.T) {
	auth, _, _ := guardFixture(t)

	rec, _ := serveGuarded(auth, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardMalformedHeader(t *testing.T) {
	auth, issuer, _ := guardFixture(t, "11999990000")

	tokenStr, err := issuer.Generate("11999990000")
	require.NoError(t, err)

	for _, header := range []string{"Basic abc", tokenStr, "Bearer"} {
		rec, _ := serveGuarded(auth, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestGuardExpiredToken(t *testing.T) {
	auth, issuer, clk := guardFixture(t, "11999990000")

	tokenStr, err := issuer.Generate("11999990000")
	require.NoError(t, err)

	clk.now = clk.now.Add(1801 * time.Second)
	rec, _ := serveGuarded(auth, "Bearer "+tokenStr)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardDeletedIdentity(t *testing.T) {
	auth, issuer, _ := guardFixture(t)

	// Token is valid but the identity no longer exists.
	tokenStr, err := issuer.Generate("11999990000")
	require.NoError(t, err)

	rec, _ := serveGuarded(auth, "Bearer "+tokenStr)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// A different client has its own budget.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
