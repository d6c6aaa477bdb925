package token

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func TestNewIssuer_RejectsShortSecret(t *testing.T) {
	_, err := NewIssuer("short", 30*time.Minute, &fakeClock{now: time.Now()})
	assert.ErrorIs(t, err, ErrSigningKeyTooShort)
}

func TestGenerateAndVerify(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	issuer, err := NewIssuer(testSecret, 1800*time.Second, clk)
	require.NoError(t, err)

	tok, err := issuer.Generate("5511999999999")
	require.NoError(t, err)

	claims, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "5511999999999", claims.Phone)
	assert.Equal(t, "5511999999999", claims.Subject)
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	issued := time.Unix(1_700_000_000, 0)
	clk := &fakeClock{now: issued}
	issuer, err := NewIssuer(testSecret, 1800*time.Second, clk)
	require.NoError(t, err)

	tok, err := issuer.Generate("5511999999999")
	require.NoError(t, err)

	// Accepted one second before expiry.
	clk.now = issued.Add(1800*time.Second - time.Second)
	_, err = issuer.Verify(tok)
	assert.NoError(t, err)

	// Rejected one second after expiry.
	clk.now = issued.Add(1800*time.Second + time.Second)
	_, err = issuer.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	issuer, err := NewIssuer(testSecret, time.Hour, clk)
	require.NoError(t, err)
	other, err := NewIssuer("fedcba9876543210fedcba9876543210", time.Hour, clk)
	require.NoError(t, err)

	tok, err := other.Generate("5511999999999")
	require.NoError(t, err)

	_, err = issuer.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	issuer, err := NewIssuer(testSecret, time.Hour, clk)
	require.NoError(t, err)

	_, err = issuer.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetAuth(ctx))

	ctx = SetAuth(ctx, Claims{Phone: "5511999999999"})
	got := GetAuth(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "5511999999999", got.Phone)
}
