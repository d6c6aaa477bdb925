package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecord(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expires := created.Add(5 * time.Minute)
	attempt := created.Add(10 * time.Second)

	otp, err := decodeRecord("11999990000", map[string]string{
		"code_hash":    "abc123",
		"created_at":   "1772366400",
		"expires_at":   "1772366700",
		"used":         "0",
		"attempts":     "2",
		"last_attempt": "1772366410",
	})
	require.NoError(t, err)

	assert.Equal(t, "11999990000", otp.Phone)
	assert.Equal(t, "abc123", otp.CodeHash)
	assert.Equal(t, created, otp.CreatedAt)
	assert.Equal(t, expires, otp.ExpiresAt)
	assert.False(t, otp.Used)
	assert.Equal(t, 2, otp.Attempts)
	require.NotNil(t, otp.LastAttemptAt)
	assert.Equal(t, attempt, *otp.LastAttemptAt)
}

func TestDecodeRecordNoAttemptYet(t *testing.T) {
	otp, err := decodeRecord("11999990000", map[string]string{
		"code_hash":    "abc123",
		"created_at":   "1772366400",
		"expires_at":   "1772366700",
		"used":         "1",
		"attempts":     "0",
		"last_attempt": "0",
	})
	require.NoError(t, err)

	assert.True(t, otp.Used)
	assert.Nil(t, otp.LastAttemptAt, "zero means no failed attempt recorded")
}

func TestDecodeRecordRejectsCorruptFields(t *testing.T) {
	_, err := decodeRecord("11999990000", map[string]string{
		"code_hash":  "abc123",
		"created_at": "not-a-timestamp",
		"expires_at": "1772366700",
		"attempts":   "0",
	})
	assert.Error(t, err)
}
