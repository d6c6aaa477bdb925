package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"assistente-api/internal/client"
	"assistente-api/internal/models"
	"assistente-api/internal/util"
)

const (
	otpPrefix = "otp:"

	// Records are kept well past code expiry so an expired code can be
	// reported as expired instead of unknown; Redis only garbage-collects.
	otpRetention = 24 * time.Hour
)

// ErrOTPNotFound is returned when no challenge record exists for the phone.
var ErrOTPNotFound = errors.New("no OTP record found")

// OTPStore is the single-record-per-identity challenge store. Every mutating
// operation on the verify path is atomic with its read so concurrent attempts
// cannot be judged against a stale counter.
type OTPStore interface {
	Get(ctx context.Context, phone string) (*models.OTP, error)
	Upsert(ctx context.Context, otp *models.OTP) error
	CheckAndTouch(ctx context.Context, phone, codeHash string, at time.Time) (*models.OTP, bool, error)
	Consume(ctx context.Context, phone string) (bool, error)
	HealthCheck(ctx context.Context) error
}

// checkAndTouchScript reads the record and, only on a hash mismatch,
// increments the attempt counter and stamps the attempt time in the same
// atomic step. It returns the snapshot taken before the touch, so the caller
// judges the guard chain against the state this attempt actually saw.
var checkAndTouchScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
    return false
end
local rec = redis.call('HMGET', KEYS[1], 'code_hash', 'created_at', 'expires_at', 'used', 'attempts', 'last_attempt')
if rec[1] ~= ARGV[1] then
    redis.call('HINCRBY', KEYS[1], 'attempts', 1)
    redis.call('HSET', KEYS[1], 'last_attempt', ARGV[2])
end
return rec
`)

// consumeScript flips used only when it still is 0. Returns 1 when this call
// consumed the code, 0 when another call got there first, -1 when no record
// exists.
var consumeScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
    return -1
end
if redis.call('HGET', KEYS[1], 'used') == '1' then
    return 0
end
redis.call('HSET', KEYS[1], 'used', 1, 'attempts', 0)
return 1
`)

type RedisOTPStore struct {
	client *client.RedisClient
}

func NewOTPStore(c *client.RedisClient) *RedisOTPStore {
	return &RedisOTPStore{client: c}
}

func (s *RedisOTPStore) Get(ctx context.Context, phone string) (*models.OTP, error) {
	key := otpPrefix + phone

	fields, err := s.client.Client.HGetAll(ctx, key).Result()
	if err != nil {
		util.Error("Failed to get OTP record", zap.Error(err))
		return nil, fmt.Errorf("failed to get OTP record: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrOTPNotFound
	}

	return decodeRecord(phone, fields)
}

func (s *RedisOTPStore) Upsert(ctx context.Context, otp *models.OTP) error {
	key := otpPrefix + otp.Phone

	// DEL+HSET+EXPIRE in one MULTI/EXEC: reissue fully replaces the prior
	// record, including a stale last_attempt.
	_, err := s.client.Client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"code_hash", otp.CodeHash,
			"created_at", otp.CreatedAt.Unix(),
			"expires_at", otp.ExpiresAt.Unix(),
			"used", boolField(otp.Used),
			"attempts", otp.Attempts,
			"last_attempt", int64(0),
		)
		pipe.Expire(ctx, key, otpRetention)
		return nil
	})
	if err != nil {
		util.Error("Failed to upsert OTP record", zap.Error(err))
		return fmt.Errorf("failed to upsert OTP record: %w", err)
	}

	return nil
}

func (s *RedisOTPStore) CheckAndTouch(ctx context.Context, phone, codeHash string, at time.Time) (*models.OTP, bool, error) {
	key := otpPrefix + phone

	res, err := checkAndTouchScript.Run(ctx, s.client.Client, []string{key}, codeHash, at.Unix()).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, ErrOTPNotFound
		}
		util.Error("Failed to run OTP check script", zap.Error(err))
		return nil, false, fmt.Errorf("failed to run OTP check script: %w", err)
	}

	raw, ok := res.([]interface{})
	if !ok || len(raw) != 6 {
		return nil, false, fmt.Errorf("unexpected OTP check script reply")
	}

	fields := map[string]string{
		"code_hash":    scriptString(raw[0]),
		"created_at":   scriptString(raw[1]),
		"expires_at":   scriptString(raw[2]),
		"used":         scriptString(raw[3]),
		"attempts":     scriptString(raw[4]),
		"last_attempt": scriptString(raw[5]),
	}

	otp, err := decodeRecord(phone, fields)
	if err != nil {
		return nil, false, err
	}

	return otp, otp.CodeHash == codeHash, nil
}

// Consume marks the code used, but only if it still is unused. The check and
// the write run in one script, so when two verifications race past the guard
// chain only one of them wins the consume.
func (s *RedisOTPStore) Consume(ctx context.Context, phone string) (bool, error) {
	key := otpPrefix + phone

	res, err := consumeScript.Run(ctx, s.client.Client, []string{key}).Int64()
	if err != nil {
		util.Error("Failed to consume OTP", zap.Error(err))
		return false, fmt.Errorf("failed to consume OTP: %w", err)
	}
	if res < 0 {
		return false, ErrOTPNotFound
	}

	return res == 1, nil
}

func (s *RedisOTPStore) HealthCheck(ctx context.Context) error {
	return s.client.HealthCheck(ctx)
}

func decodeRecord(phone string, fields map[string]string) (*models.OTP, error) {
	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at in OTP record: %w", err)
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid expires_at in OTP record: %w", err)
	}
	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		return nil, fmt.Errorf("invalid attempts in OTP record: %w", err)
	}

	otp := &models.OTP{
		Phone:     phone,
		CodeHash:  fields["code_hash"],
		CreatedAt: time.Unix(createdAt, 0).UTC(),
		ExpiresAt: time.Unix(expiresAt, 0).UTC(),
		Used:      fields["used"] == "1",
		Attempts:  attempts,
	}

	if lastAttempt, err := strconv.ParseInt(fields["last_attempt"], 10, 64); err == nil && lastAttempt > 0 {
		t := time.Unix(lastAttempt, 0).UTC()
		otp.LastAttemptAt = &t
	}

	return otp, nil
}

func boolField(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scriptString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
