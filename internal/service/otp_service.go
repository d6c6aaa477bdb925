package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"assistente-api/internal/audit"
	"assistente-api/internal/bucketing"
	"assistente-api/internal/clock"
	"assistente-api/internal/config"
	"assistente-api/internal/delivery"
	"assistente-api/internal/hashing"
	"assistente-api/internal/models"
	redisrepo "assistente-api/internal/repository/redis"
	"assistente-api/internal/repository/scylla"
	"assistente-api/internal/token"
	"assistente-api/internal/util"
)

var (
	// ErrUserNotFound is returned when no identity is registered for the phone.
	ErrUserNotFound = errors.New("no identity registered for phone")

	// ErrCooldownActive is returned when a code was issued too recently.
	ErrCooldownActive = errors.New("a code was issued recently, wait before requesting another")

	// ErrDeliveryFailed is returned when the code could not be delivered.
	ErrDeliveryFailed = errors.New("failed to deliver code")

	// ErrInvalidCode is returned when no challenge exists or the code does not
	// match. The two cases are deliberately indistinguishable to callers.
	ErrInvalidCode = errors.New("invalid code")

	// ErrTooManyAttempts is returned once the attempt budget is exhausted.
	ErrTooManyAttempts = errors.New("too many failed attempts, request a new code")

	// ErrRetryTooSoon is returned when a verification follows a failed attempt
	// too quickly.
	ErrRetryTooSoon = errors.New("retry too soon after a failed attempt")

	// ErrCodeAlreadyUsed is returned when the code was already consumed.
	ErrCodeAlreadyUsed = errors.New("code already used")

	// ErrCodeExpired is returned when the code expired before verification.
	ErrCodeExpired = errors.New("code expired")
)

// notFoundPadding flattens the timing difference between "no record" and a
// full guard-chain evaluation, so response latency does not leak whether a
// phone has a pending challenge.
const notFoundPadding = 500 * time.Millisecond

// OTPService issues one-time codes and verifies them into session tokens.
type OTPService struct {
	users     scylla.UserRepository
	store     redisrepo.OTPStore
	hasher    *hashing.Hasher
	issuer    *token.Issuer
	sender    delivery.MessageSender
	auditor   *audit.Recorder
	bucketing *bucketing.BucketingManager
	authCfg   config.AuthConfig
	clock     clock.Clocker
	sleep     func(time.Duration)
}

func NewOTPService(
	users scylla.UserRepository,
	store redisrepo.OTPStore,
	hasher *hashing.Hasher,
	issuer *token.Issuer,
	sender delivery.MessageSender,
	auditor *audit.Recorder,
	bucketingMgr *bucketing.BucketingManager,
	authCfg config.AuthConfig,
	clk clock.Clocker,
) *OTPService {
	return &OTPService{
		users:     users,
		store:     store,
		hasher:    hasher,
		issuer:    issuer,
		sender:    sender,
		auditor:   auditor,
		bucketing: bucketingMgr,
		authCfg:   authCfg,
		clock:     clk,
		sleep:     time.Sleep,
	}
}

// RequestCode issues a fresh code for a registered phone and delivers it.
// A new request replaces any previous challenge, but only after the issue
// cooldown measured from the previous issue time has elapsed.
func (s *OTPService) RequestCode(ctx context.Context, phone string) error {
	bucket := s.bucketing.GetUserBucket(phone)

	if _, err := s.users.GetUserByPhone(ctx, phone); err != nil {
		if errors.Is(err, scylla.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up identity: %w", err)
	}

	now := s.clock.Now().UTC()

	existing, err := s.store.Get(ctx, phone)
	if err != nil && !errors.Is(err, redisrepo.ErrOTPNotFound) {
		return fmt.Errorf("failed to check existing challenge: %w", err)
	}
	if existing != nil && now.Sub(existing.CreatedAt) < s.authCfg.IssueCooldown {
		return ErrCooldownActive
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	record := &models.OTP{
		Phone:     phone,
		CodeHash:  s.hasher.HashCode(phone, code),
		CreatedAt: now,
		ExpiresAt: now.Add(s.authCfg.OTPTTL),
	}
	if err := s.store.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}

	message := fmt.Sprintf("Seu código de acesso é %s. Ele expira em %d minutos.",
		code, int(s.authCfg.OTPTTL.Minutes()))
	if err := s.sender.SendText(ctx, phone, message); err != nil {
		// The stored challenge stays valid; the caller may retry delivery
		// after the cooldown without invalidating a code already in flight.
		util.Error("Code delivery failed",
			zap.Int("user_bucket", bucket),
			zap.Error(err))
		s.auditor.Record(ctx, models.SecurityOTPDeliveryFailed, bucket, err.Error())
		return ErrDeliveryFailed
	}

	util.Info("Code issued", zap.Int("user_bucket", bucket))
	s.auditor.Record(ctx, models.SecurityOTPRequested, bucket, "")

	return nil
}

// VerifyCode runs the guard chain against the challenge record and, on
// success, consumes the code and mints a session token.
//
// The chain is evaluated against the record state as this attempt found it:
// the store increments the attempt counter for a mismatch in the same atomic
// step that read the record, so concurrent attempts cannot share a counter
// value, and the final consume is conditional, so of two racing correct
// attempts exactly one mints a token. The order matters: a wrong code is
// always answered as invalid, even when the attempt budget is already spent,
// so the response never confirms that a guess was "almost right".
func (s *OTPService) VerifyCode(ctx context.Context, phone, code string) (string, error) {
	bucket := s.bucketing.GetUserBucket(phone)
	now := s.clock.Now().UTC()

	record, matched, err := s.store.CheckAndTouch(ctx, phone, s.hasher.HashCode(phone, code), now)
	if err != nil {
		if errors.Is(err, redisrepo.ErrOTPNotFound) {
			// Pad the cheap path so its latency matches a real evaluation.
			s.sleep(notFoundPadding)
			s.auditor.Record(ctx, models.SecurityOTPRejected, bucket, "no challenge")
			return "", ErrInvalidCode
		}
		return "", fmt.Errorf("failed to evaluate challenge: %w", err)
	}

	if !matched {
		s.auditor.Record(ctx, models.SecurityOTPRejected, bucket, "code mismatch")
		return "", ErrInvalidCode
	}
	if record.Attempts >= s.authCfg.MaxAttempts {
		s.auditor.Record(ctx, models.SecurityOTPRejected, bucket, "attempt budget exhausted")
		return "", ErrTooManyAttempts
	}
	if record.LastAttemptAt != nil && now.Sub(*record.LastAttemptAt) < s.authCfg.RetryWait {
		s.auditor.Record(ctx, models.SecurityOTPRejected, bucket, "retry too soon")
		return "", ErrRetryTooSoon
	}
	if record.Used {
		s.auditor.Record(ctx, models.SecurityOTPRejected, bucket, "code already used")
		return "", ErrCodeAlreadyUsed
	}
	if now.After(record.ExpiresAt) {
		s.auditor.Record(ctx, models.SecurityOTPRejected, bucket, "code expired")
		return "", ErrCodeExpired
	}

	won, err := s.store.Consume(ctx, phone)
	if err != nil {
		if errors.Is(err, redisrepo.ErrOTPNotFound) {
			s.auditor.Record(ctx, models.SecurityOTPRejected, bucket, "no challenge")
			return "", ErrInvalidCode
		}
		return "", fmt.Errorf("failed to consume challenge: %w", err)
	}
	if !won {
		// A concurrent verification consumed the code after our snapshot.
		s.auditor.Record(ctx, models.SecurityOTPRejected, bucket, "code already used")
		return "", ErrCodeAlreadyUsed
	}

	sessionToken, err := s.issuer.Generate(phone)
	if err != nil {
		return "", fmt.Errorf("failed to issue session token: %w", err)
	}

	util.Info("Code verified", zap.Int("user_bucket", bucket))
	s.auditor.Record(ctx, models.SecurityOTPVerified, bucket, "")

	return sessionToken, nil
}

// generateCode draws a uniform 6-digit code from crypto/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
