package models

import "time"

// OTP is the single outstanding verification challenge for a phone number.
// The plaintext code is never stored; CodeHash is an HMAC of it.
type OTP struct {
	Phone         string     `db:"phone"`
	CodeHash      string     `db:"code_hash"`
	CreatedAt     time.Time  `db:"created_at"`
	ExpiresAt     time.Time  `db:"expires_at"`
	Used          bool       `db:"used"`
	Attempts      int        `db:"attempts"`
	LastAttemptAt *time.Time `db:"last_attempt_at"`
}
