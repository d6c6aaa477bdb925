package hashing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

var ErrSecretTooShort = errors.New("hashing secret must be at least 32 bytes")

// Hasher produces deterministic MACs of OTP codes so only hashes reach the
// store. The MAC is keyed with a pepper derived from the process secret via
// HKDF, and bound to the phone number so equal codes for different identities
// hash differently. Determinism matters: the store compares hashes inside a
// single atomic server-side operation.
type Hasher struct {
	pepper []byte
}

// NewHasher derives the OTP pepper from the process-wide secret.
func NewHasher(secret string) (*Hasher, error) {
	if len(secret) < 32 {
		return nil, ErrSecretTooShort
	}

	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("otp-code-pepper"))
	pepper := make([]byte, 32)
	if _, err := io.ReadFull(kdf, pepper); err != nil {
		return nil, err
	}

	return &Hasher{pepper: pepper}, nil
}

// HashCode returns the hex MAC of a code for the given phone.
func (h *Hasher) HashCode(phone, code string) string {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(phone))
	mac.Write([]byte{0})
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyKey compares two secrets in constant time (used for the admin API key).
func VerifyKey(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
