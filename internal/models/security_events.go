package models

import "time"

// Security event types recorded by the audit trail.
const (
	SecurityOTPRequested      = "otp_requested"
	SecurityOTPDeliveryFailed = "otp_delivery_failed"
	SecurityOTPVerified       = "otp_verified"
	SecurityOTPRejected       = "otp_rejected"
	SecurityTokenRejected     = "token_rejected"
)

// SecurityEvent is indexed into Elasticsearch and published to Kafka for
// operational investigation. Phone is stored bucketed, never raw.
type SecurityEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	UserBucket int       `json:"user_bucket"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
