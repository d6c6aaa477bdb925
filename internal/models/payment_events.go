package models

import "time"

// Payment provider event names as delivered by the webhook.
const (
	EventPaymentReceived      = "PAYMENT_RECEIVED"
	EventPaymentConfirmed     = "PAYMENT_CONFIRMED"
	EventPaymentOverdue       = "PAYMENT_OVERDUE"
	EventPaymentRefunded      = "PAYMENT_REFUNDED"
	EventSubscriptionInactive = "SUBSCRIPTION_INACTIVATED"
	EventSubscriptionDeleted  = "SUBSCRIPTION_DELETED"
	BillingTypeCreditCard     = "CREDIT_CARD"
)

// PaymentEvent is a processed webhook notification, persisted for analytics.
type PaymentEvent struct {
	EventID     string    `db:"event_id" json:"event_id"`
	EventType   string    `db:"event_type" json:"event_type"`
	CustomerID  string    `db:"customer_id" json:"customer_id"`
	BillingType string    `db:"billing_type" json:"billing_type"`
	Outcome     string    `db:"outcome" json:"outcome"`
	ReceivedAt  time.Time `db:"received_at" json:"received_at"`
}
