package models

import "time"

// User is a registered identity keyed by phone number. It is created by an
// administrator or by the payment webhook on the first payment event.
type User struct {
	UserBucket int        `db:"user_bucket"`
	Phone      string     `db:"phone"`
	CustomerID string     `db:"customer_id"`
	IsPaid     bool       `db:"is_paid"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  *time.Time `db:"updated_at"`
}
