package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"assistente-api/internal/audit"
	"assistente-api/internal/bucketing"
	"assistente-api/internal/client"
	"assistente-api/internal/clock"
	"assistente-api/internal/models"
	"assistente-api/internal/payment"
	"assistente-api/internal/repository/clickhouse"
	"assistente-api/internal/repository/scylla"
	"assistente-api/internal/util"
)

var (
	// ErrUserExists is returned when an admin creates a phone that is taken.
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidPhone is returned for a phone that fails normalization.
	ErrInvalidPhone = errors.New("invalid phone number")
)

// Processing outcomes recorded per webhook event.
const (
	OutcomeMarkedPaid   = "marked_paid"
	OutcomeMarkedUnpaid = "marked_unpaid"
	OutcomeUserCreated  = "user_created"
	OutcomeUserDeleted  = "user_deleted"
	OutcomeIgnored      = "ignored"
)

// WebhookEvent is the billing provider notification as the service consumes
// it: the event name plus the customer and billing method it refers to.
type WebhookEvent struct {
	Event       string
	CustomerID  string
	BillingType string
}

// UserService owns identity lifecycle: admin provisioning and the payment
// webhook that flips paid status.
type UserService struct {
	users     scylla.UserRepository
	events    clickhouse.PaymentEventRepository
	customers payment.CustomerClient
	producer  *client.KafkaProducer
	auditor   *audit.Recorder
	bucketing *bucketing.BucketingManager
	clock     clock.Clocker
}

func NewUserService(
	users scylla.UserRepository,
	events clickhouse.PaymentEventRepository,
	customers payment.CustomerClient,
	producer *client.KafkaProducer,
	auditor *audit.Recorder,
	bucketingMgr *bucketing.BucketingManager,
	clk clock.Clocker,
) *UserService {
	return &UserService{
		users:     users,
		events:    events,
		customers: customers,
		producer:  producer,
		auditor:   auditor,
		bucketing: bucketingMgr,
		clock:     clk,
	}
}

// CreateUser registers an identity for the given phone, optionally bound to
// a billing customer. Used by the admin surface to provision users ahead of
// their first payment.
func (s *UserService) CreateUser(ctx context.Context, phone, customerID string, isPaid bool) (*models.User, error) {
	normalized := util.NormalizePhone(phone)
	if !util.ValidPhone(normalized) {
		return nil, ErrInvalidPhone
	}

	user := &models.User{
		Phone:      normalized,
		CustomerID: customerID,
		IsPaid:     isPaid,
		CreatedAt:  s.clock.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, scylla.ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	return user, nil
}

// GetUser resolves an identity by phone.
func (s *UserService) GetUser(ctx context.Context, phone string) (*models.User, error) {
	user, err := s.users.GetUserByPhone(ctx, util.NormalizePhone(phone))
	if err != nil {
		if errors.Is(err, scylla.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ApplyPaymentEvent maps one billing provider event onto identity state.
// The mapping mirrors the provider's delivery model: card payments confirm
// asynchronously, so PAYMENT_RECEIVED for a card is a duplicate of the
// PAYMENT_CONFIRMED that follows and is ignored.
func (s *UserService) ApplyPaymentEvent(ctx context.Context, event *WebhookEvent) error {
	var (
		outcome string
		err     error
	)

	switch event.Event {
	case models.EventPaymentReceived:
		if event.BillingType == models.BillingTypeCreditCard {
			outcome = OutcomeIgnored
		} else {
			outcome, err = s.markPaid(ctx, event.CustomerID)
		}
	case models.EventPaymentConfirmed:
		if event.BillingType == models.BillingTypeCreditCard {
			outcome, err = s.markPaid(ctx, event.CustomerID)
		} else {
			outcome = OutcomeIgnored
		}
	case models.EventPaymentOverdue, models.EventPaymentRefunded, models.EventSubscriptionInactive:
		outcome, err = s.markUnpaid(ctx, event.CustomerID)
	case models.EventSubscriptionDeleted:
		outcome, err = s.removeCustomer(ctx, event.CustomerID)
	default:
		outcome = OutcomeIgnored
	}
	if err != nil {
		return err
	}

	s.recordPaymentEvent(ctx, event, outcome)

	return nil
}

// markPaid flips an identity to paid, creating it first when the payment is
// the customer's earliest contact: the phone comes from the billing profile.
func (s *UserService) markPaid(ctx context.Context, customerID string) (string, error) {
	user, err := s.users.GetUserByCustomerID(ctx, customerID)
	if err == nil {
		if err := s.users.SetPaidStatus(ctx, user.Phone, true); err != nil {
			return "", err
		}
		return OutcomeMarkedPaid, nil
	}
	if !errors.Is(err, scylla.ErrUserNotFound) {
		return "", err
	}

	customer, err := s.customers.GetCustomer(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve customer: %w", err)
	}

	phone := util.NormalizePhone(customer.MobilePhone)
	if !util.ValidPhone(phone) {
		util.Warn("Customer has no usable phone",
			zap.String("customer_id", customerID))
		return OutcomeIgnored, nil
	}

	newUser := &models.User{
		Phone:      phone,
		CustomerID: customerID,
		IsPaid:     true,
		CreatedAt:  s.clock.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, newUser); err != nil {
		if errors.Is(err, scylla.ErrUserExists) {
			// Phone registered without a customer binding; just mark it paid.
			if err := s.users.SetPaidStatus(ctx, phone, true); err != nil {
				return "", err
			}
			return OutcomeMarkedPaid, nil
		}
		return "", err
	}

	return OutcomeUserCreated, nil
}

func (s *UserService) markUnpaid(ctx context.Context, customerID string) (string, error) {
	user, err := s.users.GetUserByCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, scylla.ErrUserNotFound) {
			util.Warn("Payment event for unknown customer",
				zap.String("customer_id", customerID))
			return OutcomeIgnored, nil
		}
		return "", err
	}

	if err := s.users.SetPaidStatus(ctx, user.Phone, false); err != nil {
		return "", err
	}

	return OutcomeMarkedUnpaid, nil
}

// removeCustomer deletes the identity and the billing profile together so a
// cancelled subscription leaves nothing behind on either side.
func (s *UserService) removeCustomer(ctx context.Context, customerID string) (string, error) {
	user, err := s.users.GetUserByCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, scylla.ErrUserNotFound) {
			return OutcomeIgnored, nil
		}
		return "", err
	}

	if err := s.users.DeleteUser(ctx, user.Phone); err != nil {
		return "", err
	}

	if err := s.customers.DeleteCustomer(ctx, customerID); err != nil &&
		!errors.Is(err, payment.ErrCustomerNotFound) {
		// Identity is gone; billing cleanup failing is logged, not fatal.
		util.Error("Failed to delete billing customer",
			zap.String("customer_id", customerID),
			zap.Error(err))
	}

	return OutcomeUserDeleted, nil
}

// recordPaymentEvent fans the processed event out to the analytics and audit
// sinks concurrently. Sink failures are logged; event processing already
// succeeded and the provider will not be asked to redeliver.
func (s *UserService) recordPaymentEvent(ctx context.Context, event *WebhookEvent, outcome string) {
	record := &models.PaymentEvent{
		EventID:     uuid.New().String(),
		EventType:   event.Event,
		CustomerID:  event.CustomerID,
		BillingType: event.BillingType,
		Outcome:     outcome,
		ReceivedAt:  s.clock.Now().UTC(),
	}

	g, gctx := errgroup.WithContext(ctx)

	if s.events != nil {
		g.Go(func() error {
			return s.events.InsertEvent(gctx, record)
		})
	}
	if s.producer != nil {
		g.Go(func() error {
			payload, err := json.Marshal(record)
			if err != nil {
				return err
			}
			return s.producer.Publish(gctx, event.CustomerID, payload)
		})
	}

	if err := g.Wait(); err != nil {
		util.Error("Failed to record payment event",
			zap.String("event_type", event.Event),
			zap.Error(err))
	}
}
