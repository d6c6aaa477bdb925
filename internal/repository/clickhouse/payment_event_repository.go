package clickhouse

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"assistente-api/internal/client"
	"assistente-api/internal/models"
	"assistente-api/internal/util"
)

// PaymentEventRepository is the analytics sink for processed webhook events.
type PaymentEventRepository interface {
	InsertEvent(ctx context.Context, event *models.PaymentEvent) error
	HealthCheck(ctx context.Context) error
}

type ClickHousePaymentEventRepository struct {
	client *client.ClickHouseClient
}

func NewPaymentEventRepository(c *client.ClickHouseClient) *ClickHousePaymentEventRepository {
	return &ClickHousePaymentEventRepository{client: c}
}

func (r *ClickHousePaymentEventRepository) InsertEvent(ctx context.Context, event *models.PaymentEvent) error {
	query := `
        INSERT INTO payment_events (event_id, event_type, customer_id, billing_type, outcome, received_at)
        VALUES (?, ?, ?, ?, ?, ?)`

	err := r.client.Exec(ctx, query,
		event.EventID, event.EventType, event.CustomerID,
		event.BillingType, event.Outcome, event.ReceivedAt)
	if err != nil {
		util.Error("Failed to insert payment event",
			zap.String("event_type", event.EventType),
			zap.Error(err))
		return fmt.Errorf("failed to insert payment event: %w", err)
	}

	return nil
}

func (r *ClickHousePaymentEventRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck(ctx)
}
