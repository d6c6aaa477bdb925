package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"assistente-api/internal/service"
	"assistente-api/internal/util"
)

// PaymentEventApplier is the slice of the user service the webhook uses.
type PaymentEventApplier interface {
	ApplyPaymentEvent(ctx context.Context, event *service.WebhookEvent) error
}

// WebhookHandler receives billing provider notifications.
type WebhookHandler struct {
	users  PaymentEventApplier
	active bool
}

func NewWebhookHandler(users PaymentEventApplier, active bool) *WebhookHandler {
	return &WebhookHandler{users: users, active: active}
}

type webhookPayload struct {
	Event   string `json:"event"`
	Payment struct {
		Customer    string `json:"customer"`
		BillingType string `json:"billingType"`
	} `json:"payment"`
	Subscription struct {
		Customer string `json:"customer"`
	} `json:"subscription"`
}

// Handle processes one provider notification. The response is always 200:
// the provider retries non-2xx deliveries aggressively and a malformed or
// unprocessable event will not improve on redelivery.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	defer writeSuccess(w, http.StatusOK, nil, "received")

	if !h.active {
		return
	}

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		util.Warn("Webhook payload did not parse", zap.Error(err))
		return
	}

	customerID := payload.Payment.Customer
	if customerID == "" {
		customerID = payload.Subscription.Customer
	}
	if payload.Event == "" || customerID == "" {
		util.Warn("Webhook payload missing event or customer")
		return
	}

	event := &service.WebhookEvent{
		Event:       payload.Event,
		CustomerID:  customerID,
		BillingType: payload.Payment.BillingType,
	}
	if err := h.users.ApplyPaymentEvent(r.Context(), event); err != nil {
		util.Error("Failed to apply payment event",
			zap.String("event_type", payload.Event),
			zap.Error(err))
	}
}
