package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"assistente-api/internal/config"
	"assistente-api/internal/util"
)

// MessageSender delivers a text message to a phone number.
type MessageSender interface {
	SendText(ctx context.Context, phone, text string) error
}

// WhatsAppSender delivers messages through an Evolution API instance.
type WhatsAppSender struct {
	config     *config.DeliveryConfig
	httpClient *http.Client
}

func NewWhatsAppSender(cfg *config.Config) (*WhatsAppSender, error) {
	deliveryConfig := cfg.Delivery

	if deliveryConfig.EvolutionURL == "" {
		return nil, fmt.Errorf("no Evolution API URL configured")
	}
	if deliveryConfig.Instance == "" {
		return nil, fmt.Errorf("no Evolution API instance configured")
	}

	return &WhatsAppSender{
		config: &deliveryConfig,
		httpClient: &http.Client{
			Timeout: deliveryConfig.Timeout,
		},
	}, nil
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

func (s *WhatsAppSender) SendText(ctx context.Context, phone, text string) error {
	payload, err := json.Marshal(sendTextRequest{
		Number: s.config.CountryPrefix + phone,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/message/sendText/%s", s.config.EvolutionURL, s.config.Instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build message request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.config.EvolutionAPIKey)

	res, err := s.httpClient.Do(req)
	if err != nil {
		util.Error("Failed to reach message provider", zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusMultipleChoices {
		util.Error("Message provider rejected delivery",
			zap.Int("status", res.StatusCode))
		return fmt.Errorf("message provider returned status %d", res.StatusCode)
	}

	return nil
}
