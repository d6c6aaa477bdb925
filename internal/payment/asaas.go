package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"assistente-api/internal/config"
	"assistente-api/internal/util"
)

// ErrCustomerNotFound is returned when the billing provider has no record of
// the customer.
var ErrCustomerNotFound = errors.New("customer not found")

// Customer is the subset of the billing provider's customer record the
// service needs to bind a payment to an identity.
type Customer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MobilePhone string `json:"mobilePhone"`
}

// CustomerClient resolves and removes billing customers.
type CustomerClient interface {
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	DeleteCustomer(ctx context.Context, customerID string) error
}

// AsaasClient talks to the Asaas REST API.
type AsaasClient struct {
	config     *config.AsaasConfig
	httpClient *http.Client
}

func NewAsaasClient(cfg *config.Config) (*AsaasClient, error) {
	asaasConfig := cfg.Asaas

	if asaasConfig.URL == "" {
		return nil, fmt.Errorf("no Asaas API URL configured")
	}

	return &AsaasClient{
		config: &asaasConfig,
		httpClient: &http.Client{
			Timeout: asaasConfig.Timeout,
		},
	}, nil
}

func (c *AsaasClient) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	url := fmt.Sprintf("%s/customers/%s", c.config.URL, customerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build customer request: %w", err)
	}
	req.Header.Set("access_token", c.config.APIKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		util.Error("Failed to reach billing provider", zap.Error(err))
		return nil, fmt.Errorf("failed to fetch customer: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrCustomerNotFound
	}
	if res.StatusCode != http.StatusOK {
		util.Error("Billing provider returned error",
			zap.Int("status", res.StatusCode))
		return nil, fmt.Errorf("billing provider returned status %d", res.StatusCode)
	}

	var customer Customer
	if err := json.NewDecoder(res.Body).Decode(&customer); err != nil {
		return nil, fmt.Errorf("failed to decode customer: %w", err)
	}

	return &customer, nil
}

func (c *AsaasClient) DeleteCustomer(ctx context.Context, customerID string) error {
	url := fmt.Sprintf("%s/customers/%s", c.config.URL, customerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build customer delete request: %w", err)
	}
	req.Header.Set("access_token", c.config.APIKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		util.Error("Failed to reach billing provider", zap.Error(err))
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ErrCustomerNotFound
	}
	if res.StatusCode != http.StatusOK {
		util.Error("Billing provider returned error",
			zap.Int("status", res.StatusCode))
		return fmt.Errorf("billing provider returned status %d", res.StatusCode)
	}

	return nil
}
