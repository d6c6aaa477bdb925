package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistente-api/internal/config"
)

func asaasTestConfig(url string) *config.Config {
	return &config.Config{
		Asaas: config.AsaasConfig{
			URL:     url,
			APIKey:  "asaas-key",
			Timeout: 2 * time.Second,
		},
	}
}

func TestGetCustomer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers/cus_123", r.URL.Path)
		assert.Equal(t, "asaas-key", r.Header.Get("access_token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cus_123","name":"Maria","mobilePhone":"11988887777"}`))
	}))
	defer srv.Close()

	client, err := NewAsaasClient(asaasTestConfig(srv.URL))
	require.NoError(t, err)

	customer, err := client.GetCustomer(context.Background(), "cus_123")
	require.NoError(t, err)
	assert.Equal(t, "cus_123", customer.ID)
	assert.Equal(t, "11988887777", customer.MobilePhone)
}

func TestGetCustomerNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := NewAsaasClient(asaasTestConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.GetCustomer(context.Background(), "cus_missing")
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestDeleteCustomer(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.Write([]byte(`{"deleted":true}`))
	}))
	defer srv.Close()

	client, err := NewAsaasClient(asaasTestConfig(srv.URL))
	require.NoError(t, err)

	require.NoError(t, client.DeleteCustomer(context.Background(), "cus_123"))
	assert.Equal(t, http.MethodDelete, gotMethod)
}
