package scylla

import (
	"context"

	"assistente-api/internal/models"
)

// UserRepository defines the identity store operations the services rely on.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	GetUserByCustomerID(ctx context.Context, customerID string) (*models.User, error)
	SetPaidStatus(ctx context.Context, phone string, isPaid bool) error
	DeleteUser(ctx context.Context, phone string) error
	HealthCheck(ctx context.Context) error
}
