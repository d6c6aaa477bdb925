package scylla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"assistente-api/internal/bucketing"
	"assistente-api/internal/models"
	"assistente-api/internal/util"
)

var (
	// ErrUserNotFound is returned when no identity exists for the given key.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when an identity already holds the phone.
	ErrUserExists = errors.New("user already exists for phone")
)

// ScyllaUserRepository persists identities in the users table, partitioned by
// user bucket, with a customer_to_user lookup table for webhook resolution.
type ScyllaUserRepository struct {
	client    *ScyllaClient
	bucketing *bucketing.BucketingManager
}

func NewUserRepository(client *ScyllaClient, bucketingMgr *bucketing.BucketingManager) *ScyllaUserRepository {
	return &ScyllaUserRepository{
		client:    client,
		bucketing: bucketingMgr,
	}
}

func (r *ScyllaUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.UserBucket = r.bucketing.GetUserBucket(user.Phone)

	// One identity per phone number. The insert is an LWT, so the duplicate
	// check cannot race with a concurrent create for the same phone.
	query := r.client.Prepared.CreateUser.WithContext(ctx).Bind(
		user.UserBucket, user.Phone, user.CustomerID, user.IsPaid,
		user.CreatedAt, user.UpdatedAt)
	applied, err := query.MapScanCAS(map[string]interface{}{})
	if err != nil {
		util.Error("Failed to create user",
			zap.Int("user_bucket", user.UserBucket),
			zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}
	if !applied {
		return ErrUserExists
	}

	if user.CustomerID != "" {
		mapping := r.client.Prepared.CreateCustomerToUser.WithContext(ctx).Bind(
			user.CustomerID, user.Phone, user.CreatedAt)
		if err := mapping.Exec(); err != nil {
			util.Error("Failed to create customer mapping",
				zap.String("customer_id", user.CustomerID),
				zap.Error(err))
			return fmt.Errorf("failed to create customer mapping: %w", err)
		}
	}

	util.Info("User created",
		zap.Int("user_bucket", user.UserBucket),
		zap.String("customer_id", user.CustomerID))

	return nil
}

func (r *ScyllaUserRepository) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	bucket := r.bucketing.GetUserBucket(phone)
	user := &models.User{}

	query := r.client.Prepared.GetUserByPhone.WithContext(ctx).Bind(bucket, phone)
	err := query.Scan(&user.UserBucket, &user.Phone, &user.CustomerID,
		&user.IsPaid, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		util.Error("Failed to get user by phone",
			zap.Int("user_bucket", bucket),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}

	return user, nil
}

func (r *ScyllaUserRepository) GetUserByCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	var phone string

	query := r.client.Prepared.GetPhoneByCustomer.WithContext(ctx).Bind(customerID)
	if err := query.Scan(&phone); err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		util.Error("Failed to resolve customer mapping",
			zap.String("customer_id", customerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to resolve customer mapping: %w", err)
	}

	return r.GetUserByPhone(ctx, phone)
}

func (r *ScyllaUserRepository) SetPaidStatus(ctx context.Context, phone string, isPaid bool) error {
	bucket := r.bucketing.GetUserBucket(phone)
	now := time.Now().UTC()

	query := r.client.Prepared.UpdatePaidStatus.WithContext(ctx).Bind(isPaid, &now, bucket, phone)
	if err := query.Exec(); err != nil {
		util.Error("Failed to update paid status",
			zap.Int("user_bucket", bucket),
			zap.Bool("is_paid", isPaid),
			zap.Error(err))
		return fmt.Errorf("failed to update paid status: %w", err)
	}

	util.Info("Paid status updated",
		zap.Int("user_bucket", bucket),
		zap.Bool("is_paid", isPaid))

	return nil
}

func (r *ScyllaUserRepository) DeleteUser(ctx context.Context, phone string) error {
	user, err := r.GetUserByPhone(ctx, phone)
	if err != nil {
		return err
	}

	bucket := r.bucketing.GetUserBucket(phone)
	query := r.client.Prepared.DeleteUser.WithContext(ctx).Bind(bucket, phone)
	if err := query.Exec(); err != nil {
		util.Error("Failed to delete user",
			zap.Int("user_bucket", bucket),
			zap.Error(err))
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if user.CustomerID != "" {
		mapping := r.client.Prepared.DeleteCustomerToUser.WithContext(ctx).Bind(user.CustomerID)
		if err := mapping.Exec(); err != nil {
			util.Error("Failed to delete customer mapping",
				zap.String("customer_id", user.CustomerID),
				zap.Error(err))
			return fmt.Errorf("failed to delete customer mapping: %w", err)
		}
	}

	util.Info("User deleted", zap.Int("user_bucket", bucket))

	return nil
}

func (r *ScyllaUserRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck()
}
