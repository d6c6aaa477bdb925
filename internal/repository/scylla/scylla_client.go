package scylla

import (
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"assistente-api/internal/config"
	"assistente-api/internal/util"
)

// PreparedStatements holds the statements the user repository executes.
type PreparedStatements struct {
	CreateUser           *gocql.Query
	CreateCustomerToUser *gocql.Query
	GetUserByPhone       *gocql.Query
	GetPhoneByCustomer   *gocql.Query
	UpdatePaidStatus     *gocql.Query
	DeleteUser           *gocql.Query
	DeleteCustomerToUser *gocql.Query
}

type ScyllaClient struct {
	Session      *gocql.Session
	config       *config.ScyllaConfig
	Prepared     *PreparedStatements
	prepareMutex sync.Mutex
	isPrepared   bool
}

func NewScyllaClient(cfg *config.Config) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Hosts...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = scyllaConfig.Timeout
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
	}

	if err := client.prepareStatements(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	util.Info("ScyllaDB client initialized with prepared statements",
		zap.Strings("hosts", scyllaConfig.Hosts),
		zap.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func (s *ScyllaClient) prepareStatements() error {
	s.prepareMutex.Lock()
	defer s.prepareMutex.Unlock()

	if s.isPrepared {
		return nil
	}

	prepared := &PreparedStatements{}

	// LWT so two concurrent creates for one phone cannot both apply.
	prepared.CreateUser = s.Session.Query(`
        INSERT INTO users (user_bucket, phone, customer_id, is_paid, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?) IF NOT EXISTS`)

	prepared.CreateCustomerToUser = s.Session.Query(`
        INSERT INTO customer_to_user (customer_id, phone, created_at)
        VALUES (?, ?, ?)`)

	prepared.GetUserByPhone = s.Session.Query(`
        SELECT user_bucket, phone, customer_id, is_paid, created_at, updated_at
        FROM users WHERE user_bucket = ? AND phone = ?`)

	prepared.GetPhoneByCustomer = s.Session.Query(`
        SELECT phone FROM customer_to_user WHERE customer_id = ?`)

	prepared.UpdatePaidStatus = s.Session.Query(`
        UPDATE users SET is_paid = ?, updated_at = ?
        WHERE user_bucket = ? AND phone = ?`)

	prepared.DeleteUser = s.Session.Query(`
        DELETE FROM users WHERE user_bucket = ? AND phone = ?`)

	prepared.DeleteCustomerToUser = s.Session.Query(`
        DELETE FROM customer_to_user WHERE customer_id = ?`)

	s.Prepared = prepared
	s.isPrepared = true

	return nil
}

func (s *ScyllaClient) HealthCheck() error {
	return s.Session.Query(`SELECT release_version FROM system.local`).Exec()
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
	}
}
