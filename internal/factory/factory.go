package factory

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"assistente-api/internal/audit"
	"assistente-api/internal/bucketing"
	"assistente-api/internal/client"
	"assistente-api/internal/clock"
	"assistente-api/internal/config"
	"assistente-api/internal/delivery"
	"assistente-api/internal/encryption"
	"assistente-api/internal/handler"
	"assistente-api/internal/hashing"
	"assistente-api/internal/middleware"
	"assistente-api/internal/payment"
	chrepo "assistente-api/internal/repository/clickhouse"
	redisrepo "assistente-api/internal/repository/redis"
	"assistente-api/internal/repository/scylla"
	"assistente-api/internal/schedule"
	"assistente-api/internal/service"
	"assistente-api/internal/token"
	"assistente-api/internal/util"
)

// Factory builds and owns every component of the service. Required backends
// (Redis, Scylla, the message sender, the signing secret) are fatal when they
// fail; observability backends (Kafka, Elasticsearch, ClickHouse) and the
// schedule extractor degrade to disabled outside production.
type Factory struct {
	Config *config.Config

	redisClient   *client.RedisClient
	scyllaClient  *scylla.ScyllaClient
	kafkaProducer *client.KafkaProducer
	esClient      *client.ESClient
	chClient      *client.ClickHouseClient

	closeOnce sync.Once
}

func New(ctx context.Context, cfg *config.Config) (*Factory, http.Handler, error) {
	f := &Factory{Config: cfg}

	redisClient, err := client.NewRedisClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	f.redisClient = redisClient

	scyllaClient, err := scylla.NewScyllaClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("scylla: %w", err)
	}
	f.scyllaClient = scyllaClient

	if f.kafkaProducer, err = optionalBackend(cfg, "kafka", client.NewKafkaProducer); err != nil {
		return nil, nil, err
	}
	if f.esClient, err = optionalBackend(cfg, "elasticsearch", client.NewElasticsearchClient); err != nil {
		return nil, nil, err
	}
	if f.chClient, err = optionalBackend(cfg, "clickhouse", client.NewClickHouseClient); err != nil {
		return nil, nil, err
	}

	secretManager, err := encryption.NewSecretManager(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("secret manager: %w", err)
	}
	signingSecret, err := secretManager.ResolveSigningSecret(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("signing secret: %w", err)
	}

	hasher, err := hashing.NewHasher(signingSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("hasher: %w", err)
	}

	clk := clock.New()
	issuer, err := token.NewIssuer(signingSecret, cfg.Auth.TokenTTL, clk)
	if err != nil {
		return nil, nil, fmt.Errorf("token issuer: %w", err)
	}

	sender, err := delivery.NewWhatsAppSender(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("message sender: %w", err)
	}

	customers, err := payment.NewAsaasClient(cfg)
	if err != nil {
		if cfg.IsProduction() {
			return nil, nil, fmt.Errorf("billing client: %w", err)
		}
		util.Warn("Billing client disabled", zap.Error(err))
	}

	bucketingMgr := bucketing.NewBucketingManager(cfg.UserBuckets)
	auditor := audit.NewRecorder(f.esClient, f.kafkaProducer, bucketingMgr, clk)

	userRepo := scylla.NewUserRepository(scyllaClient, bucketingMgr)
	otpStore := redisrepo.NewOTPStore(redisClient)

	var eventRepo chrepo.PaymentEventRepository
	if f.chClient != nil {
		eventRepo = chrepo.NewPaymentEventRepository(f.chClient)
	}

	otpService := service.NewOTPService(userRepo, otpStore, hasher, issuer,
		sender, auditor, bucketingMgr, cfg.Auth, clk)

	var customerClient payment.CustomerClient
	if customers != nil {
		customerClient = customers
	} else {
		customerClient = disabledCustomerClient{}
	}
	userService := service.NewUserService(userRepo, eventRepo, customerClient,
		f.kafkaProducer, auditor, bucketingMgr, clk)

	var scheduleHandler *handler.ScheduleHandler
	if cfg.Gemini.APIKey != "" {
		extractor, err := schedule.NewGeminiExtractor(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("schedule extractor: %w", err)
		}
		scheduleHandler = handler.NewScheduleHandler(extractor, userService)
	} else if cfg.IsProduction() {
		return nil, nil, fmt.Errorf("GEMINI_API_KEY is required in production")
	} else {
		util.Warn("Schedule extraction disabled, no Gemini API key")
	}

	router := handler.NewRouter(handler.RouterDeps{
		Auth:          handler.NewAuthHandler(otpService, cfg.Auth.TokenTTL),
		Webhook:       handler.NewWebhookHandler(userService, cfg.WebhookActive),
		Admin:         handler.NewAdminHandler(userService, cfg.Admin),
		Schedule:      scheduleHandler,
		Health:        handler.NewHealthHandler(f.healthChecks(otpStore, userRepo)),
		Authenticator: middleware.NewAuthenticator(issuer, userRepo, auditor, bucketingMgr),
		RateLimiter:   middleware.NewRateLimiter(5, 10),
	})

	return f, router, nil
}

// optionalBackend builds an observability backend. Outside production a
// failure only disables the backend; in production it aborts startup.
func optionalBackend[T any](cfg *config.Config, name string, build func(*config.Config) (*T, error)) (*T, error) {
	backend, err := build(cfg)
	if err != nil {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		util.Warn("Backend disabled", zap.String("backend", name), zap.Error(err))
		return nil, nil
	}
	return backend, nil
}

func (f *Factory) healthChecks(otpStore redisrepo.OTPStore, users scylla.UserRepository) map[string]handler.HealthChecker {
	checks := map[string]handler.HealthChecker{
		"redis":  otpStore.HealthCheck,
		"scylla": users.HealthCheck,
	}
	if f.chClient != nil {
		checks["clickhouse"] = f.chClient.HealthCheck
	}
	if f.esClient != nil {
		checks["elasticsearch"] = func(context.Context) error { return f.esClient.HealthCheck() }
	}
	return checks
}

// Close releases every held connection, once.
func (f *Factory) Close() {
	f.closeOnce.Do(func() {
		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", zap.Error(err))
			}
		}
		if f.chClient != nil {
			if err := f.chClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", zap.Error(err))
			}
		}
		if f.esClient != nil {
			f.esClient.Close()
		}
		if f.scyllaClient != nil {
			f.scyllaClient.Close()
		}
		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", zap.Error(err))
			}
		}
	})
}

// disabledCustomerClient stands in when no billing API is configured in
// development; every lookup behaves as an unknown customer.
type disabledCustomerClient struct{}

func (disabledCustomerClient) GetCustomer(context.Context, string) (*payment.Customer, error) {
	return nil, payment.ErrCustomerNotFound
}

func (disabledCustomerClient) DeleteCustomer(context.Context, string) error {
	return payment.ErrCustomerNotFound
}
