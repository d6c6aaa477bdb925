package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration. It is built once at process start
// and treated as immutable afterwards.
type Config struct {
	Environment string

	Server        ServerConfig
	Logging       LoggingConfig
	Redis         RedisConfig
	Scylla        ScyllaConfig
	Kafka         KafkaConfig
	Elasticsearch ElasticsearchConfig
	Clickhouse    ClickhouseConfig
	KMS           KMSConfig
	Auth          AuthConfig
	Delivery      DeliveryConfig
	Asaas         AsaasConfig
	Gemini        GeminiConfig
	Admin         AdminConfig

	WebhookActive bool
	UserBuckets   int
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type ScyllaConfig struct {
	Hosts    []string
	Keyspace string
	Timeout  time.Duration
}

type KafkaConfig struct {
	Brokers     []string
	EventsTopic string
}

type ElasticsearchConfig struct {
	URL           string
	Username      string
	Password      string
	SecurityIndex string
}

type ClickhouseConfig struct {
	URL      string
	Username string
	Password string
	Database string
}

// KMSConfig controls envelope decryption of the JWT signing secret. When
// enabled, AUTH_JWT_SECRET_CIPHERTEXT is decrypted through AWS KMS at startup
// instead of reading AUTH_JWT_SECRET directly.
type KMSConfig struct {
	Enabled          bool
	Region           string
	SecretCiphertext string
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	OTPTTL        time.Duration
	IssueCooldown time.Duration
	RetryWait     time.Duration
	MaxAttempts   int
}

type DeliveryConfig struct {
	EvolutionURL    string
	EvolutionAPIKey string
	Instance        string
	CountryPrefix   string
	Timeout         time.Duration
}

type AsaasConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type AdminConfig struct {
	Active bool
	APIKey string
}

// LoadConfig reads configuration from the environment (optionally seeded from
// a .env file). It fails when a required value is missing so that
// misconfiguration is caught at startup, not on the first request.
func LoadConfig() (*Config, error) {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 50),
		},
		Scylla: ScyllaConfig{
			Hosts:    splitList(getEnv("SCYLLA_HOSTS", "localhost:9042")),
			Keyspace: getEnv("SCYLLA_KEYSPACE", "assistente"),
			Timeout:  getEnvDuration("SCYLLA_TIMEOUT", 10*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(getEnv("KAFKA_BROKERS", "")),
			EventsTopic: getEnv("KAFKA_EVENTS_TOPIC", "auth-events"),
		},
		Elasticsearch: ElasticsearchConfig{
			URL:           getEnv("ELASTICSEARCH_URL", ""),
			Username:      getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:      getEnv("ELASTICSEARCH_PASSWORD", ""),
			SecurityIndex: getEnv("ELASTICSEARCH_SECURITY_INDEX", "security-events"),
		},
		Clickhouse: ClickhouseConfig{
			URL:      getEnv("CLICKHOUSE_URL", ""),
			Username: getEnv("CLICKHOUSE_USERNAME", "default"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			Database: getEnv("CLICKHOUSE_DATABASE", "assistente"),
		},
		KMS: KMSConfig{
			Enabled:          getEnvBool("KMS_ENABLED", false),
			Region:           getEnv("KMS_REGION", "us-east-1"),
			SecretCiphertext: getEnv("AUTH_JWT_SECRET_CIPHERTEXT", ""),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("AUTH_JWT_SECRET", ""),
			TokenTTL:      getEnvDuration("AUTH_TOKEN_TTL", 1800*time.Second),
			OTPTTL:        getEnvDuration("AUTH_OTP_TTL", 5*time.Minute),
			IssueCooldown: getEnvDuration("AUTH_ISSUE_COOLDOWN", 60*time.Second),
			RetryWait:     getEnvDuration("AUTH_RETRY_WAIT", 60*time.Second),
			MaxAttempts:   getEnvInt("AUTH_MAX_ATTEMPTS", 3),
		},
		Delivery: DeliveryConfig{
			EvolutionURL:    getEnv("EVOLUTION_API_URL", ""),
			EvolutionAPIKey: getEnv("EVOLUTION_API_KEY", ""),
			Instance:        getEnv("EVOLUTION_INSTANCE", ""),
			CountryPrefix:   getEnv("DELIVERY_COUNTRY_PREFIX", "+55"),
			Timeout:         getEnvDuration("DELIVERY_TIMEOUT", 10*time.Second),
		},
		Asaas: AsaasConfig{
			URL:     getEnv("ASAAS_API_URL", ""),
			APIKey:  getEnv("ASAAS_API_KEY", ""),
			Timeout: getEnvDuration("ASAAS_TIMEOUT", 10*time.Second),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash-preview-05-20"),
		},
		Admin: AdminConfig{
			Active: getEnvBool("ADMIN_ACTIVE", false),
			APIKey: getEnv("ADMIN_API_KEY", ""),
		},
		WebhookActive: getEnvBool("WEBHOOK_ACTIVE", true),
		UserBuckets:   getEnvInt("USER_BUCKETS", 16),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.KMS.Enabled {
		if c.KMS.SecretCiphertext == "" {
			return fmt.Errorf("KMS is enabled but AUTH_JWT_SECRET_CIPHERTEXT is not set")
		}
	} else if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if c.Admin.Active && c.Admin.APIKey == "" {
		return fmt.Errorf("ADMIN_API_KEY is required when ADMIN_ACTIVE is true")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return !c.IsProduction()
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
