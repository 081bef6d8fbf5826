package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Workflow     WorkflowConfig
	Seed         SeedConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines bearer token verification parameters. Tokens are
// issued by the external identity provider.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	Issuer                string
}

// NotificationConfig controls where outcome events are forwarded.
type NotificationConfig struct {
	WebhookURL        string
	WebhookTimeoutSec int
	RedisChannel      string
	QueueSize         int
}

// WorkflowConfig bounds the ticket critical section and auto-assignment.
type WorkflowConfig struct {
	LockTimeoutMillis     int
	SnapshotTimeoutMillis int
	AutoAssignMaxRetries  int
	AutoAssignPolicy      string
}

// SeedConfig points at an organization graph fixture used when no database is configured.
type SeedConfig struct {
	File string
}

// Load reads configuration from environment variables, applying defaults where
// possible. Missing env files are ignored.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "equipment-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     lookupEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			Issuer:                os.Getenv("AUTH_ISSUER"),
		},
		Notification: NotificationConfig{
			WebhookURL:        getEnv("NOTIFY_WEBHOOK_URL", ""),
			WebhookTimeoutSec: getEnvAsInt("NOTIFY_WEBHOOK_TIMEOUT_SECONDS", 5),
			RedisChannel:      getEnv("NOTIFY_REDIS_CHANNEL", "ticket-events"),
			QueueSize:         getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
		},
		Workflow: WorkflowConfig{
			LockTimeoutMillis:     getEnvAsInt("WORKFLOW_LOCK_TIMEOUT_MS", 3000),
			SnapshotTimeoutMillis: getEnvAsInt("WORKFLOW_SNAPSHOT_TIMEOUT_MS", 2000),
			AutoAssignMaxRetries:  getEnvAsInt("WORKFLOW_AUTO_ASSIGN_MAX_RETRIES", 3),
			AutoAssignPolicy:      getEnv("WORKFLOW_AUTO_ASSIGN_POLICY", "hash"),
		},
		Seed: SeedConfig{
			File: os.Getenv("GRAPH_SEED_FILE"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// LockTimeout returns how long a mutation may wait for a busy ticket.
func (w WorkflowConfig) LockTimeout() time.Duration {
	return time.Duration(w.LockTimeoutMillis) * time.Millisecond
}

// SnapshotTimeout bounds reads of the organization graph.
func (w WorkflowConfig) SnapshotTimeout() time.Duration {
	return time.Duration(w.SnapshotTimeoutMillis) * time.Millisecond
}

// WebhookTimeout returns the outbound webhook timeout.
func (n NotificationConfig) WebhookTimeout() time.Duration {
	return time.Duration(n.WebhookTimeoutSec) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// lookupEnv is like getEnv but keeps an explicitly empty value, which
// disables optional backends.
func lookupEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
