package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the order service reads from the environment.
type Config struct {
	Server ServerConfig
	Tables TableConfig
	Events EventConfig
	Redis  RedisConfig
}

type ServerConfig struct {
	Port         string
	RunLocal     bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// TableConfig names the DynamoDB tables the service persists to.
type TableConfig struct {
	Orders        string
	Products      string
	Notifications string
	Carts         string
	Idempotency   string // empty disables idempotency-key replay
}

type EventConfig struct {
	QueueURL        string
	MetricNamespace string
	TTLWindow       time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads configuration from the environment. A .env file is honored
// when present (local development), real env vars win.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			RunLocal:     getEnv("RUN_LOCAL", "") == "true",
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Tables: TableConfig{
			Orders:        getEnv("ORDERS_TABLE", "orders"),
			Products:      getEnv("PRODUCTS_TABLE", "products"),
			Notifications: getEnv("NOTIFICATIONS_TABLE", "notifications"),
			Carts:         getEnv("CARTS_TABLE", "carts"),
			Idempotency:   getEnv("IDEMPOTENCY_TABLE", ""),
		},
		Events: EventConfig{
			QueueURL:        getEnv("ORDER_EVENTS_QUEUE_URL", ""),
			MetricNamespace: getEnv("METRIC_NAMESPACE", "OrderService"),
			TTLWindow:       getEnvDuration("IDEMPOTENCY_TTL", 48*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
