package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const PROD_STRING = "prod"

// Store and event drivers.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	EventsNone  = "none"
	EventsKafka = "kafka"
	EventsAMQP  = "amqp"
)

// Config holds all application configuration loaded from environment.
type Config struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	ProdOrigins string `envconfig:"PROD_ORIGINS"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	StoreDriver     string        `envconfig:"STORE_DRIVER" default:"postgres"`
	DBDSN           string        `envconfig:"DB_DSN"`
	SeedFile        string        `envconfig:"SEED_FILE"`
	SlotLockTimeout time.Duration `envconfig:"SLOT_LOCK_TIMEOUT" default:"3s"`

	JWTSecret         string        `envconfig:"JWT_SECRET" required:"true"`
	JWTAccessTokenTTL time.Duration `envconfig:"JWT_ACCESS_TOKEN_TTL" default:"15m"`

	EventsDriver string   `envconfig:"EVENTS_DRIVER" default:"none"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"timetable.bookings"`
	AMQPURL      string   `envconfig:"AMQP_URL"`
	AMQPExchange string   `envconfig:"AMQP_EXCHANGE" default:"timetable.exchange"`
}

// IsProduction reports whether APP_ENV selects production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == PROD_STRING
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("failed to load .env file: %v", err)
	}
	return FromEnv()
}

// FromEnv reads and validates the configuration from the process environment only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements envconfig cannot express.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	switch c.StoreDriver {
	case StorePostgres:
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required when STORE_DRIVER=%s", StorePostgres)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.EventsDriver {
	case EventsNone:
	case EventsKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_DRIVER=%s", EventsKafka)
		}
	case EventsAMQP:
		if c.AMQPURL == "" {
			return fmt.Errorf("AMQP_URL is required when EVENTS_DRIVER=%s", EventsAMQP)
		}
	default:
		return fmt.Errorf("invalid EVENTS_DRIVER %q", c.EventsDriver)
	}

	if c.SlotLockTimeout <= 0 {
		return fmt.Errorf("SLOT_LOCK_TIMEOUT must be positive")
	}
	return nil
}
