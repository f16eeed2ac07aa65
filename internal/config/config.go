package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every setting the sales service reads at startup.
type Config struct {
	Port           string `yaml:"port"`
	DatabaseURL    string `yaml:"database_url"`
	MigrationsPath string `yaml:"migrations_path"`

	InventoryServiceURL string        `yaml:"inventory_service_url"`
	PaymentServiceURL   string        `yaml:"payment_service_url"`
	GatewayTimeout      time.Duration `yaml:"gateway_timeout"`

	KafkaBrokers         []string `yaml:"kafka_brokers"`
	KafkaConsumerEnabled bool     `yaml:"kafka_consumer_enabled"`
	KafkaPaymentTopic    string   `yaml:"kafka_payment_topic"`
	KafkaPaymentGroupID  string   `yaml:"kafka_payment_group_id"`

	SuspendedStore string `yaml:"suspended_store"` // memory | redis
	RedisAddr      string `yaml:"redis_addr"`

	JWTSecret string `yaml:"jwt_secret"`
	TimeZone  string `yaml:"time_zone"`

	Payment PaymentDefaults `yaml:"payment"`

	CompensateOnPaymentFailure bool `yaml:"compensate_on_payment_failure"`
}

// PaymentDefaults are the fixed fields sent with every payment intent.
type PaymentDefaults struct {
	Currency    string `yaml:"currency"`
	Description string `yaml:"description"`
	PayerEmail  string `yaml:"payer_email"`
	Method      string `yaml:"method"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Port:                "8080",
		MigrationsPath:      "./internal/platform/database/migrations",
		GatewayTimeout:      5 * time.Second,
		KafkaPaymentTopic:   "payment-events",
		KafkaPaymentGroupID: "sales-service",
		SuspendedStore:      "memory",
		RedisAddr:           "localhost:6379",
		TimeZone:            "Asia/Singapore",
		Payment: PaymentDefaults{
			Currency:    "SGD",
			Description: "Printa POS Payment",
			PayerEmail:  "pos@printa.app",
			Method:      "card",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order of precedence (environment wins).
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "APP_PORT")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.MigrationsPath, "MIGRATIONS_PATH")
	setString(&cfg.InventoryServiceURL, "INVENTORY_SERVICE_URL")
	setString(&cfg.PaymentServiceURL, "PAYMENT_SERVICE_URL")
	setString(&cfg.KafkaPaymentTopic, "KAFKA_PAYMENT_TOPIC")
	setString(&cfg.KafkaPaymentGroupID, "KAFKA_PAYMENT_GROUP_ID")
	setString(&cfg.SuspendedStore, "SUSPENDED_STORE")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.TimeZone, "TIME_ZONE")
	setString(&cfg.Payment.Currency, "PAYMENT_CURRENCY")
	setString(&cfg.Payment.Description, "PAYMENT_DESCRIPTION")
	setString(&cfg.Payment.PayerEmail, "PAYMENT_PAYER_EMAIL")
	setString(&cfg.Payment.Method, "PAYMENT_METHOD")

	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		cfg.KafkaBrokers = splitCSV(v)
	}
	if v := os.Getenv("GATEWAY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid GATEWAY_TIMEOUT: %w", err)
		}
		cfg.GatewayTimeout = d
	}
	if err := setBool(&cfg.KafkaConsumerEnabled, "KAFKA_CONSUMER_ENABLED"); err != nil {
		return err
	}
	return setBool(&cfg.CompensateOnPaymentFailure, "COMPENSATE_ON_PAYMENT_FAILURE")
}

// Validate reports the first setting that would prevent the server from starting.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.InventoryServiceURL == "" {
		return errors.New("INVENTORY_SERVICE_URL is required")
	}
	if c.PaymentServiceURL == "" {
		return errors.New("PAYMENT_SERVICE_URL is required")
	}
	if c.GatewayTimeout <= 0 {
		return errors.New("GATEWAY_TIMEOUT must be greater than zero")
	}
	switch c.SuspendedStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid SUSPENDED_STORE: %s (allowed: memory, redis)", c.SuspendedStore)
	}
	if c.KafkaConsumerEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when KAFKA_CONSUMER_ENABLED is true")
	}
	return nil
}

// Location resolves TimeZone, falling back to a fixed UTC+8 zone when the
// tz database is unavailable.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.FixedZone("SGT", 8*60*60)
	}
	return loc
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

func splitCSV(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
