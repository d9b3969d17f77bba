package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Store     StoreConfig
	JWT       JWTConfig
	Operator  OperatorConfig
	Gateway   GatewayConfig
	Pricing   PricingConfig
	Redis     RedisConfig
	DynamoDB  DynamoDBConfig
	Webhook   WebhookConfig
	Reconcile ReconcileConfig
	Booking   BookingConfig
}

type AppConfig struct {
	Name            string
	Port            string
	Debug           bool
	LogPath         string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int32
}

type StoreConfig struct {
	// Driver is "postgres" or "memory".
	Driver string
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type OperatorConfig struct {
	// KeyHash is the bcrypt hash of the operator API key.
	KeyHash string
}

type GatewayConfig struct {
	Provider      string
	Mock          bool
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	Timeout       time.Duration
	MaxRetries    int
}

type PricingConfig struct {
	Currency         string
	TaxRate          float64
	RefundTiers      string
	RefundMinPercent int64
}

type RedisConfig struct {
	URL     string
	Channel string
}

type DynamoDBConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	InboxTable      string
}

type WebhookConfig struct {
	// InboxDriver is "dynamodb" or "memory".
	InboxDriver string
	RateLimit   float64
	Burst       int
	DedupTTL    time.Duration
}

type ReconcileConfig struct {
	Enabled    bool
	Interval   time.Duration
	StaleAfter time.Duration
	BatchSize  int
}

type BookingConfig struct {
	// MaxUpdateRetries bounds re-reads after a version conflict.
	MaxUpdateRetries int
}

// LoadConfig reads an optional .env file and the process environment.
// Environment variables win over the file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ".env"
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	v.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:            v.GetString("APP_NAME"),
			Port:            v.GetString("PORT"),
			Debug:           v.GetBool("DEBUG"),
			LogPath:         v.GetString("LOG_PATH"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("STORE_DRIVER")),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			Issuer: v.GetString("JWT_ISSUER"),
		},
		Operator: OperatorConfig{
			KeyHash: v.GetString("OPERATOR_KEY_HASH"),
		},
		Gateway: GatewayConfig{
			Provider:      strings.ToLower(v.GetString("GATEWAY_PROVIDER")),
			Mock:          v.GetBool("GATEWAY_MOCK"),
			KeyID:         v.GetString("GATEWAY_KEY_ID"),
			KeySecret:     v.GetString("GATEWAY_KEY_SECRET"),
			WebhookSecret: v.GetString("GATEWAY_WEBHOOK_SECRET"),
			BaseURL:       v.GetString("GATEWAY_BASE_URL"),
			Timeout:       v.GetDuration("GATEWAY_TIMEOUT"),
			MaxRetries:    v.GetInt("GATEWAY_MAX_RETRIES"),
		},
		Pricing: PricingConfig{
			Currency:         strings.ToUpper(v.GetString("CURRENCY")),
			TaxRate:          v.GetFloat64("TAX_RATE"),
			RefundTiers:      v.GetString("REFUND_TIERS"),
			RefundMinPercent: v.GetInt64("REFUND_MIN_PERCENT"),
		},
		Redis: RedisConfig{
			URL:     v.GetString("REDIS_URL"),
			Channel: v.GetString("REDIS_EVENTS_CHANNEL"),
		},
		DynamoDB: DynamoDBConfig{
			Region:          v.GetString("AWS_REGION"),
			Endpoint:        v.GetString("DYNAMODB_ENDPOINT"),
			AccessKeyID:     v.GetString("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
			InboxTable:      v.GetString("WEBHOOK_INBOX_TABLE"),
		},
		Webhook: WebhookConfig{
			InboxDriver: strings.ToLower(v.GetString("WEBHOOK_INBOX_DRIVER")),
			RateLimit:   v.GetFloat64("WEBHOOK_RATE_LIMIT"),
			Burst:       v.GetInt("WEBHOOK_RATE_BURST"),
			DedupTTL:    v.GetDuration("WEBHOOK_DEDUP_TTL"),
		},
		Reconcile: ReconcileConfig{
			Enabled:    v.GetBool("RECONCILE_ENABLED"),
			Interval:   v.GetDuration("RECONCILE_INTERVAL"),
			StaleAfter: v.GetDuration("RECONCILE_STALE_AFTER"),
			BatchSize:  v.GetInt("RECONCILE_BATCH_SIZE"),
		},
		Booking: BookingConfig{
			MaxUpdateRetries: v.GetInt("BOOKING_MAX_UPDATE_RETRIES"),
		},
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "booking-engine")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("STORE_DRIVER", "postgres")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("GATEWAY_PROVIDER", "razorpay")
	v.SetDefault("GATEWAY_MOCK", false)
	v.SetDefault("GATEWAY_TIMEOUT", "10s")
	v.SetDefault("GATEWAY_MAX_RETRIES", 3)
	v.SetDefault("CURRENCY", "INR")
	v.SetDefault("TAX_RATE", 0.18)
	v.SetDefault("REFUND_TIERS", "24h=100,12h=75,2h=50")
	v.SetDefault("REFUND_MIN_PERCENT", 25)
	v.SetDefault("REDIS_EVENTS_CHANNEL", "booking.events")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("WEBHOOK_INBOX_TABLE", "webhook_events")
	v.SetDefault("WEBHOOK_INBOX_DRIVER", "dynamodb")
	v.SetDefault("WEBHOOK_RATE_LIMIT", 50)
	v.SetDefault("WEBHOOK_RATE_BURST", 100)
	v.SetDefault("WEBHOOK_DEDUP_TTL", "24h")
	v.SetDefault("RECONCILE_ENABLED", true)
	v.SetDefault("RECONCILE_INTERVAL", "5m")
	v.SetDefault("RECONCILE_STALE_AFTER", "15m")
	v.SetDefault("RECONCILE_BATCH_SIZE", 100)
	v.SetDefault("BOOKING_MAX_UPDATE_RETRIES", 5)
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var problems []string

	switch c.Store.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			problems = append(problems, "DB_HOST and DB_NAME are required for the postgres store")
		}
	case "memory":
	default:
		problems = append(problems, fmt.Sprintf("STORE_DRIVER %q is not one of postgres, memory", c.Store.Driver))
	}
	switch c.Webhook.InboxDriver {
	case "dynamodb", "memory":
	default:
		problems = append(problems, fmt.Sprintf("WEBHOOK_INBOX_DRIVER %q is not one of dynamodb, memory", c.Webhook.InboxDriver))
	}
	if c.JWT.Secret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.Pricing.TaxRate < 0 || c.Pricing.TaxRate > 1 {
		problems = append(problems, "TAX_RATE must be within [0, 1]")
	}
	if c.Pricing.RefundMinPercent < 0 || c.Pricing.RefundMinPercent > 100 {
		problems = append(problems, "REFUND_MIN_PERCENT must be within [0, 100]")
	}
	if c.Gateway.Timeout <= 0 {
		problems = append(problems, "GATEWAY_TIMEOUT must be positive")
	}
	if !c.Gateway.Mock && c.Gateway.KeyID != "" && c.Gateway.KeySecret == "" {
		problems = append(problems, "GATEWAY_KEY_SECRET is required when GATEWAY_KEY_ID is set")
	}
	if c.Booking.MaxUpdateRetries < 1 {
		problems = append(problems, "BOOKING_MAX_UPDATE_RETRIES must be at least 1")
	}
	if c.Reconcile.Enabled && (c.Reconcile.Interval <= 0 || c.Reconcile.BatchSize <= 0) {
		problems = append(problems, "RECONCILE_INTERVAL and RECONCILE_BATCH_SIZE must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
