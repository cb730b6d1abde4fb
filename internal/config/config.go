package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	NotifyRabbitMQ = "rabbitmq"
	NotifyKafka    = "kafka"
	NotifyLog      = "log"
)

type Config struct {
	HTTPAddr      string `mapstructure:"HTTP_ADDR"`
	DatabaseDSN   string `mapstructure:"DATABASE_DSN"`
	RunMigrations bool   `mapstructure:"RUN_MIGRATIONS"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogPretty     bool   `mapstructure:"LOG_PRETTY"`

	NotifyBackend string `mapstructure:"NOTIFY_BACKEND"`
	RabbitMQURL   string `mapstructure:"RABBITMQ_URL"`
	KafkaBrokers  string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic    string `mapstructure:"KAFKA_TOPIC"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	CarrierBaseURL          string        `mapstructure:"CARRIER_BASE_URL"`
	CarrierAPIToken         string        `mapstructure:"CARRIER_API_TOKEN"`
	CarrierB2BBaseURL       string        `mapstructure:"CARRIER_B2B_BASE_URL"`
	CarrierB2BUsername      string        `mapstructure:"CARRIER_B2B_USERNAME"`
	CarrierB2BPassword      string        `mapstructure:"CARRIER_B2B_PASSWORD"`
	CarrierTimeout          time.Duration `mapstructure:"CARRIER_TIMEOUT"`
	CarrierTokenTTL         time.Duration `mapstructure:"CARRIER_TOKEN_TTL"`
	CarrierEditDemoFallback bool          `mapstructure:"CARRIER_EDIT_DEMO_FALLBACK"`

	WarehousePin        string        `mapstructure:"WAREHOUSE_PIN"`
	VerificationCodeTTL time.Duration `mapstructure:"VERIFICATION_CODE_TTL"`
	TaxRateRaw          string        `mapstructure:"TAX_RATE"`
	FallbackCODRaw      string        `mapstructure:"FALLBACK_COD_CHARGE"`
	FallbackPrepaidRaw  string        `mapstructure:"FALLBACK_PREPAID_CHARGE"`

	TaxRate         decimal.Decimal `mapstructure:"-"`
	FallbackCOD     decimal.Decimal `mapstructure:"-"`
	FallbackPrepaid decimal.Decimal `mapstructure:"-"`
}

var defaults = map[string]any{
	"HTTP_ADDR":                  ":8080",
	"DATABASE_DSN":               "",
	"RUN_MIGRATIONS":             true,
	"LOG_LEVEL":                  "info",
	"LOG_PRETTY":                 false,
	"NOTIFY_BACKEND":             NotifyLog,
	"RABBITMQ_URL":               "",
	"KAFKA_BROKERS":              "",
	"KAFKA_TOPIC":                "checkout.events",
	"REDIS_ADDR":                 "",
	"REDIS_PASSWORD":             "",
	"REDIS_DB":                   0,
	"CARRIER_BASE_URL":           "",
	"CARRIER_API_TOKEN":          "",
	"CARRIER_B2B_BASE_URL":       "",
	"CARRIER_B2B_USERNAME":       "",
	"CARRIER_B2B_PASSWORD":       "",
	"CARRIER_TIMEOUT":            "10s",
	"CARRIER_TOKEN_TTL":          "23h",
	"CARRIER_EDIT_DEMO_FALLBACK": false,
	"WAREHOUSE_PIN":              "",
	"VERIFICATION_CODE_TTL":      "15m",
	"TAX_RATE":                   "0.05",
	"FALLBACK_COD_CHARGE":        "150",
	"FALLBACK_PREPAID_CHARGE":    "100",
}

// Load reads configuration from the environment, and from the file named by
// CONFIG_FILE when set (.env, yaml or json).
func Load() (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) finish() error {
	var errs []error

	c.NotifyBackend = strings.ToLower(strings.TrimSpace(c.NotifyBackend))
	switch c.NotifyBackend {
	case NotifyLog:
	case NotifyRabbitMQ:
		if c.RabbitMQURL == "" {
			errs = append(errs, errors.New("RABBITMQ_URL is required for NOTIFY_BACKEND=rabbitmq"))
		}
	case NotifyKafka:
		if strings.TrimSpace(c.KafkaBrokers) == "" {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for NOTIFY_BACKEND=kafka"))
		}
	default:
		errs = append(errs, fmt.Errorf("NOTIFY_BACKEND %q is not one of rabbitmq, kafka, log", c.NotifyBackend))
	}

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required"))
	}
	if strings.TrimSpace(c.WarehousePin) == "" {
		errs = append(errs, errors.New("WAREHOUSE_PIN is required"))
	}
	if c.CarrierTimeout <= 0 {
		errs = append(errs, errors.New("CARRIER_TIMEOUT must be positive"))
	}
	if c.CarrierTokenTTL <= 0 {
		errs = append(errs, errors.New("CARRIER_TOKEN_TTL must be positive"))
	}
	if c.VerificationCodeTTL <= 0 {
		errs = append(errs, errors.New("VERIFICATION_CODE_TTL must be positive"))
	}

	var err error
	if c.TaxRate, err = decimal.NewFromString(c.TaxRateRaw); err != nil || c.TaxRate.IsNegative() || c.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		errs = append(errs, fmt.Errorf("TAX_RATE %q must be a fraction between 0 and 1", c.TaxRateRaw))
	}
	if c.FallbackCOD, err = decimal.NewFromString(c.FallbackCODRaw); err != nil || !c.FallbackCOD.IsPositive() {
		errs = append(errs, fmt.Errorf("FALLBACK_COD_CHARGE %q must be a positive amount", c.FallbackCODRaw))
	}
	if c.FallbackPrepaid, err = decimal.NewFromString(c.FallbackPrepaidRaw); err != nil || !c.FallbackPrepaid.IsPositive() {
		errs = append(errs, fmt.Errorf("FALLBACK_PREPAID_CHARGE %q must be a positive amount", c.FallbackPrepaidRaw))
	}
	if c.FallbackCOD.IsPositive() && c.FallbackPrepaid.IsPositive() && !c.FallbackCOD.GreaterThan(c.FallbackPrepaid) {
		errs = append(errs, fmt.Errorf("FALLBACK_COD_CHARGE %s must be greater than FALLBACK_PREPAID_CHARGE %s",
			c.FallbackCOD, c.FallbackPrepaid))
	}

	return errors.Join(errs...)
}
