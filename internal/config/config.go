package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/comanda/internal/calculation"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Comanda"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	Storage struct {
		// Driver is "postgres" or "memory".
		Driver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"comanda"`

		MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
		MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
		ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	}

	// Rates are percentages, e.g. 3.51 for a 3.51% credit fee.
	Rates struct {
		DebitFee     decimal.Decimal `envconfig:"RATE_DEBIT_FEE" default:"1.61"`
		CreditFee    decimal.Decimal `envconfig:"RATE_CREDIT_FEE" default:"3.51"`
		Studio       decimal.Decimal `envconfig:"RATE_STUDIO" default:"60"`
		Professional decimal.Decimal `envconfig:"RATE_PROFESSIONAL" default:"40"`
		Assistant    decimal.Decimal `envconfig:"RATE_ASSISTANT" default:"10"`
	}

	Redis struct {
		// Addr enables the report cache when set.
		Addr     string        `envconfig:"REDIS_ADDR"`
		Password string        `envconfig:"REDIS_PASSWORD"`
		DB       int           `envconfig:"REDIS_DB" default:"0"`
		TTL      time.Duration `envconfig:"REPORT_CACHE_TTL" default:"10m"`
	}

	Auth struct {
		// JWTSecret enables bearer authentication when set.
		JWTSecret     string   `envconfig:"AUTH_JWT_SECRET"`
		AllowedEmails []string `envconfig:"AUTH_ALLOWED_EMAILS"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// CalculationRates returns the configured rates for new transactions.
func (c *Config) CalculationRates() calculation.Rates {
	return calculation.Rates{
		DebitFee:     c.Rates.DebitFee,
		CreditFee:    c.Rates.CreditFee,
		Studio:       c.Rates.Studio,
		Professional: c.Rates.Professional,
		Assistant:    c.Rates.Assistant,
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("STORAGE_DRIVER must be postgres or memory, got %q", c.Storage.Driver)
	}

	hundred := decimal.NewFromInt(100)

	for name, r := range map[string]decimal.Decimal{
		"RATE_DEBIT_FEE":    c.Rates.DebitFee,
		"RATE_CREDIT_FEE":   c.Rates.CreditFee,
		"RATE_STUDIO":       c.Rates.Studio,
		"RATE_PROFESSIONAL": c.Rates.Professional,
		"RATE_ASSISTANT":    c.Rates.Assistant,
	} {
		if r.IsNegative() || r.GreaterThan(hundred) {
			return fmt.Errorf("%s must be between 0 and 100, got %s", name, r)
		}
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.AllowedEmails) == 0 {
		return fmt.Errorf("AUTH_ALLOWED_EMAILS is required when AUTH_JWT_SECRET is set")
	}

	for i, e := range c.Auth.AllowedEmails {
		c.Auth.AllowedEmails[i] = strings.ToLower(strings.TrimSpace(e))
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
