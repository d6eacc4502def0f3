package config

import (
	"fmt"
	"strings"
	"time"

	"mythicforge/internal/domain/forge"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPAddr    string `env:"FORGE_HTTP_ADDR" envDefault:":8080"`
	Environment string `env:"FORGE_ENV" envDefault:"development"`
	LogLevel    string `env:"FORGE_LOG_LEVEL" envDefault:"info"`

	// Empty DSN or URL selects the in-memory adapters.
	DBDSN         string `env:"FORGE_DB_DSN"`
	RedisURL      string `env:"FORGE_REDIS_URL"`
	CatalogPath   string `env:"FORGE_CATALOG_PATH" envDefault:"./forge.yaml"`
	MigrationsDir string `env:"FORGE_MIGRATIONS_DIR" envDefault:"./migrations"`

	TickInterval      time.Duration `env:"FORGE_TICK_INTERVAL" envDefault:"1s"`
	ReservationGrace  time.Duration `env:"FORGE_RESERVATION_GRACE" envDefault:"10s"`
	IdleRetention     time.Duration `env:"FORGE_IDLE_RETENTION" envDefault:"5m"`
	SettleRetryBase   time.Duration `env:"FORGE_SETTLE_RETRY_BASE" envDefault:"2s"`
	SettleRetryMax    time.Duration `env:"FORGE_SETTLE_RETRY_MAX" envDefault:"2m"`
	SettleConcurrency int           `env:"FORGE_SETTLE_CONCURRENCY" envDefault:"4"`
	CurrencyScale     int32         `env:"FORGE_CURRENCY_SCALE" envDefault:"2"`

	BridgeKey    string            `env:"FORGE_BRIDGE_KEY"`
	SeedBalances map[string]string `env:"FORGE_SEED_BALANCES" envSeparator:"," envKeyValSeparator:"="`
}

func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("FORGE_TICK_INTERVAL must be positive, got %s", c.TickInterval)
	}
	if c.ReservationGrace < c.TickInterval {
		return fmt.Errorf("FORGE_RESERVATION_GRACE (%s) must be at least one tick (%s)", c.ReservationGrace, c.TickInterval)
	}
	if c.SettleRetryBase <= 0 || c.SettleRetryMax < c.SettleRetryBase {
		return fmt.Errorf("settle retry window %s..%s is invalid", c.SettleRetryBase, c.SettleRetryMax)
	}
	if c.SettleConcurrency <= 0 {
		return fmt.Errorf("FORGE_SETTLE_CONCURRENCY must be positive, got %d", c.SettleConcurrency)
	}
	if c.CurrencyScale < 0 || c.CurrencyScale > 8 {
		return fmt.Errorf("FORGE_CURRENCY_SCALE must be within 0..8, got %d", c.CurrencyScale)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Seeds parses FORGE_SEED_BALANCES into starting balances.
func (c Config) Seeds() (map[forge.PlayerID]decimal.Decimal, error) {
	out := make(map[forge.PlayerID]decimal.Decimal, len(c.SeedBalances))
	for owner, raw := range c.SeedBalances {
		owner = strings.TrimSpace(owner)
		amount, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil || owner == "" || amount.IsNegative() {
			return nil, fmt.Errorf("invalid seed balance %q=%q", owner, raw)
		}
		out[forge.PlayerID(owner)] = amount
	}
	return out, nil
}
