package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"order_actor/internal/domain"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// FeedConfig describes one scripted producer: Count orders of the same kind,
// instrument and amount, submitted one after another with Interval in between.
type FeedConfig struct {
	Name       string           `yaml:"name"`
	Kind       domain.OrderKind `yaml:"kind"`
	Instrument string           `yaml:"instrument"`
	Amount     decimal.Decimal  `yaml:"amount"`
	Count      int              `yaml:"count"`
	Interval   time.Duration    `yaml:"interval"`
}

// Config holds every setting of the application.
// LoadConfig reads the YAML file, then lets environment variables override it.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Book struct {
		InvestmentCap decimal.Decimal `yaml:"investment_cap"`
		InboxCapacity int             `yaml:"inbox_capacity"`
		ReplyTimeout  time.Duration   `yaml:"reply_timeout"`
	} `yaml:"book"`

	Feeds []FeedConfig `yaml:"feeds"`

	Storage struct {
		DBPath     string `yaml:"db_path"`
		BufferSize int    `yaml:"buffer_size"`
	} `yaml:"storage"`

	HTTP struct {
		Addr           string   `yaml:"addr"`
		StaticDir      string   `yaml:"static_dir"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultConfig returns the demo setup: a 100.0 cap, a handoff inbox and
// three feeds (two buying, one selling).
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "order-actor"
	cfg.App.Version = "0.1.0"

	cfg.Book.InvestmentCap = decimal.NewFromInt(100)
	cfg.Book.InboxCapacity = 1
	cfg.Book.ReplyTimeout = 5 * time.Second

	cfg.Feeds = []FeedConfig{
		{Name: "buy-small", Kind: domain.OrderKindBuy, Instrument: "$", Amount: decimal.NewFromInt(5), Count: 15, Interval: time.Second},
		{Name: "sell", Kind: domain.OrderKindSell, Instrument: "$", Amount: decimal.NewFromInt(10), Count: 5, Interval: 8 * time.Second},
		{Name: "buy-large", Kind: domain.OrderKindBuy, Instrument: "$", Amount: decimal.NewFromInt(10), Count: 7, Interval: 3 * time.Second},
	}

	cfg.Storage.DBPath = "data/orders.db"
	cfg.Storage.BufferSize = 256

	cfg.HTTP.Addr = "127.0.0.1:8080"
	cfg.HTTP.StaticDir = "web-folder"
	cfg.HTTP.AllowedOrigins = []string{"http://localhost:3000"}

	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return &cfg
}

// LoadConfig reads and parses the configuration file.
// Missing keys keep their DefaultConfig value.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()
	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Book.InvestmentCap.IsNegative() {
		return &domain.ConfigError{Field: "book.investment_cap", Err: errors.New("must not be negative")}
	}
	if c.Book.InboxCapacity < 1 {
		return &domain.ConfigError{Field: "book.inbox_capacity", Err: errors.New("must be at least 1")}
	}
	if c.Book.ReplyTimeout <= 0 {
		return &domain.ConfigError{Field: "book.reply_timeout", Err: errors.New("must be positive")}
	}

	for i, f := range c.Feeds {
		field := fmt.Sprintf("feeds[%d]", i)
		if !f.Kind.Valid() {
			return &domain.ConfigError{Field: field + ".kind", Err: domain.ErrInvalidKind}
		}
		if strings.TrimSpace(f.Instrument) == "" {
			return &domain.ConfigError{Field: field + ".instrument", Err: domain.ErrInvalidInstrument}
		}
		if !f.Amount.IsPositive() {
			return &domain.ConfigError{Field: field + ".amount", Err: domain.ErrInvalidAmount}
		}
		if f.Count < 0 || f.Interval < 0 {
			return &domain.ConfigError{Field: field, Err: errors.New("count and interval must not be negative")}
		}
	}

	if c.Storage.BufferSize < 1 {
		return &domain.ConfigError{Field: "storage.buffer_size", Err: errors.New("must be at least 1")}
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return &domain.ConfigError{Field: "logging.level", Err: fmt.Errorf("unknown level %q", c.Logging.Level)}
	}

	return nil
}

// overrideWithEnv replaces config values with environment variables when set.
func overrideWithEnv(cfg *Config) error {
	if v := os.Getenv("ORDER_ACTOR_INVESTMENT_CAP"); v != "" {
		capital, err := decimal.NewFromString(v)
		if err != nil {
			return &domain.ConfigError{Field: "ORDER_ACTOR_INVESTMENT_CAP", Err: err}
		}
		cfg.Book.InvestmentCap = capital
	}
	if v := os.Getenv("ORDER_ACTOR_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("ORDER_ACTOR_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("ORDER_ACTOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}
