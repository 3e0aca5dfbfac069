package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"crypto_ticker/internal/domain"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// DefaultConfigPath is where the config file is looked up when none is given
	DefaultConfigPath = "configs/config.yaml"

	DefaultAPIBaseURL = "https://api.coingecko.com/api/v3"
)

// Config holds every setting of the ticker.
// LoadConfig starts from DefaultConfig, applies the YAML file and then
// environment overrides.
type Config struct {
	API struct {
		BaseURL    string `yaml:"base_url"`
		Coin       string `yaml:"coin"`
		Currency   string `yaml:"currency"`
		Days       int    `yaml:"days"`
		TimeoutSec int    `yaml:"timeout_sec"`
	} `yaml:"api"`

	Loop struct {
		FetchIntervalSec int `yaml:"fetch_interval_sec"`
		TickIntervalSec  int `yaml:"tick_interval_sec"`
	} `yaml:"loop"`

	Display struct {
		SPIPort string `yaml:"spi_port"`
		Viewer  string `yaml:"viewer"`
	} `yaml:"display"`

	Assets struct {
		Dir        string `yaml:"dir"`
		TokenIcon  string `yaml:"token_icon"`
		ATHIcon    string `yaml:"ath_icon"`
		PriceFont  string `yaml:"price_font"`
		LabelFont  string `yaml:"label_font"`
		IconSizePx int    `yaml:"icon_size_px"`
	} `yaml:"assets"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultConfig returns the stock ticker settings: bitcoin in usd,
// a 7 day window, a fetch every 60s checked every 5s.
func DefaultConfig() *Config {
	var cfg Config
	cfg.API.BaseURL = DefaultAPIBaseURL
	cfg.API.Coin = "bitcoin"
	cfg.API.Currency = "usd"
	cfg.API.Days = 7
	cfg.API.TimeoutSec = 30
	cfg.Loop.FetchIntervalSec = 60
	cfg.Loop.TickIntervalSec = 5
	cfg.Display.Viewer = "xdg-open"
	cfg.Assets.Dir = "assets"
	cfg.Assets.IconSizePx = 64
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return &cfg
}

// LoadConfig reads and parses the config file. A missing file is not an
// error; the defaults are used as-is.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return &domain.ConfigError{Field: "api.base_url", Err: fmt.Errorf("invalid URL %q", c.API.BaseURL)}
	}
	if c.API.Coin == "" {
		return &domain.ConfigError{Field: "api.coin", Err: errors.New("coin id is required")}
	}
	if c.API.Currency == "" {
		return &domain.ConfigError{Field: "api.currency", Err: errors.New("currency is required")}
	}
	if c.API.Days <= 0 {
		return &domain.ConfigError{Field: "api.days", Err: errors.New("must be positive")}
	}
	if c.API.TimeoutSec < 0 {
		return &domain.ConfigError{Field: "api.timeout_sec", Err: errors.New("must not be negative")}
	}
	if c.Loop.FetchIntervalSec <= 0 {
		return &domain.ConfigError{Field: "loop.fetch_interval_sec", Err: errors.New("must be positive")}
	}
	if c.Loop.TickIntervalSec <= 0 {
		return &domain.ConfigError{Field: "loop.tick_interval_sec", Err: errors.New("must be positive")}
	}
	if c.Assets.IconSizePx <= 0 {
		return &domain.ConfigError{Field: "assets.icon_size_px", Err: errors.New("must be positive")}
	}
	return nil
}

// FetchInterval is the minimum spacing between two fetch cycles
func (c *Config) FetchInterval() time.Duration {
	return time.Duration(c.Loop.FetchIntervalSec) * time.Second
}

// TickInterval is the sleep between two loop checks
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Loop.TickIntervalSec) * time.Second
}

// Timeout is the HTTP client timeout; zero disables it
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// overrideWithEnv overwrites settings with TICKER_* variables when present
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("TICKER_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("TICKER_COIN"); v != "" {
		cfg.API.Coin = v
	}
	if v := os.Getenv("TICKER_CURRENCY"); v != "" {
		cfg.API.Currency = v
	}
	if v := os.Getenv("TICKER_SPI_PORT"); v != "" {
		cfg.Display.SPIPort = v
	}
	if v := os.Getenv("TICKER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TICKER_FETCH_INTERVAL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Loop.FetchIntervalSec = n
		}
	}
}
