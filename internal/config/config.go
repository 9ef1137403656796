package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/xscan/payments/internal/domain"
	"github.com/xscan/payments/internal/logger"
)

// DefaultPath is read when no explicit path or XSCAN_CONFIG is given. A
// missing file at the default path is not an error.
const DefaultPath = "config.yaml"

type Config struct {
	Server   ServerConfig                 `yaml:"server"`
	Database DatabaseConfig               `yaml:"database"`
	Log      logger.Config                `yaml:"log"`
	Fees     map[domain.FeeType]FeeConfig `yaml:"fees"` // fee_type -> override of the built-in schedule
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr is the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// FeeConfig is a partial fee structure. Unset fields keep the built-in value.
type FeeConfig struct {
	Percentage  *float64 `yaml:"percentage"`
	FixedAmount *float64 `yaml:"fixed_amount"`
	MinimumFee  *float64 `yaml:"minimum_fee"`
	MaximumFee  *float64 `yaml:"maximum_fee"`
	Currency    *string  `yaml:"currency"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Path: "xscan.db"},
		Log: logger.Config{
			Level:      "info",
			TimeFormat: time.RFC3339,
		},
	}
}

// Load builds the configuration from defaults, an optional .env file, the
// YAML file at path (or XSCAN_CONFIG, or DefaultPath) and finally the PORT,
// DB_PATH and LOG_LEVEL environment variables.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("XSCAN_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	return &cfg, nil
}

// FeeOverrides converts the fees section into overrides for the fee
// schedule.
func (c *Config) FeeOverrides() map[domain.FeeType]domain.FeeOverride {
	if len(c.Fees) == 0 {
		return nil
	}
	out := make(map[domain.FeeType]domain.FeeOverride, len(c.Fees))
	for feeType, fc := range c.Fees {
		out[feeType] = domain.FeeOverride{
			Percentage:  decimalPtr(fc.Percentage),
			FixedAmount: decimalPtr(fc.FixedAmount),
			MinimumFee:  decimalPtr(fc.MinimumFee),
			MaximumFee:  decimalPtr(fc.MaximumFee),
			Currency:    fc.Currency,
		}
	}
	return out
}

func decimalPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}
