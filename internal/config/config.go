// Package config loads application configuration and installs the global
// logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Provider  ProviderConfig  `yaml:"provider" mapstructure:"provider"`
	Reconcile ReconcileConfig `yaml:"reconcile" mapstructure:"reconcile"`
	Load      LoadConfig      `yaml:"load" mapstructure:"load"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CacheConfig configures the reconciliation cache database.
type CacheConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ProviderConfig configures the PostGIS spatial provider.
type ProviderConfig struct {
	DatabaseURL    string        `yaml:"database_url" mapstructure:"database_url"`
	RateLimitQPS   float64       `yaml:"rate_limit_qps" mapstructure:"rate_limit_qps"`
	RetryAttempts  int           `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
}

// ReconcileConfig tunes the batch run.
type ReconcileConfig struct {
	Workers        int     `yaml:"workers" mapstructure:"workers"`
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
}

// LoadConfig tunes the shapefile loaders.
type LoadConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CNEFE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("cache.path", "cnefe-cache.db")
	v.SetDefault("provider.rate_limit_qps", 0)
	v.SetDefault("provider.retry_attempts", 3)
	v.SetDefault("provider.initial_backoff", "250ms")
	v.SetDefault("reconcile.workers", 4)
	v.SetDefault("reconcile.fuzzy_threshold", 0.9)
	v.SetDefault("load.concurrency", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
