// Package config loads process-wide configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is built once at
// startup and passed into every component.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	SerpAPI   SerpAPIConfig   `yaml:"serpapi" mapstructure:"serpapi"`
	Skiptrace SkiptraceConfig `yaml:"skiptrace" mapstructure:"skiptrace"`
	Intent    IntentConfig    `yaml:"intent" mapstructure:"intent"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SerpAPIConfig holds SerpAPI credentials and client settings.
type SerpAPIConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// SkiptraceConfig holds the enrichment API settings.
type SkiptraceConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// IntentConfig configures the rule-based intent scorer.
type IntentConfig struct {
	HighThreshold   float64 `yaml:"high_threshold" mapstructure:"high_threshold"`
	MediumThreshold float64 `yaml:"medium_threshold" mapstructure:"medium_threshold"`
	RecencyDays     int     `yaml:"recency_days" mapstructure:"recency_days"`
}

// ExportConfig configures the export engine.
type ExportConfig struct {
	WebhookTimeoutSecs int `yaml:"webhook_timeout_secs" mapstructure:"webhook_timeout_secs"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INTENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("serpapi.base_url", "https://serpapi.com")
	v.SetDefault("serpapi.timeout_secs", 30)
	v.SetDefault("serpapi.rate_per_sec", 1)
	v.SetDefault("skiptrace.timeout_secs", 30)
	v.SetDefault("intent.high_threshold", 0.7)
	v.SetDefault("intent.medium_threshold", 0.4)
	v.SetDefault("intent.recency_days", 90)
	v.SetDefault("export.webhook_timeout_secs", 30)

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
