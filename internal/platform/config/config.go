package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Forwarder ForwarderConfig `mapstructure:"forwarder"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Domains   DomainsConfig   `mapstructure:"domains"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type JWTConfig struct {
	// Secret is shared with the hosted auth provider; this service only
	// validates tokens, it never issues them.
	Secret string `mapstructure:"secret"`
}

type RateLimitConfig struct {
	IngestPerMinute   int `mapstructure:"ingest_per_minute"`
	APIReadPerMinute  int `mapstructure:"api_read_per_minute"`
	APIWritePerMinute int `mapstructure:"api_write_per_minute"`
}

type ForwarderConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

type DomainsConfig struct {
	// IngestBaseURL is the public base used to build the webhook URLs
	// returned on registration, e.g. https://hooks.example.com
	IngestBaseURL string `mapstructure:"ingest_base_url"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database.MaxConnections == 0 {
		cfg.Database.MaxConnections = 10
	}
	if cfg.Forwarder.Timeout == 0 {
		cfg.Forwarder.Timeout = 10 * time.Second
	}
	if cfg.Forwarder.MaxAttempts == 0 {
		cfg.Forwarder.MaxAttempts = 5
	}
	if cfg.Forwarder.RetryInterval == 0 {
		cfg.Forwarder.RetryInterval = 5 * time.Minute
	}
	if cfg.RateLimit.IngestPerMinute == 0 {
		cfg.RateLimit.IngestPerMinute = 600
	}
	if cfg.RateLimit.APIReadPerMinute == 0 {
		cfg.RateLimit.APIReadPerMinute = 1000
	}
	if cfg.RateLimit.APIWritePerMinute == 0 {
		cfg.RateLimit.APIWritePerMinute = 100
	}
}
