// Package config loads slanger settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/ZaguanLabs/slanger"
)

type Config struct {
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Store    StoreConfig    `mapstructure:"store"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Service  ServiceConfig  `mapstructure:"service"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model" validate:"required"`
	BaseURL     string  `mapstructure:"base_url" validate:"omitempty,url"`
	Temperature float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

type CacheConfig struct {
	Backend   string        `mapstructure:"backend" validate:"oneof=redis memory bolt"`
	RedisURL  string        `mapstructure:"redis_url" validate:"required_if=Backend redis"`
	BoltPath  string        `mapstructure:"bolt_path" validate:"required_if=Backend bolt"`
	TTL       time.Duration `mapstructure:"ttl" validate:"gt=0s"`
	Size      int           `mapstructure:"size" validate:"gte=0"`
	Namespace string        `mapstructure:"namespace" validate:"required"`
	OpTimeout time.Duration `mapstructure:"op_timeout" validate:"gte=0s"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=mysql sqlite3 memory"`
	DSN    string `mapstructure:"dsn" validate:"required_unless=Driver memory"`
}

type UpstreamConfig struct {
	MaxAttempts       int           `mapstructure:"max_attempts" validate:"gte=1,lte=10"`
	BaseDelay         time.Duration `mapstructure:"base_delay" validate:"gte=0s"`
	AttemptTimeout    time.Duration `mapstructure:"attempt_timeout" validate:"gt=0s"`
	Deadline          time.Duration `mapstructure:"deadline" validate:"gt=0s"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" validate:"gte=0"`
}

type ServiceConfig struct {
	BatchConcurrency int `mapstructure:"batch_concurrency" validate:"gte=1"`
}

// RetryPolicy converts the upstream section into a retry policy.
func (c UpstreamConfig) RetryPolicy() slanger.RetryPolicy {
	return slanger.RetryPolicy{
		MaxAttempts:    c.MaxAttempts,
		BaseDelay:      c.BaseDelay,
		AttemptTimeout: c.AttemptTimeout,
		Deadline:       c.Deadline,
		Retryable:      slanger.IsRetryable,
	}
}

func setDefaults(v *viper.Viper) {
	policy := slanger.DefaultRetryPolicy()

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.temperature", 0.3)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", slanger.DefaultCacheTTL)
	v.SetDefault("cache.size", 4096)
	v.SetDefault("cache.namespace", slanger.DefaultKeyNamespace)
	v.SetDefault("cache.op_timeout", 500*time.Millisecond)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("upstream.max_attempts", policy.MaxAttempts)
	v.SetDefault("upstream.base_delay", policy.BaseDelay)
	v.SetDefault("upstream.attempt_timeout", policy.AttemptTimeout)
	v.SetDefault("upstream.deadline", policy.Deadline)
	v.SetDefault("upstream.requests_per_minute", 0)
	v.SetDefault("service.batch_concurrency", 4)
}

var envBindings = []struct {
	key string
	env string
}{
	{"openai.api_key", "OPENAI_API_KEY"},
	{"openai.model", "OPENAI_MODEL"},
	{"openai.base_url", "OPENAI_BASE_URL"},
	{"cache.redis_url", "SLANGER_REDIS_URL"},
	{"store.dsn", "SLANGER_DATABASE_DSN"},
}

// Load reads configFile (or config.yaml from the working directory or
// $HOME/.config/slanger when empty), applies environment overrides and
// validates the result.
func Load(configFile string) (*Config, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/slanger")
	}

	setDefaults(v)

	for _, b := range envBindings {
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", b.env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(trans))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}
