package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Env is the web service configuration, loaded from environment
// variables the way the compose file sets them.
type Env struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":5000"`
	CacheAddr       string        `env:"CACHE_ADDR" envDefault:"cache:6379"`
	CacheRetries    int           `env:"CACHE_RETRIES" envDefault:"5"`
	CacheRetryDelay time.Duration `env:"CACHE_RETRY_DELAY" envDefault:"500ms"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ParseEnv loads the web service configuration from environment variables.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}

	if e.CacheRetries < 1 {
		return Env{}, fmt.Errorf("CACHE_RETRIES must be at least 1, got %d", e.CacheRetries)
	}

	return e, nil
}
