// Package config loads server configuration from the environment.
// Values come from env vars (optionally via a .env file loaded in main),
// with defaults suitable for local development.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server struct {
		Port         int           `envconfig:"PORT" default:"8080"`
		ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
		WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
		IdleTimeout  time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	}

	Database struct {
		// Driver selects the repository backend: "sqlite" or "postgres".
		Driver string `envconfig:"DB_DRIVER" default:"sqlite"`
		// Path is the SQLite database file. ":memory:" for in-memory.
		Path string `envconfig:"DB_PATH" default:"documents.db"`
		// URL is the PostgreSQL connection string when Driver=postgres.
		URL string `envconfig:"DATABASE_URL"`
	}

	Log struct {
		Level  string `envconfig:"LOG_LEVEL" default:"info"`
		Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
	}
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
