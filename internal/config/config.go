// Package config loads daemon configuration from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	// AIS stream
	AISAPIKey string `env:"AIS_API_KEY,required"`
	AISURL    string `env:"AIS_URL" envDefault:"wss://stream.aisstream.io/v0/stream"`

	// Host bridge
	// NATS_URL empty means log-only publishing (no automation host).
	NatsURL      string `env:"NATS_URL"`
	EmbeddedNATS bool   `env:"EMBEDDED_NATS" envDefault:"false"`

	// Debug HTTP API
	Port            string        `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogFile   string `env:"LOG_FILE"` // empty disables file logging
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
