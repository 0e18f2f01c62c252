package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config carries the endpoints and paths the client talks to. These are
// deployment configuration, not runtime flags.
type Config struct {
	APIBaseURL     string        `env:"API_BASE_URL" envDefault:"http://localhost:5001/api"`
	SocketURL      string        `env:"SOCKET_URL" envDefault:"ws://localhost:5001/ws"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	CachePath      string        `env:"CACHE_PATH" envDefault:"chat-app.db"`
	RedisURL       string        `env:"REDIS_URL"`
}

// Load reads .env.local or .env when present, then parses the process
// environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		_ = godotenv.Load()
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
