package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env             string        `env:"ENV" env-default:"local"`
	HTTPAddr        string        `env:"HTTP_ADDR" env-default:":8080"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	SQLitePath      string        `env:"SQLITE_PATH" env-default:"vibecheck.db"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" env-default:"*"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// Load reads configuration from the environment, with a .env file as an
// optional source (missing file is fine). DATABASE_URL selects the postgres
// store; without it the server runs on the embedded sqlite store.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return &cfg, nil
}
