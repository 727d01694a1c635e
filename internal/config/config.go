package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries the server's environment-driven settings.
type Config struct {
	Addr         string        `env:"REMI_ADDR" envDefault:":8080"`
	DatabasePath string        `env:"REMI_DB_PATH" envDefault:"remi.db"`
	UploadDir    string        `env:"REMI_UPLOAD_DIR" envDefault:"uploads"`
	JWTSecret    string        `env:"REMI_JWT_SECRET,required"`
	TokenTTL     time.Duration `env:"REMI_TOKEN_TTL" envDefault:"720h"`
	LogLevel     string        `env:"REMI_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
