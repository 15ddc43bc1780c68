package config

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port                   int    `env:"PORT" envDefault:"8090"`
	DatabaseURL            string `env:"DATABASE_URL,required"`
	RedisURL               string `env:"REDIS_URL,required"`
	ServiceToken           string `env:"SERVICE_TOKEN"`
	EncryptionKey          string `env:"ARKKIES_ENCRYPTION_KEY,required"`
	ArkkiesBaseURL         string `env:"ARKKIES_BASE_URL" envDefault:"https://arkkies.com/api"`
	BookingRateLimitPerMin int    `env:"BOOKING_RATE_LIMIT_PER_MIN" envDefault:"10"`
	LogLevel               string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate checks that secrets have a usable shape. The encryption key must
// decode to exactly 32 bytes; see util.NewCredentialCipher for the accepted
// encodings.
func (c *Config) Validate(isProduction bool) error {
	if err := validateEncryptionKey(c.EncryptionKey); err != nil {
		return err
	}

	if isProduction {
		if c.ServiceToken == "" {
			return fmt.Errorf("SERVICE_TOKEN must be set in production (generate with: openssl rand -hex 32)")
		}
		if len(c.ServiceToken) < 32 {
			return fmt.Errorf("SERVICE_TOKEN must be at least 32 characters in production")
		}
	} else if c.ServiceToken == "" {
		log.Warn().Msg("SERVICE_TOKEN is empty: API authentication disabled")
	}

	if isProduction && c.RedisURL != "" && len(c.RedisURL) >= 8 && c.RedisURL[:8] == "redis://" {
		log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
	}

	return nil
}

func validateEncryptionKey(key string) error {
	switch len(key) {
	case 64:
		if _, err := hex.DecodeString(key); err != nil {
			return fmt.Errorf("ARKKIES_ENCRYPTION_KEY is 64 characters but not valid hex: %w", err)
		}
	case 44:
		decoded, err := base64.StdEncoding.DecodeString(key)
		if err != nil {
			return fmt.Errorf("ARKKIES_ENCRYPTION_KEY is 44 characters but not valid base64: %w", err)
		}
		if len(decoded) != 32 {
			return fmt.Errorf("ARKKIES_ENCRYPTION_KEY base64 form must decode to 32 bytes, got %d", len(decoded))
		}
	case 32:
		// raw 32-byte key, used as-is
	default:
		return fmt.Errorf("ARKKIES_ENCRYPTION_KEY must be 32 raw, 44 base64, or 64 hex characters (got %d)", len(key))
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
