package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"

	apperrors "github.com/wemet/relay-server-go/internal/errors"
	"github.com/wemet/relay-server-go/internal/util"
)

var validLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}

type Config struct {
	Environment            string   `env:"APP_ENV" envDefault:"development"`
	Port                   int      `env:"PORT" envDefault:"3000"`
	LogLevel               string   `env:"LOG_LEVEL" envDefault:"info"`
	RedisURL               string   `env:"REDIS_URL"`
	WaitingTimeoutSeconds  int      `env:"WAITING_TIMEOUT_SECONDS" envDefault:"60"`
	SweepIntervalSeconds   int      `env:"SWEEP_INTERVAL_SECONDS" envDefault:"30"`
	InitialCoinBalance     int64    `env:"INITIAL_COIN_BALANCE" envDefault:"100"`
	MaxMessageBytes        int64    `env:"MAX_MESSAGE_BYTES" envDefault:"65536"`
	MaxMessagesPerSecond   int      `env:"MAX_MESSAGES_PER_SECOND" envDefault:"50"`
	ConnectRateLimitPerMin int      `env:"CONNECT_RATE_LIMIT_PER_MIN" envDefault:"60"`
	ICEServers             []string `env:"ICE_SERVERS" envSeparator:"," envDefault:"stun:stun.l.google.com:19302"`
	TURNUsername           string   `env:"TURN_USERNAME"`
	TURNCredential         string   `env:"TURN_CREDENTIAL"`
	AllowedOrigins         []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	StaticDir              string   `env:"STATIC_DIR"`
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func (c *Config) WaitingTimeout() time.Duration {
	return time.Duration(c.WaitingTimeoutSeconds) * time.Second
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if !util.IsValidEnum(strings.ToLower(c.LogLevel), validLogLevels) {
		return apperrors.ValidationError("LOG_LEVEL must be one of " + strings.Join(validLogLevels, ", "))
	}
	if c.WaitingTimeoutSeconds <= 0 {
		return apperrors.ValidationError("WAITING_TIMEOUT_SECONDS must be positive")
	}
	if c.SweepIntervalSeconds <= 0 {
		return apperrors.ValidationError("SWEEP_INTERVAL_SECONDS must be positive")
	}
	if c.InitialCoinBalance < 0 {
		return apperrors.ValidationError("INITIAL_COIN_BALANCE must not be negative")
	}
	if c.MaxMessageBytes <= 0 {
		return apperrors.ValidationError("MAX_MESSAGE_BYTES must be positive")
	}
	if c.MaxMessagesPerSecond <= 0 {
		return apperrors.ValidationError("MAX_MESSAGES_PER_SECOND must be positive")
	}
	if c.ConnectRateLimitPerMin <= 0 {
		return apperrors.ValidationError("CONNECT_RATE_LIMIT_PER_MIN must be positive")
	}
	if (c.TURNUsername == "") != (c.TURNCredential == "") {
		return apperrors.ValidationError("TURN_USERNAME and TURN_CREDENTIAL must be set together")
	}
	for _, u := range c.ICEServers {
		if strings.HasPrefix(u, "turn") && c.TURNUsername == "" {
			return apperrors.ValidationError(fmt.Sprintf("ICE_SERVERS contains %s but TURN_USERNAME is not set", u))
		}
	}

	if isProduction {
		if len(c.AllowedOrigins) == 0 {
			log.Warn().Msg("ALLOWED_ORIGINS is empty in production: websocket upgrades accepted from any origin")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
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
