package config

import "time"

// LoginConfig holds the lockout and password-reset settings
type LoginConfig struct {
	MaxFailedAttempts int           `env:"PARISH_LOGIN_MAX_FAILED_ATTEMPTS" env-default:"5"`
	ResetTokenExpiry  time.Duration `env:"PARISH_LOGIN_RESET_TOKEN_EXPIRY" env-default:"24h"`
}
