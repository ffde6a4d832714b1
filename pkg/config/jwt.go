package config

import "time"

// JwtConfig holds the token signing settings. AccessSecret signs access
// tokens directly; RefreshBaseSecret is never used as a signing key itself,
// it seeds the per-user refresh secrets.
type JwtConfig struct {
	AccessSecret      string        `env:"PARISH_JWT_ACCESS_SECRET" env-default:"dev-access-secret-change-me"`
	RefreshBaseSecret string        `env:"PARISH_JWT_REFRESH_BASE_SECRET" env-default:"dev-refresh-secret-change-me"`
	Issuer            string        `env:"PARISH_JWT_ISSUER" env-default:"parish-idm"`
	Audience          string        `env:"PARISH_JWT_AUDIENCE" env-default:"parish-web"`
	AccessExpiry      time.Duration `env:"PARISH_JWT_ACCESS_EXPIRY" env-default:"10m"`
	RefreshExpiry     time.Duration `env:"PARISH_JWT_REFRESH_EXPIRY" env-default:"24h"`
}
