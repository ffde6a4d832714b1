package config

import "fmt"

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Host         string `env:"PARISH_HOST" env-default:"localhost"`
	Port         string `env:"PARISH_PORT" env-default:"4000"`
	CookieSecure bool   `env:"PARISH_COOKIE_SECURE" env-default:"false"`
}

// Addr returns the host:port listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}
