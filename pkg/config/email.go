package config

// EmailConfig holds the SMTP settings for outgoing notifications. BaseUrl is
// the public address of the web frontend, used to build reset links.
type EmailConfig struct {
	Host     string `env:"PARISH_EMAIL_HOST" env-default:"localhost"`
	Port     int    `env:"PARISH_EMAIL_PORT" env-default:"1025"`
	TLS      bool   `env:"PARISH_EMAIL_TLS" env-default:"false"`
	Username string `env:"PARISH_EMAIL_USERNAME" env-default:"noreply@example.com"`
	Password string `env:"PARISH_EMAIL_PASSWORD" env-default:"pwd"`
	From     string `env:"PARISH_EMAIL_FROM" env-default:"noreply@example.com"`
	BaseUrl  string `env:"PARISH_EMAIL_BASE_URL" env-default:"http://localhost:3000"`
}
