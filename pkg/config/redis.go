package config

import "time"

// RedisConfig holds the optional id-cache settings. When Enabled is false the
// service runs with the cache disabled and every lookup hits the database.
type RedisConfig struct {
	Enabled  bool          `env:"PARISH_REDIS_ENABLED" env-default:"false"`
	Addr     string        `env:"PARISH_REDIS_ADDR" env-default:"localhost:6379"`
	Password string        `env:"PARISH_REDIS_PASSWORD" env-default:""`
	DB       int           `env:"PARISH_REDIS_DB" env-default:"0"`
	TTL      time.Duration `env:"PARISH_REDIS_TTL" env-default:"1h"`
}
