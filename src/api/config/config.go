package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	MySQLDSN        string   `env:"MYSQL_DSN" envDefault:"townhall:townhall@tcp(127.0.0.1:3306)/townhall"`
	RedisURL        string   `env:"REDIS_URL" envDefault:"redis://127.0.0.1:6379/0"`
	JWTSecret       string   `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	Port            string   `env:"PORT" envDefault:"8080"`
	CORSOrigins     []string `env:"CORS_ORIGINS" envDefault:"http://localhost:3000"`
	ThrottleLimit   int64    `env:"THROTTLE_LIMIT" envDefault:"60"` // requests per window per key
	ThrottleWindow  int      `env:"THROTTLE_WINDOW" envDefault:"60"`
	SweepInterval   int      `env:"SWEEP_INTERVAL" envDefault:"300"`  // seconds, sweeper only
	SettingsRefresh int      `env:"SETTINGS_REFRESH" envDefault:"30"` // seconds, API settings cache poll
}

func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	return cfg
}
