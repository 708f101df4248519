package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the runtime settings, read from the environment.
type Config struct {
	AppPort       string
	DBDriver      string
	DatabaseDSN   string
	AdminUsername string
	AdminPassword string
	BcryptCost    int
	RabbitMQURL   string
	LogLevel      string
	LogPretty     bool
}

// Load reads the configuration from environment variables, falling back to
// defaults. ADMIN_PASSWORD has no default.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "usermanagement.db")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.AutomaticEnv()

	cfg := &Config{
		AppPort:       v.GetString("APP_PORT"),
		DBDriver:      v.GetString("DB_DRIVER"),
		DatabaseDSN:   v.GetString("DATABASE_DSN"),
		AdminUsername: v.GetString("ADMIN_USERNAME"),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),
		BcryptCost:    v.GetInt("BCRYPT_COST"),
		RabbitMQURL:   v.GetString("RABBITMQ_URL"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		LogPretty:     v.GetBool("LOG_PRETTY"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q (want sqlite or postgres)", c.DBDriver)
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("config: DATABASE_DSN is required")
	}
	if c.AdminUsername == "" {
		return fmt.Errorf("config: ADMIN_USERNAME is required")
	}
	if c.AdminPassword == "" {
		return fmt.Errorf("config: ADMIN_PASSWORD is required")
	}
	return nil
}
