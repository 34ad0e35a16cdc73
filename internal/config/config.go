package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"vouche/internal/database"

	"github.com/spf13/viper"
)

// Config aggregates the runtime settings of the service.
type Config struct {
	AppPort  string
	LogLevel string

	Database database.Config

	JWTSecret string
	JWTTTL    time.Duration

	// Empty RabbitMQURL disables order events.
	RabbitMQURL      string
	RabbitMQExchange string
	RabbitMQQueue    string

	// Empty RedisAddr disables order rate limiting.
	RedisAddr       string
	RedisDB         int
	OrderRateLimit  int
	OrderRateWindow time.Duration

	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", database.DriverSQLite)
	v.SetDefault("DATABASE_DSN", "file:vouche.db?_busy_timeout=5000&_foreign_keys=on")
	v.SetDefault("DB_LOG_LEVEL", "warn")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "vouche.orders")
	v.SetDefault("RABBITMQ_QUEUE", "order_queue")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ORDER_RATE_LIMIT", 10)
	v.SetDefault("ORDER_RATE_WINDOW", "1m")
	v.SetDefault("ADMIN_USERNAME", "")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
}

// Load reads configuration from the environment and an optional config.yaml
// in the working directory, then validates it.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Config{
		AppPort:  v.GetString("APP_PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),
		Database: database.Config{
			Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:      v.GetString("DATABASE_DSN"),
			LogLevel: v.GetString("DB_LOG_LEVEL"),
		},
		JWTSecret:        v.GetString("JWT_SECRET"),
		JWTTTL:           v.GetDuration("JWT_TTL"),
		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		RabbitMQExchange: v.GetString("RABBITMQ_EXCHANGE"),
		RabbitMQQueue:    v.GetString("RABBITMQ_QUEUE"),
		RedisAddr:        v.GetString("REDIS_ADDR"),
		RedisDB:          v.GetInt("REDIS_DB"),
		OrderRateLimit:   v.GetInt("ORDER_RATE_LIMIT"),
		OrderRateWindow:  v.GetDuration("ORDER_RATE_WINDOW"),
		AdminUsername:    v.GetString("ADMIN_USERNAME"),
		AdminEmail:       v.GetString("ADMIN_EMAIL"),
		AdminPassword:    v.GetString("ADMIN_PASSWORD"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.AppPort == "" {
		return fmt.Errorf("APP_PORT must not be empty")
	}
	switch c.Database.Driver {
	case database.DriverSQLite, database.DriverPostgres:
	default:
		return fmt.Errorf("invalid DB_DRIVER %q: want %s or %s", c.Database.Driver, database.DriverSQLite, database.DriverPostgres)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_DSN must not be empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("invalid JWT_TTL: must be > 0")
	}
	if c.RabbitMQURL != "" && (c.RabbitMQExchange == "" || c.RabbitMQQueue == "") {
		return fmt.Errorf("RABBITMQ_EXCHANGE and RABBITMQ_QUEUE are required when RABBITMQ_URL is set")
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("invalid REDIS_DB: must be >= 0")
	}
	if c.OrderRateLimit <= 0 {
		return fmt.Errorf("invalid ORDER_RATE_LIMIT: must be > 0")
	}
	if c.OrderRateWindow < time.Second {
		return fmt.Errorf("invalid ORDER_RATE_WINDOW: must be at least 1s")
	}
	if c.AdminUsername != "" && (c.AdminEmail == "" || len(c.AdminPassword) < 6) {
		return fmt.Errorf("ADMIN_EMAIL and an ADMIN_PASSWORD of at least 6 characters are required with ADMIN_USERNAME")
	}
	return nil
}
