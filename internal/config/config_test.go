package config_test

import (
	"testing"
	"time"

	"vouche/internal/config"
	"vouche/internal/database"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	v.Set("JWT_SECRET", "secret")

	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, database.DriverSQLite, cfg.Database.Driver)
	assert.NotEmpty(t, cfg.Database.DSN)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Empty(t, cfg.RabbitMQURL)
	assert.Equal(t, "vouche.orders", cfg.RabbitMQExchange)
	assert.Equal(t, "order_queue", cfg.RabbitMQQueue)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 10, cfg.OrderRateLimit)
	assert.Equal(t, time.Minute, cfg.OrderRateWindow)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DB_DRIVER", "POSTGRES")
	t.Setenv("DATABASE_DSN", "host=localhost user=vouche dbname=vouche sslmode=disable")
	t.Setenv("ORDER_RATE_LIMIT", "3")
	t.Setenv("ORDER_RATE_WINDOW", "30s")

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, database.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 3, cfg.OrderRateLimit)
	assert.Equal(t, 30*time.Second, cfg.OrderRateWindow)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		set     map[string]interface{}
		wantErr string
	}{
		{name: "missing jwt secret", set: map[string]interface{}{}, wantErr: "JWT_SECRET"},
		{name: "unknown driver", set: map[string]interface{}{"DB_DRIVER": "mysql"}, wantErr: "invalid DB_DRIVER"},
		{name: "rate limit", set: map[string]interface{}{"ORDER_RATE_LIMIT": 0}, wantErr: "invalid ORDER_RATE_LIMIT"},
		{name: "rate window", set: map[string]interface{}{"ORDER_RATE_WINDOW": "500ms"}, wantErr: "invalid ORDER_RATE_WINDOW"},
		{name: "jwt ttl", set: map[string]interface{}{"JWT_TTL": "0s"}, wantErr: "invalid JWT_TTL"},
		{name: "admin without password", set: map[string]interface{}{"ADMIN_USERNAME": "admin", "ADMIN_EMAIL": "a@b.c"}, wantErr: "ADMIN_PASSWORD"},
		{
			name:    "broker without queue",
			set:     map[string]interface{}{"RABBITMQ_URL": "amqp://localhost", "RABBITMQ_QUEUE": ""},
			wantErr: "RABBITMQ_QUEUE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			v := viper.New()
			if tt.wantErr != "JWT_SECRET" {
				v.Set("JWT_SECRET", "secret")
			}
			for key, value := range tt.set {
				v.Set(key, value)
			}
			_, err := config.Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
