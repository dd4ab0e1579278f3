package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/app/configs")

	viper.SetEnvPrefix("HOMEWATT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Allow common env vars without the HOMEWATT_ prefix for container deploys
	viper.BindEnv("http.port", "HTTP_PORT", "HOMEWATT_HTTP_PORT")
	viper.BindEnv("database.url", "DATABASE_URL", "HOMEWATT_DATABASE_URL")
	viper.BindEnv("redis.url", "REDIS_URL", "HOMEWATT_REDIS_URL")
	viper.BindEnv("redis.password", "REDIS_PASSWORD", "HOMEWATT_REDIS_PASSWORD")
	viper.BindEnv("queue.driver", "QUEUE_DRIVER", "HOMEWATT_QUEUE_DRIVER")
	viper.BindEnv("queue.url", "QUEUE_URL", "HOMEWATT_QUEUE_URL")
	viper.BindEnv("jwt.secret", "JWT_SECRET", "HOMEWATT_JWT_SECRET")
	viper.BindEnv("vault.address", "VAULT_ADDR")
	viper.BindEnv("vault.token", "VAULT_TOKEN")
	viper.BindEnv("app.environment", "HOMEWATT_ENVIRONMENT")
	viper.BindEnv("logging.level", "LOG_LEVEL")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("app.name", "homewatt")
	viper.SetDefault("http.port", 8080)
	viper.SetDefault("queue.driver", "nats")
	viper.SetDefault("weather.base_url", "https://api.open-meteo.com/v1/forecast")
	viper.SetDefault("weather.max_retries", 2)
	viper.SetDefault("simulation.time_step_minutes", 1.0)
	viper.SetDefault("simulation.tick_interval", "15s")
	viper.SetDefault("prometheus.path", "/metrics")
	viper.SetDefault("logging.level", "info")
}
