package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. TRACKER_SERVER_PORT for server.port.
const EnvPrefix = "TRACKER"

// Load configuration from environment variables and optionally config files.
// A .env file in the working directory is loaded first when present.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadAuth reads only the auth section, for tools that mint or check tokens
// without the rest of the server's configuration.
func LoadAuth() (*AuthConfig, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	// Unmarshal everything so env-bound keys are seen, then keep only auth.
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&cfg.Auth); err != nil {
		return nil, fmt.Errorf("auth config validation failed: %w", err)
	}
	return &cfg.Auth, nil
}

// newViper layers defaults, config.yaml, and TRACKER_* environment variables.
func newViper() (*viper.Viper, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults are invisible to AutomaticEnv during Unmarshal.
	for _, key := range []string{"database.url", "auth.jwt_secret", "auth.issuer", "auth.audience"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return v, nil
}

// Validate checks struct tags plus the cross-section rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if cfg.Notify.Driver == "kafka" {
		if len(cfg.Notify.Kafka.Brokers) == 0 || cfg.Notify.Kafka.Topic == "" {
			return errors.New("config validation failed: notify.kafka.brokers and notify.kafka.topic are required for the kafka driver")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.max_open_conns", 25)

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("task.default_expiry_hours", 24)
	v.SetDefault("task.max_expiry_hours", 8760)

	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.interval", "1h")
	v.SetDefault("sweep.timeout", "5m")
	v.SetDefault("sweep.page_size", 100)
	v.SetDefault("sweep.run_on_start", false)
	v.SetDefault("sweep.lock_ttl", "10m")

	v.SetDefault("notify.driver", "log")
	v.SetDefault("notify.queue_size", 256)
	v.SetDefault("notify.worker_count", 2)
	v.SetDefault("notify.kafka.brokers", []string{})
	v.SetDefault("notify.kafka.topic", "task-expired")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}
