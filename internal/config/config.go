package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Task     TaskConfig     `mapstructure:"task" validate:"required"`
	Sweep    SweepConfig    `mapstructure:"sweep" validate:"required"`
	Notify   NotifyConfig   `mapstructure:"notify" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port           int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel       string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" validate:"required,min=1"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
}

// DatabaseConfig selects the task store backend.
// URL is a postgres connection string for the postgres driver and a file
// path (or ":memory:") for sqlite. The memory driver ignores it.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" validate:"required,oneof=postgres sqlite memory"`
	URL          string `mapstructure:"url" validate:"required_unless=Driver memory"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
	// TokenLifetimeMinutes applies to tokens minted by the token generator.
	TokenLifetimeMinutes int `mapstructure:"token_lifetime_minutes" validate:"gt=0"`
}

// TaskConfig holds task creation defaults and limits.
type TaskConfig struct {
	DefaultExpiryHours float64 `mapstructure:"default_expiry_hours" validate:"gt=0"`
	MaxExpiryHours     float64 `mapstructure:"max_expiry_hours" validate:"gtfield=DefaultExpiryHours"`
}

// SweepConfig controls the background expiry sweep.
type SweepConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval" validate:"gt=0"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
	PageSize   int           `mapstructure:"page_size" validate:"gt=0,lte=1000"`
	RunOnStart bool          `mapstructure:"run_on_start"`
	LockTTL    time.Duration `mapstructure:"lock_ttl" validate:"gt=0"`
}

// NotifyConfig selects and tunes the expiry notification transport.
type NotifyConfig struct {
	Driver      string      `mapstructure:"driver" validate:"required,oneof=log kafka"`
	QueueSize   int         `mapstructure:"queue_size" validate:"gt=0"`
	WorkerCount int         `mapstructure:"worker_count" validate:"gt=0"`
	Kafka       KafkaConfig `mapstructure:"kafka"`
}

// KafkaConfig is only consulted when Notify.Driver is "kafka".
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// RedisConfig enables the distributed sweep lease when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}
