package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "TASKS"

type AppConfig struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	UI        UIConfig        `mapstructure:"ui"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"gt=0,lt=65536"`
	Environment     string        `mapstructure:"environment" validate:"oneof=development test staging production"`
	EnforceHTTPS    bool          `mapstructure:"enforce_https"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type StoreConfig struct {
	Driver      string `mapstructure:"driver" validate:"oneof=sqlite memory gorm postgres"`
	DSN         string `mapstructure:"dsn"`
	PostgresURL string `mapstructure:"postgres_url" validate:"required_if=Driver postgres"`
}

type CacheConfig struct {
	Driver    string        `mapstructure:"driver" validate:"oneof=memory redis rueidis none"`
	TTL       time.Duration `mapstructure:"ttl" validate:"gte=0"`
	RedisAddr string        `mapstructure:"redis_addr" validate:"required_if=Driver redis,required_if=Driver rueidis"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests" validate:"gt=0"`
	Window   time.Duration `mapstructure:"window" validate:"gt=0"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name" validate:"required"`
	MetricsPort  string `mapstructure:"metrics_port"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

type LogConfig struct {
	Level   string `mapstructure:"level" validate:"oneof=debug info warn error"`
	LokiURL string `mapstructure:"loki_url" validate:"omitempty,url"`
}

type SchedulerConfig struct {
	OverdueInterval time.Duration `mapstructure:"overdue_interval" validate:"gte=0"`
}

type UIConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func (c *AppConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (c *AppConfig) IsProduction() bool {
	return c.Server.Environment == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.enforce_https", false)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "file:tasks?mode=memory&cache=shared")
	v.SetDefault("store.postgres_url", "")

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl", 30*time.Second)
	v.SetDefault("cache.redis_addr", "")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", time.Minute)

	v.SetDefault("telemetry.service_name", "taskmanager")
	v.SetDefault("telemetry.metrics_port", "9091")
	v.SetDefault("telemetry.otlp_endpoint", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.loki_url", "")

	v.SetDefault("scheduler.overdue_interval", time.Minute)

	v.SetDefault("ui.enabled", true)
}

// Load reads configuration from TASKS_* environment variables, with an
// optional dotenv file loaded first. Variables already set in the
// environment win over the file.
func Load(envFiles ...string) (*AppConfig, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
		slog.Debug("No .env file found, using environment variables")
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func Validate(cfg *AppConfig) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
