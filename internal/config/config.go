package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/mediguard/internal/model"
	"github.com/jwalitptl/mediguard/pkg/messaging/redis"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Verifier  VerifierConfig  `mapstructure:"verifier"`
	Seed      SeedConfig      `mapstructure:"seed"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Email     EmailConfig     `mapstructure:"email"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

type SchedulerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Cooldown     time.Duration `mapstructure:"cooldown"`
	RolloverSpec string        `mapstructure:"rollover_spec"`
}

type VerifierConfig struct {
	TakeProbability   float64 `mapstructure:"take_probability"`
	SensorReliability float64 `mapstructure:"sensor_reliability"`
	Seed              int64   `mapstructure:"seed"`
}

type SeedConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	Days       int     `mapstructure:"days"`
	TakenRatio float64 `mapstructure:"taken_ratio"`

	// MissedToday entries are "Name@HH:MM".
	MissedToday []string `mapstructure:"missed_today"`
}

type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	RPS     float64       `mapstructure:"rps"`
	Burst   int           `mapstructure:"burst"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	URL          string        `mapstructure:"url"`
	Channel      string        `mapstructure:"channel"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type EmailConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
	MinTier  string   `mapstructure:"min_tier"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Path string `mapstructure:"path"`
}

// secrets are read straight from the environment and never from the file.
type secrets struct {
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	RedisURL     string `envconfig:"REDIS_URL"`
}

const envPrefix = "MEDIGUARD"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("catalog.path", "medications.json")

	v.SetDefault("scheduler.poll_interval", 5*time.Second)
	v.SetDefault("scheduler.cooldown", 10*time.Second)
	v.SetDefault("scheduler.rollover_spec", "0 0 * * *")

	v.SetDefault("verifier.take_probability", 0.7)
	v.SetDefault("verifier.sensor_reliability", 0.85)
	v.SetDefault("verifier.seed", 0)

	v.SetDefault("seed.enabled", true)
	v.SetDefault("seed.days", 2)
	v.SetDefault("seed.taken_ratio", 0.8)
	v.SetDefault("seed.missed_today", []string{"Aspirin@08:00"})

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rps", 20)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("rate_limit.ttl", 10*time.Minute)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.channel", "mediguard.alerts")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.port", 587)
	v.SetDefault("email.from", "mediguard@localhost")
	v.SetDefault("email.to", []string{})
	v.SetDefault("email.min_tier", string(model.TierCaregiver))

	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.path", "/metrics")
}

// LoadConfig reads config.yml from path, or from the usual locations when
// path is empty. A missing file leaves the defaults in place.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var s secrets
	if err := envconfig.Process(envPrefix, &s); err != nil {
		return nil, fmt.Errorf("failed to read secrets: %w", err)
	}
	if s.SMTPPassword != "" {
		cfg.Email.Password = s.SMTPPassword
	}
	if s.RedisURL != "" {
		cfg.Redis.URL = s.RedisURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	case c.Catalog.Path == "":
		return fmt.Errorf("catalog.path is required")
	case c.Scheduler.PollInterval <= 0:
		return fmt.Errorf("scheduler.poll_interval must be positive")
	case c.Scheduler.Cooldown < 0:
		return fmt.Errorf("scheduler.cooldown must not be negative")
	case !isProbability(c.Verifier.TakeProbability):
		return fmt.Errorf("verifier.take_probability must be within [0,1]")
	case !isProbability(c.Verifier.SensorReliability):
		return fmt.Errorf("verifier.sensor_reliability must be within [0,1]")
	case !isProbability(c.Seed.TakenRatio):
		return fmt.Errorf("seed.taken_ratio must be within [0,1]")
	case c.Seed.Days < 0:
		return fmt.Errorf("seed.days must not be negative")
	case c.Email.Enabled && !model.Tier(c.Email.MinTier).Valid():
		return fmt.Errorf("email.min_tier %q is not a known tier", c.Email.MinTier)
	case c.Email.Enabled && len(c.Email.To) == 0:
		return fmt.Errorf("email.to is required when email is enabled")
	case c.Redis.Enabled && c.Redis.URL == "":
		return fmt.Errorf("redis.url is required when redis is enabled")
	}
	return nil
}

func isProbability(p float64) bool {
	return p >= 0 && p <= 1
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}
