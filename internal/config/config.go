package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Timer     TimerConfig     `yaml:"timer"`
	Workout   WorkoutConfig   `yaml:"workout"`
	Notify    NotifyConfig    `yaml:"notify"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type AuthConfig struct {
	// APIKey protects /api/v1 when set. Leave empty when the tailnet
	// already restricts access.
	APIKey string `yaml:"api_key"`
}

type StorageConfig struct {
	Driver    string         `yaml:"driver"` // sqlite, postgres, file or memory
	Path      string         `yaml:"path"`
	KeyPrefix string         `yaml:"key_prefix"`
	Database  DatabaseConfig `yaml:"database"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type TimerConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	// Persist keeps a running rest timer across restarts.
	Persist bool `yaml:"persist"`
}

type WorkoutConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	OverdueAfter time.Duration `yaml:"overdue_after"`
}

type NotifyConfig struct {
	Disabled   bool          `yaml:"disabled"`
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// SlogLevel maps log.level to a slog level. Unknown values mean info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. Env vars use the prefix LIFTREST_ and
// underscore-separated paths:
//
//	LIFTREST_SERVER_HOST, LIFTREST_SERVER_PORT, LIFTREST_AUTH_API_KEY,
//	LIFTREST_STORAGE_DRIVER, LIFTREST_STORAGE_PATH, LIFTREST_STORAGE_KEY_PREFIX,
//	LIFTREST_DB_HOST, LIFTREST_DB_PORT, LIFTREST_DB_NAME,
//	LIFTREST_DB_USER, LIFTREST_DB_PASSWORD, LIFTREST_DB_SSLMODE,
//	LIFTREST_TIMER_TICK_INTERVAL, LIFTREST_TIMER_PERSIST,
//	LIFTREST_WORKOUT_OVERDUE_AFTER, LIFTREST_NOTIFY_WEBHOOK_URL,
//	LIFTREST_TAILSCALE_ENABLED, LIFTREST_TAILSCALE_HOSTNAME, LIFTREST_LOG_LEVEL
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.Host, "LIFTREST_SERVER_HOST")
	setInt(&cfg.Server.Port, "LIFTREST_SERVER_PORT")
	setString(&cfg.Auth.APIKey, "LIFTREST_AUTH_API_KEY")

	setString(&cfg.Storage.Driver, "LIFTREST_STORAGE_DRIVER")
	setString(&cfg.Storage.Path, "LIFTREST_STORAGE_PATH")
	setString(&cfg.Storage.KeyPrefix, "LIFTREST_STORAGE_KEY_PREFIX")
	setString(&cfg.Storage.Database.Host, "LIFTREST_DB_HOST")
	setInt(&cfg.Storage.Database.Port, "LIFTREST_DB_PORT")
	setString(&cfg.Storage.Database.Name, "LIFTREST_DB_NAME")
	setString(&cfg.Storage.Database.User, "LIFTREST_DB_USER")
	setString(&cfg.Storage.Database.Password, "LIFTREST_DB_PASSWORD")
	setString(&cfg.Storage.Database.SSLMode, "LIFTREST_DB_SSLMODE")

	setDuration(&cfg.Timer.TickInterval, "LIFTREST_TIMER_TICK_INTERVAL")
	setBool(&cfg.Timer.Persist, "LIFTREST_TIMER_PERSIST")
	setDuration(&cfg.Workout.OverdueAfter, "LIFTREST_WORKOUT_OVERDUE_AFTER")
	setString(&cfg.Notify.WebhookURL, "LIFTREST_NOTIFY_WEBHOOK_URL")

	setBool(&cfg.Tailscale.Enabled, "LIFTREST_TAILSCALE_ENABLED")
	setString(&cfg.Tailscale.Hostname, "LIFTREST_TAILSCALE_HOSTNAME")
	setString(&cfg.Log.Level, "LIFTREST_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Path == "" && (c.Storage.Driver == "sqlite" || c.Storage.Driver == "file") {
		c.Storage.Path = "data"
	}
	if c.Storage.Database.Port == 0 {
		c.Storage.Database.Port = 5432
	}
	if c.Timer.TickInterval == 0 {
		c.Timer.TickInterval = 500 * time.Millisecond
	}
	if c.Workout.TickInterval == 0 {
		c.Workout.TickInterval = time.Second
	}
	if c.Notify.Timeout == 0 {
		c.Notify.Timeout = 10 * time.Second
	}
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = "liftrest"
	}
	if c.Tailscale.StateDir == "" {
		c.Tailscale.StateDir = "tsnet-state"
	}
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	switch c.Storage.Driver {
	case "sqlite", "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for driver %s", c.Storage.Driver)
		}
	case "postgres":
		db := c.Storage.Database
		if db.Host == "" {
			return fmt.Errorf("storage.database.host is required")
		}
		if db.Name == "" {
			return fmt.Errorf("storage.database.name is required")
		}
		if db.User == "" {
			return fmt.Errorf("storage.database.user is required")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver %q is not one of sqlite, postgres, file, memory", c.Storage.Driver)
	}
	if c.Timer.TickInterval < 0 || c.Workout.TickInterval < 0 {
		return fmt.Errorf("tick_interval must not be negative")
	}
	if c.Workout.OverdueAfter < 0 {
		return fmt.Errorf("workout.overdue_after must not be negative")
	}
	if c.Notify.WebhookURL != "" && !strings.HasPrefix(c.Notify.WebhookURL, "http://") && !strings.HasPrefix(c.Notify.WebhookURL, "https://") {
		return fmt.Errorf("notify.webhook_url must be an http(s) URL")
	}
	return nil
}
