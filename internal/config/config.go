package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Session   SessionConfig   `yaml:"session"`
	WhatsApp  WhatsAppConfig  `yaml:"whatsapp"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	App       AppConfig       `yaml:"app"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// OracleConfig selects the language model that extracts workout fields.
type OracleConfig struct {
	Provider           string        `yaml:"provider"`
	APIKey             string        `yaml:"api_key"`
	BaseURL            string        `yaml:"base_url"`
	Model              string        `yaml:"model"`
	TranscriptionModel string        `yaml:"transcription_model"`
	Timeout            time.Duration `yaml:"timeout"`
}

// SessionConfig controls where in-progress drafts live.
type SessionConfig struct {
	Store         string        `yaml:"store"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

type WhatsAppConfig struct {
	Enabled   bool   `yaml:"enabled"`
	StorePath string `yaml:"store_path"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type AppConfig struct {
	DashboardURL string `yaml:"dashboard_url"`
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

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix GYMBRO_ and underscore-separated paths:
//
//	GYMBRO_SERVER_HOST, GYMBRO_SERVER_PORT,
//	GYMBRO_DB_HOST, GYMBRO_DB_PORT, GYMBRO_DB_NAME,
//	GYMBRO_DB_USER, GYMBRO_DB_PASSWORD, GYMBRO_DB_SSLMODE,
//	GYMBRO_AUTH_API_KEY,
//	GYMBRO_TAILSCALE_ENABLED, GYMBRO_TAILSCALE_HOSTNAME,
//	GYMBRO_ORACLE_PROVIDER, GYMBRO_ORACLE_API_KEY, GYMBRO_ORACLE_BASE_URL,
//	GYMBRO_ORACLE_MODEL, GYMBRO_ORACLE_TIMEOUT,
//	GYMBRO_SESSION_STORE, GYMBRO_REDIS_ADDR, GYMBRO_REDIS_PASSWORD,
//	GYMBRO_WHATSAPP_ENABLED, GYMBRO_DASHBOARD_URL
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
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setString("GYMBRO_SERVER_HOST", &cfg.Server.Host)
	setInt("GYMBRO_SERVER_PORT", &cfg.Server.Port)
	setString("GYMBRO_DB_HOST", &cfg.Database.Host)
	setInt("GYMBRO_DB_PORT", &cfg.Database.Port)
	setString("GYMBRO_DB_NAME", &cfg.Database.Name)
	setString("GYMBRO_DB_USER", &cfg.Database.User)
	setString("GYMBRO_DB_PASSWORD", &cfg.Database.Password)
	setString("GYMBRO_DB_SSLMODE", &cfg.Database.SSLMode)
	setString("GYMBRO_AUTH_API_KEY", &cfg.Auth.APIKey)
	setBool("GYMBRO_TAILSCALE_ENABLED", &cfg.Tailscale.Enabled)
	setString("GYMBRO_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)
	setString("GYMBRO_ORACLE_PROVIDER", &cfg.Oracle.Provider)
	setString("GYMBRO_ORACLE_API_KEY", &cfg.Oracle.APIKey)
	setString("GYMBRO_ORACLE_BASE_URL", &cfg.Oracle.BaseURL)
	setString("GYMBRO_ORACLE_MODEL", &cfg.Oracle.Model)
	setString("GYMBRO_SESSION_STORE", &cfg.Session.Store)
	setString("GYMBRO_REDIS_ADDR", &cfg.Session.RedisAddr)
	setString("GYMBRO_REDIS_PASSWORD", &cfg.Session.RedisPassword)
	setBool("GYMBRO_WHATSAPP_ENABLED", &cfg.WhatsApp.Enabled)
	setString("GYMBRO_DASHBOARD_URL", &cfg.App.DashboardURL)

	if v := os.Getenv("GYMBRO_ORACLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Oracle.Timeout = d
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "gymbro"
	}
	if cfg.Tailscale.StateDir == "" {
		cfg.Tailscale.StateDir = "tsnet-state"
	}
	if cfg.Oracle.Provider == "" {
		cfg.Oracle.Provider = "gemini"
	}
	if cfg.Oracle.Timeout == 0 {
		cfg.Oracle.Timeout = 30 * time.Second
	}
	if cfg.Session.Store == "" {
		cfg.Session.Store = "memory"
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 24 * time.Hour
	}
	if cfg.WhatsApp.StorePath == "" {
		cfg.WhatsApp.StorePath = "whatsapp.db"
	}
	if cfg.Catalog.CacheTTL == 0 {
		cfg.Catalog.CacheTTL = 5 * time.Minute
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	switch c.Oracle.Provider {
	case "gemini", "openai", "eino":
	default:
		return fmt.Errorf("oracle.provider must be gemini, openai or eino, got %q", c.Oracle.Provider)
	}
	if c.Oracle.APIKey == "" {
		return fmt.Errorf("oracle.api_key is required")
	}
	if c.Oracle.Timeout < 0 {
		return fmt.Errorf("oracle.timeout must not be negative")
	}
	switch c.Session.Store {
	case "memory":
	case "redis":
		if c.Session.RedisAddr == "" {
			return fmt.Errorf("session.redis_addr is required for the redis store")
		}
	default:
		return fmt.Errorf("session.store must be memory or redis, got %q", c.Session.Store)
	}
	return nil
}
