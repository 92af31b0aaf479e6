package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Telegram    TelegramConfig  `mapstructure:"telegram"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
	Monitor     MonitorConfig   `mapstructure:"monitor"`
	Risk        RiskConfig      `mapstructure:"risk"`
	Security    SecurityConfig  `mapstructure:"security"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type TelemetryConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	Endpoint       string  `mapstructure:"endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	ServiceVersion string  `mapstructure:"service_version"`
	SampleRate     float64 `mapstructure:"sample_rate"`
}

// MonitorConfig drives the polling loop that feeds the scoring engine.
type MonitorConfig struct {
	PollInterval     string   `mapstructure:"poll_interval"`
	SnapshotCacheTTL string   `mapstructure:"snapshot_cache_ttl"`
	MaxErrors        int      `mapstructure:"max_errors"`
	Assets           []string `mapstructure:"assets"`
}

// RiskConfig holds scoring engine tunables.
type RiskConfig struct {
	// MaxHistory caps retained risk snapshots per engine; 0 keeps all.
	MaxHistory int `mapstructure:"max_history"`
	// AlertSeverity is the minimum threat severity that triggers notifications.
	AlertSeverity string `mapstructure:"alert_severity"`
}

type SecurityConfig struct {
	JWTSecret  string `mapstructure:"jwt_secret" json:"-" yaml:"-"`
	JWTExpiry  string `mapstructure:"jwt_expiry"`
	BcryptCost int    `mapstructure:"bcrypt_cost"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Bind specific environment variables
	if err := viper.BindEnv("security.jwt_secret", "JWT_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind JWT_SECRET environment variable: %w", err)
	}
	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	environment := strings.ToLower(config.Environment)

	// Validate JWT secret in non-development environments
	if environment != "development" && config.Security.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required in non-development environments")
	}

	// Validate JWT expiry duration
	if config.Security.JWTExpiry != "" {
		if _, err := time.ParseDuration(config.Security.JWTExpiry); err != nil {
			return nil, fmt.Errorf("invalid JWT expiry duration: %w", err)
		}
	}

	// Validate bcrypt cost parameter
	if config.Security.BcryptCost < bcrypt.MinCost || config.Security.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, config.Security.BcryptCost)
	}

	// Validate monitor intervals parse as durations
	if _, err := time.ParseDuration(config.Monitor.PollInterval); err != nil {
		return nil, fmt.Errorf("invalid monitor poll interval: %w", err)
	}
	if _, err := time.ParseDuration(config.Monitor.SnapshotCacheTTL); err != nil {
		return nil, fmt.Errorf("invalid snapshot cache TTL: %w", err)
	}

	if config.Risk.MaxHistory < 0 {
		return nil, fmt.Errorf("risk max_history must be non-negative, got %d", config.Risk.MaxHistory)
	}

	// Update config with normalized environment
	config.Environment = environment

	return &config, nil
}

// PollIntervalDuration returns the parsed monitor poll interval.
func (c *MonitorConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// SnapshotCacheTTLDuration returns the parsed snapshot cache window.
func (c *MonitorConfig) SnapshotCacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.SnapshotCacheTTL)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "defi_sentinel")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "300s")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", "")

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.endpoint", "localhost:4318")
	viper.SetDefault("telemetry.service_name", "defi-sentinel")
	viper.SetDefault("telemetry.service_version", "1.0.0")
	viper.SetDefault("telemetry.sample_rate", 0.2)

	// Monitor
	viper.SetDefault("monitor.poll_interval", "30s")
	viper.SetDefault("monitor.snapshot_cache_ttl", "15s")
	viper.SetDefault("monitor.max_errors", 5)
	viper.SetDefault("monitor.assets", []string{"BNB/USDT"})

	// Risk
	viper.SetDefault("risk.max_history", 0)
	viper.SetDefault("risk.alert_severity", "HIGH")

	// Security
	viper.SetDefault("security.jwt_secret", "")
	viper.SetDefault("security.jwt_expiry", "24h")
	viper.SetDefault("security.bcrypt_cost", 12)
}
