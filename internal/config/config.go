package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "config.yaml"

// ErrMissingToken is returned when BOT_TOKEN is absent from both the file and the environment.
var ErrMissingToken = errors.New("BOT_TOKEN is required")

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"

	RateLimitOff   = "off"
	RateLimitLocal = "local"
	RateLimitRedis = "redis"

	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config keeps runtime settings for the bot. It is loaded once at startup and read-only afterwards.
type Config struct {
	BotToken      string `yaml:"BOT_TOKEN"`
	OpenAIAPIKey  string `yaml:"OPENAI_API_KEY"`
	OpenAIModel   string `yaml:"OPENAI_MODEL"`
	OpenAIBaseURL string `yaml:"OPENAI_BASE_URL"`

	// TimeSpan and RateLimit describe the rate-limit window in seconds and messages per window.
	TimeSpan            int    `yaml:"TIME_SPAN"`
	RateLimit           int    `yaml:"RATE_LIMIT"`
	RateLimitMode       string `yaml:"RATE_LIMIT_MODE"`
	RedisURL            string `yaml:"REDIS_URL"`
	MaxToken            int    `yaml:"MAX_TOKEN"`
	ContextCount        int    `yaml:"CONTEXT_COUNT"`
	NotificationChannel string `yaml:"NOTIFICATION_CHANNEL"`
	ImageRateLimit      int    `yaml:"IMAGE_RATE_LIMIT"`
	StatsReportTime     string `yaml:"STATS_REPORT_TIME"`

	DBDriver   string `yaml:"DB_DRIVER"`
	DBHost     string `yaml:"DB_HOST"`
	DBPort     int    `yaml:"DB_PORT"`
	DBUser     string `yaml:"DB_USER"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBName     string `yaml:"DB_NAME"`
	DBDSN      string `yaml:"DB_DSN"`

	BotMode       string `yaml:"BOT_MODE"`
	WebhookURL    string `yaml:"WEBHOOK_URL"`
	WebhookListen string `yaml:"WEBHOOK_LISTEN"`

	LogLevel  string `yaml:"LOG_LEVEL"`
	LogFormat string `yaml:"LOG_FORMAT"`
}

// Load reads the YAML file at path, applies environment overrides and fills defaults.
// A missing or unreadable file is an error.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %q: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// CompletionEnabled reports whether an OpenAI key is configured.
func (c Config) CompletionEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// Window is the rate-limit window as a duration.
func (c Config) Window() time.Duration {
	return time.Duration(c.TimeSpan) * time.Second
}

// DSN returns DB_DSN when set, otherwise composes one for the configured driver.
func (c Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	switch c.DBDriver {
	case DriverPostgres:
		port := c.DBPort
		if port == 0 {
			port = 5432
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.DBHost, port, c.DBUser, c.DBPassword, c.DBName)
	case DriverSQLite:
		return c.DBName + ".db"
	default:
		port := c.DBPort
		if port == 0 {
			port = 3306
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.DBUser, c.DBPassword, c.DBHost, port, c.DBName)
	}
}

func (c *Config) applyEnv() {
	envString(&c.BotToken, "BOT_TOKEN")
	envString(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	envString(&c.OpenAIModel, "OPENAI_MODEL")
	envString(&c.OpenAIBaseURL, "OPENAI_BASE_URL")
	envInt(&c.TimeSpan, "TIME_SPAN")
	envInt(&c.RateLimit, "RATE_LIMIT")
	envString(&c.RateLimitMode, "RATE_LIMIT_MODE")
	envString(&c.RedisURL, "REDIS_URL")
	envInt(&c.MaxToken, "MAX_TOKEN")
	envInt(&c.ContextCount, "CONTEXT_COUNT")
	envString(&c.NotificationChannel, "NOTIFICATION_CHANNEL")
	envInt(&c.ImageRateLimit, "IMAGE_RATE_LIMIT")
	envString(&c.StatsReportTime, "STATS_REPORT_TIME")
	envString(&c.DBDriver, "DB_DRIVER")
	envString(&c.DBHost, "DB_HOST")
	envInt(&c.DBPort, "DB_PORT")
	envString(&c.DBUser, "DB_USER")
	envString(&c.DBPassword, "DB_PASSWORD")
	envString(&c.DBName, "DB_NAME")
	envString(&c.DBDSN, "DB_DSN")
	envString(&c.BotMode, "BOT_MODE")
	envString(&c.WebhookURL, "WEBHOOK_URL")
	envString(&c.WebhookListen, "WEBHOOK_LISTEN")
	envString(&c.LogLevel, "LOG_LEVEL")
	envString(&c.LogFormat, "LOG_FORMAT")
}

func (c *Config) applyDefaults() {
	c.BotToken = strings.TrimSpace(c.BotToken)
	c.OpenAIAPIKey = strings.TrimSpace(c.OpenAIAPIKey)

	defaultString(&c.OpenAIModel, "gpt-3.5-turbo")
	defaultInt(&c.TimeSpan, 60)
	defaultInt(&c.RateLimit, 3)
	defaultString(&c.RateLimitMode, RateLimitOff)
	defaultInt(&c.MaxToken, 2000)
	defaultInt(&c.ContextCount, 5)
	defaultInt(&c.ImageRateLimit, 2)
	defaultString(&c.StatsReportTime, "09:00")

	defaultString(&c.DBDriver, DriverMySQL)
	defaultString(&c.DBHost, "localhost")
	defaultString(&c.DBUser, "root")
	defaultString(&c.DBName, "test")

	defaultString(&c.BotMode, ModePolling)
	defaultString(&c.WebhookListen, ":8080")
	defaultString(&c.LogLevel, "info")
	defaultString(&c.LogFormat, "json")

	c.RateLimitMode = strings.ToLower(c.RateLimitMode)
	c.DBDriver = strings.ToLower(c.DBDriver)
	c.BotMode = strings.ToLower(c.BotMode)
}

func (c Config) validate() error {
	if c.BotToken == "" {
		return ErrMissingToken
	}
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.RateLimitMode {
	case RateLimitOff, RateLimitLocal:
	case RateLimitRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("RATE_LIMIT_MODE=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unsupported RATE_LIMIT_MODE %q", c.RateLimitMode)
	}
	switch c.BotMode {
	case ModePolling:
	case ModeWebhook:
		if c.WebhookURL == "" {
			return fmt.Errorf("BOT_MODE=webhook requires WEBHOOK_URL")
		}
	default:
		return fmt.Errorf("unsupported BOT_MODE %q", c.BotMode)
	}
	return nil
}

func envString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func defaultString(dst *string, def string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = def
	}
}

func defaultInt(dst *int, def int) {
	if *dst <= 0 {
		*dst = def
	}
}
