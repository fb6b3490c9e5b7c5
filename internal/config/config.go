package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`

	HTTPAddr    string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	// WriteTimeout defaults to 0 (unlimited): the SSE stream is a
	// long-lived response and a server-wide write deadline would kill it.
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"0"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	AuthToken      string   `env:"AUTH_TOKEN"`
	CORSOrigins    []string `env:"CORS_ORIGINS"`
	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"0"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"20"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"30"`

	Workers    int           `env:"WORKERS" envDefault:"4"`
	QueueSize  int           `env:"QUEUE_SIZE" envDefault:"256"`
	JobTimeout time.Duration `env:"JOB_TIMEOUT" envDefault:"60s"`

	DropDir      string `env:"DROP_DIR"`
	DropBackfill bool   `env:"DROP_BACKFILL" envDefault:"true"`

	MQTTBrokerURL string `env:"MQTT_BROKER_URL"`
	MQTTTopics    string `env:"MQTT_TOPICS" envDefault:"alignment/jobs"`
	MQTTClientID  string `env:"MQTT_CLIENT_ID" envDefault:"align-engine"`
	MQTTUsername  string `env:"MQTT_USERNAME"`
	MQTTPassword  string `env:"MQTT_PASSWORD"`

	StoreDir string `env:"STORE_DIR"`
	S3       S3Config
}

// S3Config configures S3-compatible transcript archival. Archival runs
// against S3 when Bucket is set, otherwise against StoreDir when that is
// set, otherwise not at all.
type S3Config struct {
	Bucket    string `env:"S3_BUCKET"`
	Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint  string `env:"S3_ENDPOINT"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	Prefix    string `env:"S3_PREFIX"`
}

// Enabled reports whether S3 archival is configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile       string
	HTTPAddr      string
	LogLevel      string
	DatabaseURL   string
	MQTTBrokerURL string
	DropDir       string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	// Parse environment variables into config struct
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}
	if overrides.MQTTBrokerURL != "" {
		cfg.MQTTBrokerURL = overrides.MQTTBrokerURL
	}
	if overrides.DropDir != "" {
		cfg.DropDir = overrides.DropDir
	}

	return cfg, nil
}
