package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom log forwarding configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ServerConfig defines the HTTP surface.
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// RedisConfig defines status store connectivity.
type RedisConfig struct {
	URL       string
	ResultTTL time.Duration
}

// ArchiveConfig defines the optional S3 plan archive. An empty bucket
// disables archiving.
type ArchiveConfig struct {
	Bucket string
	Prefix string
}

// FetchConfig bounds outbound HTTP done by the leaf capabilities.
type FetchConfig struct {
	Timeout            time.Duration
	CaptureTimeout     time.Duration
	MaxInflightPerHost int
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Server  ServerConfig
	Redis   RedisConfig
	Archive ArchiveConfig
	Fetch   FetchConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/imageplanner.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_imageplanner",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Server = ServerConfig{
		Port:            getEnv("PORT", "8080"),
		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
	}

	cfg.Redis = RedisConfig{
		URL:       getEnv("REDIS_URL", "redis://localhost:6379"),
		ResultTTL: parseDuration(getEnv("RESULT_TTL", "24h"), 24*time.Hour),
	}

	cfg.Archive = ArchiveConfig{
		Bucket: getEnv("ARCHIVE_S3_BUCKET", ""),
		Prefix: getEnv("ARCHIVE_S3_PREFIX", "plans"),
	}

	cfg.Fetch = FetchConfig{
		Timeout:            parseDuration(getEnv("FETCH_TIMEOUT", "20s"), 20*time.Second),
		CaptureTimeout:     parseDuration(getEnv("CAPTURE_TIMEOUT", "20s"), 20*time.Second),
		MaxInflightPerHost: parseInt(getEnv("FETCH_MAX_INFLIGHT", "4"), 4),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
