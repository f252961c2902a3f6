package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Retention policies for children of a deleted article.
const (
	RetentionCascade = "cascade"
	RetentionRetain  = "retain"
)

type Config struct {
	Port              string
	DatabaseURL       string
	SessionSecret     string
	LogLevel          string
	LogFormat         string
	DeleteRetention   string
	CacheSize         int
	CacheTTL          time.Duration
	SubmitRatePerMin  int
	ReconcileInterval time.Duration
	CORSOrigin        string
}

// Load reads .env (if present) and the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, reading from environment")
	}

	cfg := Config{
		Port:              getenv("PORT", "8080"),
		DatabaseURL:       getenv("DATABASE_URL", "sqlite://pressroom.db"),
		SessionSecret:     getenv("SESSION_SECRET", "secret_key_change_me"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		LogFormat:         getenv("LOG_FORMAT", "text"),
		DeleteRetention:   getenv("DELETE_RETENTION", RetentionCascade),
		CacheSize:         getint("CACHE_SIZE", 500),
		CacheTTL:          getduration("CACHE_TTL", time.Minute),
		SubmitRatePerMin:  getint("SUBMIT_RATE_PER_MIN", 6),
		ReconcileInterval: getduration("RECONCILE_INTERVAL", 10*time.Minute),
		CORSOrigin:        getenv("CORS_ORIGIN", "*"),
	}
	if cfg.DeleteRetention != RetentionRetain {
		cfg.DeleteRetention = RetentionCascade
	}
	return cfg
}

// RetainOnDelete reports whether comments and likes outlive their article.
func (c Config) RetainOnDelete() bool {
	return c.DeleteRetention == RetentionRetain
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getint(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getduration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
