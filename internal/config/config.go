package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	HTTPTimeout    time.Duration
	LogLevel       slog.Level
	RelayURL       string
	RelaySecret    string
	LedgerPath     string
	AdminEmails    []string
	MaxUploadBytes int64
}

// Load reads an optional .env file and then the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() Config {
	to := 15 * time.Second
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			to = d
		}
	}
	lvl := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		lvl = slog.LevelDebug
	}
	maxMB := int64(32)
	if v, err := strconv.ParseInt(os.Getenv("MAX_UPLOAD_MB"), 10, 64); err == nil && v > 0 {
		maxMB = v
	}
	return Config{
		Port:           envOr("PORT", "8080"),
		HTTPTimeout:    to,
		LogLevel:       lvl,
		RelayURL:       os.Getenv("RELAY_URL"),
		RelaySecret:    os.Getenv("RELAY_SECRET"),
		LedgerPath:     os.Getenv("LEDGER_PATH"),
		AdminEmails:    splitList(os.Getenv("ADMIN_EMAILS")),
		MaxUploadBytes: maxMB << 20,
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
