// Package config reads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the daemon needs to wire itself up. Zero or
// empty values fall back to the defaults applied by FromEnv.
type Config struct {
	Addr         string
	DBPath       string
	Chainfile    string
	RedisAddr    string
	RedisDB      int
	WorkerCount  int
	PollInterval time.Duration

	SMTPAddr     string
	SMTPFrom     string
	SMTPUser     string
	SMTPPassword string

	TelegramToken string
}

// FromEnv builds the config from CHAINWORK_* and channel variables. Every
// field has a usable default except the channel credentials, which stay
// empty when unset; executors for unconfigured channels are simply not
// registered.
func FromEnv() Config {
	return Config{
		Addr:          StringEnv("CHAINWORK_ADDR", "127.0.0.1:8080"),
		DBPath:        StringEnv("CHAINWORK_DB", "./data/chainwork.db"),
		Chainfile:     StringEnv("CHAINWORK_CHAINFILE", ""),
		RedisAddr:     StringEnv("REDIS_ADDR", ""),
		RedisDB:       IntEnv("REDIS_DB", 0),
		WorkerCount:   IntEnv("CHAINWORK_WORKERS", 4),
		PollInterval:  DurationEnv("CHAINWORK_POLL_INTERVAL", 200*time.Millisecond),
		SMTPAddr:      StringEnv("SMTP_ADDR", ""),
		SMTPFrom:      StringEnv("SMTP_FROM", ""),
		SMTPUser:      StringEnv("SMTP_USER", ""),
		SMTPPassword:  StringEnv("SMTP_PASSWORD", ""),
		TelegramToken: StringEnv("TELEGRAM_BOT_TOKEN", ""),
	}
}

func StringEnv(key, fallback string) string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	return raw
}

func IntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func BoolEnv(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func DurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
