package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken  string
	DatabaseURL    string
	PollInterval   time.Duration
	DigestInterval time.Duration
	DigestTime     string // optional HH:MM, overrides DigestInterval
	JobMaxAttempts int
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		TelegramToken:  strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		PollInterval:   parseSeconds(strings.TrimSpace(os.Getenv("POLL_INTERVAL_SECONDS"))),
		DigestInterval: parseHours(strings.TrimSpace(os.Getenv("DIGEST_INTERVAL_HOURS"))),
		DigestTime:     strings.TrimSpace(os.Getenv("DIGEST_TIME")),
		JobMaxAttempts: parseInt(strings.TrimSpace(os.Getenv("JOB_MAX_ATTEMPTS"))),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "todov2.db"
	}

	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Second
	}

	if cfg.DigestInterval == 0 {
		cfg.DigestInterval = 5 * time.Hour
	}

	if cfg.JobMaxAttempts <= 0 {
		cfg.JobMaxAttempts = 5
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

func parseSeconds(raw string) time.Duration {
	n := parseInt(raw)
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func parseHours(raw string) time.Duration {
	n := parseInt(raw)
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Hour
}

func parseInt(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
