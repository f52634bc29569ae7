// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the monitor service.
type Config struct {
	Port        string
	RedisURL    string
	DatabaseURL string // optional; empty disables the feed archive

	PollInterval  time.Duration // delay between scrape cycles
	RecencyWindow time.Duration // global recency cutoff for the general pool

	TelegramBotToken string
	TelegramChatID   string

	KafkaBroker string // optional; empty disables the Kafka event sink
	KafkaTopic  string

	AdzunaAppID   string
	AdzunaAppKey  string
	AdzunaCountry string // e.g. "us", "gb", "fr"
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	interval, err := positiveSeconds("POLL_INTERVAL_SECONDS", 180)
	if err != nil {
		return nil, err
	}

	windowMin := 120
	if s := os.Getenv("RECENCY_WINDOW_MINUTES"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("RECENCY_WINDOW_MINUTES must be a positive integer, got %q", s)
		}
		windowMin = v
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	country := os.Getenv("ADZUNA_COUNTRY")
	if country == "" {
		country = "us"
	}

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "job-alerts"
	}

	return &Config{
		Port:             port,
		RedisURL:         redisURL,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PollInterval:     time.Duration(interval) * time.Second,
		RecencyWindow:    time.Duration(windowMin) * time.Minute,
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		KafkaBroker:      os.Getenv("KAFKA_BROKER"),
		KafkaTopic:       topic,
		AdzunaAppID:      os.Getenv("ADZUNA_APP_ID"),
		AdzunaAppKey:     os.Getenv("ADZUNA_APP_KEY"),
		AdzunaCountry:    country,
	}, nil
}

func positiveSeconds(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, s)
	}
	return v, nil
}
