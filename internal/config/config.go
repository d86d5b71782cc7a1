package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             int
	NatsURL          string
	NatsToken        string
	DatabaseURL      string
	LogLevel         string
	ForumURL         string
	ForumCookie      string
	SamplerURL       string
	CrawlDelayMillis int
	ProgressInterval int // milliseconds between unforced progress emissions
	TaskQueueSize    int
}

func Load() Config {
	// A .env next to the binary is optional; real deployments set env vars.
	_ = godotenv.Load()

	return Config{
		Port:             envInt("QUARRY_PORT", 8760),
		NatsURL:          envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:        envStr("NATS_TOKEN", ""),
		DatabaseURL:      envStr("DATABASE_URL", ""),
		LogLevel:         envStr("LOG_LEVEL", "info"),
		ForumURL:         envStr("FORUM_URL", "https://forum.internal"),
		ForumCookie:      envStr("FORUM_COOKIE", ""),
		SamplerURL:       envStr("SAMPLER_URL", "http://sampler:8770"),
		CrawlDelayMillis: envInt("CRAWL_DELAY_MS", 2000),
		ProgressInterval: envInt("PROGRESS_INTERVAL_MS", 1000),
		TaskQueueSize:    envInt("TASK_QUEUE_SIZE", 16),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
