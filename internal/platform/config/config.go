package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs from the environment so main
// stays lean.
type Config struct {
	Addr string

	PostgresURL string
	RedisAddr   string

	KafkaBrokers []string
	KafkaTopic   string

	ClaimSigningKey string
	ClaimCodeKey    string
	ClaimTokenTTL   time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

// FromEnv builds a Config from environment variables, with development
// defaults for everything but the claim keys.
func FromEnv() Config {
	cfg := Config{
		Addr:               envOr("LINGKOD_ADDR", ":8080"),
		PostgresURL:        envOr("LINGKOD_POSTGRES_URL", ""),
		RedisAddr:          envOr("LINGKOD_REDIS_ADDR", ""),
		KafkaTopic:         envOr("LINGKOD_KAFKA_TOPIC", "lingkod.notifications"),
		ClaimSigningKey:    os.Getenv("LINGKOD_CLAIM_SIGNING_KEY"),
		ClaimCodeKey:       os.Getenv("LINGKOD_CLAIM_CODE_KEY"),
		ClaimTokenTTL:      envDuration("LINGKOD_CLAIM_TOKEN_TTL", 14*24*time.Hour),
		OutboxPollInterval: envDuration("LINGKOD_OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    envInt("LINGKOD_OUTBOX_BATCH_SIZE", 50),
	}
	if brokers := os.Getenv("LINGKOD_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
