package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	AuthorityEventsTopic string

	IdempotencyClaimTTL  time.Duration
	IdempotencyRecordTTL time.Duration
	IdempotencyWait      time.Duration
	WorkerPollInterval   time.Duration
	OutboxBatchSize      int
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "mandata"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	topic := os.Getenv("AUTHORITY_EVENTS_TOPIC")
	if topic == "" {
		topic = "property-authority.events"
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,

		AuthorityEventsTopic: topic,

		IdempotencyClaimTTL:  envDuration("IDEMPOTENCY_CLAIM_TTL", 30*time.Second),
		IdempotencyRecordTTL: envDuration("IDEMPOTENCY_RECORD_TTL", 7*24*time.Hour),
		IdempotencyWait:      envDuration("IDEMPOTENCY_WAIT_BUDGET", 2*time.Second),
		WorkerPollInterval:   envDuration("WORKER_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:      envInt("OUTBOX_BATCH_SIZE", 100),
	}, nil
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
