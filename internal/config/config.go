package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables
// (a .env file in the working directory is honored when present).
type Config struct {
	SchemaPath    string // empty selects the embedded IMMA1 schema
	CodeTableDir  string
	InputDir      string
	InputPattern  string
	PollInterval  time.Duration
	DecodeWorkers int

	KafkaBrokers   []string
	KafkaSinkTopic string
	KafkaEnabled   bool

	ProvenanceDB string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	RegistryCacheSize int
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	pollInterval, err := envDuration("POLL_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	workers, err := envInt("DECODE_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	cacheSize, err := envInt("REGISTRY_CACHE_SIZE", 16)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SchemaPath:    os.Getenv("IMMA_SCHEMA"),
		CodeTableDir:  os.Getenv("IMMA_CODE_TABLES"),
		InputDir:      envOrDefault("INPUT_DIR", "data/incoming"),
		InputPattern:  envOrDefault("INPUT_PATTERN", "IMMA1_*"),
		PollInterval:  pollInterval,
		DecodeWorkers: workers,

		KafkaBrokers:   splitBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "decoded-marine-reports"),
		KafkaEnabled:   envOrDefault("KAFKA_ENABLED", "true") == "true",

		ProvenanceDB: envOrDefault("PROVENANCE_DB", "data/provenance.db"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		RegistryCacheSize: cacheSize,
	}

	if cfg.InputDir == "" {
		return nil, errors.New("INPUT_DIR is required")
	}
	if cfg.DecodeWorkers < 1 {
		return nil, errors.New("DECODE_WORKERS must be at least 1")
	}
	if cacheSize < 1 {
		return nil, errors.New("REGISTRY_CACHE_SIZE must be at least 1")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_ENABLED")
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func splitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
