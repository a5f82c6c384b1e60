package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	// Region boundaries and classification tables.
	RegionsDir string
	ScalesFile string

	// Object store CSV proxy.
	ObjectStoreURL     string
	ObjectStoreTimeout time.Duration
	ObjectStoreRate    float64
	CSVCacheTTL        time.Duration
	CSVCacheSize       int

	// Styled feature sink.
	KafkaBrokers   []string
	KafkaSinkTopic string
	BatchSize      int
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is loaded first if
// present; variables already set in the environment win.
func Load() (*Config, error) {
	if err := loadDotEnv(sharedcfg.EnvOrDefault("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	storeTimeout, err := parsePositiveDuration("OBJECT_STORE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parsePositiveDuration("CSV_CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseCacheSize()
	if err != nil {
		return nil, err
	}

	storeRate, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("OBJECT_STORE_RATE", "20"), 64)
	if err != nil || storeRate <= 0 {
		return nil, errors.New("invalid OBJECT_STORE_RATE")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		CORSOrigins:     splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		RegionsDir: sharedcfg.EnvOrDefault("REGIONS_DIR", "data/regions"),
		ScalesFile: os.Getenv("SCALES_FILE"),

		ObjectStoreURL:     sharedcfg.EnvOrDefault("OBJECT_STORE_URL", "https://zimbabwe-csv-data.s3.eu-north-1.amazonaws.com"),
		ObjectStoreTimeout: storeTimeout,
		ObjectStoreRate:    storeRate,
		CSVCacheTTL:        cacheTTL,
		CSVCacheSize:       cacheSize,

		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "styled-region-features"),
		BatchSize:      batchSize,
	}

	if cfg.RegionsDir == "" {
		return nil, errors.New("REGIONS_DIR is required")
	}
	if u, err := url.Parse(cfg.ObjectStoreURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid OBJECT_STORE_URL %q", cfg.ObjectStoreURL)
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseCacheSize() (int, error) {
	s := os.Getenv("CSV_CACHE_SIZE")
	if s == "" {
		return 64, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid CSV_CACHE_SIZE")
	}
	return n, nil
}
