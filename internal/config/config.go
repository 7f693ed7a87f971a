package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataPaths       []string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Dataset cache and file watching.
	CacheSize    int
	WatchEnabled bool

	// Domain constants overlay.
	ConstantsFile   string
	PeakHourStation string

	// Optional publishing of rendered views.
	KafkaBrokers   []string
	KafkaViewTopic string
	KafkaEnabled   bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseCacheSize()
	if err != nil {
		return nil, err
	}

	watchEnabled, err := parseBool("WATCH_ENABLED", true)
	if err != nil {
		return nil, err
	}

	brokers := sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", len(brokers) > 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataPaths:       splitList(sharedcfg.EnvOrDefault("DATA_PATHS", "data")),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CacheSize:    cacheSize,
		WatchEnabled: watchEnabled,

		ConstantsFile:   os.Getenv("CONSTANTS_FILE"),
		PeakHourStation: os.Getenv("PEAK_HOUR_STATION"),

		KafkaBrokers:   brokers,
		KafkaViewTopic: sharedcfg.EnvOrDefault("KAFKA_VIEW_TOPIC", "air-quality-views"),
		KafkaEnabled:   kafkaEnabled,
	}

	if len(cfg.DataPaths) == 0 {
		return nil, errors.New("DATA_PATHS is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

// splitList splits a comma-separated list, trimming spaces and dropping
// empty entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseCacheSize() (int, error) {
	s := os.Getenv("CACHE_SIZE")
	if s == "" {
		return 4, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, errors.New("invalid CACHE_SIZE: must be a positive integer")
	}
	return n, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.New("invalid " + key + ": must be true or false")
	}
	return v, nil
}
