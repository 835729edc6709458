package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Report sources.
const (
	SourceAPI   = "api"
	SourceKafka = "kafka"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// ReportSource selects where report lists come from: "api" or "kafka".
	ReportSource string

	// Photo API (the report list store).
	PhotoAPIURL          string
	PhotoAPITimeout      time.Duration
	PhotoAPIPollInterval time.Duration
	PhotoAPILimit        int
	PhotoAPIDescription  string

	KafkaBrokers         []string
	KafkaReportsTopic    string
	KafkaSelectionsTopic string
	KafkaGroupID         string
	SelectionsPublish    bool

	// Thumbnail availability checks.
	ImageCheckEnabled   bool
	ImageCheckTimeout   time.Duration
	ImageCheckCacheSize int

	TilePrefetchEnabled bool

	// MapProfile names an optional YAML file overriding the built-in profile.
	MapProfile string
	MapStrict  bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	apiTimeout, err := parsePositiveDuration("PHOTO_API_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	pollInterval, err := parsePositiveDuration("PHOTO_API_POLL_INTERVAL", "30s")
	if err != nil {
		return nil, err
	}
	imageTimeout, err := parsePositiveDuration("IMAGE_CHECK_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	limit, err := parsePhotoLimit()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ReportSource: sharedcfg.EnvOrDefault("REPORT_SOURCE", SourceAPI),

		PhotoAPIURL:          sharedcfg.EnvOrDefault("PHOTO_API_URL", "http://localhost:8000/api/v1"),
		PhotoAPITimeout:      apiTimeout,
		PhotoAPIPollInterval: pollInterval,
		PhotoAPILimit:        limit,
		PhotoAPIDescription:  os.Getenv("PHOTO_API_DESCRIPTION"),

		KafkaBrokers:         sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaReportsTopic:    sharedcfg.EnvOrDefault("KAFKA_REPORTS_TOPIC", "report-list-snapshots"),
		KafkaSelectionsTopic: sharedcfg.EnvOrDefault("KAFKA_SELECTIONS_TOPIC", "report-selections"),
		KafkaGroupID:         sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "dirty-nairobi-map"),
		SelectionsPublish:    os.Getenv("SELECTIONS_PUBLISH") == "true",

		ImageCheckEnabled:   os.Getenv("IMAGE_CHECK_ENABLED") == "true",
		ImageCheckTimeout:   imageTimeout,
		ImageCheckCacheSize: parseImageCacheSize(),

		TilePrefetchEnabled: os.Getenv("TILE_PREFETCH_ENABLED") == "true",

		MapProfile: os.Getenv("MAP_PROFILE"),
		MapStrict:  os.Getenv("MAP_STRICT") == "true",
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// KafkaRequired reports whether any enabled component talks to Kafka.
func (c *Config) KafkaRequired() bool {
	return c.ReportSource == SourceKafka || c.SelectionsPublish
}

func (c *Config) validate() error {
	switch c.ReportSource {
	case SourceAPI:
		u, err := url.Parse(c.PhotoAPIURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("PHOTO_API_URL must be an absolute URL")
		}
	case SourceKafka:
		if c.KafkaReportsTopic == "" {
			return errors.New("KAFKA_REPORTS_TOPIC is required")
		}
		if c.KafkaGroupID == "" {
			return errors.New("KAFKA_GROUP_ID is required")
		}
	default:
		return fmt.Errorf("invalid REPORT_SOURCE %q: want %q or %q", c.ReportSource, SourceAPI, SourceKafka)
	}

	if c.KafkaRequired() && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if c.SelectionsPublish && c.KafkaSelectionsTopic == "" {
		return errors.New("SELECTIONS_PUBLISH is true but KAFKA_SELECTIONS_TOPIC is not set")
	}
	return nil
}

func parsePositiveDuration(name, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parsePhotoLimit() (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault("PHOTO_API_LIMIT", "100"))
	if err != nil || n < 1 || n > 1000 {
		return 0, errors.New("invalid PHOTO_API_LIMIT: must be 1..1000")
	}
	return n, nil
}

func parseImageCacheSize() int {
	if s := os.Getenv("IMAGE_CHECK_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
