package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// DefaultTopologyURL is the Natural Earth 1:110m country topology.
const DefaultTopologyURL = "https://cdn.jsdelivr.net/npm/world-atlas@2/countries-110m.json"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Climate API.
	APIBaseURL string
	APITimeout time.Duration

	// World topology; TopologyFile wins over TopologyURL when set.
	TopologyURL    string
	TopologyFile   string
	TopologyObject string

	// Map defaults.
	DefaultMetric     string
	DefaultYear       int
	MapWidth          int
	MapHeight         int
	ResolverCacheSize int

	// Snapshot publishing.
	SnapshotEnabled    bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
// Variables from ENV_FILE (default .env) are applied first without overriding
// the process environment; a missing file is not an error.
func Load() (*Config, error) {
	if err := loadEnvFile(sharedcfg.EnvOrDefault("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	apiTimeout, err := parseDuration("API_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	defaultYear, err := parsePositiveInt("DEFAULT_YEAR", 2023)
	if err != nil {
		return nil, err
	}
	width, err := parsePositiveInt("MAP_WIDTH", 960)
	if err != nil {
		return nil, err
	}
	height, err := parsePositiveInt("MAP_HEIGHT", 500)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("RESOLVER_CACHE_SIZE", 512)
	if err != nil {
		return nil, err
	}

	snapshotEnabled, err := parseBool("SNAPSHOT_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		APIBaseURL: strings.TrimRight(sharedcfg.EnvOrDefault("API_BASE_URL", "http://localhost:5000"), "/"),
		APITimeout: apiTimeout,

		TopologyURL:    sharedcfg.EnvOrDefault("TOPOLOGY_URL", DefaultTopologyURL),
		TopologyFile:   os.Getenv("TOPOLOGY_FILE"),
		TopologyObject: sharedcfg.EnvOrDefault("TOPOLOGY_OBJECT", "countries"),

		DefaultMetric:     strings.ToLower(sharedcfg.EnvOrDefault("DEFAULT_METRIC", "co2")),
		DefaultYear:       defaultYear,
		MapWidth:          width,
		MapHeight:         height,
		ResolverCacheSize: cacheSize,

		SnapshotEnabled:    snapshotEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic: sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "climate-map-snapshots"),
	}

	if cfg.APIBaseURL == "" {
		return nil, errors.New("API_BASE_URL is required")
	}
	if cfg.TopologyURL == "" && cfg.TopologyFile == "" {
		return nil, errors.New("TOPOLOGY_URL or TOPOLOGY_FILE is required")
	}
	if cfg.SnapshotEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when SNAPSHOT_ENABLED is true")
		}
		if cfg.KafkaSnapshotTopic == "" {
			return nil, errors.New("KAFKA_SNAPSHOT_TOPIC is required when SNAPSHOT_ENABLED is true")
		}
	}

	return cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load ENV_FILE %s: %w", path, err)
	}
	return nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, s)
	}
	return b, nil
}
