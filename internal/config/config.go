package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Coordinate validation profiles accepted by COORD_PROFILE.
const (
	CoordProfileBrazil = "brazil"
	CoordProfileWorld  = "world"
	CoordProfileNone   = "none"
)

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	RawDir       string
	RawPattern   string
	ProcessedDir string
	FiguresDir   string
	ParquetFile  string

	CoordProfile       string
	NormalizeCacheSize int

	AnomalyThreshold float64
	AnomalyTopN      int

	LogLevel        string
	LogFormat       string
	MetricsTextfile string

	// Optional anomaly publishing to Kafka.
	AnomalyKafkaEnabled bool
	KafkaBrokers        []string
	KafkaAnomalyTopic   string

	// Optional SQL mirror of daily counts and anomaly flags.
	SQLExportDriver string
	SQLExportDSN    string
}

// ParquetPath returns the location of the consolidated dataset.
func (c *Config) ParquetPath() string {
	return filepath.Join(c.ProcessedDir, c.ParquetFile)
}

// SQLExportEnabled reports whether a SQL mirror has been configured.
func (c *Config) SQLExportEnabled() bool {
	return c.SQLExportDriver != "" && c.SQLExportDSN != ""
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	threshold, err := parsePositiveFloat("ANOMALY_THRESHOLD", 3)
	if err != nil {
		return nil, err
	}

	topN, err := parsePositiveInt("ANOMALY_TOP_N", 50)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("NORMALIZE_CACHE_SIZE", 4096)
	if err != nil {
		return nil, err
	}

	kafkaEnabled := false
	if v := os.Getenv("ANOMALY_KAFKA_ENABLED"); v != "" {
		kafkaEnabled, err = strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("invalid ANOMALY_KAFKA_ENABLED")
		}
	}

	cfg := &Config{
		RawDir:       sharedcfg.EnvOrDefault("RAW_DIR", filepath.Join("data", "raw", "queimadas")),
		RawPattern:   sharedcfg.EnvOrDefault("RAW_PATTERN", "*.csv"),
		ProcessedDir: sharedcfg.EnvOrDefault("PROCESSED_DIR", filepath.Join("data", "processed")),
		FiguresDir:   sharedcfg.EnvOrDefault("FIGURES_DIR", "figs"),
		ParquetFile:  sharedcfg.EnvOrDefault("PARQUET_FILE", "focos_2019_2024.parquet"),

		CoordProfile:       strings.ToLower(sharedcfg.EnvOrDefault("COORD_PROFILE", CoordProfileBrazil)),
		NormalizeCacheSize: cacheSize,

		AnomalyThreshold: threshold,
		AnomalyTopN:      topN,

		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),

		AnomalyKafkaEnabled: kafkaEnabled,
		KafkaBrokers:        sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAnomalyTopic:   sharedcfg.EnvOrDefault("KAFKA_ANOMALY_TOPIC", "hotspot-anomalies"),

		SQLExportDriver: os.Getenv("SQL_EXPORT_DRIVER"),
		SQLExportDSN:    os.Getenv("SQL_EXPORT_DSN"),
	}

	switch cfg.CoordProfile {
	case CoordProfileBrazil, CoordProfileWorld, CoordProfileNone:
	default:
		return nil, fmt.Errorf("invalid COORD_PROFILE %q: must be brazil, world or none", cfg.CoordProfile)
	}
	if cfg.AnomalyKafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when ANOMALY_KAFKA_ENABLED is true")
		}
		if cfg.KafkaAnomalyTopic == "" {
			return nil, errors.New("KAFKA_ANOMALY_TOPIC is required when ANOMALY_KAFKA_ENABLED is true")
		}
	}
	if (cfg.SQLExportDriver == "") != (cfg.SQLExportDSN == "") {
		return nil, errors.New("SQL_EXPORT_DRIVER and SQL_EXPORT_DSN must be set together")
	}
	switch cfg.SQLExportDriver {
	case "", "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("invalid SQL_EXPORT_DRIVER %q: must be sqlite or postgres", cfg.SQLExportDriver)
	}

	return cfg, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parsePositiveFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive number", key)
	}
	return f, nil
}
