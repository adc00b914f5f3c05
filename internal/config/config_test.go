package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("data", "raw", "queimadas"), cfg.RawDir)
	assert.Equal(t, "*.csv", cfg.RawPattern)
	assert.Equal(t, filepath.Join("data", "processed"), cfg.ProcessedDir)
	assert.Equal(t, "figs", cfg.FiguresDir)
	assert.Equal(t, "focos_2019_2024.parquet", cfg.ParquetFile)
	assert.Equal(t, CoordProfileBrazil, cfg.CoordProfile)
	assert.Equal(t, 4096, cfg.NormalizeCacheSize)
	assert.InDelta(t, 3.0, cfg.AnomalyThreshold, 1e-9)
	assert.Equal(t, 50, cfg.AnomalyTopN)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.MetricsTextfile)
	assert.False(t, cfg.AnomalyKafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "hotspot-anomalies", cfg.KafkaAnomalyTopic)
	assert.False(t, cfg.SQLExportEnabled())
	assert.Equal(t, filepath.Join("data", "processed", "focos_2019_2024.parquet"), cfg.ParquetPath())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("RAW_DIR", "/in")
	t.Setenv("RAW_PATTERN", "focos_*.csv")
	t.Setenv("PROCESSED_DIR", "/out")
	t.Setenv("FIGURES_DIR", "/figs")
	t.Setenv("PARQUET_FILE", "all.parquet")
	t.Setenv("COORD_PROFILE", "WORLD")
	t.Setenv("NORMALIZE_CACHE_SIZE", "128")
	t.Setenv("ANOMALY_THRESHOLD", "2.5")
	t.Setenv("ANOMALY_TOP_N", "10")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("METRICS_TEXTFILE", "/metrics/hotspot.prom")
	t.Setenv("ANOMALY_KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_ANOMALY_TOPIC", "custom-anomalies")
	t.Setenv("SQL_EXPORT_DRIVER", "sqlite")
	t.Setenv("SQL_EXPORT_DSN", "file:report.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/in", cfg.RawDir)
	assert.Equal(t, "focos_*.csv", cfg.RawPattern)
	assert.Equal(t, "/out", cfg.ProcessedDir)
	assert.Equal(t, "/figs", cfg.FiguresDir)
	assert.Equal(t, filepath.Join("/out", "all.parquet"), cfg.ParquetPath())
	assert.Equal(t, CoordProfileWorld, cfg.CoordProfile)
	assert.Equal(t, 128, cfg.NormalizeCacheSize)
	assert.InDelta(t, 2.5, cfg.AnomalyThreshold, 1e-9)
	assert.Equal(t, 10, cfg.AnomalyTopN)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "/metrics/hotspot.prom", cfg.MetricsTextfile)
	assert.True(t, cfg.AnomalyKafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-anomalies", cfg.KafkaAnomalyTopic)
	assert.True(t, cfg.SQLExportEnabled())
	assert.Equal(t, "sqlite", cfg.SQLExportDriver)
	assert.Equal(t, "file:report.db", cfg.SQLExportDSN)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "threshold not a number", key: "ANOMALY_THRESHOLD", value: "abc", wantErr: "ANOMALY_THRESHOLD"},
		{name: "threshold negative", key: "ANOMALY_THRESHOLD", value: "-1", wantErr: "ANOMALY_THRESHOLD"},
		{name: "top n zero", key: "ANOMALY_TOP_N", value: "0", wantErr: "ANOMALY_TOP_N"},
		{name: "cache size text", key: "NORMALIZE_CACHE_SIZE", value: "big", wantErr: "NORMALIZE_CACHE_SIZE"},
		{name: "unknown profile", key: "COORD_PROFILE", value: "mars", wantErr: "COORD_PROFILE"},
		{name: "kafka flag", key: "ANOMALY_KAFKA_ENABLED", value: "maybe", wantErr: "ANOMALY_KAFKA_ENABLED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("ANOMALY_KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", ", ,")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_SQLExportNeedsBothSettings(t *testing.T) {
	t.Setenv("SQL_EXPORT_DRIVER", "postgres")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SQL_EXPORT_DSN")
}

func TestLoad_UnknownSQLDriver(t *testing.T) {
	t.Setenv("SQL_EXPORT_DRIVER", "oracle")
	t.Setenv("SQL_EXPORT_DSN", "x")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SQL_EXPORT_DRIVER")
}
