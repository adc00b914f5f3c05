// Command eda reads the consolidated hotspot dataset and writes the summary
// tables, the anomaly lists and the exploratory charts. Flagged days are
// optionally published to Kafka and mirrored into a SQL database.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	kafkaadapter "github.com/couchcryptid/hotspot-etl/internal/adapter/kafka"
	"github.com/couchcryptid/hotspot-etl/internal/adapter/parquet"
	"github.com/couchcryptid/hotspot-etl/internal/adapter/sqlstore"
	"github.com/couchcryptid/hotspot-etl/internal/analysis"
	"github.com/couchcryptid/hotspot-etl/internal/config"
	"github.com/couchcryptid/hotspot-etl/internal/observability"
	"github.com/couchcryptid/hotspot-etl/internal/pipeline"
	"github.com/couchcryptid/hotspot-etl/internal/report"
)

func main() {
	// A missing .env is fine; the environment alone is enough.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := run(ctx, cfg, logger, metrics)
	if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Error("metrics textfile write error", "error", err)
	}
	if runErr != nil {
		logger.Error("eda failed", "error", runErr)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	sinks, err := openSinks(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range sinks {
			if err := s.Close(); err != nil {
				logger.Error("sink close error", "sink", s.Name(), "error", err)
			}
		}
	}()

	e := pipeline.NewEDA(
		parquet.NewStore(cfg.ParquetPath()),
		report.NewWriter(cfg.ProcessedDir, logger, metrics),
		report.NewWriter(cfg.FiguresDir, logger, metrics),
		sinks,
		analysis.AnomalyOptions{Threshold: cfg.AnomalyThreshold, Limit: cfg.AnomalyTopN},
		logger, metrics,
	)
	_, err = e.Run(ctx)
	return err
}

// openSinks connects the optional findings sinks (feature-flagged via
// ANOMALY_KAFKA_ENABLED and SQL_EXPORT_DRIVER / SQL_EXPORT_DSN).
func openSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]pipeline.FindingsSink, error) {
	var sinks []pipeline.FindingsSink
	if cfg.AnomalyKafkaEnabled {
		sinks = append(sinks, kafkaadapter.NewWriter(cfg, logger))
		logger.Info("kafka anomaly publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAnomalyTopic)
	} else {
		logger.Info("kafka anomaly publishing disabled")
	}

	if cfg.SQLExportEnabled() {
		store, err := sqlstore.Open(ctx, cfg.SQLExportDriver, cfg.SQLExportDSN, logger)
		if err != nil {
			for _, s := range sinks {
				_ = s.Close()
			}
			return nil, err
		}
		sinks = append(sinks, store)
		logger.Info("sql export enabled", "driver", cfg.SQLExportDriver)
	}
	return sinks, nil
}
