// Command storytelling renders the narrative charts from the consolidated
// hotspot dataset: the anomaly timeline, the seasonal envelopes, the month by
// year heatmap, the municipality ranking and the per-biome z-score scatter.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/hotspot-etl/internal/adapter/parquet"
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

	s := pipeline.NewStorytelling(
		parquet.NewStore(cfg.ParquetPath()),
		report.NewWriter(cfg.ProcessedDir, logger, metrics),
		report.NewWriter(cfg.FiguresDir, logger, metrics),
		analysis.AnomalyOptions{Threshold: cfg.AnomalyThreshold, Limit: cfg.AnomalyTopN},
		logger, metrics,
	)
	_, runErr := s.Run(ctx)

	if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Error("metrics textfile write error", "error", err)
	}
	if runErr != nil {
		logger.Error("storytelling failed", "error", runErr)
		os.Exit(1)
	}
}
