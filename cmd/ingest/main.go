// Command ingest consolidates the yearly hotspot CSV exports under RAW_DIR
// into a single snappy-compressed Parquet file under PROCESSED_DIR.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/hotspot-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/hotspot-etl/internal/adapter/parquet"
	"github.com/couchcryptid/hotspot-etl/internal/config"
	"github.com/couchcryptid/hotspot-etl/internal/domain"
	"github.com/couchcryptid/hotspot-etl/internal/observability"
	"github.com/couchcryptid/hotspot-etl/internal/pipeline"
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
		logger.Error("ingest failed", "error", runErr)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	bounds, err := domain.BoundsForProfile(cfg.CoordProfile)
	if err != nil {
		return err
	}
	text, err := domain.NewTextNormalizer(cfg.NormalizeCacheSize)
	if err != nil {
		return err
	}
	if bounds != nil {
		logger.Info("coordinate validation enabled", "profile", bounds.Name,
			"lat_min", bounds.LatMin, "lat_max", bounds.LatMax, "lon_min", bounds.LonMin, "lon_max", bounds.LonMax)
	} else {
		logger.Info("coordinate validation disabled")
	}

	in := pipeline.NewIngest(
		csvsource.NewReader(logger),
		domain.NewCleaner(bounds, text),
		parquet.NewStore(cfg.ParquetPath()),
		cfg.RawDir, cfg.RawPattern,
		logger, metrics,
	)
	res, err := in.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("dataset written", "path", cfg.ParquetPath(), "rows", res.Dataset.Len(), "files", res.Files)
	return nil
}
