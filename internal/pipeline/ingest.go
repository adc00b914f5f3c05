package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/hotspot-etl/internal/domain"
	"github.com/couchcryptid/hotspot-etl/internal/observability"
)

// SourceReader lists and decodes the raw source files.
type SourceReader interface {
	List(dir, pattern string) ([]string, error)
	ReadFile(path string) (domain.RawTable, error)
}

// DatasetStore persists the consolidated dataset between stages.
type DatasetStore interface {
	Write(ctx context.Context, ds domain.Dataset) error
	Read(ctx context.Context) (domain.Dataset, error)
}

// IngestResult summarizes one ingest run.
type IngestResult struct {
	Files   int
	Stats   domain.CleanStats
	Dataset domain.Dataset
}

// Ingest consolidates the raw CSV directory into the dataset store.
type Ingest struct {
	source  SourceReader
	cleaner *domain.Cleaner
	store   DatasetStore
	dir     string
	pattern string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewIngest creates the ingest stage for the files in dir matching pattern.
func NewIngest(source SourceReader, cleaner *domain.Cleaner, store DatasetStore, dir, pattern string, logger *slog.Logger, metrics *observability.Metrics) *Ingest {
	return &Ingest{
		source:  source,
		cleaner: cleaner,
		store:   store,
		dir:     dir,
		pattern: pattern,
		logger:  logger,
		metrics: metrics,
	}
}

// Run reads every source file in name order, resolves its columns, cleans
// its rows and writes the concatenation to the store. A file without a date
// column or without a single parseable date aborts the run.
func (in *Ingest) Run(ctx context.Context) (IngestResult, error) {
	start := time.Now()

	paths, err := in.source.List(in.dir, in.pattern)
	if err != nil {
		return IngestResult{}, err
	}
	in.logger.Info("ingest started", "dir", in.dir, "pattern", in.pattern, "files", len(paths))

	var res IngestResult
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return IngestResult{}, err
		}
		if err := in.ingestFile(path, &res); err != nil {
			return IngestResult{}, err
		}
	}

	if err := in.store.Write(ctx, res.Dataset); err != nil {
		return IngestResult{}, fmt.Errorf("write dataset: %w", err)
	}

	in.metrics.RowsWritten.Add(float64(res.Dataset.Len()))
	in.metrics.ArtifactsWritten.WithLabelValues(ArtifactParquet).Inc()
	in.metrics.StageDuration.WithLabelValues(StageIngest).Observe(time.Since(start).Seconds())
	in.metrics.LastSuccess.SetToCurrentTime()

	in.logger.Info("ingest complete",
		"files", res.Files,
		"rows_in", res.Stats.Input,
		"rows_out", res.Stats.Kept,
		"invalid_dates", res.Stats.InvalidDates,
		"invalid_coordinates", res.Stats.InvalidCoords,
		"extra_columns", len(res.Dataset.ExtraColumns),
		"duration", time.Since(start),
	)
	return res, nil
}

func (in *Ingest) ingestFile(path string, res *IngestResult) error {
	table, err := in.source.ReadFile(path)
	if err != nil {
		return err
	}
	in.metrics.FilesRead.WithLabelValues(table.Encoding).Inc()
	in.metrics.RowsRead.WithLabelValues(table.Source).Add(float64(len(table.Records)))

	cm, err := domain.ResolveColumns(table.Header)
	if err != nil {
		return fmt.Errorf("%s: %w", table.Source, err)
	}

	records, extras, stats, err := in.cleaner.Clean(table, cm)
	if err != nil {
		return err
	}
	in.metrics.RowsDropped.WithLabelValues(observability.DropInvalidDate).Add(float64(stats.InvalidDates))
	in.metrics.RowsDropped.WithLabelValues(observability.DropInvalidCoord).Add(float64(stats.InvalidCoords))
	if stats.InvalidDates > 0 || stats.InvalidCoords > 0 {
		in.logger.Warn("rows dropped during cleaning",
			"source", table.Source,
			"invalid_dates", stats.InvalidDates,
			"invalid_coordinates", stats.InvalidCoords,
			"kept", stats.Kept,
		)
	}
	if !cm.HasCoordinates() {
		in.logger.Debug("no coordinate columns, skipping bounds check", "source", table.Source)
	}

	res.Dataset.Append(table.Source, records, extras)
	res.Stats.Add(stats)
	res.Files++
	return nil
}
