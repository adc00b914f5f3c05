// Package pipeline runs the batch stages: ingest raw CSVs into the
// consolidated dataset, then analyse and report on it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/hotspot-etl/internal/analysis"
	"github.com/couchcryptid/hotspot-etl/internal/observability"
)

// Stage names used as the "stage" metric label.
const (
	StageIngest       = "ingest"
	StageEDA          = "eda"
	StageStorytelling = "storytelling"
)

// ArtifactParquet labels the consolidated dataset in ArtifactsWritten.
const ArtifactParquet = "parquet"

// ErrEmptyDataset means the consolidated dataset holds no records to analyse.
var ErrEmptyDataset = errors.New("dataset has no records")

// FindingsSink receives the anomaly findings of an analysis run.
type FindingsSink interface {
	Name() string
	Export(ctx context.Context, f analysis.Findings) error
	Close() error
}

const (
	exportAttempts   = 3
	exportBackoff    = 200 * time.Millisecond
	exportMaxBackoff = 5 * time.Second
)

// exporter delivers findings to every sink, retrying each with exponential
// backoff. A sink that keeps failing fails the run.
type exporter struct {
	sinks      []FindingsSink
	logger     *slog.Logger
	metrics    *observability.Metrics
	attempts   int
	backoff    time.Duration
	maxBackoff time.Duration
}

func newExporter(sinks []FindingsSink, logger *slog.Logger, metrics *observability.Metrics) *exporter {
	return &exporter{
		sinks:      sinks,
		logger:     logger,
		metrics:    metrics,
		attempts:   exportAttempts,
		backoff:    exportBackoff,
		maxBackoff: exportMaxBackoff,
	}
}

func (e *exporter) export(ctx context.Context, f analysis.Findings) error {
	for _, s := range e.sinks {
		if err := e.exportTo(ctx, s, f); err != nil {
			return err
		}
		e.metrics.ArtifactsWritten.WithLabelValues(s.Name()).Inc()
	}
	return nil
}

func (e *exporter) exportTo(ctx context.Context, s FindingsSink, f analysis.Findings) error {
	backoff := e.backoff
	var err error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		if err = s.Export(ctx, f); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger.Warn("export failed", "sink", s.Name(), "attempt", attempt, "error", err)
		if attempt == e.attempts || !sleepWithContext(ctx, backoff) {
			break
		}
		backoff = nextBackoff(backoff, e.maxBackoff)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("export to %s: %w", s.Name(), err)
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
