// Package report renders analysis results as CSV tables and PNG charts.
package report

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/couchcryptid/hotspot-etl/internal/observability"
)

// Artifact kinds recorded in metrics.
const (
	KindTable = "table"
	KindChart = "chart"
)

// Writer saves tables and charts under a directory.
type Writer struct {
	dir     string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Writer rooted at dir. metrics may be nil.
func NewWriter(dir string, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	return &Writer{dir: dir, logger: logger, metrics: metrics}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// WriteTable writes df to <dir>/<name>.csv and returns the path.
func (w *Writer) WriteTable(name string, df dataframe.DataFrame) (path string, err error) {
	if err := tableError(name, df); err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", w.dir, err)
	}

	path = filepath.Join(w.dir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if err := df.WriteCSV(f); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	w.record(KindTable, path, "rows", df.Nrow())
	return path, nil
}

// SaveChart renders p as <dir>/<name>.png.
func (w *Writer) SaveChart(name string, p *plot.Plot, width, height vg.Length) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", w.dir, err)
	}
	path := filepath.Join(w.dir, name+".png")
	if err := p.Save(width, height, path); err != nil {
		return "", fmt.Errorf("save chart %s: %w", path, err)
	}
	w.record(KindChart, path)
	return path, nil
}

// SaveCharts renders every chart, skipping the ones that
// have no data.
func (w *Writer) SaveCharts(charts []Chart) ([]string, error) {
	var paths []string
	for _, c := range charts {
		p, err := c.Build()
		if errors.Is(err, ErrNoData) {
			w.logger.Warn("chart skipped, no data", "chart", c.Name)
			continue
		}
		if err != nil {
			return paths, fmt.Errorf("build chart %s: %w", c.Name, err)
		}
		width, height := c.Width, c.Height
		if width == 0 {
			width, height = wide, standard
		}
		path, err := w.SaveChart(c.Name, p, width, height)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (w *Writer) record(kind, path string, attrs ...any) {
	if w.metrics != nil {
		w.metrics.ArtifactsWritten.WithLabelValues(kind).Inc()
	}
	w.logger.Info(kind+" written", append([]any{"path", path}, attrs...)...)
}
