package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"gonum.org/v1/plot"

	"github.com/couchcryptid/hotspot-etl/internal/analysis"
	"github.com/couchcryptid/hotspot-etl/internal/domain"
	"github.com/couchcryptid/hotspot-etl/internal/observability"
	"github.com/couchcryptid/hotspot-etl/internal/report"
)

// topCategories is the number of biomes and states ranked in the general
// stats and the state bar chart.
const topCategories = 10

// EDAResult lists what an analysis run produced.
type EDAResult struct {
	Findings analysis.Findings
	Tables   []string
	Charts   []string
}

// EDA reads the consolidated dataset and writes the summary tables, the
// anomaly lists and the exploratory charts, then exports the findings.
type EDA struct {
	store   DatasetStore
	tables  *report.Writer
	figures *report.Writer
	export  *exporter
	opts    analysis.AnomalyOptions
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEDA creates the analysis stage. Tables go through tables, charts
// through figures; sinks may be empty.
func NewEDA(store DatasetStore, tables, figures *report.Writer, sinks []FindingsSink, opts analysis.AnomalyOptions, logger *slog.Logger, metrics *observability.Metrics) *EDA {
	return &EDA{
		store:   store,
		tables:  tables,
		figures: figures,
		export:  newExporter(sinks, logger, metrics),
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

type namedTable struct {
	name string
	df   dataframe.DataFrame
}

// Run executes one analysis cycle.
func (e *EDA) Run(ctx context.Context) (EDAResult, error) {
	start := time.Now()

	ds, err := e.store.Read(ctx)
	if err != nil {
		return EDAResult{}, fmt.Errorf("read dataset: %w", err)
	}
	if ds.Len() == 0 {
		return EDAResult{}, ErrEmptyDataset
	}

	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID)
	logger.Info("analysis started", "rows", ds.Len(), "sources", len(ds.Sources))

	records := ds.Records
	daily := analysis.DailyCounts(records)
	byBiome := analysis.DailyCountsBy(records, analysis.ByBiome)
	total := analysis.Detect(analysis.TotalGroup, daily, e.opts)
	perBiome := analysis.DetectByGroup(byBiome, e.opts)
	generatedAt := domain.Now()

	findings := analysis.Findings{
		RunID:       runID,
		GeneratedAt: generatedAt,
		Daily:       daily,
		Total:       total,
		ByGroup:     perBiome,
		GroupField:  domain.ColBiome,
		Limit:       e.opts.Limit,
	}
	e.recordFindings(logger, findings)

	biomePivot := analysis.PivotCounts(records, analysis.BucketMonth, analysis.ByBiome)
	tables := []namedTable{
		{report.TableDailyCounts, report.DailyCountsTable(daily)},
		{report.TableMonthlyBiomePivot, report.PivotTable(biomePivot)},
		{report.TableMonthlyStatePivot, report.PivotTable(analysis.PivotCounts(records, analysis.BucketMonth, analysis.ByState))},
		{report.TableColumnSummary, report.ColumnSummaryTable(analysis.SummarizeColumns(ds))},
		{report.TableGeneralStats, report.GeneralStatsTable(analysis.General(ds, topCategories), generatedAt, findings.Results()...)},
		{report.TableTopAnomalies, report.AnomalyTable(total.Top(e.opts.Limit))},
		{report.TableBiomeAnomalies, report.GroupAnomalyTable(analysis.TopAcrossGroups(perBiome, e.opts.Limit))},
	}

	res := EDAResult{Findings: findings}
	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return EDAResult{}, err
		}
		path, err := e.tables.WriteTable(t.name, t.df)
		if err != nil {
			return EDAResult{}, err
		}
		res.Tables = append(res.Tables, path)
	}

	charts := []report.Chart{
		{Name: report.ChartDailySeries, Build: func() (*plot.Plot, error) { return report.DailySeriesChart(daily) }},
		{Name: report.ChartBiomeSeries, Build: func() (*plot.Plot, error) {
			return report.GroupSeriesChart("Monthly hotspots by biome", biomePivot)
		}},
		{Name: report.ChartBiomeBoxplot, Build: func() (*plot.Plot, error) {
			return report.GroupBoxPlot("Daily hotspots by biome", byBiome)
		}},
		{Name: report.ChartTopStates, Build: func() (*plot.Plot, error) {
			return report.RankingBarChart("Top 10 states by hotspots", analysis.ValueCounts(records, analysis.ByState, topCategories))
		}},
	}
	if err := ctx.Err(); err != nil {
		return EDAResult{}, err
	}
	res.Charts, err = e.figures.SaveCharts(charts)
	if err != nil {
		return EDAResult{}, err
	}

	if err := e.export.export(ctx, findings); err != nil {
		return EDAResult{}, err
	}

	e.metrics.StageDuration.WithLabelValues(StageEDA).Observe(time.Since(start).Seconds())
	e.metrics.LastSuccess.SetToCurrentTime()
	logger.Info("analysis complete",
		"days", len(daily),
		"anomalies", len(total.Anomalies()),
		"tables", len(res.Tables),
		"charts", len(res.Charts),
		"duration", time.Since(start),
	)
	return res, nil
}

func (e *EDA) recordFindings(logger *slog.Logger, f analysis.Findings) {
	for _, r := range f.Results() {
		if r.Degenerate {
			e.metrics.DegenerateGroups.Inc()
			logger.Warn("median absolute deviation is zero, no anomalies computable", "group", r.Group, "median", r.Median)
			continue
		}
		n := len(r.Anomalies())
		e.metrics.AnomaliesFlagged.WithLabelValues(r.Group).Add(float64(n))
		logger.Debug("anomalies detected", "group", r.Group, "flagged", n, "median", r.Median, "scale", r.Scale)
	}
}
