package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/plot"

	"github.com/couchcryptid/hotspot-etl/internal/analysis"
	"github.com/couchcryptid/hotspot-etl/internal/domain"
	"github.com/couchcryptid/hotspot-etl/internal/observability"
	"github.com/couchcryptid/hotspot-etl/internal/report"
)

// Storytelling defaults.
var (
	// HighlightYears are the drought years called out on the anomaly timeline.
	HighlightYears = []int{2020, 2024}

	// EnvelopeBiomes get a seasonal envelope chart each.
	EnvelopeBiomes = []string{"Amazônia", "Cerrado", "Caatinga", "Mata Atlântica"}

	// ScatterBiomes are plotted on the per-biome z-score scatter.
	ScatterBiomes = []string{"Amazônia", "Cerrado", "Caatinga", "Mata Atlântica", "Pantanal", "Pampa"}
)

// topMunicipalities is the length of the municipality ranking.
const topMunicipalities = 15

// StorytellingResult lists what a storytelling run produced.
type StorytellingResult struct {
	Tables []string
	Charts []string
}

// Storytelling renders the narrative charts from the consolidated dataset.
type Storytelling struct {
	store   DatasetStore
	tables  *report.Writer
	figures *report.Writer
	opts    analysis.AnomalyOptions
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewStorytelling creates the storytelling stage.
func NewStorytelling(store DatasetStore, tables, figures *report.Writer, opts analysis.AnomalyOptions, logger *slog.Logger, metrics *observability.Metrics) *Storytelling {
	return &Storytelling{
		store:   store,
		tables:  tables,
		figures: figures,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// Run renders the anomaly timeline, the seasonal envelopes, the month by
// year heatmap, the municipality ranking and the per-biome z-score scatter.
// Charts without data are skipped.
func (s *Storytelling) Run(ctx context.Context) (StorytellingResult, error) {
	start := time.Now()

	ds, err := s.store.Read(ctx)
	if err != nil {
		return StorytellingResult{}, fmt.Errorf("read dataset: %w", err)
	}
	if ds.Len() == 0 {
		return StorytellingResult{}, ErrEmptyDataset
	}
	records := ds.Records
	s.logger.Info("storytelling started", "rows", ds.Len())

	daily := analysis.DailyCounts(records)
	total := analysis.Detect(analysis.TotalGroup, daily, s.opts)
	ranking := analysis.RankMunicipalities(records, topMunicipalities)

	byBiome := analysis.DailyCountsBy(records, analysis.ByBiome)
	selected := make(map[string][]analysis.DayCount, len(ScatterBiomes))
	for _, b := range ScatterBiomes {
		if counts, ok := byBiome[b]; ok {
			selected[b] = counts
		}
	}
	perBiome := analysis.DetectByGroup(selected, s.opts)

	charts := []report.Chart{
		{Name: report.ChartAnomalyTimeline, Build: func() (*plot.Plot, error) {
			return report.AnomalyTimelineChart(daily, total, HighlightYears)
		}},
	}
	for _, biome := range EnvelopeBiomes {
		season := analysis.MonthlySeasonality(records, analysis.ByBiome, biome)
		charts = append(charts, report.Chart{
			Name:  report.ChartEnvelopePrefix + domain.Slug(biome),
			Build: func() (*plot.Plot, error) { return report.SeasonalEnvelopeChart(season) },
		})
	}
	charts = append(charts,
		report.Chart{Name: report.ChartHeatmap, Build: func() (*plot.Plot, error) {
			return report.HeatmapChart(analysis.CountMonthYear(records))
		}}.Square(),
		report.Chart{Name: report.ChartMunicipalityRank, Build: func() (*plot.Plot, error) {
			return report.MunicipalityRankingChart(ranking)
		}},
		report.Chart{Name: report.ChartBiomeAnomalies, Build: func() (*plot.Plot, error) {
			return report.GroupScoreScatter(perBiome)
		}},
	)

	var res StorytellingResult
	if err := ctx.Err(); err != nil {
		return StorytellingResult{}, err
	}
	res.Charts, err = s.figures.SaveCharts(charts)
	if err != nil {
		return StorytellingResult{}, err
	}

	if len(ranking) > 0 {
		path, err := s.tables.WriteTable(report.TableMunicipalityRank, report.MunicipalityRankingTable(ranking))
		if err != nil {
			return StorytellingResult{}, err
		}
		res.Tables = append(res.Tables, path)
	}

	s.metrics.StageDuration.WithLabelValues(StageStorytelling).Observe(time.Since(start).Seconds())
	s.metrics.LastSuccess.SetToCurrentTime()
	s.logger.Info("storytelling complete", "charts", len(res.Charts), "duration", time.Since(start))
	return res, nil
}
