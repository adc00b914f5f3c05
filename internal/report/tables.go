package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/hotspot-etl/internal/analysis"
	"github.com/couchcryptid/hotspot-etl/internal/domain"
)

const dayLayout = "2006-01-02"

// Table file names.
const (
	TableDailyCounts       = "daily_counts"
	TableMonthlyBiomePivot = "monthly_biome_pivot"
	TableMonthlyStatePivot = "monthly_state_pivot"
	TableColumnSummary     = "column_summary"
	TableGeneralStats      = "general_stats"
	TableTopAnomalies      = "top_anomalies"
	TableBiomeAnomalies    = "biome_anomalies"
	TableMunicipalityRank  = "municipality_ranking"
)

// DailyCountsTable has one row per day: day, count.
func DailyCountsTable(counts []analysis.DayCount) dataframe.DataFrame {
	days := make([]string, len(counts))
	n := make([]int, len(counts))
	for i, c := range counts {
		days[i] = c.Day.Format(dayLayout)
		n[i] = c.Count
	}
	return dataframe.New(
		series.New(days, series.String, "day"),
		series.New(n, series.Int, "count"),
	)
}

// PivotTable has one row per time bucket and one count column per group.
func PivotTable(p analysis.Pivot) dataframe.DataFrame {
	layout := dayLayout
	if p.Bucket == analysis.BucketMonth {
		layout = "2006-01"
	}
	rows := make([]string, len(p.Rows))
	for i, r := range p.Rows {
		rows[i] = r.Format(layout)
	}

	cols := make([]series.Series, 0, len(p.Columns)+1)
	cols = append(cols, series.New(rows, series.String, p.Bucket.String()))
	for j, name := range p.Columns {
		values := make([]int, len(p.Rows))
		for i := range p.Rows {
			values[i] = p.Counts[i][j]
		}
		cols = append(cols, series.New(values, series.Int, name))
	}
	return dataframe.New(cols...)
}

// ColumnSummaryTable reports missingness and cardinality per column. Min
// and max are blank for non-numeric columns.
func ColumnSummaryTable(summaries []analysis.ColumnSummary) dataframe.DataFrame {
	n := len(summaries)
	var (
		names    = make([]string, n)
		types    = make([]string, n)
		missing  = make([]int, n)
		pct      = make([]float64, n)
		distinct = make([]int, n)
		mins     = make([]string, n)
		maxs     = make([]string, n)
	)
	for i, s := range summaries {
		names[i] = s.Column
		types[i] = s.Type
		missing[i] = s.Missing
		pct[i] = s.MissingPct
		distinct[i] = s.Distinct
		if s.Numeric && s.Distinct > 0 {
			mins[i] = formatFloat(s.Min)
			maxs[i] = formatFloat(s.Max)
		}
	}
	return dataframe.New(
		series.New(names, series.String, "column"),
		series.New(types, series.String, "type"),
		series.New(missing, series.Int, "n_missing"),
		series.New(pct, series.Float, "pct_missing"),
		series.New(distinct, series.Int, "n_unique"),
		series.New(mins, series.String, "min"),
		series.New(maxs, series.String, "max"),
	)
}

// DegenerateLabel marks an anomaly result whose MAD is zero.
const DegenerateLabel = "degenerate: MAD is zero, no anomalies computable"

// GeneralStatsTable lists the headline figures as metric/value rows. Each
// anomaly result adds an anomalies_<group> row holding its flagged-day count
// or DegenerateLabel.
func GeneralStatsTable(g analysis.GeneralStats, generatedAt time.Time, results ...analysis.AnomalyResult) dataframe.DataFrame {
	var metrics, values []string
	add := func(k, v string) {
		metrics = append(metrics, k)
		values = append(values, v)
	}

	add("generated_at", generatedAt.UTC().Format(time.RFC3339))
	add("total", strconv.Itoa(g.Total))
	years := make([]string, len(g.Years))
	for i, y := range g.Years {
		years[i] = strconv.Itoa(y)
	}
	add("years", strings.Join(years, ","))
	if g.Total > 0 {
		add("period", g.First.Format(dayLayout)+" -> "+g.Last.Format(dayLayout))
	}
	for _, vc := range g.TopBiomes {
		add("biome_"+domain.Slug(vc.Value), strconv.Itoa(vc.Count))
	}
	for _, vc := range g.TopStates {
		add("state_"+domain.Slug(vc.Value), strconv.Itoa(vc.Count))
	}

	d := g.Daily
	add("daily_days", strconv.Itoa(d.N))
	add("daily_mean", formatFloat(d.Mean))
	add("daily_std", formatFloat(d.Std))
	add("daily_cv", formatFloat(d.CV))
	add("daily_min", formatFloat(d.Min))
	add("daily_q25", formatFloat(d.Q25))
	add("daily_median", formatFloat(d.Median))
	add("daily_q75", formatFloat(d.Q75))
	add("daily_max", formatFloat(d.Max))

	var degenerate []string
	for _, r := range results {
		if r.Degenerate {
			degenerate = append(degenerate, r.Group)
			add("anomalies_"+domain.Slug(r.Group), DegenerateLabel)
			continue
		}
		add("anomalies_"+domain.Slug(r.Group), strconv.Itoa(len(r.Anomalies())))
	}
	if len(results) > 0 {
		add("degenerate_groups", strings.Join(degenerate, ","))
	}

	return dataframe.New(
		series.New(metrics, series.String, "metric"),
		series.New(values, series.String, "value"),
	)
}

// AnomalyTable lists scored days: day, count, robust_z.
func AnomalyTable(scores []analysis.Score) dataframe.DataFrame {
	days := make([]string, len(scores))
	counts := make([]int, len(scores))
	z := make([]float64, len(scores))
	for i, s := range scores {
		days[i] = s.Day.Format(dayLayout)
		counts[i] = s.Count
		z[i] = s.RobustZ
	}
	return dataframe.New(
		series.New(days, series.String, "day"),
		series.New(counts, series.Int, "count"),
		series.New(z, series.Float, "robust_z"),
	)
}

// GroupAnomalyTable lists flagged days with their group.
func GroupAnomalyTable(scores []analysis.GroupScore) dataframe.DataFrame {
	groups := make([]string, len(scores))
	plain := make([]analysis.Score, len(scores))
	for i, s := range scores {
		groups[i] = s.Group
		plain[i] = s.Score
	}
	df := AnomalyTable(plain)
	return dataframe.New(series.New(groups, series.String, "group")).CBind(df)
}

// MunicipalityRankingTable lists the ranked municipalities.
func MunicipalityRankingTable(ranks []analysis.MunicipalityRank) dataframe.DataFrame {
	n := len(ranks)
	pos := make([]int, n)
	names := make([]string, n)
	states := make([]string, n)
	biomes := make([]string, n)
	counts := make([]int, n)
	for i, r := range ranks {
		pos[i] = i + 1
		names[i] = r.Municipality
		states[i] = r.State
		biomes[i] = r.Biome
		counts[i] = r.Count
	}
	return dataframe.New(
		series.New(pos, series.Int, "rank"),
		series.New(names, series.String, "municipality"),
		series.New(states, series.String, "state"),
		series.New(biomes, series.String, "biome"),
		series.New(counts, series.Int, "count"),
	)
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func tableError(name string, df dataframe.DataFrame) error {
	if df.Err != nil {
		return fmt.Errorf("build table %s: %w", name, df.Err)
	}
	return nil
}
