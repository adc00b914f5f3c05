package report

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/couchcryptid/hotspot-etl/internal/analysis"
)

// ErrNoData is returned by chart builders given nothing to draw.
var ErrNoData = errors.New("no data to plot")

// Chart sizes.
const (
	wide     = 12 * vg.Inch
	standard = 4.5 * vg.Inch
	square   = 7 * vg.Inch
)

// Chart names.
const (
	ChartDailySeries      = "daily_series"
	ChartBiomeSeries      = "series_biome"
	ChartBiomeBoxplot     = "boxplot_biome"
	ChartTopStates        = "top10_states"
	ChartAnomalyTimeline  = "timeline_anomalies"
	ChartEnvelopePrefix   = "series_envelope_"
	ChartHeatmap          = "heatmap_temporal"
	ChartMunicipalityRank = "ranking_municipalities"
	ChartBiomeAnomalies   = "anomalies_by_biome"
)

// Chart is a named chart builder with its output size. A zero size uses
// the default wide layout.
type Chart struct {
	Name          string
	Width, Height vg.Length
	Build         func() (*plot.Plot, error)
}

// Square returns c with a square layout.
func (c Chart) Square() Chart {
	c.Width, c.Height = square, square
	return c
}

var (
	colorSeries    = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	colorMedian    = color.RGBA{R: 0x55, G: 0x55, B: 0x55, A: 0xff}
	colorBand      = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	colorEnvelope  = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0x40}
	colorAnomaly   = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
	colorBar       = color.RGBA{R: 0xe6, G: 0x55, B: 0x0d, A: 0xff}
	highlightColor = []color.Color{
		color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
		color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
		color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	}
	dashed = []vg.Length{vg.Points(5), vg.Points(3)}
)

func timeX(t time.Time) float64 { return float64(t.Unix()) }

func newTimePlot(title, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Y.Label.Text = ylabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	return p
}

func horizontal(y float64, c color.Color, dash []vg.Length) *plotter.Function {
	f := plotter.NewFunction(func(float64) float64 { return y })
	f.LineStyle.Color = c
	f.LineStyle.Width = vg.Points(1.2)
	f.LineStyle.Dashes = dash
	return f
}

func dayXYs(counts []analysis.DayCount) plotter.XYs {
	xys := make(plotter.XYs, len(counts))
	for i, c := range counts {
		xys[i] = plotter.XY{X: timeX(c.Day), Y: float64(c.Count)}
	}
	return xys
}

// DailySeriesChart plots the total hotspot count per day.
func DailySeriesChart(counts []analysis.DayCount) (*plot.Plot, error) {
	if len(counts) == 0 {
		return nil, ErrNoData
	}
	p := newTimePlot("Hotspots per day", "hotspots")
	line, err := plotter.NewLine(dayXYs(counts))
	if err != nil {
		return nil, err
	}
	line.LineStyle.Color = colorSeries
	line.LineStyle.Width = vg.Points(0.8)
	p.Add(line)
	return p, nil
}

// GroupSeriesChart plots one line per pivot column over the pivot buckets.
func GroupSeriesChart(title string, pv analysis.Pivot) (*plot.Plot, error) {
	if len(pv.Rows) == 0 || len(pv.Columns) == 0 {
		return nil, ErrNoData
	}
	p := newTimePlot(title, "hotspots")
	for j, name := range pv.Columns {
		xys := make(plotter.XYs, len(pv.Rows))
		for i, r := range pv.Rows {
			xys[i] = plotter.XY{X: timeX(r), Y: float64(pv.Counts[i][j])}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		line.LineStyle.Color = plotutil.Color(j)
		line.LineStyle.Width = vg.Points(1.2)
		p.Add(line)
		p.Legend.Add(name, line)
	}
	return p, nil
}

// GroupBoxPlot draws the distribution of daily counts of every group.
func GroupBoxPlot(title string, byGroup map[string][]analysis.DayCount) (*plot.Plot, error) {
	groups := make([]string, 0, len(byGroup))
	for g, counts := range byGroup {
		if len(counts) > 0 {
			groups = append(groups, g)
		}
	}
	if len(groups) == 0 {
		return nil, ErrNoData
	}
	sort.Strings(groups)

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "hotspots per day"
	for i, g := range groups {
		values := make(plotter.Values, len(byGroup[g]))
		for k, c := range byGroup[g] {
			values[k] = float64(c.Count)
		}
		box, err := plotter.NewBoxPlot(vg.Points(30), float64(i), values)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", g, err)
		}
		box.FillColor = plotutil.Color(i)
		p.Add(box)
	}
	p.NominalX(groups...)
	return p, nil
}

// RankingBarChart draws value counts as horizontal bars, largest on top.
func RankingBarChart(title string, ranking []analysis.ValueCount) (*plot.Plot, error) {
	labels := make([]string, len(ranking))
	values := make(plotter.Values, len(ranking))
	for i, vc := range ranking {
		labels[i] = vc.Value
		values[i] = float64(vc.Count)
	}
	return barChart(title, labels, values)
}

// MunicipalityRankingChart draws the municipality ranking as horizontal
// bars labelled with the state.
func MunicipalityRankingChart(ranks []analysis.MunicipalityRank) (*plot.Plot, error) {
	labels := make([]string, len(ranks))
	values := make(plotter.Values, len(ranks))
	for i, r := range ranks {
		labels[i] = r.Municipality
		if r.State != "" {
			labels[i] += " (" + r.State + ")"
		}
		values[i] = float64(r.Count)
	}
	return barChart(fmt.Sprintf("Top %d municipalities by hotspots", len(ranks)), labels, values)
}

func barChart(title string, labels []string, values plotter.Values) (*plot.Plot, error) {
	if len(values) == 0 {
		return nil, ErrNoData
	}
	// NominalY places the first label at the bottom.
	n := len(values)
	rev := make(plotter.Values, n)
	revLabels := make([]string, n)
	for i := range values {
		rev[n-1-i] = values[i]
		revLabels[n-1-i] = labels[i]
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "hotspots"
	bars, err := plotter.NewBarChart(rev, vg.Points(14))
	if err != nil {
		return nil, err
	}
	bars.Horizontal = true
	bars.Color = colorBar
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(revLabels...)
	return p, nil
}

// AnomalyTimelineChart plots the daily series with its median, the upper
// anomaly band and the flagged days. Flagged days in the highlight years
// get their own colour.
func AnomalyTimelineChart(counts []analysis.DayCount, res analysis.AnomalyResult, highlight []int) (*plot.Plot, error) {
	if len(counts) == 0 {
		return nil, ErrNoData
	}
	p := newTimePlot("Daily hotspots and anomalous peaks", "hotspots")

	line, err := plotter.NewLine(dayXYs(counts))
	if err != nil {
		return nil, err
	}
	line.LineStyle.Color = colorSeries
	line.LineStyle.Width = vg.Points(0.8)
	p.Add(line)
	p.Legend.Add("daily count", line)

	med := horizontal(res.Median, colorMedian, dashed)
	p.Add(med)
	p.Legend.Add("median", med)
	if res.Degenerate {
		return p, nil
	}

	band := horizontal(res.UpperBand(), colorBand, dashed)
	p.Add(band)
	p.Legend.Add("median + "+strconv.FormatFloat(res.Threshold, 'g', -1, 64)+" robust sd", band)

	byYear := make(map[int]plotter.XYs)
	var other plotter.XYs
	for _, s := range res.Anomalies() {
		xy := plotter.XY{X: timeX(s.Day), Y: float64(s.Count)}
		if isHighlighted(s.Day.Year(), highlight) {
			byYear[s.Day.Year()] = append(byYear[s.Day.Year()], xy)
			continue
		}
		other = append(other, xy)
	}

	if len(other) > 0 {
		sc, err := anomalyScatter(other, colorAnomaly)
		if err != nil {
			return nil, err
		}
		p.Add(sc)
		p.Legend.Add("anomalous day", sc)
	}
	for i, year := range highlight {
		xys := byYear[year]
		if len(xys) == 0 {
			continue
		}
		sc, err := anomalyScatter(xys, highlightColor[i%len(highlightColor)])
		if err != nil {
			return nil, err
		}
		p.Add(sc)
		p.Legend.Add("anomalous day "+strconv.Itoa(year), sc)
	}
	return p, nil
}

func isHighlighted(year int, years []int) bool {
	for _, y := range years {
		if y == year {
			return true
		}
	}
	return false
}

func anomalyScatter(xys plotter.XYs, c color.Color) (*plotter.Scatter, error) {
	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Color = c
	sc.GlyphStyle.Radius = vg.Points(3.5)
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	return sc, nil
}

// SeasonalEnvelopeChart plots a group's monthly series inside the
// interquartile band of its calendar months.
func SeasonalEnvelopeChart(s analysis.Seasonality) (*plot.Plot, error) {
	if len(s.Monthly) == 0 {
		return nil, ErrNoData
	}
	p := newTimePlot(s.Group+": monthly hotspots and seasonal envelope", "hotspots per month")

	n := len(s.Monthly)
	upper := make(plotter.XYs, 0, n)
	lower := make(plotter.XYs, 0, n)
	median := make(plotter.XYs, 0, n)
	series := make(plotter.XYs, n)
	for i, mc := range s.Monthly {
		x := timeX(mc.Month)
		series[i] = plotter.XY{X: x, Y: float64(mc.Count)}
		b, ok := s.Band(int(mc.Month.Month()))
		if !ok {
			continue
		}
		upper = append(upper, plotter.XY{X: x, Y: b.Q75})
		lower = append(lower, plotter.XY{X: x, Y: b.Q25})
		median = append(median, plotter.XY{X: x, Y: b.Median})
	}

	ring := make(plotter.XYs, 0, 2*len(upper))
	ring = append(ring, upper...)
	for i := len(lower) - 1; i >= 0; i-- {
		ring = append(ring, lower[i])
	}
	envelope, err := plotter.NewPolygon(ring)
	if err != nil {
		return nil, err
	}
	envelope.Color = colorEnvelope
	envelope.LineStyle.Width = 0
	p.Add(envelope)
	p.Legend.Add("Q25-Q75 by calendar month", envelope)

	medLine, err := plotter.NewLine(median)
	if err != nil {
		return nil, err
	}
	medLine.LineStyle.Color = colorMedian
	medLine.LineStyle.Dashes = dashed
	p.Add(medLine)
	p.Legend.Add("median by calendar month", medLine)

	line, err := plotter.NewLine(series)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Color = colorBand
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("monthly count", line)
	return p, nil
}

// monthYearGrid adapts a MonthYearMatrix to plotter.GridXYZ with years on
// X and months on Y.
type monthYearGrid struct{ m analysis.MonthYearMatrix }

func (g monthYearGrid) Dims() (c, r int)   { return len(g.m.Years), 12 }
func (g monthYearGrid) Z(c, r int) float64 { return float64(g.m.Counts[r][c]) }
func (g monthYearGrid) X(c int) float64    { return float64(g.m.Years[c]) }
func (g monthYearGrid) Y(r int) float64    { return float64(r + 1) }

var monthTicks = func() plot.ConstantTicks {
	ticks := make(plot.ConstantTicks, 12)
	for i := range ticks {
		ticks[i] = plot.Tick{Value: float64(i + 1), Label: time.Month(i + 1).String()[:3]}
	}
	return ticks
}()

// HeatmapChart draws hotspot counts by month and year.
func HeatmapChart(m analysis.MonthYearMatrix) (*plot.Plot, error) {
	if len(m.Years) == 0 {
		return nil, ErrNoData
	}
	pal, err := brewer.GetPalette(brewer.TypeSequential, "YlOrRd", 9)
	if err != nil {
		return nil, err
	}
	hm := plotter.NewHeatMap(monthYearGrid{m}, pal)
	// A flat matrix would give the palette a zero-width range.
	hm.Max = math.Max(hm.Max, hm.Min+1)

	yearTicks := make(plot.ConstantTicks, len(m.Years))
	for i, y := range m.Years {
		yearTicks[i] = plot.Tick{Value: float64(y), Label: strconv.Itoa(y)}
	}

	p := plot.New()
	p.Title.Text = "Hotspots by month and year"
	p.X.Tick.Marker = yearTicks
	p.Y.Tick.Marker = monthTicks
	p.Add(hm)
	return p, nil
}

// GroupScoreScatter plots robust z-score against daily count for every
// scored group, with the anomaly threshold on both sides.
func GroupScoreScatter(results []analysis.AnomalyResult) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Robust z-score of daily hotspots by group"
	p.X.Label.Text = "hotspots per day"
	p.Y.Label.Text = "robust z"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	threshold := 0.0
	points := 0
	for i, res := range results {
		if res.Degenerate || len(res.Scores) == 0 {
			continue
		}
		threshold = res.Threshold
		xys := make(plotter.XYs, len(res.Scores))
		for k, s := range res.Scores {
			xys[k] = plotter.XY{X: float64(s.Count), Y: s.RobustZ}
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", res.Group, err)
		}
		sc.GlyphStyle.Color = plotutil.Color(i)
		sc.GlyphStyle.Radius = vg.Points(2)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
		p.Legend.Add(res.Group, sc)
		points += len(xys)
	}
	if points == 0 {
		return nil, ErrNoData
	}

	p.Add(horizontal(threshold, colorBand, dashed), horizontal(-threshold, colorBand, dashed))
	return p, nil
}
