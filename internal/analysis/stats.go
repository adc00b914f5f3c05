package analysis

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/hotspot-etl/internal/domain"
)

// quantile returns the p-quantile of an ascending slice, interpolating linearly
// between the closest ranks (the (n-1)p definition used by pandas and R
// type 7). sorted must be non-empty.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return quantile(sorted, 0.5)
}

// Summary describes a distribution of daily counts.
type Summary struct {
	N      int
	Mean   float64
	Std    float64 // sample standard deviation
	CV     float64 // Std / Mean, zero when Mean is zero
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// Describe summarizes the counts of a daily series.
func Describe(counts []DayCount) Summary {
	if len(counts) == 0 {
		return Summary{}
	}
	xs := make([]float64, len(counts))
	for i, c := range counts {
		xs[i] = float64(c.Count)
	}
	sort.Float64s(xs)

	s := Summary{
		N:      len(xs),
		Mean:   stat.Mean(xs, nil),
		Min:    floats.Min(xs),
		Q25:    quantile(xs, 0.25),
		Median: quantile(xs, 0.5),
		Q75:    quantile(xs, 0.75),
		Max:    floats.Max(xs),
	}
	if len(xs) > 1 {
		s.Std = stat.StdDev(xs, nil)
	}
	if s.Mean != 0 {
		s.CV = s.Std / s.Mean
	}
	return s
}

// Column types reported by SummarizeColumns.
const (
	TypeDatetime = "datetime"
	TypeDate     = "date"
	TypeInt      = "int"
	TypeFloat    = "float"
	TypeString   = "string"
)

// ColumnSummary reports missingness and cardinality of one dataset column.
type ColumnSummary struct {
	Column     string
	Type       string
	Missing    int
	MissingPct float64
	Distinct   int
	Numeric    bool
	Min, Max   float64 // set when Numeric and at least one value is present
}

type columnSpec struct {
	name  string
	kind  string
	value func(domain.Hotspot) (any, bool)
}

func fixedColumns() []columnSpec {
	str := func(f func(domain.Hotspot) string) func(domain.Hotspot) (any, bool) {
		return func(h domain.Hotspot) (any, bool) {
			v := f(h)
			return v, v != ""
		}
	}
	num := func(f func(domain.Hotspot) int) func(domain.Hotspot) (any, bool) {
		return func(h domain.Hotspot) (any, bool) { return float64(f(h)), true }
	}
	return []columnSpec{
		{domain.ColDate, TypeDatetime, func(h domain.Hotspot) (any, bool) { return h.Date.UnixNano(), true }},
		{domain.ColYear, TypeInt, num(func(h domain.Hotspot) int { return h.Year })},
		{domain.ColMonth, TypeInt, num(func(h domain.Hotspot) int { return h.Month })},
		{domain.ColYearMonth, TypeString, str(func(h domain.Hotspot) string { return h.YearMonth })},
		{domain.ColDay, TypeDate, func(h domain.Hotspot) (any, bool) { return h.Day.Unix(), true }},
		{domain.ColWeekISO, TypeInt, num(func(h domain.Hotspot) int { return h.ISOWeek })},
		{domain.ColWeekday, TypeInt, num(func(h domain.Hotspot) int { return h.Weekday })},
		{domain.ColLat, TypeFloat, func(h domain.Hotspot) (any, bool) { return h.Lat, h.HasCoords }},
		{domain.ColLon, TypeFloat, func(h domain.Hotspot) (any, bool) { return h.Lon, h.HasCoords }},
		{domain.ColState, TypeString, str(func(h domain.Hotspot) string { return h.State })},
		{domain.ColMunicipality, TypeString, str(func(h domain.Hotspot) string { return h.Municipality })},
		{domain.ColBiome, TypeString, str(func(h domain.Hotspot) string { return h.Biome })},
		{domain.ColBiomeState, TypeString, str(func(h domain.Hotspot) string { return h.BiomeState })},
		{domain.ColSource, TypeString, str(func(h domain.Hotspot) string { return h.Source })},
	}
}

// SummarizeColumns reports every column of the dataset in storage order.
func SummarizeColumns(ds domain.Dataset) []ColumnSummary {
	specs := fixedColumns()
	for _, name := range ds.ExtraColumns {
		specs = append(specs, columnSpec{name: name, kind: TypeString, value: func(h domain.Hotspot) (any, bool) {
			v, ok := h.Extra[name]
			return v, ok
		}})
	}

	out := make([]ColumnSummary, 0, len(specs))
	for _, spec := range specs {
		out = append(out, summarize(spec, ds.Records))
	}
	return out
}

func summarize(spec columnSpec, records []domain.Hotspot) ColumnSummary {
	s := ColumnSummary{
		Column:  spec.name,
		Type:    spec.kind,
		Numeric: spec.kind == TypeInt || spec.kind == TypeFloat,
		Min:     math.Inf(1),
		Max:     math.Inf(-1),
	}
	distinct := make(map[any]struct{})
	for _, h := range records {
		v, ok := spec.value(h)
		if !ok {
			s.Missing++
			continue
		}
		distinct[v] = struct{}{}
		if x, isNum := v.(float64); isNum && s.Numeric {
			s.Min = math.Min(s.Min, x)
			s.Max = math.Max(s.Max, x)
		}
	}
	s.Distinct = len(distinct)
	if len(records) > 0 {
		s.MissingPct = 100 * float64(s.Missing) / float64(len(records))
	}
	if !s.Numeric || s.Distinct == 0 {
		s.Min, s.Max = 0, 0
	}
	return s
}

// GeneralStats is the headline summary of a dataset.
type GeneralStats struct {
	Total     int
	Years     []int
	First     time.Time
	Last      time.Time
	TopBiomes []ValueCount
	TopStates []ValueCount
	Daily     Summary
}

// General computes the headline summary, ranking the top biomes and states.
func General(ds domain.Dataset, top int) GeneralStats {
	g := GeneralStats{Total: ds.Len()}
	years := make(map[int]bool)
	for i, h := range ds.Records {
		years[h.Year] = true
		if i == 0 || h.Date.Before(g.First) {
			g.First = h.Date
		}
		if i == 0 || h.Date.After(g.Last) {
			g.Last = h.Date
		}
	}
	for y := range years {
		g.Years = append(g.Years, y)
	}
	sort.Ints(g.Years)

	g.TopBiomes = ValueCounts(ds.Records, ByBiome, top)
	g.TopStates = ValueCounts(ds.Records, ByState, top)
	g.Daily = Describe(DailyCounts(ds.Records))
	return g
}
