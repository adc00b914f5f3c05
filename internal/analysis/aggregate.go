// Package analysis aggregates cleaned hotspots into counts and flags
// anomalous days.
package analysis

import (
	"sort"
	"time"

	"github.com/couchcryptid/hotspot-etl/internal/domain"
)

// DayCount is the number of hotspots detected on one calendar day.
type DayCount struct {
	Day   time.Time
	Count int
}

// MonthCount is the number of hotspots detected in one calendar month.
type MonthCount struct {
	Month time.Time // first day of the month, UTC
	Count int
}

// Key extracts a grouping value from a hotspot. An empty value means the
// hotspot has no group and is left out of grouped counts.
type Key func(domain.Hotspot) string

// Grouping keys over the categorical fields.
var (
	ByBiome        Key = func(h domain.Hotspot) string { return h.Biome }
	ByState        Key = func(h domain.Hotspot) string { return h.State }
	ByMunicipality Key = func(h domain.Hotspot) string { return h.Municipality }
	ByBiomeState   Key = func(h domain.Hotspot) string { return h.BiomeState }
)

// Bucket is the time resolution of a pivot.
type Bucket int

const (
	BucketDay Bucket = iota
	BucketMonth
)

func (b Bucket) String() string {
	if b == BucketMonth {
		return "month"
	}
	return "day"
}

func (b Bucket) truncate(h domain.Hotspot) time.Time {
	if b == BucketMonth {
		return domain.MonthStart(h.Day)
	}
	return h.Day
}

// DailyCounts counts hotspots per day, sorted by day.
func DailyCounts(records []domain.Hotspot) []DayCount {
	counts := make(map[time.Time]int)
	for _, h := range records {
		counts[h.Day]++
	}
	return sortedDays(counts)
}

// DailyCountsBy counts hotspots per day within each group. Only observed
// (day, group) combinations appear.
func DailyCountsBy(records []domain.Hotspot, key Key) map[string][]DayCount {
	byGroup := make(map[string]map[time.Time]int)
	for _, h := range records {
		g := key(h)
		if g == "" {
			continue
		}
		days, ok := byGroup[g]
		if !ok {
			days = make(map[time.Time]int)
			byGroup[g] = days
		}
		days[h.Day]++
	}

	out := make(map[string][]DayCount, len(byGroup))
	for g, days := range byGroup {
		out[g] = sortedDays(days)
	}
	return out
}

func sortedDays(counts map[time.Time]int) []DayCount {
	out := make([]DayCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, DayCount{Day: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}

// MonthlyCounts counts hotspots per month from the first to the last
// observed month, filling months without detections with zero.
func MonthlyCounts(records []domain.Hotspot) []MonthCount {
	if len(records) == 0 {
		return nil
	}
	counts := make(map[time.Time]int)
	first, last := domain.MonthStart(records[0].Day), domain.MonthStart(records[0].Day)
	for _, h := range records {
		m := domain.MonthStart(h.Day)
		counts[m]++
		if m.Before(first) {
			first = m
		}
		if m.After(last) {
			last = m
		}
	}

	var out []MonthCount
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		out = append(out, MonthCount{Month: m, Count: counts[m]})
	}
	return out
}

// Pivot is a count table with one row per time bucket and one column per
// group value.
type Pivot struct {
	Bucket  Bucket
	Rows    []time.Time
	Columns []string
	Counts  [][]int // Counts[row][column]
}

// Column returns the counts of one group value aligned with Rows.
func (p Pivot) Column(name string) ([]int, bool) {
	j := sort.SearchStrings(p.Columns, name)
	if j == len(p.Columns) || p.Columns[j] != name {
		return nil, false
	}
	out := make([]int, len(p.Rows))
	for i := range p.Rows {
		out[i] = p.Counts[i][j]
	}
	return out, true
}

// PivotCounts cross-counts hotspots by time bucket and group. Rows are the
// observed buckets in order; columns are the group values in sorted order;
// combinations without detections are zero.
func PivotCounts(records []domain.Hotspot, bucket Bucket, key Key) Pivot {
	type cell struct {
		row time.Time
		col string
	}
	cells := make(map[cell]int)
	rowSet := make(map[time.Time]bool)
	colSet := make(map[string]bool)
	for _, h := range records {
		g := key(h)
		if g == "" {
			continue
		}
		r := bucket.truncate(h)
		cells[cell{r, g}]++
		rowSet[r] = true
		colSet[g] = true
	}

	p := Pivot{Bucket: bucket}
	for r := range rowSet {
		p.Rows = append(p.Rows, r)
	}
	sort.Slice(p.Rows, func(i, j int) bool { return p.Rows[i].Before(p.Rows[j]) })
	for c := range colSet {
		p.Columns = append(p.Columns, c)
	}
	sort.Strings(p.Columns)

	p.Counts = make([][]int, len(p.Rows))
	for i, r := range p.Rows {
		p.Counts[i] = make([]int, len(p.Columns))
		for j, c := range p.Columns {
			p.Counts[i][j] = cells[cell{r, c}]
		}
	}
	return p
}

// ValueCount is the frequency of one categorical value.
type ValueCount struct {
	Value string
	Count int
}

// ValueCounts ranks group values by frequency, most frequent first with
// ties in value order. A limit <= 0 returns every value.
func ValueCounts(records []domain.Hotspot, key Key, limit int) []ValueCount {
	counts := make(map[string]int)
	for _, h := range records {
		if g := key(h); g != "" {
			counts[g]++
		}
	}
	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MonthYearMatrix holds hotspot counts by calendar month and year.
type MonthYearMatrix struct {
	Years  []int
	Counts [12][]int // Counts[month-1][year index]
}

// Max returns the largest cell.
func (m MonthYearMatrix) Max() int {
	top := 0
	for _, row := range m.Counts {
		for _, n := range row {
			top = max(top, n)
		}
	}
	return top
}

// CountMonthYear builds the month by year matrix over the observed years,
// zero-filled.
func CountMonthYear(records []domain.Hotspot) MonthYearMatrix {
	type cell struct{ year, month int }
	cells := make(map[cell]int)
	yearSet := make(map[int]bool)
	for _, h := range records {
		cells[cell{h.Year, h.Month}]++
		yearSet[h.Year] = true
	}

	var m MonthYearMatrix
	for y := range yearSet {
		m.Years = append(m.Years, y)
	}
	sort.Ints(m.Years)
	for month := 1; month <= 12; month++ {
		row := make([]int, len(m.Years))
		for j, y := range m.Years {
			row[j] = cells[cell{y, month}]
		}
		m.Counts[month-1] = row
	}
	return m
}

// MunicipalityRank is one row of the municipality criticality ranking.
type MunicipalityRank struct {
	Municipality string
	State        string // first state seen for the municipality
	Biome        string // most frequent biome, ties in name order
	Count        int
}

// RankMunicipalities ranks municipalities by hotspot count, highest first
// with ties in name order. A limit <= 0 returns every municipality.
func RankMunicipalities(records []domain.Hotspot, limit int) []MunicipalityRank {
	type acc struct {
		state  string
		count  int
		biomes map[string]int
	}
	byName := make(map[string]*acc)
	for _, h := range records {
		if h.Municipality == "" {
			continue
		}
		a, ok := byName[h.Municipality]
		if !ok {
			a = &acc{biomes: make(map[string]int)}
			byName[h.Municipality] = a
		}
		if a.state == "" {
			a.state = h.State
		}
		a.count++
		if h.Biome != "" {
			a.biomes[h.Biome]++
		}
	}

	out := make([]MunicipalityRank, 0, len(byName))
	for name, a := range byName {
		out = append(out, MunicipalityRank{
			Municipality: name,
			State:        a.state,
			Biome:        mode(a.biomes),
			Count:        a.count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Municipality < out[j].Municipality
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func mode(counts map[string]int) string {
	best, bestN := "", 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}

// SeasonalBand is the spread of monthly counts for one calendar month
// across the observed years.
type SeasonalBand struct {
	Month  int
	Q25    float64
	Median float64
	Q75    float64
}

// Seasonality is the monthly series of one group with its seasonal bands.
type Seasonality struct {
	Group   string
	Monthly []MonthCount
	Bands   []SeasonalBand // one per calendar month present in Monthly
}

// Band returns the band of a calendar month.
func (s Seasonality) Band(month int) (SeasonalBand, bool) {
	for _, b := range s.Bands {
		if b.Month == month {
			return b, true
		}
	}
	return SeasonalBand{}, false
}

// MonthlySeasonality computes the monthly series of the hotspots whose key
// equals group and the interquartile band of each calendar month.
func MonthlySeasonality(records []domain.Hotspot, key Key, group string) Seasonality {
	var subset []domain.Hotspot
	for _, h := range records {
		if key(h) == group {
			subset = append(subset, h)
		}
	}

	s := Seasonality{Group: group, Monthly: MonthlyCounts(subset)}
	var byMonth [12][]float64
	for _, mc := range s.Monthly {
		i := int(mc.Month.Month()) - 1
		byMonth[i] = append(byMonth[i], float64(mc.Count))
	}
	for i, xs := range byMonth {
		if len(xs) == 0 {
			continue
		}
		sort.Float64s(xs)
		s.Bands = append(s.Bands, SeasonalBand{
			Month:  i + 1,
			Q25:    quantile(xs, 0.25),
			Median: quantile(xs, 0.5),
			Q75:    quantile(xs, 0.75),
		})
	}
	return s
}
