package analysis

import (
	"math"
	"sort"
	"time"
)

const (
	// madScale makes the MAD a consistent estimator of the standard
	// deviation under normality.
	madScale = 1.4826

	DefaultThreshold = 3.0
)

// AnomalyOptions configures the detector.
type AnomalyOptions struct {
	Threshold float64 // |z| at or above this is anomalous
	Limit     int     // cap on reported anomalies, <= 0 for all
}

// DefaultAnomalyOptions flags |z| >= 3 and reports at most 50 days.
func DefaultAnomalyOptions() AnomalyOptions {
	return AnomalyOptions{Threshold: DefaultThreshold, Limit: 50}
}

// Score is the robust z-score of one daily count.
type Score struct {
	Day       time.Time
	Count     int
	RobustZ   float64
	Anomalous bool
}

// AnomalyResult is the outcome of scoring one group's daily counts.
type AnomalyResult struct {
	Group  string
	Median float64
	MAD    float64
	// Scale is the denominator of the z-score, 1.4826*MAD.
	Scale float64
	// Degenerate marks a series whose MAD is zero, which includes empty and
	// constant series. No scores are computed for it.
	Degenerate bool
	Threshold  float64
	Scores     []Score // in day order
}

// Detect scores every day of counts against the group's median. The result
// depends only on the set of (day, count) pairs, not on their order.
func Detect(group string, counts []DayCount, opts AnomalyOptions) AnomalyResult {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	res := AnomalyResult{Group: group, Threshold: threshold}
	if len(counts) == 0 {
		res.Degenerate = true
		return res
	}

	xs := make([]float64, len(counts))
	for i, c := range counts {
		xs[i] = float64(c.Count)
	}
	res.Median = median(xs)

	dev := make([]float64, len(xs))
	for i, x := range xs {
		dev[i] = math.Abs(x - res.Median)
	}
	res.MAD = median(dev)
	if res.MAD == 0 {
		res.Degenerate = true
		return res
	}
	res.Scale = madScale * res.MAD

	res.Scores = make([]Score, len(counts))
	for i, c := range counts {
		z := (float64(c.Count) - res.Median) / res.Scale
		res.Scores[i] = Score{
			Day:       c.Day,
			Count:     c.Count,
			RobustZ:   z,
			Anomalous: math.Abs(z) >= threshold,
		}
	}
	sort.Slice(res.Scores, func(i, j int) bool { return res.Scores[i].Day.Before(res.Scores[j].Day) })
	return res
}

// Anomalies returns the flagged days, highest count first with ties in day
// order.
func (r AnomalyResult) Anomalies() []Score {
	var out []Score
	for _, s := range r.Scores {
		if s.Anomalous {
			out = append(out, s)
		}
	}
	sortByCount(out)
	return out
}

// Top returns at most limit flagged days, truncated after ranking. A limit
// <= 0 returns every flagged day.
func (r AnomalyResult) Top(limit int) []Score {
	out := r.Anomalies()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// UpperBand is the count at which a day starts to be flagged as high.
func (r AnomalyResult) UpperBand() float64 {
	return r.Median + r.Threshold*r.Scale
}

func sortByCount(scores []Score) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Count != scores[j].Count {
			return scores[i].Count > scores[j].Count
		}
		return scores[i].Day.Before(scores[j].Day)
	})
}

// DetectByGroup runs Detect on each group, in group name order.
func DetectByGroup(byGroup map[string][]DayCount, opts AnomalyOptions) []AnomalyResult {
	groups := make([]string, 0, len(byGroup))
	for g := range byGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	out := make([]AnomalyResult, 0, len(groups))
	for _, g := range groups {
		out = append(out, Detect(g, byGroup[g], opts))
	}
	return out
}

// GroupScore is a flagged day tagged with its group.
type GroupScore struct {
	Group string
	Score
}

// TopAcrossGroups merges the flagged days of every result, ranked by count
// with ties in day then group order, and truncates to limit.
func TopAcrossGroups(results []AnomalyResult, limit int) []GroupScore {
	var out []GroupScore
	for _, r := range results {
		for _, s := range r.Anomalies() {
			out = append(out, GroupScore{Group: r.Group, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if !a.Day.Equal(b.Day) {
			return a.Day.Before(b.Day)
		}
		return a.Group < b.Group
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
