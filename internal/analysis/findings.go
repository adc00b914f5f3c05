package analysis

import "time"

// TotalGroup labels the detector run over the all-hotspots daily series.
const TotalGroup = "total"

// Findings is what one analysis run exports to downstream sinks.
type Findings struct {
	RunID       string
	GeneratedAt time.Time
	Daily       []DayCount
	Total       AnomalyResult
	ByGroup     []AnomalyResult
	GroupField  string // field ByGroup was split on, e.g. "biome"
	Limit       int    // cap on anomalies per result
}

// Results returns the total result followed by the per-group results.
func (f Findings) Results() []AnomalyResult {
	out := make([]AnomalyResult, 0, len(f.ByGroup)+1)
	out = append(out, f.Total)
	return append(out, f.ByGroup...)
}
