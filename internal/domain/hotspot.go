package domain

import "time"

// RawRecord is one untyped CSV row keyed by normalized header name.
// An absent key means the source file had no value for that column.
type RawRecord map[string]string

// RawTable is the decoded content of one source file.
type RawTable struct {
	Source   string // file base name, e.g. "focos_ams_ref_2019.csv"
	Encoding string // codec that decoded the file
	Header   []string
	Records  []RawRecord
}

// Calendar holds the fields derived from a hotspot's date.
type Calendar struct {
	Year      int
	Month     int
	YearMonth string    // "YYYY-MM"
	Day       time.Time // date at midnight UTC
	ISOWeek   int
	Weekday   int // 0 = Monday .. 6 = Sunday
}

// Hotspot is a cleaned detection record.
type Hotspot struct {
	Date time.Time
	Calendar

	Lat       float64
	Lon       float64
	HasCoords bool

	State        string
	Municipality string
	Biome        string
	BiomeState   string // "{biome}_{state}", empty unless both are known

	Source string            // originating file name
	Extra  map[string]string // unmapped source columns
}

// Dataset is the concatenation of cleaned hotspots across source files.
type Dataset struct {
	Records []Hotspot
	// ExtraColumns is the ordered union of unmapped source columns, in first-seen order.
	ExtraColumns []string
	Sources      []string
}

// Append adds one file's cleaned records, extending the extra column union.
func (d *Dataset) Append(source string, records []Hotspot, extraColumns []string) {
	seen := make(map[string]bool, len(d.ExtraColumns))
	for _, c := range d.ExtraColumns {
		seen[c] = true
	}
	for _, c := range extraColumns {
		if !seen[c] {
			seen[c] = true
			d.ExtraColumns = append(d.ExtraColumns, c)
		}
	}
	d.Records = append(d.Records, records...)
	d.Sources = append(d.Sources, source)
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// CleanStats counts the outcome of cleaning one batch.
type CleanStats struct {
	Input         int
	Kept          int
	InvalidDates  int
	InvalidCoords int
}

// Add accumulates another batch's counts.
func (s *CleanStats) Add(o CleanStats) {
	s.Input += o.Input
	s.Kept += o.Kept
	s.InvalidDates += o.InvalidDates
	s.InvalidCoords += o.InvalidCoords
}
