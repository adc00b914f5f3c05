package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// reservedColumns are output names an unmapped source column may not take.
var reservedColumns = func() map[string]bool {
	m := make(map[string]bool, len(DatasetColumns))
	for _, c := range DatasetColumns {
		m[c] = true
	}
	return m
}()

// ExtraColumnName maps an unmapped source column to its dataset column name.
func ExtraColumnName(column string) string {
	if reservedColumns[column] {
		return "raw_" + column
	}
	return column
}

// extraColumnNames maps unmapped source columns to dataset column names.
// A name already taken by an earlier column gets a ".1", ".2", ... suffix.
func extraColumnNames(columns []string) []string {
	taken := make(map[string]bool, len(columns))
	for _, col := range columns {
		taken[col] = true
	}
	used := make(map[string]bool, len(columns))
	names := make([]string, len(columns))
	for i, col := range columns {
		name := ExtraColumnName(col)
		if used[name] {
			base := name
			for n := 1; used[name] || (taken[name] && name != col); n++ {
				name = base + "." + strconv.Itoa(n)
			}
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// Cleaner turns raw tables into hotspots.
type Cleaner struct {
	bounds *Bounds
	text   *TextNormalizer
}

// NewCleaner creates a Cleaner. A nil bounds disables coordinate validation;
// coordinates are then kept when they parse and ignored when they do not.
func NewCleaner(bounds *Bounds, text *TextNormalizer) *Cleaner {
	return &Cleaner{bounds: bounds, text: text}
}

// Clean converts every record of table using cm. Rows with an unparseable
// date or, when validation is on, missing or out-of-bounds coordinates are
// dropped and counted. The extra columns of the table are returned in header order.
func (c *Cleaner) Clean(table RawTable, cm ColumnMap) ([]Hotspot, []string, CleanStats, error) {
	stats := CleanStats{Input: len(table.Records)}

	extras := unmappedColumns(table.Header, cm)
	names := extraColumnNames(extras)
	validate := c.bounds != nil && cm.HasCoordinates()
	out := make([]Hotspot, 0, len(table.Records))

	for _, rec := range table.Records {
		raw, _ := cm.Value(rec, FieldDate)
		date, err := ParseDate(raw)
		if err != nil {
			stats.InvalidDates++
			continue
		}

		h := Hotspot{
			Date:     date,
			Calendar: DeriveCalendar(date),
			Source:   table.Source,
		}

		if cm.HasCoordinates() {
			lat, latOK := parseCoordinate(cm, rec, FieldLatitude)
			lon, lonOK := parseCoordinate(cm, rec, FieldLongitude)
			if validate && !(latOK && lonOK && c.bounds.Contains(lat, lon)) {
				stats.InvalidCoords++
				continue
			}
			if latOK && lonOK {
				h.Lat, h.Lon, h.HasCoords = lat, lon, true
			}
		}

		h.State = c.category(cm, rec, FieldState)
		h.Municipality = c.category(cm, rec, FieldMunicipality)
		h.Biome = c.category(cm, rec, FieldBiome)
		if h.Biome != "" && h.State != "" {
			h.BiomeState = h.Biome + "_" + h.State
		}

		if len(extras) > 0 {
			h.Extra = make(map[string]string, len(extras))
			for _, col := range extras {
				if v, ok := rec[col]; ok {
					h.Extra[ExtraColumnName(col)] = v
				}
			}
		}

		out = append(out, h)
	}

	stats.Kept = len(out)
	if stats.Input > 0 && stats.InvalidDates == stats.Input {
		col, _ := cm.Column(FieldDate)
		return nil, nil, stats, fmt.Errorf("%s: column %q: %w", table.Source, col, ErrTotalParseFailure)
	}

	return out, names, stats, nil
}

// unmappedColumns lists the header columns not consumed by a field. A lone
// latitude or longitude column is not a coordinate pair and stays unmapped.
func unmappedColumns(header []string, cm ColumnMap) []string {
	var extras []string
	for _, col := range header {
		mapped := cm.IsMapped(col)
		if mapped && !cm.HasCoordinates() && (isColumn(cm, FieldLatitude, col) || isColumn(cm, FieldLongitude, col)) {
			mapped = false
		}
		if !mapped {
			extras = append(extras, col)
		}
	}
	return extras
}

func isColumn(cm ColumnMap, f Field, col string) bool {
	name, ok := cm.Column(f)
	return ok && name == col
}

func (c *Cleaner) category(cm ColumnMap, rec RawRecord, f Field) string {
	v, ok := cm.Value(rec, f)
	if !ok {
		return ""
	}
	return c.text.Title(v)
}

func parseCoordinate(cm ColumnMap, rec RawRecord, f Field) (float64, bool) {
	v, ok := cm.Value(rec, f)
	if !ok {
		return 0, false
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}
