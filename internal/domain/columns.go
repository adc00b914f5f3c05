package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Field is a logical column of the hotspot schema.
type Field int

const (
	FieldDate Field = iota
	FieldLatitude
	FieldLongitude
	FieldState
	FieldMunicipality
	FieldBiome
	numFields
)

var fieldNames = [numFields]string{"date", "latitude", "longitude", "state", "municipality", "biome"}

func (f Field) String() string {
	if f < 0 || f >= numFields {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// Candidate source column names per field, in priority order.
var fieldCandidates = [numFields][]string{
	FieldDate:         {"data_pas", "data", "dt", "datetime"},
	FieldLatitude:     {"lat", "latitude"},
	FieldLongitude:    {"lon", "longitude"},
	FieldState:        {"estado", "uf"},
	FieldMunicipality: {"municipio", "município", "munic"},
	FieldBiome:        {"bioma"},
}

// Candidates returns a copy of the candidate names for f.
func Candidates(f Field) []string {
	return append([]string(nil), fieldCandidates[f]...)
}

// NormalizeHeader trims a header name, lowercases it and replaces inner
// spaces with underscores. A leading byte order mark is removed and the
// result is NFC so "município" matches however the file composed it.
func NormalizeHeader(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = norm.NFC.String(strings.ToLower(strings.TrimSpace(name)))
	return strings.ReplaceAll(name, " ", "_")
}

// ResolveColumn returns the first candidate present in columns, compared
// case-insensitively. The returned name is the column as it appears in columns.
func ResolveColumn(columns []string, candidates []string) (string, bool) {
	for _, cand := range candidates {
		for _, col := range columns {
			if strings.EqualFold(col, cand) {
				return col, true
			}
		}
	}
	return "", false
}

// ColumnMap records which source column backs each logical field.
// The zero value resolves nothing.
type ColumnMap struct {
	columns  [numFields]string
	resolved [numFields]bool
}

// ResolveColumns builds the ColumnMap for a source header. The date field is
// mandatory; every other field may be absent.
func ResolveColumns(header []string) (ColumnMap, error) {
	var m ColumnMap
	for f := Field(0); f < numFields; f++ {
		m.columns[f], m.resolved[f] = ResolveColumn(header, fieldCandidates[f])
	}
	if !m.resolved[FieldDate] {
		return ColumnMap{}, fmt.Errorf("%w: tried %v in %v", ErrDateColumnNotFound, fieldCandidates[FieldDate], header)
	}
	return m, nil
}

// Column returns the source column for f.
func (m ColumnMap) Column(f Field) (string, bool) {
	return m.columns[f], m.resolved[f]
}

// Has reports whether f was resolved.
func (m ColumnMap) Has(f Field) bool {
	return m.resolved[f]
}

// HasCoordinates reports whether both latitude and longitude were resolved.
func (m ColumnMap) HasCoordinates() bool {
	return m.resolved[FieldLatitude] && m.resolved[FieldLongitude]
}

// Value reads f from a raw record. A missing field or column yields ("", false).
func (m ColumnMap) Value(r RawRecord, f Field) (string, bool) {
	if !m.resolved[f] {
		return "", false
	}
	v, ok := r[m.columns[f]]
	return v, ok
}

// IsMapped reports whether column backs any resolved field.
func (m ColumnMap) IsMapped(column string) bool {
	for f := Field(0); f < numFields; f++ {
		if m.resolved[f] && m.columns[f] == column {
			return true
		}
	}
	return false
}
