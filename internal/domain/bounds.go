package domain

import (
	"fmt"
	"math"
)

// Bounds is a closed latitude/longitude bounding box.
type Bounds struct {
	Name   string
	LatMin float64
	LatMax float64
	LonMin float64
	LonMax float64
}

var (
	// WorldBounds accepts any valid WGS84 coordinate.
	WorldBounds = Bounds{Name: "world", LatMin: -90, LatMax: 90, LonMin: -180, LonMax: 180}

	// BrazilBounds approximates the Brazilian national territory.
	BrazilBounds = Bounds{Name: "brazil", LatMin: -33.8, LatMax: 5.3, LonMin: -74.1, LonMax: -32.4}
)

// BoundsForProfile maps a profile name to its bounds. The "none" profile
// returns nil, which disables coordinate validation.
func BoundsForProfile(name string) (*Bounds, error) {
	switch name {
	case "brazil":
		b := BrazilBounds
		return &b, nil
	case "world":
		b := WorldBounds
		return &b, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown coordinate profile %q", name)
	}
}

// Contains reports whether (lat, lon) lies inside b, edges included.
// NaN coordinates are never contained.
func (b Bounds) Contains(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= b.LatMin && lat <= b.LatMax && lon >= b.LonMin && lon <= b.LonMax
}

// ValidateCoordinates keeps the records whose coordinates are present and
// inside b, returning them with the number dropped.
func ValidateCoordinates(records []Hotspot, b Bounds) ([]Hotspot, int) {
	kept := make([]Hotspot, 0, len(records))
	for i := range records {
		if records[i].HasCoords && b.Contains(records[i].Lat, records[i].Lon) {
			kept = append(kept, records[i])
		}
	}
	return kept, len(records) - len(kept)
}
