package domain

// Column names of the consolidated dataset.
const (
	ColDate         = "date"
	ColYear         = "year"
	ColMonth        = "month"
	ColYearMonth    = "year_month"
	ColDay          = "day"
	ColWeekISO      = "week_iso"
	ColWeekday      = "weekday"
	ColLat          = "lat"
	ColLon          = "lon"
	ColState        = "state"
	ColMunicipality = "municipality"
	ColBiome        = "biome"
	ColBiomeState   = "biome_state"
	ColSource       = "_source_file"
)

// DatasetColumns lists the fixed columns in storage order. Extra columns
// follow them.
var DatasetColumns = []string{
	ColDate, ColYear, ColMonth, ColYearMonth, ColDay, ColWeekISO, ColWeekday,
	ColLat, ColLon, ColState, ColMunicipality, ColBiome, ColBiomeState, ColSource,
}

// IsDerivedColumn reports whether name holds a value computed from the date.
func IsDerivedColumn(name string) bool {
	switch name {
	case ColYear, ColMonth, ColYearMonth, ColDay, ColWeekISO, ColWeekday:
		return true
	}
	return false
}
