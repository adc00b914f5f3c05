// Package domain models satellite-detected wildfire hotspot ("focos de
// queimadas") records and the rules that turn raw yearly CSV exports into
// clean, typed rows.
//
// # Data Source
//
// Hotspots come from the yearly INPE "focos" exports (focos_ams_ref_YYYY.csv),
// one file per reporting year, 2019 through 2024. Every row is one thermal
// anomaly detected by one satellite pass. Column naming drifts between years:
//
//	date:          data_pas | data | dt | datetime
//	latitude:      lat | latitude
//	longitude:     lon | longitude
//	state:         estado | uf
//	municipality:  municipio | município | munic
//	biome:         bioma
//
// Headers are normalized before lookup (trimmed, lowercased, inner spaces
// replaced by underscores) and resolved once per file into a [ColumnMap].
// A file without a date column cannot be cleaned; every other field is
// optional and its derived outputs are skipped when absent.
//
// # Cleaning Rules
//
// Dates that fail to parse drop the row. When no row of a file has a
// parseable date the file is rejected with [ErrTotalParseFailure], since the
// wrong column was almost certainly resolved.
//
// Coordinates are checked against a closed bounding box. Two profiles exist:
//
//	BrazilBounds  lat [-33.8, 5.3]   lon [-74.1, -32.4]
//	WorldBounds   lat [-90, 90]      lon [-180, 180]
//
// Missing or non-numeric coordinates drop the row whenever validation is on.
//
// State, municipality and biome are trimmed and title-cased with Brazilian
// Portuguese casing rules ("  SÃO FÉLIX DO XINGU" becomes "São Félix Do Xingu").
// Free text used for keys and file names additionally has its diacritics
// stripped ("Amazônia" becomes "Amazonia").
//
// Every dropped row is counted, so for any batch
//
//	Kept + InvalidDates + InvalidCoords == Input
//
// # Derived Fields
//
// Calendar fields are always computed by [DeriveCalendar] from the UTC date,
// whether the record was just cleaned or re-read from the Parquet artifact:
// year, month, "YYYY-MM", day (midnight UTC), ISO week and weekday
// (0 = Monday .. 6 = Sunday).
//
// # Duplicates
//
// Rows are never deduplicated. Two identical detections are two hotspots:
// each satellite pass is a separate observation of the same fire.
package domain
