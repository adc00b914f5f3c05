// Command validate performs end-to-end integrity checks of the consolidated
// hotspot dataset against the raw CSV exports it was built from: row
// conservation, coordinate bounds, carried-over source columns, category
// normalization and provenance.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -raw-dir data/raw/queimadas \
//	  -parquet data/processed/focos_2019_2024.parquet \
//	  -profile brazil
//
// Defaults come from the same environment variables as the pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/hotspot-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/hotspot-etl/internal/adapter/parquet"
	"github.com/couchcryptid/hotspot-etl/internal/config"
	"github.com/couchcryptid/hotspot-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// maxErrorsPerPhase caps the detail printed for a failing phase.
const maxErrorsPerPhase = 20

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}

	rawDir := flag.String("raw-dir", cfg.RawDir, "directory containing the raw hotspot CSV exports")
	pattern := flag.String("pattern", cfg.RawPattern, "glob pattern of the raw files")
	parquetPath := flag.String("parquet", cfg.ParquetPath(), "path to the consolidated Parquet dataset")
	profile := flag.String("profile", cfg.CoordProfile, "coordinate profile used at ingest: brazil, world or none")
	flag.Parse()

	if code := run(context.Background(), os.Stdout, *rawDir, *pattern, *parquetPath, *profile, cfg.NormalizeCacheSize); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, out io.Writer, rawDir, pattern, parquetPath, profile string, cacheSize int) int {
	fmt.Fprintln(out, "=== Hotspot Dataset Integrity Validation ===")
	fmt.Fprintln(out)

	bounds, err := domain.BoundsForProfile(profile)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}
	text, err := domain.NewTextNormalizer(cacheSize)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}

	// ── Load both sides ──
	expected, stats, err := rebuild(rawDir, pattern, domain.NewCleaner(bounds, text))
	if err != nil {
		fmt.Fprintf(out, "FATAL: rebuild from raw files: %v\n", err)
		return 1
	}
	actual, err := parquet.Read(ctx, parquetPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: read dataset: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateConservation(stats, expected, actual),
		validateCoordinates(actual, bounds),
		validateExtraColumns(expected, actual),
		validateCategories(actual, text),
		validateProvenance(expected, actual),
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Records: %d raw, %d kept, %d invalid dates, %d invalid coordinates, %d in dataset\n",
		stats.Input, stats.Kept, stats.InvalidDates, stats.InvalidCoords, actual.Len())

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxErrorsPerPhase {
				fmt.Fprintf(out, "  ... %d more\n", len(p.errors)-i)
				break
			}
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// rebuild re-runs reading and cleaning over the raw files without writing anything.
func rebuild(dir, pattern string, cleaner *domain.Cleaner) (domain.Dataset, domain.CleanStats, error) {
	reader := csvsource.NewReader(slog.New(slog.NewTextHandler(io.Discard, nil)))
	paths, err := reader.List(dir, pattern)
	if err != nil {
		return domain.Dataset{}, domain.CleanStats{}, err
	}

	var ds domain.Dataset
	var total domain.CleanStats
	for _, path := range paths {
		table, err := reader.ReadFile(path)
		if err != nil {
			return domain.Dataset{}, domain.CleanStats{}, err
		}
		cm, err := domain.ResolveColumns(table.Header)
		if err != nil {
			return domain.Dataset{}, domain.CleanStats{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		records, extras, stats, err := cleaner.Clean(table, cm)
		if err != nil {
			return domain.Dataset{}, domain.CleanStats{}, err
		}
		ds.Append(table.Source, records, extras)
		total.Add(stats)
	}
	return ds, total, nil
}

// ── Validation phases ──

// validateConservation checks rows_in = rows_kept + rows_dropped and that
// the dataset holds exactly the kept rows.
func validateConservation(stats domain.CleanStats, expected, actual domain.Dataset) *phase {
	p := &phase{name: "Phase 1: Row conservation"}
	if stats.Input != stats.Kept+stats.InvalidDates+stats.InvalidCoords {
		p.errorf("raw rows %d != kept %d + invalid dates %d + invalid coordinates %d",
			stats.Input, stats.Kept, stats.InvalidDates, stats.InvalidCoords)
	}
	if actual.Len() != expected.Len() {
		p.errorf("dataset has %d rows, raw files clean to %d", actual.Len(), expected.Len())
		return p
	}
	for i := range actual.Records {
		a, e := actual.Records[i], expected.Records[i]
		if !a.Date.Equal(e.Date) || a.Source != e.Source {
			p.errorf("row %d: dataset has %s from %s, raw has %s from %s",
				i, a.Date.Format("2006-01-02 15:04:05"), a.Source, e.Date.Format("2006-01-02 15:04:05"), e.Source)
		}
	}
	return p
}

// validateCoordinates checks every coordinate against the world bounds and,
// when a profile was used at ingest, against that profile.
func validateCoordinates(ds domain.Dataset, profile *domain.Bounds) *phase {
	p := &phase{name: "Phase 2: Coordinates within bounds"}

	var located []domain.Hotspot
	for _, h := range ds.Records {
		if h.HasCoords {
			located = append(located, h)
		}
	}
	if _, dropped := domain.ValidateCoordinates(located, domain.WorldBounds); dropped > 0 {
		p.errorf("%d rows outside %s bounds", dropped, domain.WorldBounds.Name)
	}
	if profile == nil {
		return p
	}
	for i, h := range ds.Records {
		if h.HasCoords && !profile.Contains(h.Lat, h.Lon) {
			p.errorf("row %d: (%g, %g) outside %s bounds", i, h.Lat, h.Lon, profile.Name)
		}
	}
	return p
}

func validateExtraColumns(expected, actual domain.Dataset) *phase {
	p := &phase{name: "Phase 3: Unmapped source columns"}
	if strings.Join(actual.ExtraColumns, ",") != strings.Join(expected.ExtraColumns, ",") {
		p.errorf("dataset carries %v, raw files carry %v", actual.ExtraColumns, expected.ExtraColumns)
		return p
	}
	if actual.Len() != expected.Len() {
		return p
	}
	for i := range actual.Records {
		for _, col := range actual.ExtraColumns {
			if a, e := actual.Records[i].Extra[col], expected.Records[i].Extra[col]; a != e {
				p.errorf("row %d: %s = %q, raw has %q", i, col, a, e)
			}
		}
	}
	return p
}

func validateCategories(ds domain.Dataset, text *domain.TextNormalizer) *phase {
	p := &phase{name: "Phase 4: Category normalization"}
	for i, h := range ds.Records {
		for _, c := range [...]struct{ field, value string }{
			{domain.ColState, h.State},
			{domain.ColMunicipality, h.Municipality},
			{domain.ColBiome, h.Biome},
		} {
			if c.value != "" && text.Title(c.value) != c.value {
				p.errorf("row %d: %s %q is not normalized", i, c.field, c.value)
			}
		}
		want := ""
		if h.Biome != "" && h.State != "" {
			want = h.Biome + "_" + h.State
		}
		if h.BiomeState != want {
			p.errorf("row %d: %s %q, want %q", i, domain.ColBiomeState, h.BiomeState, want)
		}
	}
	return p
}

func validateProvenance(expected, actual domain.Dataset) *phase {
	p := &phase{name: "Phase 5: Provenance"}
	// Files that cleaned to zero rows leave no trace in the dataset.
	if want := recordSources(expected); strings.Join(actual.Sources, ",") != strings.Join(want, ",") {
		p.errorf("dataset sources %v, raw files %v", actual.Sources, want)
	}
	known := make(map[string]bool, len(actual.Sources))
	for _, s := range actual.Sources {
		known[s] = true
	}
	for i, h := range actual.Records {
		if !known[h.Source] {
			p.errorf("row %d: unknown source %q", i, h.Source)
		}
	}
	return p
}

func recordSources(ds domain.Dataset) []string {
	seen := make(map[string]bool)
	var out []string
	for _, h := range ds.Records {
		if !seen[h.Source] {
			seen[h.Source] = true
			out = append(out, h.Source)
		}
	}
	return out
}
