// Command genmock writes synthetic yearly hotspot CSV exports shaped like the
// satellite reference files, for trying the pipeline without the real
// downloads. Detections follow the dry-season cycle with a drought peak, and a
// small share of rows carry unparseable dates or coordinates outside the
// national territory so the cleaning path is exercised.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/raw/queimadas \
//	  -years 2019-2024 \
//	  -per-day 40 \
//	  -latin1 2019,2020
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

type place struct {
	state        string
	municipality string
	biome        string
	lat, lon     float64
	weight       float64
}

var places = []place{
	{"PARÁ", "SÃO FÉLIX DO XINGU", "Amazônia", -6.64, -51.99, 9},
	{"PARÁ", "ALTAMIRA", "Amazônia", -3.20, -52.21, 8},
	{"AMAZONAS", "LÁBREA", "Amazônia", -7.26, -64.80, 5},
	{"MATO GROSSO", "COLNIZA", "Amazônia", -9.46, -59.23, 4},
	{"MATO GROSSO", "SÃO FÉLIX DO ARAGUAIA", "Cerrado", -11.62, -50.67, 5},
	{"TOCANTINS", "FORMOSO DO ARAGUAIA", "Cerrado", -11.80, -49.53, 4},
	{"MARANHÃO", "BALSAS", "Cerrado", -7.53, -46.04, 4},
	{"GOIÁS", "NIQUELÂNDIA", "Cerrado", -14.47, -48.46, 2},
	{"MATO GROSSO DO SUL", "CORUMBÁ", "Pantanal", -19.01, -57.65, 5},
	{"BAHIA", "FORMOSA DO RIO PRETO", "Caatinga", -11.05, -45.19, 2},
	{"PIAUÍ", "URUÇUÍ", "Caatinga", -7.23, -44.56, 2},
	{"MINAS GERAIS", "JANUÁRIA", "Mata Atlântica", -15.49, -44.36, 1},
	{"RIO GRANDE DO SUL", "ALEGRETE", "Pampa", -29.78, -55.79, 0.5},
}

var satellites = []string{"AQUA_M-T", "TERRA_M-T", "NPP-375", "NOAA-20", "GOES-16"}

var header = []string{"id", "lat", "lon", "data_pas", "satelite", "pais", "estado", "municipio", "bioma", "numero_dias_sem_chuva", "precipitacao", "risco_fogo", "frp"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", filepath.Join("data", "raw", "queimadas"), "output directory for the yearly CSV files")
	years := flag.String("years", "2019-2024", "inclusive year range, e.g. 2019-2024")
	perDay := flag.Float64("per-day", 40, "mean detections per day outside the dry season")
	latin1 := flag.String("latin1", "2019,2020", "comma-separated years written as ISO-8859-1")
	drought := flag.String("drought", "2020,2024", "comma-separated years with an amplified dry season")
	badRate := flag.Float64("bad-rate", 0.002, "share of rows with a broken date or coordinate")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	first, last, err := parseYearRange(*years)
	if err != nil {
		return err
	}
	latinYears, err := parseYearSet(*latin1)
	if err != nil {
		return fmt.Errorf("-latin1: %w", err)
	}
	droughtYears, err := parseYearSet(*drought)
	if err != nil {
		return fmt.Errorf("-drought: %w", err)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	g := generator{rng: rng, perDay: *perDay, badRate: *badRate}

	total := 0
	for year := first; year <= last; year++ {
		path := filepath.Join(*out, fmt.Sprintf("focos_ams_ref_%d.csv", year))
		n, err := g.writeYear(path, year, droughtYears[year], latinYears[year])
		if err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		enc := "utf-8"
		if latinYears[year] {
			enc = "iso-8859-1"
		}
		log.Printf("%d: %d rows (%s) -> %s", year, n, enc, path)
		total += n
	}
	log.Printf("total: %d rows", total)
	return nil
}

type generator struct {
	rng     *rand.Rand
	perDay  float64
	badRate float64
	nextID  int
}

func (g *generator) writeYear(path string, year int, drought, latin1 bool) (n int, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var sink io.Writer = f
	var encoder *transform.Writer
	if latin1 {
		encoder = transform.NewWriter(f, charmap.ISO8859_1.NewEncoder())
		sink = encoder
	}
	w := csv.NewWriter(sink)
	if err := w.Write(header); err != nil {
		return 0, err
	}

	day := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	for day.Year() == year {
		count := g.poisson(g.perDay * seasonalFactor(day, drought))
		for i := 0; i < count; i++ {
			if err := w.Write(g.row(day)); err != nil {
				return n, err
			}
			n++
		}
		day = day.AddDate(0, 0, 1)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return n, err
	}
	if encoder != nil {
		// Close flushes the encoder; f is closed by the deferred call.
		return n, encoder.Close()
	}
	return n, nil
}

// seasonalFactor peaks in September. Drought years get a sharper peak and a
// short burst in mid-August.
func seasonalFactor(day time.Time, drought bool) float64 {
	doy := float64(day.YearDay())
	season := 0.3 + 4*math.Exp(-math.Pow((doy-250)/35, 2))
	if drought {
		season *= 1.8
		if day.Month() == time.August && day.Day() >= 10 && day.Day() <= 13 {
			season *= 4
		}
	}
	return season
}

func (g *generator) row(day time.Time) []string {
	p := g.pickPlace()
	g.nextID++

	ts := day.Add(time.Duration(g.rng.IntN(86400)) * time.Second)
	date := ts.Format("2006-01-02 15:04:05")
	lat := p.lat + g.rng.NormFloat64()*0.25
	lon := p.lon + g.rng.NormFloat64()*0.25

	if g.rng.Float64() < g.badRate {
		switch g.rng.IntN(3) {
		case 0:
			date = "sem data"
		case 1:
			lat = -40 - g.rng.Float64()*5
		default:
			lon = 0
		}
	}

	return []string{
		strconv.Itoa(g.nextID),
		strconv.FormatFloat(lat, 'f', 5, 64),
		strconv.FormatFloat(lon, 'f', 5, 64),
		date,
		satellites[g.rng.IntN(len(satellites))],
		"Brasil",
		p.state,
		p.municipality,
		p.biome,
		strconv.Itoa(g.rng.IntN(60)),
		strconv.FormatFloat(g.rng.Float64()*5, 'f', 1, 64),
		strconv.FormatFloat(g.rng.Float64(), 'f', 2, 64),
		strconv.FormatFloat(g.rng.ExpFloat64()*25, 'f', 1, 64),
	}
}

func (g *generator) pickPlace() place {
	sum := 0.0
	for _, p := range places {
		sum += p.weight
	}
	x := g.rng.Float64() * sum
	for _, p := range places {
		x -= p.weight
		if x < 0 {
			return p
		}
	}
	return places[len(places)-1]
}

// poisson draws with Knuth's method for small means and a rounded normal
// approximation above 30.
func (g *generator) poisson(mean float64) int {
	if mean <= 0 {
		return 0
	}
	if mean > 30 {
		return max(0, int(math.Round(mean+g.rng.NormFloat64()*math.Sqrt(mean))))
	}
	limit := math.Exp(-mean)
	k, p := 0, 1.0
	for {
		p *= g.rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

func parseYearRange(s string) (int, int, error) {
	lo, hi, found := strings.Cut(s, "-")
	first, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid -years %q", s)
	}
	if !found {
		return first, first, nil
	}
	last, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil || last < first {
		return 0, 0, fmt.Errorf("invalid -years %q", s)
	}
	return first, last, nil
}

func parseYearSet(s string) (map[int]bool, error) {
	set := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", part)
		}
		set[y] = true
	}
	return set, nil
}
