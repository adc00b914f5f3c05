package pipeline_test

import (
	"time"

	"github.com/couchcryptid/hotspot-etl/internal/domain"
)

func hotspot(day time.Time, biome, state, municipality string) domain.Hotspot {
	h := domain.Hotspot{
		Date:         day.Add(14 * time.Hour),
		Biome:        biome,
		State:        state,
		Municipality: municipality,
		Source:       "focos_" + day.Format("2006") + ".csv",
	}
	h.Calendar = domain.DeriveCalendar(h.Date)
	if biome != "" && state != "" {
		h.BiomeState = biome + "_" + state
	}
	return h
}

// sampleDataset spans August 2020 and August 2024 with a clear daily peak in
// the Cerrado (2020-08-21) and the Pantanal (2024-08-11). The Pampa and the
// Caatinga have the same count every day, and the Amazônia alternates 1 and 2
// so its MAD is zero too.
func sampleDataset() domain.Dataset {
	var recs2020, recs2024 []domain.Hotspot
	for d := 0; d < 31; d++ {
		day := time.Date(2020, 8, 1+d, 0, 0, 0, 0, time.UTC)
		n := 4 + d%3
		if d == 20 {
			n = 90
		}
		for i := 0; i < n; i++ {
			recs2020 = append(recs2020, hotspot(day, "Cerrado", "Goiás", "Niquelândia"))
		}
		recs2020 = append(recs2020,
			hotspot(day, "Amazônia", "Pará", "Altamira"),
			hotspot(day, "Pampa", "Rio Grande Do Sul", "Alegrete"),
		)
		if d%2 == 0 {
			recs2020 = append(recs2020, hotspot(day, "Amazônia", "Pará", "São Félix Do Xingu"))
		}
	}
	for d := 0; d < 31; d++ {
		day := time.Date(2024, 8, 1+d, 0, 0, 0, 0, time.UTC)
		n := 2 + d%2
		if d == 10 {
			n = 70
		}
		for i := 0; i < n; i++ {
			recs2024 = append(recs2024, hotspot(day, "Pantanal", "Mato Grosso Do Sul", "Corumbá"))
		}
		recs2024 = append(recs2024, hotspot(day, "Caatinga", "Bahia", ""))
	}

	var ds domain.Dataset
	ds.Append("focos_2020.csv", recs2020, nil)
	ds.Append("focos_2024.csv", recs2024, nil)
	return ds
}
