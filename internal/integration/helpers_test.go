//go:build integration

package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/couchcryptid/hotspot-etl/internal/domain"
	"github.com/couchcryptid/hotspot-etl/internal/observability"
	"github.com/couchcryptid/hotspot-etl/internal/report"
)

// memoryStore serves a fixed dataset to the analysis stage.
type memoryStore struct {
	dataset domain.Dataset
}

func (m memoryStore) Write(context.Context, domain.Dataset) error { return nil }

func (m memoryStore) Read(context.Context) (domain.Dataset, error) { return m.dataset, nil }

func reportWriter(t *testing.T, metrics *observability.Metrics) *report.Writer {
	t.Helper()
	return report.NewWriter(t.TempDir(), discardLogger(), metrics)
}

// spikyDataset is spikySeries expanded into Cerrado hotspots.
func spikyDataset() domain.Dataset {
	var recs []domain.Hotspot
	for _, dc := range spikySeries() {
		for i := 0; i < dc.Count; i++ {
			h := domain.Hotspot{
				Date:       dc.Day.Add(15 * time.Hour),
				Biome:      "Cerrado",
				State:      "Goiás",
				BiomeState: "Cerrado_Goiás",
				Source:     "focos_2024.csv",
			}
			h.Calendar = domain.DeriveCalendar(h.Date)
			recs = append(recs, h)
		}
	}
	var ds domain.Dataset
	ds.Append("focos_2024.csv", recs, nil)
	return ds
}
