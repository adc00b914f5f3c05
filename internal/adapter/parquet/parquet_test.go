package parquet

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/hotspot-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hotspot(ts time.Time, source string) domain.Hotspot {
	return domain.Hotspot{Date: ts, Calendar: domain.DeriveCalendar(ts), Source: source}
}

func sampleDataset() domain.Dataset {
	a := hotspot(time.Date(2019, 12, 30, 17, 45, 12, 0, time.UTC), "2019.csv")
	a.Lat, a.Lon, a.HasCoords = -10.5, -50.25, true
	a.State, a.Biome, a.BiomeState = "Mato Grosso", "Cerrado", "Cerrado_Mato Grosso"
	a.Municipality = "São Félix Do Araguaia"
	a.Extra = map[string]string{"satelite": "AQUA_M-T"}

	b := hotspot(time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC), "2020.csv")
	b.Extra = map[string]string{"frp": "12.5"}

	c := hotspot(time.Date(2024, 6, 2, 3, 4, 5, 0, time.UTC), "2020.csv")
	c.Biome = "Pantanal"

	var ds domain.Dataset
	ds.Append("2019.csv", []domain.Hotspot{a}, []string{"satelite"})
	ds.Append("2020.csv", []domain.Hotspot{b, c}, []string{"frp"})
	return ds
}

func TestWriteRead_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed", "focos.parquet")
	want := sampleDataset()

	require.NoError(t, Write(path, want))

	got, err := Read(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, want.ExtraColumns, got.ExtraColumns)
	assert.Equal(t, want.Sources, got.Sources)
	require.Len(t, got.Records, want.Len())

	for i := range want.Records {
		w, g := want.Records[i], got.Records[i]
		assert.True(t, w.Date.Equal(g.Date), "row %d date", i)
		assert.Equal(t, domain.DeriveCalendar(w.Date), g.Calendar, "row %d calendar", i)
		assert.Equal(t, w.HasCoords, g.HasCoords)
		assert.InDelta(t, w.Lat, g.Lat, 1e-12)
		assert.InDelta(t, w.Lon, g.Lon, 1e-12)
		assert.Equal(t, w.State, g.State)
		assert.Equal(t, w.Municipality, g.Municipality)
		assert.Equal(t, w.Biome, g.Biome)
		assert.Equal(t, w.BiomeState, g.BiomeState)
		assert.Equal(t, w.Source, g.Source)
		assert.Equal(t, w.Extra, g.Extra)
	}
}

func TestWrite_Replaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "focos.parquet")
	require.NoError(t, Write(path, sampleDataset()))

	var small domain.Dataset
	small.Append("2021.csv", []domain.Hotspot{hotspot(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), "2021.csv")}, nil)
	require.NoError(t, Write(path, small))

	got, err := Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
	assert.Empty(t, got.ExtraColumns)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestWriteRead_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, Write(path, domain.Dataset{}))

	got, err := Read(context.Background(), path)
	require.NoError(t, err)
	assert.Zero(t, got.Len())
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(context.Background(), filepath.Join(t.TempDir(), "nope.parquet"))
	assert.Error(t, err)
}

func TestSchema_Extras(t *testing.T) {
	s := Schema([]string{"id", "satelite"})
	assert.Equal(t, 16, s.NumFields())
	assert.Equal(t, domain.ColDate, s.Field(0).Name)
	assert.Equal(t, "satelite", s.Field(15).Name)
	assert.True(t, s.Field(15).Nullable)
}

func TestStore_CanceledContext(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "focos.parquet"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Write(ctx, sampleDataset())
	require.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(statErr))

	require.NoError(t, s.Write(context.Background(), sampleDataset()))
	got, err := s.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, got.Len())
}
