package analysis

import (
	"testing"
	"time"

	"github.com/couchcryptid/hotspot-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spot(date, biome, state, municipality string) domain.Hotspot {
	ts, err := domain.ParseDate(date)
	if err != nil {
		panic(err)
	}
	h := domain.Hotspot{Date: ts, Calendar: domain.DeriveCalendar(ts), Biome: biome, State: state, Municipality: municipality}
	if biome != "" && state != "" {
		h.BiomeState = biome + "_" + state
	}
	return h
}

func utc(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var fixture = []domain.Hotspot{
	spot("2019-08-01 13:00", "Amazônia", "Pará", "Altamira"),
	spot("2019-08-01 17:30", "Amazônia", "Pará", "Altamira"),
	spot("2019-08-01 17:30", "Amazônia", "Pará", "Altamira"), // duplicate detection counts twice
	spot("2019-08-02", "Cerrado", "Tocantins", "Palmas"),
	spot("2019-10-15", "Cerrado", "Mato Grosso", "Altamira"),
	spot("2020-01-03", "", "Pará", "Novo Progresso"),
	spot("2020-01-03", "Amazônia", "Pará", "Novo Progresso"),
}

func TestDailyCounts(t *testing.T) {
	got := DailyCounts(fixture)
	assert.Equal(t, []DayCount{
		{Day: utc(2019, 8, 1), Count: 3},
		{Day: utc(2019, 8, 2), Count: 1},
		{Day: utc(2019, 10, 15), Count: 1},
		{Day: utc(2020, 1, 3), Count: 2},
	}, got)
	assert.Empty(t, DailyCounts(nil))
}

func TestDailyCountsBy(t *testing.T) {
	got := DailyCountsBy(fixture, ByBiome)
	require.Len(t, got, 2, "empty biome is not a group")
	assert.Equal(t, []DayCount{
		{Day: utc(2019, 8, 1), Count: 3},
		{Day: utc(2020, 1, 3), Count: 1},
	}, got["Amazônia"])
	assert.Equal(t, []DayCount{
		{Day: utc(2019, 8, 2), Count: 1},
		{Day: utc(2019, 10, 15), Count: 1},
	}, got["Cerrado"])
}

func TestMonthlyCounts_ZeroFillsGaps(t *testing.T) {
	got := MonthlyCounts(fixture)
	require.Len(t, got, 6)
	assert.Equal(t, MonthCount{Month: utc(2019, 8, 1), Count: 4}, got[0])
	assert.Equal(t, MonthCount{Month: utc(2019, 9, 1), Count: 0}, got[1])
	assert.Equal(t, MonthCount{Month: utc(2019, 10, 1), Count: 1}, got[2])
	assert.Equal(t, MonthCount{Month: utc(2020, 1, 1), Count: 2}, got[5])
	assert.Nil(t, MonthlyCounts(nil))
}

func TestPivotCounts(t *testing.T) {
	t.Run("monthly by biome", func(t *testing.T) {
		p := PivotCounts(fixture, BucketMonth, ByBiome)
		assert.Equal(t, []time.Time{utc(2019, 8, 1), utc(2019, 10, 1), utc(2020, 1, 1)}, p.Rows)
		assert.Equal(t, []string{"Amazônia", "Cerrado"}, p.Columns)
		assert.Equal(t, [][]int{{3, 1}, {0, 1}, {1, 0}}, p.Counts)

		col, ok := p.Column("Cerrado")
		require.True(t, ok)
		assert.Equal(t, []int{1, 1, 0}, col)
		_, ok = p.Column("Pampa")
		assert.False(t, ok)
	})

	t.Run("daily by state", func(t *testing.T) {
		p := PivotCounts(fixture, BucketDay, ByState)
		assert.Len(t, p.Rows, 4)
		assert.Equal(t, []string{"Mato Grosso", "Pará", "Tocantins"}, p.Columns)
		assert.Equal(t, []int{0, 3, 0}, p.Counts[0])
		assert.Equal(t, []int{0, 2, 0}, p.Counts[3])
	})

	t.Run("no groups", func(t *testing.T) {
		p := PivotCounts([]domain.Hotspot{spot("2019-01-01", "", "", "")}, BucketDay, ByBiome)
		assert.Empty(t, p.Rows)
		assert.Empty(t, p.Columns)
	})
}

func TestValueCounts(t *testing.T) {
	got := ValueCounts(fixture, ByState, 0)
	assert.Equal(t, []ValueCount{
		{Value: "Pará", Count: 5},
		{Value: "Mato Grosso", Count: 1},
		{Value: "Tocantins", Count: 1},
	}, got)

	assert.Len(t, ValueCounts(fixture, ByState, 2), 2)
}

func TestCountMonthYear(t *testing.T) {
	m := CountMonthYear(fixture)
	assert.Equal(t, []int{2019, 2020}, m.Years)
	assert.Equal(t, []int{4, 0}, m.Counts[7])
	assert.Equal(t, []int{1, 0}, m.Counts[9])
	assert.Equal(t, []int{0, 2}, m.Counts[0])
	assert.Equal(t, []int{0, 0}, m.Counts[11])
	assert.Equal(t, 4, m.Max())
}

func TestRankMunicipalities(t *testing.T) {
	got := RankMunicipalities(fixture, 0)
	require.Len(t, got, 3)

	assert.Equal(t, MunicipalityRank{Municipality: "Altamira", State: "Pará", Biome: "Amazônia", Count: 4}, got[0])
	assert.Equal(t, MunicipalityRank{Municipality: "Novo Progresso", State: "Pará", Biome: "Amazônia", Count: 2}, got[1])
	assert.Equal(t, MunicipalityRank{Municipality: "Palmas", State: "Tocantins", Biome: "Cerrado", Count: 1}, got[2])

	assert.Len(t, RankMunicipalities(fixture, 1), 1)
}

func TestRankMunicipalities_BiomeTieBreak(t *testing.T) {
	got := RankMunicipalities([]domain.Hotspot{
		spot("2021-01-01", "Pantanal", "Mato Grosso Do Sul", "Corumbá"),
		spot("2021-01-02", "Cerrado", "Mato Grosso", "Corumbá"),
	}, 15)
	require.Len(t, got, 1)
	assert.Equal(t, "Cerrado", got[0].Biome)
	assert.Equal(t, "Mato Grosso Do Sul", got[0].State)
}

func TestMonthlySeasonality(t *testing.T) {
	var records []domain.Hotspot
	add := func(date string, n int) {
		for i := 0; i < n; i++ {
			records = append(records, spot(date, "Cerrado", "Goiás", ""))
		}
	}
	add("2019-08-10", 10)
	add("2020-08-10", 20)
	add("2021-08-10", 40)
	add("2021-09-10", 5)
	records = append(records, spot("2020-08-11", "Pampa", "Rio Grande Do Sul", ""))

	s := MonthlySeasonality(records, ByBiome, "Cerrado")
	assert.Equal(t, "Cerrado", s.Group)
	require.Len(t, s.Monthly, 26)

	aug, ok := s.Band(8)
	require.True(t, ok)
	assert.InDelta(t, 15.0, aug.Q25, 1e-9)
	assert.InDelta(t, 20.0, aug.Median, 1e-9)
	assert.InDelta(t, 30.0, aug.Q75, 1e-9)

	sep, ok := s.Band(9)
	require.True(t, ok)
	// Sep 2019 and Sep 2020 are zero-filled months
	assert.InDelta(t, 0.0, sep.Median, 1e-9)
	assert.InDelta(t, 2.5, sep.Q75, 1e-9)

	assert.Len(t, s.Bands, 12)
}
