package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hotspot-etl/internal/analysis"
	"github.com/couchcryptid/hotspot-etl/internal/domain"
	"github.com/couchcryptid/hotspot-etl/internal/pipeline"
	"github.com/couchcryptid/hotspot-etl/internal/report"
)

func TestStorytelling_Run(t *testing.T) {
	tablesDir := filepath.Join(t.TempDir(), "processed")
	figsDir := filepath.Join(t.TempDir(), "figs")
	metrics := newTestMetrics()
	s := pipeline.NewStorytelling(&mockStore{dataset: sampleDataset()},
		report.NewWriter(tablesDir, discardLogger(), metrics),
		report.NewWriter(figsDir, discardLogger(), metrics),
		analysis.DefaultAnomalyOptions(), discardLogger(), metrics)

	res, err := s.Run(context.Background())
	require.NoError(t, err)

	want := []string{
		report.ChartAnomalyTimeline,
		report.ChartEnvelopePrefix + "amazonia",
		report.ChartEnvelopePrefix + "cerrado",
		report.ChartEnvelopePrefix + "caatinga",
		report.ChartHeatmap,
		report.ChartMunicipalityRank,
		report.ChartBiomeAnomalies,
	}
	require.Len(t, res.Charts, len(want), "no Mata Atlântica records, so its envelope is skipped")
	for i, name := range want {
		assert.Equal(t, filepath.Join(figsDir, name+".png"), res.Charts[i])
		info, err := os.Stat(res.Charts[i])
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	_, err = os.Stat(filepath.Join(figsDir, report.ChartEnvelopePrefix+domain.Slug("Mata Atlântica")+".png"))
	assert.True(t, os.IsNotExist(err))

	require.Len(t, res.Tables, 1)
	ranking, err := os.ReadFile(res.Tables[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(ranking)), "\n")
	assert.Equal(t, "rank,municipality,state,biome,count", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,Niquelândia,Goiás,Cerrado,"))
	assert.Len(t, lines, 6, "header plus five named municipalities")

	assert.InDelta(t, 7.0, testutil.ToFloat64(metrics.ArtifactsWritten.WithLabelValues(report.KindChart)), 1e-9)
}

func TestStorytelling_Run_EmptyDataset(t *testing.T) {
	s := pipeline.NewStorytelling(&mockStore{},
		report.NewWriter(t.TempDir(), discardLogger(), nil),
		report.NewWriter(t.TempDir(), discardLogger(), nil),
		analysis.DefaultAnomalyOptions(), discardLogger(), newTestMetrics())

	_, err := s.Run(context.Background())
	assert.ErrorIs(t, err, pipeline.ErrEmptyDataset)
}
