package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsForTesting_IndependentRegistries(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.RowsDropped.WithLabelValues(DropInvalidDate).Add(3)

	assert.InDelta(t, 3.0, testutil.ToFloat64(a.RowsDropped.WithLabelValues(DropInvalidDate)), 1e-9)
	assert.InDelta(t, 0.0, testutil.ToFloat64(b.RowsDropped.WithLabelValues(DropInvalidDate)), 1e-9)
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetricsForTesting()
	m.RowsRead.WithLabelValues("focos_2019.csv").Add(10)
	m.RowsDropped.WithLabelValues(DropInvalidCoord).Inc()
	m.RowsWritten.Add(9)

	path := filepath.Join(t.TempDir(), "hotspot.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `hotspot_etl_rows_read_total{source="focos_2019.csv"} 10`)
	assert.Contains(t, out, `hotspot_etl_rows_dropped_total{reason="invalid_coordinate"} 1`)
	assert.Contains(t, out, "hotspot_etl_rows_written_total 9")
}

func TestWriteTextfile_EmptyPathIsNoop(t *testing.T) {
	m := NewMetricsForTesting()
	assert.NoError(t, m.WriteTextfile(""))
}
