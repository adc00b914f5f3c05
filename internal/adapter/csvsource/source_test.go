package csvsource

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/hotspot-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "focos_2020.csv", []byte("data\n"))
	writeFile(t, dir, "focos_2019.csv", []byte("data\n"))
	writeFile(t, dir, "notes.txt", []byte("x"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.csv"), 0o755))

	files, err := ListFiles(dir, "*.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "focos_2019.csv"),
		filepath.Join(dir, "focos_2020.csv"),
	}, files)
}

func TestListFiles_NoInput(t *testing.T) {
	_, err := ListFiles(t.TempDir(), "*.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoInput)
}

func TestDecode(t *testing.T) {
	t.Run("utf-8 passes through", func(t *testing.T) {
		out, enc, err := Decode([]byte("bioma\nAmazônia\n"))
		require.NoError(t, err)
		assert.Equal(t, EncodingUTF8, enc)
		assert.Equal(t, "bioma\nAmazônia\n", string(out))
	})

	t.Run("latin-1 fallback", func(t *testing.T) {
		// "Amazônia" with ô as the single byte 0xF4.
		out, enc, err := Decode([]byte("bioma\nAmaz\xf4nia\n"))
		require.NoError(t, err)
		assert.Equal(t, EncodingLatin1, enc)
		assert.Equal(t, "bioma\nAmazônia\n", string(out))
	})
}

func TestParse(t *testing.T) {
	in := strings.NewReader("DataPas,Lat , Lon,Bioma,lat\n" +
		"2019-01-01,-10,-50,Cerrado,x\n" +
		"2019-01-02,-11\n" +
		"2019-01-03,,-52,Pampa,y,extra\n")

	tbl, err := Parse(in)
	require.NoError(t, err)

	assert.Equal(t, []string{"datapas", "lat", "lon", "bioma", "lat.1"}, tbl.Header)
	require.Len(t, tbl.Records, 3)
	assert.Equal(t, domain.RawRecord{"datapas": "2019-01-01", "lat": "-10", "lon": "-50", "bioma": "Cerrado", "lat.1": "x"}, tbl.Records[0])
	assert.Equal(t, domain.RawRecord{"datapas": "2019-01-02", "lat": "-11"}, tbl.Records[1])

	_, hasLat := tbl.Records[2]["lat"]
	assert.False(t, hasLat, "empty cell is missing")
	assert.Equal(t, "Pampa", tbl.Records[2]["bioma"])
}

func TestParse_MissingHeader(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header")
}

func TestReader_ReadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("latin-1 file", func(t *testing.T) {
		path := writeFile(t, dir, "focos_ams_ref_2019.csv",
			[]byte("data_pas,estado,munic\xedpio\n2019-01-01,PAR\xc1,S\xc3O F\xc9LIX\n"))

		tbl, err := NewReader(discardLogger()).ReadFile(path)
		require.NoError(t, err)

		assert.Equal(t, "focos_ams_ref_2019.csv", tbl.Source)
		assert.Equal(t, EncodingLatin1, tbl.Encoding)
		assert.Equal(t, []string{"data_pas", "estado", "município"}, tbl.Header)
		require.Len(t, tbl.Records, 1)
		assert.Equal(t, "PARÁ", tbl.Records[0]["estado"])
		assert.Equal(t, "SÃO FÉLIX", tbl.Records[0]["município"])
	})

	t.Run("utf-8 file with byte order mark", func(t *testing.T) {
		path := writeFile(t, dir, "focos_ams_ref_2020.csv",
			[]byte("\xef\xbb\xbfdata_pas,bioma\n2020-01-01,Cerrado\n"))

		tbl, err := NewReader(discardLogger()).ReadFile(path)
		require.NoError(t, err)

		assert.Equal(t, EncodingUTF8, tbl.Encoding)
		assert.Equal(t, []string{"data_pas", "bioma"}, tbl.Header)
		assert.Equal(t, "Cerrado", tbl.Records[0]["bioma"])
	})
}

func TestReader_ReadFile_Missing(t *testing.T) {
	_, err := NewReader(discardLogger()).ReadFile(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
