package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextNormalizer_Title(t *testing.T) {
	n, err := NewTextNormalizer(8)
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{" cerrado ", "Cerrado"},
		{"MATA ATLÂNTICA", "Mata Atlântica"},
		{"são   félix do xingu", "São Félix Do Xingu"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Title(tt.in))
			// second call is served from the cache
			assert.Equal(t, tt.want, n.Title(tt.in))
		})
	}
}

func TestTextNormalizer_Plain(t *testing.T) {
	n, err := NewTextNormalizer(8)
	require.NoError(t, err)

	assert.Equal(t, "Amazonia", n.Plain(" Amazônia "))
	assert.Equal(t, "Sao Paulo", n.Plain("São Paulo"))
	assert.Equal(t, "Para", n.Plain("Pará"))
}

func TestNewTextNormalizer_InvalidSize(t *testing.T) {
	_, err := NewTextNormalizer(0)
	assert.Error(t, err)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "mata_atlantica", Slug("Mata Atlântica"))
	assert.Equal(t, "amazonia", Slug("  Amazônia "))
	assert.Equal(t, "cerrado_mato_grosso", Slug("Cerrado_Mato Grosso"))
	assert.Equal(t, "", Slug(" -- "))
}
