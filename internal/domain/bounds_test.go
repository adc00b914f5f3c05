package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBounds_Contains(t *testing.T) {
	assert.True(t, BrazilBounds.Contains(5.3, -32.4))
	assert.True(t, BrazilBounds.Contains(-33.8, -74.1))
	assert.False(t, BrazilBounds.Contains(5.3001, -50))
	assert.False(t, BrazilBounds.Contains(-10, -32.3999))
	assert.False(t, BrazilBounds.Contains(math.NaN(), -50))

	assert.True(t, WorldBounds.Contains(90, 180))
	assert.True(t, WorldBounds.Contains(-90, -180))
	assert.False(t, WorldBounds.Contains(90.0001, 0))
}

func TestValidateCoordinates(t *testing.T) {
	records := []Hotspot{
		{Lat: -40, Lon: -50, HasCoords: true},
		{Lat: -10, Lon: -50, HasCoords: true},
		{Lat: 95, Lon: 0, HasCoords: true},
		{HasCoords: false},
	}

	kept, dropped := ValidateCoordinates(records, WorldBounds)
	assert.Len(t, kept, 2)
	assert.Equal(t, 2, dropped)

	kept, dropped = ValidateCoordinates(records, BrazilBounds)
	require.Len(t, kept, 1)
	assert.InDelta(t, -10.0, kept[0].Lat, 1e-9)
	assert.Equal(t, 3, dropped)
}

func TestBoundsForProfile(t *testing.T) {
	b, err := BoundsForProfile("brazil")
	require.NoError(t, err)
	assert.Equal(t, BrazilBounds, *b)

	b, err = BoundsForProfile("world")
	require.NoError(t, err)
	assert.Equal(t, WorldBounds, *b)

	b, err = BoundsForProfile("none")
	require.NoError(t, err)
	assert.Nil(t, b)

	_, err = BoundsForProfile("mars")
	assert.Error(t, err)
}
