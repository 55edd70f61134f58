package geo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var northSouth = []Center{
	{Name: "North", Email: "n@x", Latitude: 10, Longitude: 10},
	{Name: "South", Email: "s@x", Latitude: -10, Longitude: -10},
}

func TestDistance_KnownValues(t *testing.T) {
	// One degree of longitude along the equator.
	d := Distance(Point{0, 0}, Point{0, 1})
	assert.InDelta(t, 111.19, d, 0.01)

	// Pole to pole is half the circumference.
	d = Distance(Point{90, 0}, Point{-90, 0})
	assert.InDelta(t, math.Pi*EarthRadiusKm, d, 1e-6)
}

func TestDistance_Symmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		a := Point{rng.Float64()*180 - 90, rng.Float64()*360 - 180}
		b := Point{rng.Float64()*180 - 90, rng.Float64()*360 - 180}

		assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
		assert.InDelta(t, 0, Distance(a, a), 1e-9)
	}
}

func TestNearest_NorthSouth(t *testing.T) {
	c, err := Nearest(9, 9, northSouth)
	require.NoError(t, err)
	assert.Equal(t, "North", c.Name)

	c, err = Nearest(-9, -9, northSouth)
	require.NoError(t, err)
	assert.Equal(t, "South", c.Name)
}

func TestNearest_SingleCenter(t *testing.T) {
	only := []Center{{Name: "Only", Email: "o@x", Latitude: 45, Longitude: 7}}
	for _, p := range []Point{{0, 0}, {-89, 179}, {45, 7}, {90, -180}} {
		c, err := Nearest(p.Latitude, p.Longitude, only)
		require.NoError(t, err)
		assert.Equal(t, "Only", c.Name)
	}
}

func TestNearest_TieGoesToFirst(t *testing.T) {
	centers := []Center{
		{Name: "East", Latitude: 0, Longitude: 5},
		{Name: "West", Latitude: 0, Longitude: -5},
	}
	c, err := Nearest(0, 0, centers)
	require.NoError(t, err)
	assert.Equal(t, "East", c.Name)

	c, err = Nearest(0, 0, []Center{centers[1], centers[0]})
	require.NoError(t, err)
	assert.Equal(t, "West", c.Name)
}

func TestNearest_NoCenters(t *testing.T) {
	_, err := Nearest(0, 0, nil)
	assert.ErrorIs(t, err, ErrNoCenters)
}

func TestNearest_IsMinimal(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	centers := make([]Center, 25)
	for i := range centers {
		centers[i] = Center{Latitude: rng.Float64()*180 - 90, Longitude: rng.Float64()*360 - 180}
	}

	for i := 0; i < 100; i++ {
		p := Point{rng.Float64()*180 - 90, rng.Float64()*360 - 180}
		got, err := Nearest(p.Latitude, p.Longitude, centers)
		require.NoError(t, err)

		best := Distance(p, got.Point())
		for _, c := range centers {
			assert.LessOrEqual(t, best, Distance(p, c.Point()))
		}
	}
}

func TestValidCoordinates(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{200, 10, false},
		{10, 181, false},
		{-90.0001, 0, false},
		{math.NaN(), 0, false},
		{0, math.Inf(1), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidCoordinates(tt.lat, tt.lon), "(%v, %v)", tt.lat, tt.lon)
	}
}
