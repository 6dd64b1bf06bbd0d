package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm_SamePointIsZero(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{37.5665, 126.9780},
		{-33.8688, 151.2093},
		{89.9, -179.9},
	}

	for _, p := range points {
		assert.Equal(t, 0.0, DistanceKm(p[0], p[1], p[0], p[1]))
	}
}

func TestDistanceKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name     string
		lat1     float64
		lon1     float64
		lat2     float64
		lon2     float64
		expected float64
		delta    float64
	}{
		{
			name: "Seoul to Busan",
			lat1: 37.5665, lon1: 126.9780,
			lat2: 35.1796, lon2: 129.0756,
			expected: 325, delta: 5,
		},
		{
			name: "one degree of longitude on the equator",
			lat1: 0, lon1: 0,
			lat2: 0, lon2: 1,
			expected: 111.19, delta: 0.01,
		},
		{
			name: "antipodal points",
			lat1: 0, lon1: 0,
			lat2: 0, lon2: 180,
			expected: math.Pi * EarthRadiusKm, delta: 0.001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DistanceKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.expected, d, tt.delta)
			assert.InDelta(t, d, DistanceKm(tt.lat2, tt.lon2, tt.lat1, tt.lon1), 1e-9, "distance should be symmetric")
		})
	}
}

func TestDistanceKm_NaNPropagates(t *testing.T) {
	assert.True(t, math.IsNaN(DistanceKm(math.NaN(), 0, 0, 0)))
}

func TestDistanceKm_NearAntipodalIsFinite(t *testing.T) {
	for i := 0; i <= 20000; i++ {
		lat := -90 + float64(i)*180/20000
		d := DistanceKm(lat, 10, -lat, -170)
		if math.IsNaN(d) || d < 0 {
			t.Fatalf("DistanceKm(%v, 10, %v, -170) = %v", lat, -lat, d)
		}
		assert.InDelta(t, math.Pi*EarthRadiusKm, d, 1)
	}
}
