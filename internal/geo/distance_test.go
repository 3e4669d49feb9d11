package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceZero(t *testing.T) {
	p := Point{Lat: -31.5375, Lng: -68.5364}
	assert.Equal(t, 0.0, Distance(p, p))
}

func TestDistanceSymmetry(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
	}{
		{"san juan to mendoza", Point{-31.5375, -68.5364}, Point{-32.8895, -68.8458}},
		{"equator crossing", Point{1.0, 10.0}, Point{-1.0, -10.0}},
		{"antimeridian", Point{0, 179.5}, Point{0, -179.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, Distance(tt.a, tt.b), Distance(tt.b, tt.a), 1e-9)
		})
	}
}

func TestDistanceKnownValues(t *testing.T) {
	// One degree of latitude is ~111.19 km on a 6371 km sphere.
	a := Point{Lat: 0, Lng: 0}
	b := Point{Lat: 1, Lng: 0}
	assert.InDelta(t, 111.19, Distance(a, b), 0.01)

	// Quarter circumference: pole to equator.
	pole := Point{Lat: 90, Lng: 0}
	equator := Point{Lat: 0, Lng: 0}
	assert.InDelta(t, 10007.5, Distance(pole, equator), 1.0)
}
