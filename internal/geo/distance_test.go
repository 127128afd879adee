package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	milanDuomo   = Coordinate{Lat: 45.4641, Lon: 9.1919}
	romeColosseo = Coordinate{Lat: 41.8902, Lon: 12.4922}
)

func TestDistanceKm_SamePointIsZero(t *testing.T) {
	points := []Coordinate{
		{},
		milanDuomo,
		{Lat: -33.8688, Lon: 151.2093},
		{Lat: 90, Lon: 0},
	}

	for _, p := range points {
		assert.Zero(t, DistanceKm(p, p))
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	d1 := DistanceKm(milanDuomo, romeColosseo)
	d2 := DistanceKm(romeColosseo, milanDuomo)

	assert.InEpsilon(t, d1, d2, 1e-9)
}

func TestDistanceKm_NonNegative(t *testing.T) {
	pairs := []struct{ a, b Coordinate }{
		{milanDuomo, romeColosseo},
		{Coordinate{Lat: -10, Lon: -170}, Coordinate{Lat: 10, Lon: 170}},
		{Coordinate{Lat: 0.0001, Lon: 0}, Coordinate{}},
	}

	for _, p := range pairs {
		assert.GreaterOrEqual(t, DistanceKm(p.a, p.b), 0.0)
	}
}

func TestDistanceKm_KnownDistance(t *testing.T) {
	// Milan Duomo to Rome Colosseum is roughly 478 km as the crow flies.
	d := DistanceKm(milanDuomo, romeColosseo)

	assert.InDelta(t, 478, d, 5)
}

func TestDistanceKm_SmallOffset(t *testing.T) {
	// One degree of latitude is about 111 km with this Earth radius.
	a := Coordinate{Lat: 45, Lon: 9}
	b := Coordinate{Lat: 46, Lon: 9}

	expected := earthRadiusKm * math.Pi / 180
	assert.InEpsilon(t, expected, DistanceKm(a, b), 1e-6)
}
