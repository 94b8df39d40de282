package geo

import (
	"math"
	"testing"
)

func TestDistanceKmZeroForIdenticalPoints(t *testing.T) {
	if d := DistanceKm(25.2048, 55.2708, 25.2048, 55.2708); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	a := DistanceKm(25.2711, 55.3166, 25.0116, 55.1354)
	b := DistanceKm(25.0116, 55.1354, 25.2711, 55.3166)
	if math.Abs(a-b) > 1e-9 {
		t.Fatalf("asymmetric: %f vs %f", a, b)
	}
}

func TestDistanceKmKnownPair(t *testing.T) {
	// Deira to Jebel Ali is roughly 34 km as the crow flies.
	d := DistanceKm(25.2711, 55.3166, 25.0116, 55.1354)
	if d < 30 || d > 40 {
		t.Fatalf("implausible distance: %f", d)
	}
}

func TestFindZone(t *testing.T) {
	c, ok := FindZone("Deira")
	if !ok {
		t.Fatal("expected Deira to resolve")
	}
	if c.Lat == 0 || c.Lng == 0 {
		t.Fatalf("bad center: %+v", c)
	}
	if _, ok := FindZone("atlantis"); ok {
		t.Fatal("expected miss for unknown zone")
	}
}

func TestZoneColorDeterministic(t *testing.T) {
	if ZoneColor("Deira") != ZoneColor("deira") {
		t.Fatal("color should be case-insensitive")
	}
	if ZoneColor("Deira") != ZoneColor("Deira") {
		t.Fatal("color should be stable")
	}
}

func TestValidCoordinate(t *testing.T) {
	if !ValidCoordinate(25.2, 55.3) {
		t.Fatal("expected valid")
	}
	for _, c := range [][2]float64{{91, 0}, {-91, 0}, {0, 181}, {0, -181}, {math.NaN(), 0}, {0, math.NaN()}} {
		if ValidCoordinate(c[0], c[1]) {
			t.Fatalf("expected invalid: %v", c)
		}
	}
}
