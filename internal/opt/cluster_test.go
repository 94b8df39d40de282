package opt

import (
	"testing"

	"binroute/internal/model"
)

func TestGroupByZonePreservesOrder(t *testing.T) {
	pts := []model.CollectionPoint{
		{ID: "a", Zone: "Deira"},
		{ID: "b", Zone: "Jumeirah"},
		{ID: "c", Zone: "Deira"},
	}
	z := groupByZone(pts)
	if len(z.order) != 2 || z.order[0] != "Deira" || z.order[1] != "Jumeirah" {
		t.Fatalf("zone order: %v", z.order)
	}
	q := z.queues["Deira"]
	if len(q) != 2 || q[0].ID != "a" || q[1].ID != "c" {
		t.Fatalf("within-zone order lost: %v", q)
	}
}

func TestTakeDrainsFIFO(t *testing.T) {
	z := groupByZone([]model.CollectionPoint{
		{ID: "a", Zone: "Deira"}, {ID: "b", Zone: "Deira"}, {ID: "c", Zone: "Deira"},
	})
	batch := z.take("Deira", 2)
	if len(batch) != 2 || batch[0].ID != "a" || batch[1].ID != "b" {
		t.Fatalf("bad batch: %v", batch)
	}
	if z.remaining("Deira") != 1 {
		t.Fatalf("remaining = %d", z.remaining("Deira"))
	}
	if got := z.take("Deira", 5); len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("tail batch: %v", got)
	}
}

func TestAssignVehiclesHomeZoneIsSticky(t *testing.T) {
	// The vehicle sits practically on top of Jebel Ali, but its home zone
	// still has points, so it must stay there.
	z := groupByZone([]model.CollectionPoint{
		{ID: "home", Zone: "Deira", Lat: 25.2711, Lng: 55.3166},
		{ID: "near", Zone: "Jebel Ali", Lat: 25.0116, Lng: 55.1354},
	})
	v := model.VehicleLocation{ID: 7, Lat: 25.0116, Lng: 55.1354, Status: model.VehicleActive, HomeZone: "Deira"}
	got := assignVehicles([]model.VehicleLocation{v}, z)
	if got[7] != "Deira" {
		t.Fatalf("expected home zone Deira, got %q", got[7])
	}
}

func TestAssignVehiclesFallsBackToNearestZone(t *testing.T) {
	z := groupByZone([]model.CollectionPoint{
		{ID: "a", Zone: "Deira", Lat: 25.2711, Lng: 55.3166},
		{ID: "b", Zone: "Jebel Ali", Lat: 25.0116, Lng: 55.1354},
	})
	// Home zone has no pending points; vehicle is parked next to Jebel Ali.
	v := model.VehicleLocation{ID: 3, Lat: 25.02, Lng: 55.14, Status: model.VehicleIdle, HomeZone: "Al Quoz"}
	got := assignVehicles([]model.VehicleLocation{v}, z)
	if got[3] != "Jebel Ali" {
		t.Fatalf("expected Jebel Ali, got %q", got[3])
	}
}

func TestAssignVehiclesNoPointsNoAssignment(t *testing.T) {
	z := groupByZone(nil)
	v := model.VehicleLocation{ID: 1, Status: model.VehicleActive, HomeZone: "Deira"}
	got := assignVehicles([]model.VehicleLocation{v}, z)
	if _, ok := got[1]; ok {
		t.Fatal("vehicle should receive no assignment")
	}
}

func TestZoneCenterFallsBackToCentroidForUnknownZone(t *testing.T) {
	z := groupByZone([]model.CollectionPoint{
		{ID: "a", Zone: "Warsan Depot", Lat: 25.16, Lng: 55.40},
		{ID: "b", Zone: "Warsan Depot", Lat: 25.18, Lng: 55.42},
	})
	c, ok := z.center("Warsan Depot")
	if !ok {
		t.Fatal("expected centroid fallback")
	}
	if c.Lat < 25.16 || c.Lat > 25.18 || c.Lng < 55.40 || c.Lng > 55.42 {
		t.Fatalf("centroid out of bounds: %+v", c)
	}
}
