package opt

import (
	"testing"

	"binroute/internal/model"
)

func TestSplitRouteForksOnTimeBudget(t *testing.T) {
	tun := flatTuning()
	tun.ServiceMinutesPerStop = 30 // 0.5h per stop, negligible driving
	opts := DefaultOptions()
	opts.MaxRouteTimeHours = 1.2
	opts.MaxRouteDistanceKm = 1000

	start := model.GeoPoint{Lat: 25.0, Lng: 55.0}
	pts := []model.CollectionPoint{
		{ID: "a", Lat: 25.0, Lng: 55.0},
		{ID: "b", Lat: 25.0, Lng: 55.0},
		{ID: "c", Lat: 25.0, Lng: 55.0},
		{ID: "d", Lat: 25.0, Lng: 55.0},
	}
	routes, dropped := splitRoute(start, pts, false, opts, tun)
	if len(dropped) != 0 {
		t.Fatalf("unexpected drops: %v", dropped)
	}
	if len(routes) != 2 || len(routes[0].points) != 2 || len(routes[1].points) != 2 {
		t.Fatalf("expected 2+2 split, got %d routes", len(routes))
	}
	for _, r := range routes {
		if r.timeHours > opts.MaxRouteTimeHours {
			t.Fatalf("sub-route over time budget: %f", r.timeHours)
		}
	}
}

func TestSplitRouteDropsSoloInfeasiblePoint(t *testing.T) {
	tun := flatTuning()
	opts := DefaultOptions()
	opts.MaxRouteDistanceKm = 50

	start := model.GeoPoint{Lat: 25.0, Lng: 55.0}
	pts := []model.CollectionPoint{
		{ID: "ok", Lat: 25.01, Lng: 55.0},
		{ID: "unreachable", Lat: 26.0, Lng: 55.0}, // ~111 km out
	}
	routes, dropped := splitRoute(start, pts, false, opts, tun)
	if len(dropped) != 1 || dropped[0].ID != "unreachable" {
		t.Fatalf("expected unreachable point dropped, got %v", dropped)
	}
	if len(routes) != 1 || routes[0].points[0].ID != "ok" {
		t.Fatalf("feasible point lost: %+v", routes)
	}
}

func TestSplitRouteConservesPoints(t *testing.T) {
	tun := flatTuning()
	tun.ServiceMinutesPerStop = 45
	opts := DefaultOptions()
	opts.MaxRouteTimeHours = 2

	start := model.GeoPoint{Lat: 25.0, Lng: 55.0}
	var pts []model.CollectionPoint
	for i := 0; i < 7; i++ {
		pts = append(pts, model.CollectionPoint{ID: string(rune('a' + i)), Lat: 25.0, Lng: 55.0})
	}
	routes, dropped := splitRoute(start, pts, false, opts, tun)
	seen := map[string]int{}
	for _, r := range routes {
		for _, p := range r.points {
			seen[p.ID]++
		}
	}
	for _, p := range dropped {
		seen[p.ID]++
	}
	if len(seen) != len(pts) {
		t.Fatalf("points lost: %v", seen)
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("point %s appears %d times", id, n)
		}
	}
}
