package opt

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strconv"
	"testing"

	"binroute/internal/model"
)

func deiraPoint(id string, latOff, lngOff, gallons float64) model.CollectionPoint {
	return model.CollectionPoint{
		ID: id, Zone: "Deira",
		Lat: 25.2711 + latOff, Lng: 55.3166 + lngOff,
		ExpectedGallons: gallons, Priority: model.PriorityMedium,
	}
}

func activeVehicle(id int, zone string) model.VehicleLocation {
	return model.VehicleLocation{ID: id, Lat: 25.25, Lng: 55.30, Status: model.VehicleActive, HomeZone: zone}
}

func TestOptimizeNoVehicles(t *testing.T) {
	// Scenario A: 0 vehicles, 5 points.
	var pts []model.CollectionPoint
	for i := 0; i < 5; i++ {
		pts = append(pts, deiraPoint("p"+strconv.Itoa(i), 0, 0, 10))
	}
	res, err := Optimize(context.Background(), pts, nil, DefaultOptions(), DefaultTuning())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Routes) != 0 || len(res.UnassignedPoints) != 5 {
		t.Fatalf("routes=%d unassigned=%d", len(res.Routes), len(res.UnassignedPoints))
	}
	if res.OverallEfficiency != 0 {
		t.Fatalf("efficiency should be 0, got %f", res.OverallEfficiency)
	}
}

func TestOptimizeSingleVehicleSingleRoute(t *testing.T) {
	// Scenario B: 1 idle vehicle, 3 points in its zone, loose budgets.
	pts := []model.CollectionPoint{
		deiraPoint("n1", -0.05, -0.03, 10), // closest to the business center
		deiraPoint("n2", -0.02, -0.01, 10),
		deiraPoint("n3", 0.01, 0.01, 10),
	}
	v := model.VehicleLocation{ID: 4, Lat: 25.26, Lng: 55.31, Status: model.VehicleIdle, HomeZone: "Deira"}
	res, err := Optimize(context.Background(), pts, []model.VehicleLocation{v}, DefaultOptions(), DefaultTuning())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(res.Routes))
	}
	r := res.Routes[0]
	if len(r.Points) != 3 || len(res.UnassignedPoints) != 0 {
		t.Fatalf("points=%d unassigned=%d", len(r.Points), len(res.UnassignedPoints))
	}
	// Nearest-neighbor from the business center visits n1, n2, n3.
	for i, want := range []string{"n1", "n2", "n3"} {
		if r.Points[i].ID != want {
			t.Fatalf("visit %d: got %s want %s", i, r.Points[i].ID, want)
		}
	}
	if math.Abs(r.TotalGallons-30) > 1e-9 {
		t.Fatalf("totalGallons: got %f want 30", r.TotalGallons)
	}
	if r.VehicleID != 4 {
		t.Fatalf("first route should keep the bare vehicle ID, got %d", r.VehicleID)
	}
	if r.Zone != "Deira" || r.RouteColor == "" {
		t.Fatalf("zone/color missing: %+v", r)
	}
}

func TestOptimizeOverflowFlowsToScavengePass(t *testing.T) {
	// Scenario C: 20 points, one vehicle, default cap of 15 per route.
	var pts []model.CollectionPoint
	for i := 0; i < 20; i++ {
		pts = append(pts, deiraPoint("p"+strconv.Itoa(i), 0, 0, 5))
	}
	v := activeVehicle(7, "Deira")
	res, err := Optimize(context.Background(), pts, []model.VehicleLocation{v}, DefaultOptions(), DefaultTuning())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.UnassignedPoints) != 0 {
		t.Fatalf("unassigned: %d", len(res.UnassignedPoints))
	}
	if len(res.Routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(res.Routes))
	}
	if n := len(res.Routes[0].Points); n != 15 {
		t.Fatalf("pass-1 route has %d points", n)
	}
	if n := len(res.Routes[1].Points); n != 5 {
		t.Fatalf("scavenged route has %d points", n)
	}
	if res.Routes[1].VehicleID != 7*1000+1 {
		t.Fatalf("scavenged route should carry composite ID, got %d", res.Routes[1].VehicleID)
	}
	if res.Routes[1].VehicleRoute.Vehicle != 7 {
		t.Fatal("composite route lost its parent vehicle")
	}
}

func TestOptimizeInfeasiblePointEndsUnassigned(t *testing.T) {
	// Scenario D: round trip alone exceeds the distance budget.
	far := model.CollectionPoint{ID: "far", Zone: "Deira", Lat: 25.62, Lng: 55.27, ExpectedGallons: 5, Priority: model.PriorityCritical}
	v := activeVehicle(1, "Deira")
	opts := DefaultOptions() // 50 km; round trip from the center is ~92 km
	res, err := Optimize(context.Background(), []model.CollectionPoint{far}, []model.VehicleLocation{v}, opts, DefaultTuning())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Routes) != 0 {
		t.Fatalf("expected no routes, got %d", len(res.Routes))
	}
	if len(res.UnassignedPoints) != 1 || res.UnassignedPoints[0].ID != "far" {
		t.Fatalf("unassigned: %+v", res.UnassignedPoints)
	}
}

func TestOptimizeCoverageInvariant(t *testing.T) {
	// Every input point lands in exactly one route or the unassigned list.
	var pts []model.CollectionPoint
	for i := 0; i < 40; i++ {
		pts = append(pts, model.CollectionPoint{
			ID:   "p" + strconv.Itoa(i),
			Zone: []string{"Deira", "Jumeirah", "Al Quoz"}[i%3],
			Lat:  25.05 + float64(i%7)*0.03, Lng: 55.10 + float64(i%5)*0.04,
			ExpectedGallons: float64(10 + i), Priority: model.PriorityHigh, DaysOverdue: i % 4,
		})
	}
	vehicles := []model.VehicleLocation{
		activeVehicle(1, "Deira"),
		activeVehicle(2, "Jumeirah"),
		{ID: 3, Lat: 25.1, Lng: 55.2, Status: model.VehicleMaintenance, HomeZone: "Al Quoz"}, // ineligible
	}
	opts := DefaultOptions()
	opts.MaxRouteDistanceKm = 30
	opts.MaxRouteTimeHours = 2
	res, err := Optimize(context.Background(), pts, vehicles, opts, DefaultTuning())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := map[string]int{}
	for _, r := range res.Routes {
		for _, p := range r.Points {
			seen[p.ID]++
		}
		if r.VehicleRoute.Vehicle == 3 {
			t.Fatal("maintenance vehicle received a route")
		}
	}
	for _, p := range res.UnassignedPoints {
		seen[p.ID]++
	}
	if len(seen) != len(pts) {
		t.Fatalf("coverage: %d of %d points accounted for", len(seen), len(pts))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("point %s appears %d times", id, n)
		}
	}
}

func TestOptimizeConstraintAndVolumeInvariants(t *testing.T) {
	var pts []model.CollectionPoint
	for i := 0; i < 25; i++ {
		pts = append(pts, model.CollectionPoint{
			ID: "p" + strconv.Itoa(i), Zone: "Deira",
			Lat: 25.20 + float64(i%5)*0.02, Lng: 55.28 + float64(i%4)*0.02,
			ExpectedGallons: float64(5 * (i + 1)), Priority: model.PriorityMedium,
		})
	}
	opts := DefaultOptions()
	opts.MaxRouteDistanceKm = 25
	opts.MaxRouteTimeHours = 1.5
	res, err := Optimize(context.Background(), pts, []model.VehicleLocation{activeVehicle(9, "Deira")}, opts, DefaultTuning())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	const eps = 1e-6
	for _, r := range res.Routes {
		if r.TotalDistanceKm > opts.MaxRouteDistanceKm+eps {
			t.Fatalf("route over distance budget: %f", r.TotalDistanceKm)
		}
		if r.TotalTimeHours > opts.MaxRouteTimeHours+eps {
			t.Fatalf("route over time budget: %f", r.TotalTimeHours)
		}
		var sum float64
		for _, p := range r.Points {
			sum += p.ExpectedGallons
		}
		if math.Abs(sum-r.TotalGallons) > eps {
			t.Fatalf("gallons mismatch: %f vs %f", sum, r.TotalGallons)
		}
	}
}

func TestOptimizeDeterministic(t *testing.T) {
	var pts []model.CollectionPoint
	for i := 0; i < 30; i++ {
		pts = append(pts, model.CollectionPoint{
			ID: "p" + strconv.Itoa(i), Zone: []string{"Deira", "Jebel Ali"}[i%2],
			Lat: 25.0 + float64(i)*0.01, Lng: 55.1 + float64(i%3)*0.05,
			ExpectedGallons: float64(i), Priority: model.PriorityHigh, DaysOverdue: i % 5,
		})
	}
	vehicles := []model.VehicleLocation{activeVehicle(1, "Deira"), activeVehicle(2, "Jebel Ali")}
	a, err := Optimize(context.Background(), pts, vehicles, DefaultOptions(), DefaultTuning())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Optimize(context.Background(), pts, vehicles, DefaultOptions(), DefaultTuning())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.OptimizationMs, b.OptimizationMs = 0, 0
	if !reflect.DeepEqual(a, b) {
		t.Fatal("two runs over identical input diverged")
	}
}

func TestOptimizeMaxVehiclesCap(t *testing.T) {
	var pts []model.CollectionPoint
	for i := 0; i < 30; i++ {
		pts = append(pts, deiraPoint("p"+strconv.Itoa(i), 0, 0, 10))
	}
	vehicles := []model.VehicleLocation{activeVehicle(1, "Deira"), activeVehicle(2, "Deira"), activeVehicle(3, "Deira")}
	opts := DefaultOptions()
	opts.MaxVehicles = 1
	res, err := Optimize(context.Background(), pts, vehicles, opts, DefaultTuning())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range res.Routes {
		if r.VehicleRoute.Vehicle != 1 {
			t.Fatalf("vehicle %d used despite cap", r.VehicleRoute.Vehicle)
		}
	}
}

func TestOptimizeMalformedCoordinate(t *testing.T) {
	pts := []model.CollectionPoint{{ID: "bad", Zone: "Deira", Lat: 125.0, Lng: 55.0}}
	_, err := Optimize(context.Background(), pts, []model.VehicleLocation{activeVehicle(1, "Deira")}, DefaultOptions(), DefaultTuning())
	var perr *PointError
	if !errors.As(err, &perr) || perr.ID != "bad" {
		t.Fatalf("expected *PointError for point bad, got %v", err)
	}
}

func TestOptimizeCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pts := []model.CollectionPoint{deiraPoint("p", 0, 0, 10)}
	_, err := Optimize(ctx, pts, []model.VehicleLocation{activeVehicle(1, "Deira")}, DefaultOptions(), DefaultTuning())
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestOptimizeEfficiencyWithinScale(t *testing.T) {
	var pts []model.CollectionPoint
	for i := 0; i < 12; i++ {
		pts = append(pts, deiraPoint("p"+strconv.Itoa(i), float64(i%3)*0.01, 0, 40))
	}
	res, err := Optimize(context.Background(), pts, []model.VehicleLocation{activeVehicle(1, "Deira")}, DefaultOptions(), DefaultTuning())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OverallEfficiency < 0 || res.OverallEfficiency > 100 {
		t.Fatalf("overall efficiency out of range: %f", res.OverallEfficiency)
	}
	for _, r := range res.Routes {
		if r.Efficiency < 0 || r.Efficiency > 100 {
			t.Fatalf("route efficiency out of range: %f", r.Efficiency)
		}
	}
}
