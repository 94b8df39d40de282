package opt

import (
	"math"

	"binroute/internal/geo"
	"binroute/internal/model"
)

// builtRoute is a nearest-neighbor ordered route with derived metrics,
// before it is stamped with a vehicle identity.
type builtRoute struct {
	points     []model.RoutePoint
	distanceKm float64
	timeHours  float64
	gallons    float64
	efficiency float64
}

// buildRoute orders points by the nearest-neighbor heuristic from start and
// derives distance/time/volume metrics. Ties on distance go to the first
// point in input iteration order, so the result is deterministic. When
// returnToStart is set the leg back to start is added to the distance before
// time is computed.
func buildRoute(start model.GeoPoint, points []model.CollectionPoint, returnToStart bool, t Tuning) builtRoute {
	var r builtRoute
	if len(points) == 0 {
		return r
	}

	remaining := make([]model.CollectionPoint, len(points))
	copy(remaining, points)
	cur := start

	r.points = make([]model.RoutePoint, 0, len(points))
	for len(remaining) > 0 {
		bestIdx := 0
		bestDist := math.MaxFloat64
		for i, p := range remaining {
			if d := geo.DistanceKm(cur.Lat, cur.Lng, p.Lat, p.Lng); d < bestDist {
				bestDist = d
				bestIdx = i
			}
		}
		next := remaining[bestIdx]
		r.points = append(r.points, model.NewRoutePoint(next))
		r.distanceKm += bestDist
		r.gallons += next.ExpectedGallons
		cur = model.GeoPoint{Lat: next.Lat, Lng: next.Lng}
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	if returnToStart {
		r.distanceKm += geo.DistanceKm(cur.Lat, cur.Lng, start.Lat, start.Lng)
	}

	drivingHours := r.distanceKm / t.AverageSpeedKmh
	serviceHours := float64(len(r.points)) * t.ServiceMinutesPerStop / 60
	r.timeHours = drivingHours + serviceHours
	r.efficiency = routeEfficiency(r, t)
	return r
}

// routeEfficiency scores a route 0..100 as a weighted blend of stop count,
// distance economy, time economy, and volume throughput. Each sub-score is
// clamped to [0,1] before weighting.
func routeEfficiency(r builtRoute, t Tuning) float64 {
	stops := float64(len(r.points))
	if stops == 0 {
		return 0
	}
	stopScore := clamp01(stops / t.IdealStopsPerRoute)
	distScore := clamp01(t.IdealKmPerStop / math.Max(r.distanceKm/stops, t.IdealKmPerStop))
	timeScore := clamp01(t.IdealHoursPerStop / math.Max(r.timeHours/stops, t.IdealHoursPerStop))
	volScore := clamp01((r.gallons / stops) / t.IdealGallonsPerStop)

	score := t.StopCountWeight*stopScore +
		t.DistanceWeight*distScore +
		t.TimeWeight*timeScore +
		t.VolumeWeight*volScore
	return score * 100
}

// withinBudget reports whether a built route respects both run maxima, with
// a small tolerance for float accumulation.
func withinBudget(r builtRoute, opts Options) bool {
	const eps = 1e-9
	return r.distanceKm <= opts.MaxRouteDistanceKm+eps && r.timeHours <= opts.MaxRouteTimeHours+eps
}
