package opt

import (
	"context"
	"fmt"
	"math"
	"time"

	"binroute/internal/geo"
	"binroute/internal/model"
)

// PointError reports a record with malformed geographic input. It propagates
// to the caller, who decides whether to skip the record or abort the run.
type PointError struct {
	ID     string
	Lat    float64
	Lng    float64
	Reason string
}

func (e *PointError) Error() string {
	return fmt.Sprintf("point %s: %s (lat=%f lng=%f)", e.ID, e.Reason, e.Lat, e.Lng)
}

// Optimize partitions pending collection points into per-vehicle routes.
//
// One run is a single synchronous batch computation: rank the points, assign
// eligible vehicles to zones, build a nearest-neighbor route per vehicle
// (splitting when over budget), then scavenge leftovers round-robin across
// the fleet. All mutation is local to this call, so concurrent runs need no
// locking. Cancellation is honored between route builds; a canceled run
// returns ctx.Err() and no partial result.
func Optimize(ctx context.Context, points []model.CollectionPoint, vehicles []model.VehicleLocation, opts Options, t Tuning) (model.RouteOptimizationResult, error) {
	started := time.Now()
	opts = opts.normalized()

	for _, p := range points {
		if !geo.ValidCoordinate(p.Lat, p.Lng) {
			return model.RouteOptimizationResult{}, &PointError{ID: p.ID, Lat: p.Lat, Lng: p.Lng, Reason: "malformed coordinate"}
		}
	}
	for _, v := range vehicles {
		if !geo.ValidCoordinate(v.Lat, v.Lng) {
			return model.RouteOptimizationResult{}, &PointError{ID: fmt.Sprintf("vehicle-%d", v.ID), Lat: v.Lat, Lng: v.Lng, Reason: "malformed coordinate"}
		}
	}

	eligible := make([]model.VehicleLocation, 0, len(vehicles))
	for _, v := range vehicles {
		if v.Eligible() {
			eligible = append(eligible, v)
		}
	}
	if opts.MaxVehicles > 0 && len(eligible) > opts.MaxVehicles {
		eligible = eligible[:opts.MaxVehicles]
	}

	ranked := RankByUrgency(points, opts.PrioritizeUrgent)

	// No fleet or no demand: an empty result, not an error.
	if len(eligible) == 0 || len(ranked) == 0 {
		return model.RouteOptimizationResult{
			Routes:           []model.OptimizedRoute{},
			UnassignedPoints: ranked,
			OptimizationMs:   time.Since(started).Milliseconds(),
		}, nil
	}

	zones := groupByZone(ranked)
	assigned := assignVehicles(eligible, zones)

	var (
		routes       []model.OptimizedRoute
		unassigned   []model.CollectionPoint
		pass1Dropped []model.CollectionPoint
		routeSeq     = map[int]int{}
	)

	accept := func(v model.VehicleLocation, zone string, built ...builtRoute) {
		for _, r := range built {
			id := model.VehicleRouteID{Vehicle: v.ID, Seq: routeSeq[v.ID]}
			routeSeq[v.ID]++
			routes = append(routes, model.OptimizedRoute{
				VehicleRoute:    id,
				VehicleID:       id.Flat(),
				Points:          r.points,
				TotalDistanceKm: r.distanceKm,
				TotalTimeHours:  r.timeHours,
				TotalGallons:    r.gallons,
				Efficiency:      r.efficiency,
				Zone:            zone,
				RouteColor:      geo.ZoneColor(zone),
			})
		}
	}

	routeStart := func(v model.VehicleLocation) (model.GeoPoint, bool) {
		if opts.StartFromBusinessCenter {
			// Depot routes return to the depot.
			return geo.BusinessCenter, true
		}
		return model.GeoPoint{Lat: v.Lat, Lng: v.Lng}, false
	}

	// Pass 1: each vehicle serves its assigned zone's queue.
	for _, v := range eligible {
		if err := ctx.Err(); err != nil {
			return model.RouteOptimizationResult{}, err
		}
		zone, ok := assigned[v.ID]
		if !ok {
			continue
		}
		batch := zones.take(zone, opts.MaxPointsPerRoute)
		if len(batch) == 0 {
			continue
		}
		start, roundTrip := routeStart(v)
		r := buildRoute(start, batch, roundTrip, t)
		if withinBudget(r, opts) {
			accept(v, zone, r)
			continue
		}
		sub, dropped := splitRoute(start, batch, roundTrip, opts, t)
		accept(v, zone, sub...)
		// Dropped points get one more chance in the scavenging pass.
		pass1Dropped = append(pass1Dropped, dropped...)
	}

	// Pass 2: scavenge leftovers round-robin across the fleet, bounded by the
	// attempt cap so no point is retried indefinitely.
	pool := append(zones.flatten(), pass1Dropped...)
	maxAttempts := t.ScavengePassFactor * len(eligible)
	for attempts := 0; len(pool) > 0 && attempts < maxAttempts; attempts++ {
		if err := ctx.Err(); err != nil {
			return model.RouteOptimizationResult{}, err
		}
		v := eligible[attempts%len(eligible)]
		n := opts.MaxPointsPerRoute
		if n > len(pool) {
			n = len(pool)
		}
		batch := pool[:n]
		pool = pool[n:]

		start, roundTrip := routeStart(v)
		zone := batch[0].Zone
		r := buildRoute(start, batch, roundTrip, t)
		if withinBudget(r, opts) {
			accept(v, zone, r)
			continue
		}
		sub, dropped := splitRoute(start, batch, roundTrip, opts, t)
		accept(v, zone, sub...)
		unassigned = append(unassigned, dropped...)
	}
	unassigned = append(unassigned, pool...)

	var totalDist, totalTime float64
	assignedCount := 0
	for _, r := range routes {
		totalDist += r.TotalDistanceKm
		totalTime += r.TotalTimeHours
		assignedCount += len(r.Points)
	}

	if routes == nil {
		routes = []model.OptimizedRoute{}
	}
	if unassigned == nil {
		unassigned = []model.CollectionPoint{}
	}
	return model.RouteOptimizationResult{
		Routes:            routes,
		UnassignedPoints:  unassigned,
		TotalDistanceKm:   totalDist,
		TotalTimeHours:    totalTime,
		OverallEfficiency: runEfficiency(assignedCount, len(points), totalDist, totalTime, t),
		OptimizationMs:    time.Since(started).Milliseconds(),
	}, nil
}

// runEfficiency scores a whole run 0..100: completeness of assignment blended
// with aggregate distance and time economy per assigned point.
func runEfficiency(assigned, total int, distKm, timeHours float64, t Tuning) float64 {
	if total == 0 || assigned == 0 {
		return 0
	}
	frac := float64(assigned) / float64(total)
	distScore := clamp01(t.IdealKmPerPoint / math.Max(distKm/float64(assigned), t.IdealKmPerPoint))
	timeScore := clamp01(t.IdealHoursPerPoint / math.Max(timeHours/float64(assigned), t.IdealHoursPerPoint))
	score := t.AssignedWeight*clamp01(frac) + t.RunDistanceWeight*distScore + t.RunTimeWeight*timeScore
	return score * 100
}
