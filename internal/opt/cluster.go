package opt

import (
	"math"

	"binroute/internal/geo"
	"binroute/internal/model"
)

// zoneQueues holds the per-zone FIFO queues drained across both passes.
// It is owned by a single run's orchestrator and never shared.
type zoneQueues struct {
	order  []string // zones in first-seen order, for deterministic iteration
	queues map[string][]model.CollectionPoint
}

// groupByZone buckets ranked points by their zone label, preserving
// within-zone order.
func groupByZone(points []model.CollectionPoint) *zoneQueues {
	z := &zoneQueues{queues: map[string][]model.CollectionPoint{}}
	for _, p := range points {
		if _, seen := z.queues[p.Zone]; !seen {
			z.order = append(z.order, p.Zone)
		}
		z.queues[p.Zone] = append(z.queues[p.Zone], p)
	}
	return z
}

// take removes up to n points from the front of a zone's queue.
func (z *zoneQueues) take(zone string, n int) []model.CollectionPoint {
	q := z.queues[zone]
	if len(q) == 0 {
		return nil
	}
	if n > len(q) {
		n = len(q)
	}
	batch := q[:n]
	z.queues[zone] = q[n:]
	return batch
}

func (z *zoneQueues) remaining(zone string) int { return len(z.queues[zone]) }

// flatten drains every queue into one pool, following zone discovery order.
func (z *zoneQueues) flatten() []model.CollectionPoint {
	var pool []model.CollectionPoint
	for _, zone := range z.order {
		pool = append(pool, z.queues[zone]...)
		z.queues[zone] = nil
	}
	return pool
}

// center returns a zone's coordinate for vehicle-to-zone distance checks.
// Unknown zone names fall back to the centroid of the queued points, so an
// unmapped zone stays assignable instead of failing the run.
func (z *zoneQueues) center(zone string) (model.GeoPoint, bool) {
	if c, ok := geo.FindZone(zone); ok {
		return c, true
	}
	q := z.queues[zone]
	if len(q) == 0 {
		return model.GeoPoint{}, false
	}
	var lat, lng float64
	for _, p := range q {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(q))
	return model.GeoPoint{Lat: lat / n, Lng: lng / n}, true
}

// assignVehicles maps each vehicle to the zone it will serve in pass 1.
// A vehicle whose home zone still has points always keeps it. Otherwise the
// vehicle goes to the zone whose center is nearest to its current position.
// Vehicles get no entry when no zone has points left.
func assignVehicles(vehicles []model.VehicleLocation, zones *zoneQueues) map[int]string {
	assigned := map[int]string{}
	for _, v := range vehicles {
		if v.HomeZone != "" && zones.remaining(v.HomeZone) > 0 {
			assigned[v.ID] = v.HomeZone
			continue
		}
		best := ""
		bestDist := math.MaxFloat64
		for _, zone := range zones.order {
			if zones.remaining(zone) == 0 {
				continue
			}
			c, ok := zones.center(zone)
			if !ok {
				continue
			}
			if d := geo.DistanceKm(v.Lat, v.Lng, c.Lat, c.Lng); d < bestDist {
				bestDist = d
				best = zone
			}
		}
		if best != "" {
			assigned[v.ID] = best
		}
	}
	return assigned
}
