package api

import (
	"sort"
	"sync"

	"binroute/internal/model"
)

// FleetCache keeps the latest telemetry ping per tenant and vehicle. It backs
// the live fleet view without a store round trip.
type FleetCache struct {
	mu sync.Mutex
	m  map[string]map[int]model.VehiclePing // tenant -> vehicle -> latest ping
}

func NewFleetCache() *FleetCache { return &FleetCache{m: map[string]map[int]model.VehiclePing{}} }

// Upsert stores the latest ping for a vehicle.
func (c *FleetCache) Upsert(tenantID string, ping model.VehiclePing) {
	if tenantID == "" || ping.VehicleID <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m[tenantID] == nil {
		c.m[tenantID] = map[int]model.VehiclePing{}
	}
	c.m[tenantID][ping.VehicleID] = ping
}

// List returns the latest pings for a tenant ordered by vehicle id.
func (c *FleetCache) List(tenantID string) []model.VehiclePing {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []model.VehiclePing{}
	for _, p := range c.m[tenantID] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out
}
