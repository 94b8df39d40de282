// Package model holds the domain types shared by the optimizer core,
// the store, and the HTTP API.
package model

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Priority tiers for pending collection points, most urgent first.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// CollectionPoint is a pending service request. It is an immutable input to
// the optimizer: never mutated, only read.
type CollectionPoint struct {
	ID              string  `json:"id"`
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	ExpectedGallons float64 `json:"expectedGallons"`
	Category        string  `json:"category,omitempty"`
	Area            string  `json:"area,omitempty"`
	Zone            string  `json:"zone"`
	Name            string  `json:"name,omitempty"`
	Priority        string  `json:"priority"`
	DaysOverdue     int     `json:"daysOverdue"`
}

// Vehicle statuses. Only active and idle vehicles are eligible for routes.
const (
	VehicleActive      = "active"
	VehicleIdle        = "idle"
	VehicleMaintenance = "maintenance"
)

// VehicleLocation is a fleet unit with its last known position.
type VehicleLocation struct {
	ID       int     `json:"id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Status   string  `json:"status"`
	HomeZone string  `json:"homeZone,omitempty"`
}

// Eligible reports whether the vehicle may be assigned a route.
func (v VehicleLocation) Eligible() bool {
	return v.Status == VehicleActive || v.Status == VehicleIdle
}

// RoutePoint is a CollectionPoint projected into route context. Created when
// a point is placed into a route and never mutated afterwards.
type RoutePoint struct {
	ID              string  `json:"id"`
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	ExpectedGallons float64 `json:"expectedGallons"`
	Category        string  `json:"category,omitempty"`
	Area            string  `json:"area,omitempty"`
	Zone            string  `json:"zone"`
	Name            string  `json:"name,omitempty"`
	Priority        string  `json:"priority"`
	DaysOverdue     int     `json:"daysOverdue"`
}

// NewRoutePoint projects a collection point into a route.
func NewRoutePoint(p CollectionPoint) RoutePoint {
	return RoutePoint{
		ID:              p.ID,
		Lat:             p.Lat,
		Lng:             p.Lng,
		ExpectedGallons: p.ExpectedGallons,
		Category:        p.Category,
		Area:            p.Area,
		Zone:            p.Zone,
		Name:            p.Name,
		Priority:        p.Priority,
		DaysOverdue:     p.DaysOverdue,
	}
}

// VehicleRouteID identifies a route by its parent vehicle plus a per-vehicle
// sequence number, so repeat assignments stay traceable to the same truck.
type VehicleRouteID struct {
	Vehicle int `json:"vehicle"`
	Seq     int `json:"seq"`
}

// flatSeqBase is the multiplier used when flattening a composite route ID for
// display systems that expect a single numeric identifier.
const flatSeqBase = 1000

// Flat maps the composite ID to the flat encoding used at the output boundary.
// The first route of a vehicle keeps the bare vehicle ID; later routes get
// vehicle*1000+seq.
func (id VehicleRouteID) Flat() int {
	if id.Seq == 0 {
		return id.Vehicle
	}
	return id.Vehicle*flatSeqBase + id.Seq
}

// OptimizedRoute is one accepted route. Immutable once created.
type OptimizedRoute struct {
	VehicleRoute    VehicleRouteID `json:"vehicleRoute"`
	VehicleID       int            `json:"vehicleId"` // flat encoding for display consumers
	Points          []RoutePoint   `json:"points"`
	TotalDistanceKm float64        `json:"totalDistanceKm"`
	TotalTimeHours  float64        `json:"totalTimeHours"`
	TotalGallons    float64        `json:"totalGallons"`
	Efficiency      float64        `json:"efficiency"` // 0..100
	Zone            string         `json:"zone"`
	RouteColor      string         `json:"routeColor"`
}

// RouteOptimizationResult is the top-level output of one optimization run.
type RouteOptimizationResult struct {
	Routes            []OptimizedRoute  `json:"routes"`
	UnassignedPoints  []CollectionPoint `json:"unassignedPoints"`
	TotalDistanceKm   float64           `json:"totalDistanceKm"`
	TotalTimeHours    float64           `json:"totalTimeHours"`
	OverallEfficiency float64           `json:"overallEfficiency"` // 0..100
	OptimizationMs    int64             `json:"optimizationMs"`
}

// OptimizeOptions is the recognized options record for one run. Zero values
// mean "use default"; the boolean flags use pointers so an omitted field is
// distinguishable from an explicit false.
type OptimizeOptions struct {
	MaxVehicles             int     `json:"maxVehicles,omitempty"`
	MaxPointsPerRoute       int     `json:"maxPointsPerRoute,omitempty"`
	PrioritizeUrgent        *bool   `json:"prioritizeUrgent,omitempty"`
	StartFromBusinessCenter *bool   `json:"startFromBusinessCenter,omitempty"`
	MaxRouteDistanceKm      float64 `json:"maxRouteDistance,omitempty"`
	MaxRouteTimeHours       float64 `json:"maxRouteTime,omitempty"`
}

// OptimizeRequest is the body of POST /v1/optimize. Points and vehicles may be
// inlined; when omitted the server loads them from the store.
type OptimizeRequest struct {
	TenantID string            `json:"tenantId,omitempty"`
	Points   []CollectionPoint `json:"points,omitempty"`
	Vehicles []VehicleLocation `json:"vehicles,omitempty"`
	Options  OptimizeOptions   `json:"options"`
}

// OptimizationRun is a persisted run record for the dashboard.
type OptimizationRun struct {
	ID        string                  `json:"id"`
	TenantID  string                  `json:"tenantId"`
	CreatedAt string                  `json:"createdAt"`
	Result    RouteOptimizationResult `json:"result"`
}

// VehiclePing is a live telemetry update for a fleet unit.
type VehiclePing struct {
	VehicleID int     `json:"vehicleId"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	TS        string  `json:"ts,omitempty"`
}

// SubscriptionRequest registers a webhook endpoint for run events.
type SubscriptionRequest struct {
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret"`
}

// Subscription is a stored webhook subscription.
type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}
