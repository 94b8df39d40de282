// Package geo contains pure geographic helpers: great-circle distance,
// named-zone centers, and the fixed business center used as the default
// route origin. No state, no I/O.
package geo

import (
	"hash/fnv"
	"math"
	"strings"

	"binroute/internal/model"
)

const earthRadiusKm = 6371.0

// BusinessCenter is the operator's depot in central Dubai. Routes start and
// end here unless a run is configured to start from live vehicle positions.
var BusinessCenter = model.GeoPoint{Lat: 25.2048, Lng: 55.2708}

// zoneCenters maps the operating zones to their approximate centers.
var zoneCenters = map[string]model.GeoPoint{
	"deira":         {Lat: 25.2711, Lng: 55.3166},
	"bur dubai":     {Lat: 25.2528, Lng: 55.2936},
	"downtown":      {Lat: 25.1972, Lng: 55.2744},
	"jumeirah":      {Lat: 25.2048, Lng: 55.2382},
	"al quoz":       {Lat: 25.1412, Lng: 55.2311},
	"al qusais":     {Lat: 25.2808, Lng: 55.3838},
	"dubai marina":  {Lat: 25.0805, Lng: 55.1403},
	"jebel ali":     {Lat: 25.0116, Lng: 55.1354},
	"international": {Lat: 25.1655, Lng: 55.4181},
	"al barsha":     {Lat: 25.1124, Lng: 55.1970},
}

// routeColorPalette is the fixed display palette for route grouping.
var routeColorPalette = []string{
	"#2563eb", "#16a34a", "#dc2626", "#d97706", "#7c3aed",
	"#0891b2", "#db2777", "#65a30d", "#9333ea", "#ea580c",
}

// DistanceKm returns the great-circle (haversine) distance in kilometres
// between two points given in decimal degrees. Symmetric, zero for identical
// points, no road-network awareness.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// FindZone returns the center of a named zone. The lookup is case-insensitive.
// A miss returns ok=false; callers must tolerate it without aborting the run.
func FindZone(name string) (model.GeoPoint, bool) {
	c, ok := zoneCenters[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// ZoneColor returns a deterministic display color for a zone label. Equal
// labels always map to the same palette entry.
func ZoneColor(zone string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(zone))))
	return routeColorPalette[int(h.Sum32())%len(routeColorPalette)]
}

// ValidCoordinate reports whether a lat/lng pair is a plausible WGS84
// coordinate. NaN and out-of-range values are rejected.
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
