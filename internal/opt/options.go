// Package opt implements the vehicle route optimization engine: a greedy,
// deterministic heuristic that partitions pending collection points into
// per-vehicle routes under distance and time budgets. The package has no
// persistence, transport, or rendering imports, and a run holds no state
// beyond its own call stack, so independent runs are safe in parallel.
package opt

// Tuning holds the policy constants of the heuristic. They are injected into
// the orchestrator rather than read from globals so tests can run with
// synthetic speeds and service times. The values are tunable policy, not
// physical law.
type Tuning struct {
	// Travel model: flat average urban speed and fixed per-stop service time.
	AverageSpeedKmh       float64
	ServiceMinutesPerStop float64

	// Route-level efficiency ideals.
	IdealStopsPerRoute  float64
	IdealKmPerStop      float64
	IdealHoursPerStop   float64
	IdealGallonsPerStop float64

	// Route-level efficiency weights; must sum to 1.
	StopCountWeight float64
	DistanceWeight  float64
	TimeWeight      float64
	VolumeWeight    float64

	// Run-level efficiency ideals and weights (weights sum to 1).
	IdealKmPerPoint    float64
	IdealHoursPerPoint float64
	AssignedWeight     float64
	RunDistanceWeight  float64
	RunTimeWeight      float64

	// ScavengePassFactor bounds pass-2 attempts at factor*len(vehicles).
	// Deliberate simplicity trade-off; keeps the worst case finite.
	ScavengePassFactor int
}

// DefaultTuning returns the production tuning.
func DefaultTuning() Tuning {
	return Tuning{
		AverageSpeedKmh:       30, // dense urban traffic
		ServiceMinutesPerStop: 15,

		IdealStopsPerRoute:  10,
		IdealKmPerStop:      3,
		IdealHoursPerStop:   0.3,
		IdealGallonsPerStop: 50,

		StopCountWeight: 0.3,
		DistanceWeight:  0.3,
		TimeWeight:      0.2,
		VolumeWeight:    0.2,

		IdealKmPerPoint:    5,
		IdealHoursPerPoint: 0.5,
		AssignedWeight:     0.5,
		RunDistanceWeight:  0.3,
		RunTimeWeight:      0.2,

		ScavengePassFactor: 3,
	}
}

// Options are the per-run knobs. Use DefaultOptions and override.
type Options struct {
	MaxVehicles             int // 0 = all eligible
	MaxPointsPerRoute       int
	PrioritizeUrgent        bool
	StartFromBusinessCenter bool
	MaxRouteDistanceKm      float64
	MaxRouteTimeHours       float64
}

// DefaultOptions returns the documented defaults: 15 points per route,
// urgent-first ranking, depot start, 50 km and 8 h budgets.
func DefaultOptions() Options {
	return Options{
		MaxPointsPerRoute:       15,
		PrioritizeUrgent:        true,
		StartFromBusinessCenter: true,
		MaxRouteDistanceKm:      50,
		MaxRouteTimeHours:       8,
	}
}

// normalized fills unset numeric fields with defaults so a zero-valued
// Options from an API request still runs sanely.
func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.MaxPointsPerRoute <= 0 {
		o.MaxPointsPerRoute = d.MaxPointsPerRoute
	}
	if o.MaxRouteDistanceKm <= 0 {
		o.MaxRouteDistanceKm = d.MaxRouteDistanceKm
	}
	if o.MaxRouteTimeHours <= 0 {
		o.MaxRouteTimeHours = d.MaxRouteTimeHours
	}
	return o
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
