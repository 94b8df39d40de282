package opt

import "binroute/internal/model"

// splitRoute rebuilds an over-budget batch incrementally: points are added one
// at a time to a candidate sub-route, with full metrics recomputed after each
// tentative addition. When a point would blow either budget the current
// sub-route is closed and a fresh one is started with that point. A point
// whose solo route already exceeds a budget can never fit; it is returned in
// dropped rather than retried, so the splitter always terminates.
func splitRoute(start model.GeoPoint, points []model.CollectionPoint, returnToStart bool, opts Options, t Tuning) (routes []builtRoute, dropped []model.CollectionPoint) {
	var current []model.CollectionPoint

	closeCurrent := func() {
		if len(current) > 0 {
			routes = append(routes, buildRoute(start, current, returnToStart, t))
			current = nil
		}
	}

	for _, p := range points {
		tentative := buildRoute(start, append(append([]model.CollectionPoint{}, current...), p), returnToStart, t)
		if withinBudget(tentative, opts) {
			current = append(current, p)
			continue
		}
		// Over budget: fork a new sub-route and retry the point alone.
		closeCurrent()
		solo := buildRoute(start, []model.CollectionPoint{p}, returnToStart, t)
		if !withinBudget(solo, opts) {
			dropped = append(dropped, p)
			continue
		}
		current = []model.CollectionPoint{p}
	}
	closeCurrent()
	return routes, dropped
}
