package api

import (
	"fmt"

	"binroute/internal/model"
)

func validateOptimizeRequest(req *model.OptimizeRequest) error {
	o := req.Options
	if o.MaxVehicles < 0 {
		return fmt.Errorf("maxVehicles must be >= 0")
	}
	if o.MaxPointsPerRoute < 0 {
		return fmt.Errorf("maxPointsPerRoute must be >= 0")
	}
	if o.MaxRouteDistanceKm < 0 {
		return fmt.Errorf("maxRouteDistance must be >= 0")
	}
	if o.MaxRouteTimeHours < 0 {
		return fmt.Errorf("maxRouteTime must be >= 0")
	}
	for _, v := range req.Vehicles {
		if v.ID <= 0 {
			return fmt.Errorf("vehicle id must be > 0")
		}
	}
	return nil
}
