package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"binroute/internal/metrics"
	"binroute/internal/model"
	"binroute/internal/opt"
	"binroute/internal/store"
)

// PointsHandler handles POST/GET /v1/points
func (s *Server) PointsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			TenantID string                  `json:"tenantId"`
			Points   []model.CollectionPoint `json:"points"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.TenantID == "" {
			_, req.TenantID = s.withTenant(r)
		}
		imp, created, skipped, err := s.Store.ImportPoints(r.Context(), req.TenantID, req.Points)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Import points failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"importId": imp, "created": created, "skipped": skipped})
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		zone := r.URL.Query().Get("zone")
		priority := r.URL.Query().Get("priority")
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListPoints(r.Context(), tenant, zone, priority, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List points failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// VehiclesHandler handles PUT/GET /v1/vehicles
func (s *Server) VehiclesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut, http.MethodPost:
		var req struct {
			TenantID string                  `json:"tenantId"`
			Vehicles []model.VehicleLocation `json:"vehicles"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.TenantID == "" {
			_, req.TenantID = s.withTenant(r)
		}
		for _, v := range req.Vehicles {
			if v.ID <= 0 {
				writeProblem(w, http.StatusBadRequest, "Invalid vehicle", "vehicle id must be > 0", r.URL.Path)
				return
			}
		}
		n, err := s.Store.UpsertVehicles(r.Context(), req.TenantID, req.Vehicles)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Upsert vehicles failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"upserted": n})
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		items, err := s.Store.ListVehicles(r.Context(), tenant)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List vehicles failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// VehicleLocationsHandler handles POST/GET /v1/vehicles/locations (live telemetry)
func (s *Server) VehicleLocationsHandler(w http.ResponseWriter, r *http.Request) {
	_, tenant := s.withTenant(r)
	switch r.Method {
	case http.MethodPost:
		var ping model.VehiclePing
		if err := json.NewDecoder(r.Body).Decode(&ping); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if ping.VehicleID <= 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid ping", "vehicleId must be > 0", r.URL.Path)
			return
		}
		if ping.TS == "" {
			ping.TS = time.Now().UTC().Format(time.RFC3339)
		}
		s.Fleet.Upsert(tenant, ping)
		s.Broker.Publish(tenant, RunEvent{Type: "vehicle.ping", Data: map[string]any{
			"vehicleId": ping.VehicleID, "lat": ping.Lat, "lng": ping.Lng, "ts": ping.TS,
		}})
		writeJSON(w, http.StatusAccepted, map[string]any{"status": "accepted"})
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"items": s.Fleet.List(tenant)})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// OptimizeHandler handles POST /v1/optimize
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.CanDispatch() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "dispatcher or admin required", r.URL.Path)
		return
	}
	var req model.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateOptimizeRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
		return
	}
	if req.TenantID == "" {
		req.TenantID = p.Tenant
	}

	points := req.Points
	if len(points) == 0 {
		var err error
		points, err = s.loadAllPoints(r.Context(), req.TenantID)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Load points failed", err.Error(), r.URL.Path)
			return
		}
	}
	vehicles := req.Vehicles
	if len(vehicles) == 0 {
		var err error
		vehicles, err = s.Store.ListVehicles(r.Context(), req.TenantID)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Load vehicles failed", err.Error(), r.URL.Path)
			return
		}
		// Live telemetry beats the stored position.
		pings := map[int]model.VehiclePing{}
		for _, ping := range s.Fleet.List(req.TenantID) {
			pings[ping.VehicleID] = ping
		}
		for i, v := range vehicles {
			if ping, ok := pings[v.ID]; ok {
				vehicles[i].Lat = ping.Lat
				vehicles[i].Lng = ping.Lng
			}
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.optimizeTimeout())
	defer cancel()
	started := time.Now()
	result, err := opt.Optimize(ctx, points, vehicles, toOptions(req.Options), s.Tuning)
	metrics.OptimizationDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		var pe *opt.PointError
		if errors.As(err, &pe) {
			metrics.OptimizationRuns.WithLabelValues("invalid").Inc()
			writeProblem(w, http.StatusBadRequest, "Invalid point", pe.Error(), r.URL.Path)
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			// Budget exhausted: report everything unassigned rather than a partial plan.
			metrics.OptimizationRuns.WithLabelValues("timeout").Inc()
			result = model.RouteOptimizationResult{
				Routes:           []model.OptimizedRoute{},
				UnassignedPoints: append([]model.CollectionPoint{}, points...),
				OptimizationMs:   time.Since(started).Milliseconds(),
			}
		} else {
			metrics.OptimizationRuns.WithLabelValues("error").Inc()
			writeProblem(w, http.StatusInternalServerError, "Optimize failed", err.Error(), r.URL.Path)
			return
		}
	} else {
		metrics.OptimizationRuns.WithLabelValues("ok").Inc()
	}
	assigned := 0
	for _, rt := range result.Routes {
		assigned += len(rt.Points)
	}
	metrics.PointsAssigned.Add(float64(assigned))
	metrics.PointsUnassigned.Add(float64(len(result.UnassignedPoints)))

	run, err := s.Store.SaveRun(r.Context(), req.TenantID, result)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save run failed", err.Error(), r.URL.Path)
		return
	}
	evtData := map[string]any{
		"runId":      run.ID,
		"routes":     len(result.Routes),
		"assigned":   assigned,
		"unassigned": len(result.UnassignedPoints),
		"efficiency": result.OverallEfficiency,
	}
	s.Broker.Publish(req.TenantID, RunEvent{Type: "run.completed", Data: evtData})
	s.Pub.Emit(r.Context(), req.TenantID, "run.completed", evtData)

	writeJSON(w, http.StatusOK, run)
}

// loadAllPoints pages through the store until the cursor is exhausted.
func (s *Server) loadAllPoints(ctx context.Context, tenantID string) ([]model.CollectionPoint, error) {
	var out []model.CollectionPoint
	cursor := ""
	for {
		items, next, err := s.Store.ListPoints(ctx, tenantID, "", "", cursor, 500)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if next == "" {
			return out, nil
		}
		cursor = next
	}
}

func toOptions(in model.OptimizeOptions) opt.Options {
	o := opt.DefaultOptions()
	if in.MaxVehicles > 0 {
		o.MaxVehicles = in.MaxVehicles
	}
	if in.MaxPointsPerRoute > 0 {
		o.MaxPointsPerRoute = in.MaxPointsPerRoute
	}
	if in.PrioritizeUrgent != nil {
		o.PrioritizeUrgent = *in.PrioritizeUrgent
	}
	if in.StartFromBusinessCenter != nil {
		o.StartFromBusinessCenter = *in.StartFromBusinessCenter
	}
	if in.MaxRouteDistanceKm > 0 {
		o.MaxRouteDistanceKm = in.MaxRouteDistanceKm
	}
	if in.MaxRouteTimeHours > 0 {
		o.MaxRouteTimeHours = in.MaxRouteTimeHours
	}
	return o
}

// RunsHandler handles GET /v1/runs
func (s *Server) RunsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, tenant := s.withTenant(r)
	cursor := r.URL.Query().Get("cursor")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListRuns(r.Context(), tenant, cursor, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id}
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	_, tenant := s.withTenant(r)
	run, err := s.Store.GetRun(r.Context(), tenant, id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Run not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get run failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	switch r.Method {
	case http.MethodPost:
		if !p.IsAdmin() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
			return
		}
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.URL == "" || len(req.Events) == 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", "url and events required", r.URL.Path)
			return
		}
		if req.TenantID == "" {
			req.TenantID = p.Tenant
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		sub.Secret = ""
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		items, err := s.Store.ListSubscriptions(r.Context(), p.Tenant)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/v1/subscriptions/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	err := s.Store.DeleteSubscription(r.Context(), p.Tenant, id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Subscription not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Delete subscription failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WebhookDeliveriesHandler handles GET /v1/admin/webhook-deliveries
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/webhook-deliveries" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	status := r.URL.Query().Get("status")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, err := s.Store.ListWebhookDeliveries(r.Context(), p.Tenant, status, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List deliveries failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// RunStatsHandler handles GET /v1/admin/runs/stats
func (s *Server) RunStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/runs/stats" || r.Method != http.MethodGet {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	stats, err := s.Store.RunStats(r.Context(), p.Tenant)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Stats failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB connectivity when using Postgres store
	type pinger interface{ Ping(ctx context.Context) error }
	if pg, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
