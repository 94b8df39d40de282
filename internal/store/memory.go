package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"binroute/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu       sync.Mutex
	points   map[string][]model.CollectionPoint // tenant -> points in import order
	pointIDs map[string]map[string]bool         // tenant -> point id set (dedupe)
	vehicles map[string]map[int]model.VehicleLocation
	runs     map[string][]model.OptimizationRun // tenant -> runs, newest last
	subs     map[string][]model.Subscription
	queue    map[string]*WebhookDelivery
	queueIDs []string // stable delivery order
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		points:   map[string][]model.CollectionPoint{},
		pointIDs: map[string]map[string]bool{},
		vehicles: map[string]map[int]model.VehicleLocation{},
		runs:     map[string][]model.OptimizationRun{},
		subs:     map[string][]model.Subscription{},
		queue:    map[string]*WebhookDelivery{},
	}
}

func (m *Memory) ImportPoints(ctx context.Context, tenantID string, points []model.CollectionPoint) (string, int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pointIDs[tenantID] == nil {
		m.pointIDs[tenantID] = map[string]bool{}
	}
	created, skipped := 0, 0
	for _, p := range points {
		if p.ID == "" || m.pointIDs[tenantID][p.ID] {
			skipped++
			continue
		}
		m.pointIDs[tenantID][p.ID] = true
		m.points[tenantID] = append(m.points[tenantID], p)
		created++
	}
	return "imp_" + uuid.New().String(), created, skipped, nil
}

func (m *Memory) ListPoints(ctx context.Context, tenantID, zone, priority, cursor string, limit int) ([]model.CollectionPoint, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.points[tenantID]
	start := 0
	if cursor != "" {
		for i, p := range all {
			if p.ID == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	out := []model.CollectionPoint{}
	next := ""
	for i := start; i < len(all); i++ {
		p := all[i]
		if zone != "" && p.Zone != zone {
			continue
		}
		if priority != "" && p.Priority != priority {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			if i+1 < len(all) {
				next = p.ID
			}
			break
		}
	}
	return out, next, nil
}

func (m *Memory) UpsertVehicles(ctx context.Context, tenantID string, vehicles []model.VehicleLocation) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vehicles[tenantID] == nil {
		m.vehicles[tenantID] = map[int]model.VehicleLocation{}
	}
	for _, v := range vehicles {
		m.vehicles[tenantID][v.ID] = v
	}
	return len(vehicles), nil
}

func (m *Memory) ListVehicles(ctx context.Context, tenantID string) ([]model.VehicleLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.VehicleLocation, 0, len(m.vehicles[tenantID]))
	for _, v := range m.vehicles[tenantID] {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveRun(ctx context.Context, tenantID string, result model.RouteOptimizationResult) (model.OptimizationRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := model.OptimizationRun{
		ID:        "run_" + uuid.New().String(),
		TenantID:  tenantID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Result:    result,
	}
	m.runs[tenantID] = append(m.runs[tenantID], run)
	return run, nil
}

func (m *Memory) GetRun(ctx context.Context, tenantID, runID string) (model.OptimizationRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs[tenantID] {
		if r.ID == runID {
			return r, nil
		}
	}
	return model.OptimizationRun{}, ErrNotFound
}

func (m *Memory) ListRuns(ctx context.Context, tenantID, cursor string, limit int) ([]model.OptimizationRun, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.runs[tenantID]
	// newest first
	start := len(all) - 1
	if cursor != "" {
		for i := len(all) - 1; i >= 0; i-- {
			if all[i].ID == cursor {
				start = i - 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 20
	}
	out := []model.OptimizationRun{}
	next := ""
	for i := start; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
		if len(out) == limit && i > 0 {
			next = all[i].ID
		}
	}
	return out, next, nil
}

func (m *Memory) RunStats(ctx context.Context, tenantID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := m.runs[tenantID]
	var routes, assigned, unassigned int
	var dist, eff float64
	for _, r := range runs {
		routes += len(r.Result.Routes)
		for _, rt := range r.Result.Routes {
			assigned += len(rt.Points)
		}
		unassigned += len(r.Result.UnassignedPoints)
		dist += r.Result.TotalDistanceKm
		eff += r.Result.OverallEfficiency
	}
	stats := map[string]any{
		"runs":             len(runs),
		"routes":           routes,
		"pointsAssigned":   assigned,
		"pointsUnassigned": unassigned,
		"totalDistanceKm":  dist,
	}
	if len(runs) > 0 {
		stats["avgEfficiency"] = eff / float64(len(runs))
	}
	return stats, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Subscription{ID: uuid.New().String(), TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}
	m.subs[req.TenantID] = append(m.subs[req.TenantID], s)
	return s, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Subscription{}
	for _, s := range m.subs[tenantID] {
		for _, e := range s.Events {
			if e == eventType || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Subscription, len(m.subs[tenantID]))
	copy(out, m.subs[tenantID])
	for i := range out {
		out[i].Secret = "" // never list secrets back
	}
	return out, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[tenantID]
	for i, s := range subs {
		if s.ID == id {
			m.subs[tenantID] = append(subs[:i], subs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := "whd_" + uuid.New().String()
	m.queue[id] = &WebhookDelivery{
		ID: id, TenantID: tenantID, SubscriptionID: subscriptionID,
		EventType: eventType, URL: url, Secret: secret, Payload: payload,
		Status: "pending", NextAttemptAt: time.Now(),
	}
	m.queueIDs = append(m.queueIDs, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.queueIDs {
		d := m.queue[id]
		if d.Status == "pending" && !d.NextAttemptAt.After(now) {
			out = append(out, *d)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.queue[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
	} else if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.queue[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = "failed"
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, tenantID, status string, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	out := []WebhookDelivery{}
	for _, id := range m.queueIDs {
		d := m.queue[id]
		if d.TenantID != tenantID {
			continue
		}
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, *d)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
