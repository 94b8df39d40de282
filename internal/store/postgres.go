package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"binroute/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Ping checks database connectivity.
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// MigrateDir applies every .sql file in dir in lexical order.
func (p *Postgres) MigrateDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil { return err }
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, n := range names {
		b, err := os.ReadFile(filepath.Join(dir, n))
		if err != nil { return err }
		if _, err := p.db.Exec(string(b)); err != nil {
			return fmt.Errorf("migrate %s: %w", n, err)
		}
	}
	return nil
}

func (p *Postgres) ImportPoints(ctx context.Context, tenantID string, points []model.CollectionPoint) (string, int, int, error) {
	importID := fmt.Sprintf("imp_%d", time.Now().UnixNano())
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil { return "", 0, 0, err }
	defer func() { _ = tx.Rollback() }()

	created, skipped := 0, 0
	for _, pt := range points {
		if pt.ID == "" {
			skipped++
			continue
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO collection_points
			(id, tenant_id, lat, lng, expected_gallons, category, area, zone, name, priority, days_overdue)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			ON CONFLICT (tenant_id, id) DO NOTHING`,
			pt.ID, tenantID, pt.Lat, pt.Lng, pt.ExpectedGallons, nullIfEmpty(pt.Category),
			nullIfEmpty(pt.Area), nullIfEmpty(pt.Zone), nullIfEmpty(pt.Name), pt.Priority, pt.DaysOverdue)
		if err != nil { return "", 0, 0, err }
		if n, _ := res.RowsAffected(); n == 0 {
			skipped++
		} else {
			created++
		}
	}
	if err := tx.Commit(); err != nil { return "", 0, 0, err }
	return importID, created, skipped, nil
}

func (p *Postgres) ListPoints(ctx context.Context, tenantID, zone, priority, cursor string, limit int) ([]model.CollectionPoint, string, error) {
	if limit <= 0 || limit > 500 { limit = 100 }
	q := `SELECT id, lat, lng, expected_gallons, COALESCE(category,''), COALESCE(area,''),
		COALESCE(zone,''), COALESCE(name,''), priority, days_overdue
		FROM collection_points WHERE tenant_id=$1`
	args := []any{tenantID}
	if zone != "" {
		args = append(args, zone)
		q += fmt.Sprintf(" AND zone=$%d", len(args))
	}
	if priority != "" {
		args = append(args, priority)
		q += fmt.Sprintf(" AND priority=$%d", len(args))
	}
	if cursor != "" {
		args = append(args, cursor)
		q += fmt.Sprintf(" AND id > $%d", len(args))
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY id LIMIT $%d", len(args))

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil { return nil, "", err }
	defer rows.Close()
	out := []model.CollectionPoint{}
	var last string
	for rows.Next() {
		var pt model.CollectionPoint
		if err := rows.Scan(&pt.ID, &pt.Lat, &pt.Lng, &pt.ExpectedGallons, &pt.Category,
			&pt.Area, &pt.Zone, &pt.Name, &pt.Priority, &pt.DaysOverdue); err != nil {
			return nil, "", err
		}
		out = append(out, pt)
		last = pt.ID
	}
	next := ""
	if len(out) == limit { next = last }
	return out, next, rows.Err()
}

func (p *Postgres) UpsertVehicles(ctx context.Context, tenantID string, vehicles []model.VehicleLocation) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil { return 0, err }
	defer func() { _ = tx.Rollback() }()
	for _, v := range vehicles {
		_, err := tx.ExecContext(ctx, `INSERT INTO vehicles (tenant_id, vehicle_id, lat, lng, status, home_zone, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,now())
			ON CONFLICT (tenant_id, vehicle_id) DO UPDATE SET
				lat=EXCLUDED.lat, lng=EXCLUDED.lng, status=EXCLUDED.status,
				home_zone=EXCLUDED.home_zone, updated_at=now()`,
			tenantID, v.ID, v.Lat, v.Lng, v.Status, nullIfEmpty(v.HomeZone))
		if err != nil { return 0, err }
	}
	if err := tx.Commit(); err != nil { return 0, err }
	return len(vehicles), nil
}

func (p *Postgres) ListVehicles(ctx context.Context, tenantID string) ([]model.VehicleLocation, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT vehicle_id, lat, lng, status, COALESCE(home_zone,'')
		FROM vehicles WHERE tenant_id=$1 ORDER BY vehicle_id`, tenantID)
	if err != nil { return nil, err }
	defer rows.Close()
	out := []model.VehicleLocation{}
	for rows.Next() {
		var v model.VehicleLocation
		if err := rows.Scan(&v.ID, &v.Lat, &v.Lng, &v.Status, &v.HomeZone); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *Postgres) SaveRun(ctx context.Context, tenantID string, result model.RouteOptimizationResult) (model.OptimizationRun, error) {
	run := model.OptimizationRun{
		ID:        "run_" + uuid.New().String(),
		TenantID:  tenantID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Result:    result,
	}
	payload, err := json.Marshal(result)
	if err != nil { return model.OptimizationRun{}, err }
	_, err = p.db.ExecContext(ctx, `INSERT INTO optimization_runs
		(id, tenant_id, created_at, routes, points_assigned, points_unassigned, total_distance_km, efficiency, result)
		VALUES ($1,$2,now(),$3,$4,$5,$6,$7,$8)`,
		run.ID, tenantID, len(result.Routes), countAssigned(result), len(result.UnassignedPoints),
		result.TotalDistanceKm, result.OverallEfficiency, payload)
	if err != nil { return model.OptimizationRun{}, err }
	return run, nil
}

func (p *Postgres) GetRun(ctx context.Context, tenantID, runID string) (model.OptimizationRun, error) {
	var run model.OptimizationRun
	var created time.Time
	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT id, created_at, result FROM optimization_runs
		WHERE tenant_id=$1 AND id=$2`, tenantID, runID).Scan(&run.ID, &created, &payload)
	if errors.Is(err, sql.ErrNoRows) { return model.OptimizationRun{}, ErrNotFound }
	if err != nil { return model.OptimizationRun{}, err }
	run.TenantID = tenantID
	run.CreatedAt = created.UTC().Format(time.RFC3339)
	if err := json.Unmarshal(payload, &run.Result); err != nil {
		return model.OptimizationRun{}, err
	}
	return run, nil
}

func (p *Postgres) ListRuns(ctx context.Context, tenantID, cursor string, limit int) ([]model.OptimizationRun, string, error) {
	if limit <= 0 || limit > 100 { limit = 20 }
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx, `SELECT id, created_at, result FROM optimization_runs
			WHERE tenant_id=$1 AND id < $2 ORDER BY id DESC LIMIT $3`, tenantID, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT id, created_at, result FROM optimization_runs
			WHERE tenant_id=$1 ORDER BY id DESC LIMIT $2`, tenantID, limit)
	}
	if err != nil { return nil, "", err }
	defer rows.Close()
	out := []model.OptimizationRun{}
	var last string
	for rows.Next() {
		var run model.OptimizationRun
		var created time.Time
		var payload []byte
		if err := rows.Scan(&run.ID, &created, &payload); err != nil { return nil, "", err }
		run.TenantID = tenantID
		run.CreatedAt = created.UTC().Format(time.RFC3339)
		if err := json.Unmarshal(payload, &run.Result); err != nil { return nil, "", err }
		out = append(out, run)
		last = run.ID
	}
	next := ""
	if len(out) == limit { next = last }
	return out, next, rows.Err()
}

func (p *Postgres) RunStats(ctx context.Context, tenantID string) (map[string]any, error) {
	var runs, routes, assigned, unassigned int
	var dist, eff sql.NullFloat64
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(routes),0),
		COALESCE(SUM(points_assigned),0), COALESCE(SUM(points_unassigned),0),
		SUM(total_distance_km), AVG(efficiency)
		FROM optimization_runs WHERE tenant_id=$1`, tenantID).
		Scan(&runs, &routes, &assigned, &unassigned, &dist, &eff)
	if err != nil { return nil, err }
	stats := map[string]any{
		"runs":             runs,
		"routes":           routes,
		"pointsAssigned":   assigned,
		"pointsUnassigned": unassigned,
		"totalDistanceKm":  dist.Float64,
	}
	if eff.Valid { stats["avgEfficiency"] = eff.Float64 }
	return stats, nil
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	s := model.Subscription{ID: uuid.New().String(), TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}
	events, err := json.Marshal(req.Events)
	if err != nil { return model.Subscription{}, err }
	_, err = p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, tenant_id, url, secret, events)
		VALUES ($1,$2,$3,$4,$5)`, s.ID, s.TenantID, s.URL, nullIfEmpty(s.Secret), events)
	if err != nil { return model.Subscription{}, err }
	return s, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, COALESCE(secret,''), events
		FROM subscriptions WHERE tenant_id=$1 AND (events @> $2::jsonb OR events @> '["*"]'::jsonb)`,
		tenantID, fmt.Sprintf("[%q]", eventType))
	if err != nil { return nil, err }
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var s model.Subscription
		var events []byte
		if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &events); err != nil { return nil, err }
		s.TenantID = tenantID
		_ = json.Unmarshal(events, &s.Events)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, events FROM subscriptions
		WHERE tenant_id=$1 ORDER BY id`, tenantID)
	if err != nil { return nil, err }
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var s model.Subscription
		var events []byte
		if err := rows.Scan(&s.ID, &s.URL, &events); err != nil { return nil, err }
		s.TenantID = tenantID
		_ = json.Unmarshal(events, &s.Events)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil { return err }
	if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := "whd_" + uuid.New().String()
	_, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries
		(id, tenant_id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',0,now())`,
		id, tenantID, nullIfEmpty(subscriptionID), eventType, url, nullIfEmpty(secret), payload)
	if err != nil { return "", err }
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 { limit = 20 }
	rows, err := p.db.QueryContext(ctx, `SELECT id, tenant_id, COALESCE(subscription_id,''), event_type,
		url, COALESCE(secret,''), payload, status, attempts, next_attempt_at
		FROM webhook_deliveries WHERE status='pending' AND next_attempt_at <= now()
		ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil { return nil, err }
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType,
			&d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts, &d.NextAttemptAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered',
			last_error=NULL, response_code=$2, latency_ms=$3, updated_at=now() WHERE id=$1`, id, responseCode, latencyMs)
		return err
	}
	if nextAttemptAt == nil {
		return p.FailWebhookDelivery(ctx, id, lastError, responseCode, latencyMs)
	}
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='pending',
		last_error=$2, next_attempt_at=$3, response_code=$4, latency_ms=$5, updated_at=now() WHERE id=$1`,
		id, nullIfEmpty(lastError), *nextAttemptAt, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='failed',
		last_error=$2, response_code=$3, latency_ms=$4, updated_at=now() WHERE id=$1`,
		id, nullIfEmpty(lastError), responseCode, latencyMs)
	return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, tenantID, status string, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 || limit > 500 { limit = 100 }
	q := `SELECT id, tenant_id, COALESCE(subscription_id,''), event_type, url, status, attempts,
		COALESCE(last_error,''), COALESCE(response_code,0), COALESCE(latency_ms,0), next_attempt_at
		FROM webhook_deliveries WHERE tenant_id=$1`
	args := []any{tenantID}
	if status != "" {
		args = append(args, status)
		q += " AND status=$2"
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY next_attempt_at DESC LIMIT $%d", len(args))
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil { return nil, err }
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL,
			&d.Status, &d.Attempts, &d.LastError, &d.ResponseCode, &d.LatencyMs, &d.NextAttemptAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func countAssigned(r model.RouteOptimizationResult) int {
	n := 0
	for _, rt := range r.Routes {
		n += len(rt.Points)
	}
	return n
}

func nullIfEmpty(s string) any {
	if s == "" { return nil }
	return s
}
