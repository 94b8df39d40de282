package store

import (
	"context"
	"errors"
	"time"

	"binroute/internal/model"
)

// ErrNotFound is returned when a record does not exist for the tenant.
var ErrNotFound = errors.New("not found")

// Store is the persistence interface used by the API server.
type Store interface {
	// Collection points
	ImportPoints(ctx context.Context, tenantID string, points []model.CollectionPoint) (importID string, created, skipped int, err error)
	ListPoints(ctx context.Context, tenantID, zone, priority, cursor string, limit int) (items []model.CollectionPoint, nextCursor string, err error)

	// Vehicles
	UpsertVehicles(ctx context.Context, tenantID string, vehicles []model.VehicleLocation) (int, error)
	ListVehicles(ctx context.Context, tenantID string) ([]model.VehicleLocation, error)

	// Optimization runs
	SaveRun(ctx context.Context, tenantID string, result model.RouteOptimizationResult) (model.OptimizationRun, error)
	GetRun(ctx context.Context, tenantID, runID string) (model.OptimizationRun, error)
	ListRuns(ctx context.Context, tenantID, cursor string, limit int) ([]model.OptimizationRun, string, error)
	RunStats(ctx context.Context, tenantID string) (map[string]any, error)

	// Webhook subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID string) ([]model.Subscription, error)
	DeleteSubscription(ctx context.Context, tenantID, id string) error

	// Webhook delivery queue
	EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
	ListWebhookDeliveries(ctx context.Context, tenantID, status string, limit int) ([]WebhookDelivery, error)
}

// WebhookDelivery is one queued outbound delivery attempt chain.
type WebhookDelivery struct {
	ID             string
	TenantID       string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Status         string // pending, delivered, failed
	Attempts       int
	LastError      string
	ResponseCode   int
	LatencyMs      int
	NextAttemptAt  time.Time
}
