package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"binroute/internal/model"
)

func TestMemoryImportPointsDedupes(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	pts := []model.CollectionPoint{
		{ID: "p1", Lat: 25.27, Lng: 55.30, Zone: "deira"},
		{ID: "p2", Lat: 25.26, Lng: 55.31, Zone: "deira"},
	}
	_, created, skipped, err := m.ImportPoints(ctx, "t1", pts)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if created != 2 || skipped != 0 {
		t.Fatalf("created=%d skipped=%d", created, skipped)
	}
	_, created, skipped, _ = m.ImportPoints(ctx, "t1", pts)
	if created != 0 || skipped != 2 {
		t.Fatalf("re-import created=%d skipped=%d", created, skipped)
	}
}

func TestMemoryListPointsFilterAndCursor(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	pts := []model.CollectionPoint{
		{ID: "a", Zone: "deira", Priority: model.PriorityHigh},
		{ID: "b", Zone: "jumeirah", Priority: model.PriorityLow},
		{ID: "c", Zone: "deira", Priority: model.PriorityCritical},
		{ID: "d", Zone: "deira", Priority: model.PriorityHigh},
	}
	if _, _, _, err := m.ImportPoints(ctx, "t1", pts); err != nil {
		t.Fatal(err)
	}

	got, next, err := m.ListPoints(ctx, "t1", "deira", "", "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("page1 = %+v", got)
	}
	if next == "" {
		t.Fatal("expected next cursor")
	}
	got, _, err = m.ListPoints(ctx, "t1", "deira", "", next, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "d" {
		t.Fatalf("page2 = %+v", got)
	}

	got, _, _ = m.ListPoints(ctx, "t1", "", model.PriorityHigh, "", 10)
	if len(got) != 2 {
		t.Fatalf("priority filter = %+v", got)
	}
}

func TestMemoryVehiclesUpsert(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.UpsertVehicles(ctx, "t1", []model.VehicleLocation{
		{ID: 2, Lat: 25.2, Lng: 55.3, Status: model.VehicleActive},
		{ID: 1, Lat: 25.1, Lng: 55.2, Status: model.VehicleIdle},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.UpsertVehicles(ctx, "t1", []model.VehicleLocation{{ID: 1, Lat: 25.15, Lng: 55.25, Status: model.VehicleActive}}); err != nil {
		t.Fatal(err)
	}
	vs, err := m.ListVehicles(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 2 || vs[0].ID != 1 || vs[0].Lat != 25.15 {
		t.Fatalf("vehicles = %+v", vs)
	}
}

func TestMemoryRunsRoundtrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	run, err := m.SaveRun(ctx, "t1", model.RouteOptimizationResult{OverallEfficiency: 80})
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.GetRun(ctx, "t1", run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Result.OverallEfficiency != 80 {
		t.Fatalf("efficiency = %v", got.Result.OverallEfficiency)
	}
	if _, err := m.GetRun(ctx, "t1", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := m.GetRun(ctx, "other", run.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant read should miss, got %v", err)
	}
}

func TestMemoryListRunsNewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		r, _ := m.SaveRun(ctx, "t1", model.RouteOptimizationResult{})
		ids = append(ids, r.ID)
	}
	runs, next, err := m.ListRuns(ctx, "t1", "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Fatalf("page1 = %+v", runs)
	}
	runs, _, _ = m.ListRuns(ctx, "t1", next, 2)
	if len(runs) != 1 || runs[0].ID != ids[0] {
		t.Fatalf("page2 = %+v", runs)
	}
}

func TestMemorySubscriptionsAndWebhookQueue(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	sub, err := m.CreateSubscription(ctx, model.SubscriptionRequest{
		TenantID: "t1", URL: "https://example.com/hook", Events: []string{"run.completed"}, Secret: "s3cr3t",
	})
	if err != nil {
		t.Fatal(err)
	}
	matched, _ := m.GetSubscriptionsForEvent(ctx, "t1", "run.completed")
	if len(matched) != 1 {
		t.Fatalf("matched = %d", len(matched))
	}
	listed, _ := m.ListSubscriptions(ctx, "t1")
	if len(listed) != 1 || listed[0].Secret != "" {
		t.Fatalf("list should redact secret, got %+v", listed)
	}

	id, err := m.EnqueueWebhook(ctx, "t1", sub.ID, "run.completed", sub.URL, "s3cr3t", []byte(`{"ok":true}`))
	if err != nil {
		t.Fatal(err)
	}
	due, _ := m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 1 || due[0].ID != id {
		t.Fatalf("due = %+v", due)
	}

	// retry pushes next attempt into the future
	later := time.Now().Add(time.Hour)
	if err := m.MarkWebhookDelivery(ctx, id, false, &later, "boom", 500, 12); err != nil {
		t.Fatal(err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("retry should not be due, got %+v", due)
	}

	if err := m.MarkWebhookDelivery(ctx, id, true, nil, "", 200, 8); err != nil {
		t.Fatal(err)
	}
	all, _ := m.ListWebhookDeliveries(ctx, "t1", "delivered", 10)
	if len(all) != 1 || all[0].Attempts != 2 {
		t.Fatalf("deliveries = %+v", all)
	}

	if err := m.DeleteSubscription(ctx, "t1", sub.ID); err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteSubscription(ctx, "t1", sub.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
