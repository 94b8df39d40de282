package api

import (
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	tenant := "t1"
	ch := b.Subscribe(tenant)

	evt := RunEvent{Type: "run.completed", Data: map[string]any{"runId": "run_x"}}
	b.Publish(tenant, evt)

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["runId"].(string) != "run_x" {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(tenant, ch)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("channel should be closed after unsubscribe")
		}
	case <-time.After(50 * time.Millisecond):
		// acceptable if already drained and closed
	}
}

func TestBrokerTenantIsolation(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("t1")
	defer b.Unsubscribe("t1", ch)

	b.Publish("t2", RunEvent{Type: "run.completed"})
	select {
	case evt := <-ch:
		t.Fatalf("cross-tenant event leaked: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}
