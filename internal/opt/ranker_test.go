package opt

import (
	"testing"

	"binroute/internal/model"
)

func TestRankByUrgencyTierOrder(t *testing.T) {
	pts := []model.CollectionPoint{
		{ID: "low", Priority: model.PriorityLow},
		{ID: "crit", Priority: model.PriorityCritical},
		{ID: "med", Priority: model.PriorityMedium},
		{ID: "high", Priority: model.PriorityHigh},
	}
	out := RankByUrgency(pts, true)
	want := []string{"crit", "high", "med", "low"}
	for i, id := range want {
		if out[i].ID != id {
			t.Fatalf("position %d: got %s want %s", i, out[i].ID, id)
		}
	}
	// input untouched
	if pts[0].ID != "low" {
		t.Fatal("input slice was mutated")
	}
}

func TestRankByUrgencyDaysOverdueTieBreak(t *testing.T) {
	// Scenario E: identical tier, higher days overdue first.
	pts := []model.CollectionPoint{
		{ID: "a", Priority: model.PriorityHigh, DaysOverdue: 2},
		{ID: "b", Priority: model.PriorityHigh, DaysOverdue: 9},
	}
	out := RankByUrgency(pts, true)
	if out[0].ID != "b" || out[1].ID != "a" {
		t.Fatalf("got order %s,%s", out[0].ID, out[1].ID)
	}
}

func TestRankByUrgencyStableAndIdempotent(t *testing.T) {
	pts := []model.CollectionPoint{
		{ID: "first", Priority: model.PriorityMedium, DaysOverdue: 3},
		{ID: "second", Priority: model.PriorityMedium, DaysOverdue: 3},
		{ID: "third", Priority: model.PriorityMedium, DaysOverdue: 3},
	}
	once := RankByUrgency(pts, true)
	twice := RankByUrgency(once, true)
	for i := range once {
		if once[i].ID != pts[i].ID {
			t.Fatalf("equal-urgency points reordered: %v", once)
		}
		if twice[i].ID != once[i].ID {
			t.Fatalf("re-ranking changed order at %d", i)
		}
	}
}

func TestRankByUrgencyDisabledKeepsInputOrder(t *testing.T) {
	pts := []model.CollectionPoint{
		{ID: "low", Priority: model.PriorityLow},
		{ID: "crit", Priority: model.PriorityCritical},
	}
	out := RankByUrgency(pts, false)
	if out[0].ID != "low" || out[1].ID != "crit" {
		t.Fatalf("disabled ranking should keep input order, got %v", out)
	}
}

func TestPriorityWeightUnknownTierRanksLast(t *testing.T) {
	pts := []model.CollectionPoint{
		{ID: "weird", Priority: "urgentish"},
		{ID: "low", Priority: model.PriorityLow},
	}
	out := RankByUrgency(pts, true)
	if out[0].ID != "low" {
		t.Fatalf("unknown tier should rank below low, got %v", out)
	}
}
