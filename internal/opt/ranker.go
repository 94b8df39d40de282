package opt

import (
	"sort"

	"binroute/internal/model"
)

// priorityWeight orders tiers critical > high > medium > low. Unknown tiers
// rank below low so malformed records never jump the queue.
func priorityWeight(tier string) int {
	switch tier {
	case model.PriorityCritical:
		return 4
	case model.PriorityHigh:
		return 3
	case model.PriorityMedium:
		return 2
	case model.PriorityLow:
		return 1
	default:
		return 0
	}
}

// RankByUrgency returns a new slice ordered by (priority tier desc, days
// overdue desc). The sort is stable, so equal-urgency points keep their input
// order and re-ranking an already-ranked list is a no-op. When prioritize is
// false the copy preserves input order. The input is never mutated.
func RankByUrgency(points []model.CollectionPoint, prioritize bool) []model.CollectionPoint {
	out := make([]model.CollectionPoint, len(points))
	copy(out, points)
	if !prioritize {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		wi, wj := priorityWeight(out[i].Priority), priorityWeight(out[j].Priority)
		if wi != wj {
			return wi > wj
		}
		return out[i].DaysOverdue > out[j].DaysOverdue
	})
	return out
}
