package engine

import (
	"fmt"
	"sort"

	"github.com/leadrouter/backend/internal/models"
)

const (
	ReasonAllAtCapacity    = "all eligible reps at capacity"
	ReasonTierAtCapacity   = "all reps in matching score tier at capacity"
	ReasonNoTierOrFallback = "no tier or fallback rep available"
	ReasonEmptyTerritory   = "no reps configured for territory"
)

// Selection is a resolver's verdict: the chosen rep (empty RepID means
// none available) plus the cursor write Apply would commit. Resolvers
// never mutate; they only describe the mutation.
type Selection struct {
	RepID      string
	Reason     string
	CursorKey  string
	NextCursor int
}

// Resolver picks a representative for a lead once the owning rule has
// already matched. Selection only; persistence stays with the executor.
type Resolver interface {
	Resolve(rule models.Rule, lead models.Lead, snap Snapshot) Selection
}

// ResolverFor dispatches on the rule-type tag of the logic union.
func ResolverFor(t models.RuleType) (Resolver, error) {
	switch t {
	case models.RuleRoundRobin:
		return roundRobinResolver{}, nil
	case models.RuleTerritory:
		return territoryResolver{}, nil
	case models.RuleWorkload:
		return workloadResolver{}, nil
	case models.RuleScoreBased:
		return scoreBasedResolver{}, nil
	default:
		return nil, fmt.Errorf("unknown rule type %q", t)
	}
}

// underCap filters the pool down to reps with headroom. A nil cap means
// unlimited.
func underCap(pool []string, maxPerRep *int, snap Snapshot) []string {
	if maxPerRep == nil {
		return pool
	}
	out := make([]string, 0, len(pool))
	for _, id := range pool {
		if snap.Workload(id) < *maxPerRep {
			out = append(out, id)
		}
	}
	return out
}

// leastLoaded picks the rep with the fewest active assignments, ties
// broken by rep id ascending.
func leastLoaded(pool []string, snap Snapshot) string {
	sorted := make([]string, len(pool))
	copy(sorted, pool)
	sort.SliceStable(sorted, func(i, j int) bool {
		li, lj := snap.Workload(sorted[i]), snap.Workload(sorted[j])
		if li == lj {
			return sorted[i] < sorted[j]
		}
		return li < lj
	})
	return sorted[0]
}

// rotate runs round-robin selection over pool: the pick indexes the
// capacity-filtered pool, while the stored cursor always advances over
// the full configured pool so temporarily-capped reps keep their turn
// once capacity frees up.
func rotate(pool []string, maxPerRep *int, cursorKey string, snap Snapshot) Selection {
	cursor := snap.Cursor(cursorKey)
	available := underCap(pool, maxPerRep, snap)
	if len(available) == 0 {
		return Selection{Reason: ReasonAllAtCapacity}
	}
	return Selection{
		RepID:      available[cursor%len(available)],
		CursorKey:  cursorKey,
		NextCursor: (cursor + 1) % len(pool),
	}
}
