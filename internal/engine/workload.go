package engine

import (
	"github.com/leadrouter/backend/internal/models"
)

type workloadResolver struct{}

// Resolve picks the least-loaded eligible rep with headroom, ties
// broken by rep id ascending. No cursor state.
func (workloadResolver) Resolve(rule models.Rule, lead models.Lead, snap Snapshot) Selection {
	available := underCap(rule.Logic.EligibleReps, rule.Logic.MaxLeadsPerRep, snap)
	if len(available) == 0 {
		return Selection{Reason: ReasonAllAtCapacity}
	}
	return Selection{RepID: leastLoaded(available, snap)}
}
