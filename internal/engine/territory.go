package engine

import (
	"fmt"

	"github.com/leadrouter/backend/internal/models"
)

type territoryResolver struct{}

// Resolve routes by the lead's location: the mapped pool when one is
// configured, otherwise the eligible-reps fallback pool. Each resolved
// pool identity rotates on its own cursor so one busy territory never
// skews another's rotation.
func (territoryResolver) Resolve(rule models.Rule, lead models.Lead, snap Snapshot) Selection {
	pool := rule.Logic.TerritoryMapping[lead.Location]
	key := fmt.Sprintf("rule:%d:territory:%s", rule.ID, lead.Location)
	if len(pool) == 0 {
		pool = rule.Logic.EligibleReps
		key = fmt.Sprintf("rule:%d:fallback", rule.ID)
	}
	if len(pool) == 0 {
		return Selection{Reason: ReasonEmptyTerritory}
	}
	return rotate(pool, rule.Logic.MaxLeadsPerRep, key, snap)
}
