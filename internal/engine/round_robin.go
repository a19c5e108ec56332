package engine

import (
	"fmt"

	"github.com/leadrouter/backend/internal/models"
)

type roundRobinResolver struct{}

func (roundRobinResolver) Resolve(rule models.Rule, lead models.Lead, snap Snapshot) Selection {
	key := fmt.Sprintf("rule:%d", rule.ID)
	return rotate(rule.Logic.EligibleReps, rule.Logic.MaxLeadsPerRep, key, snap)
}
