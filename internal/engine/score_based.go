package engine

import (
	"github.com/leadrouter/backend/internal/models"
)

type scoreBasedResolver struct{}

// Resolve walks the tiers in list order and routes within the first
// tier whose range contains the lead's score; tiers may overlap. A
// matched tier that is fully at capacity does not fall through to the
// fallback pool, which serves only leads no tier covers. Tier caps
// default to the rule's global cap when omitted. Within a pool the pick
// is least-loaded, ties by rep id ascending.
func (scoreBasedResolver) Resolve(rule models.Rule, lead models.Lead, snap Snapshot) Selection {
	for _, tier := range rule.Logic.Tiers {
		if lead.Score < tier.MinScore || lead.Score > tier.MaxScore {
			continue
		}
		maxPerRep := tier.MaxLeadsPerRep
		if maxPerRep == nil {
			maxPerRep = rule.Logic.MaxLeadsPerRep
		}
		available := underCap(tier.Reps, maxPerRep, snap)
		if len(available) == 0 {
			return Selection{Reason: ReasonTierAtCapacity}
		}
		return Selection{RepID: leastLoaded(available, snap)}
	}

	available := underCap(rule.Logic.FallbackReps, rule.Logic.MaxLeadsPerRep, snap)
	if len(available) == 0 {
		return Selection{Reason: ReasonNoTierOrFallback}
	}
	return Selection{RepID: leastLoaded(available, snap)}
}
