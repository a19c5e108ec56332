package models

import "time"

type RuleType string

const (
	RuleRoundRobin RuleType = "round_robin"
	RuleTerritory  RuleType = "territory"
	RuleWorkload   RuleType = "workload"
	RuleScoreBased RuleType = "score_based"
)

func (t RuleType) Valid() bool {
	switch t {
	case RuleRoundRobin, RuleTerritory, RuleWorkload, RuleScoreBased:
		return true
	default:
		return false
	}
}

// Rule pairs a set of matching conditions with an assignment strategy.
// Priority runs 1-10, higher first; equal priorities fall back to
// creation order (lower id first).
type Rule struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Priority    int             `json:"priority"`
	Active      bool            `json:"active"`
	RuleType    RuleType        `json:"rule_type"`
	Conditions  RuleConditions  `json:"conditions"`
	Logic       AssignmentLogic `json:"assignment_logic"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// RuleConditions are ANDed; an absent field leaves that axis
// unconstrained.
type RuleConditions struct {
	ScoreMin          *int     `json:"score_min,omitempty"`
	ScoreMax          *int     `json:"score_max,omitempty"`
	Sources           []string `json:"sources,omitempty"`
	Locations         []string `json:"locations,omitempty"`
	DaysOfWeek        []int    `json:"days_of_week,omitempty"`
	BusinessHoursOnly bool     `json:"business_hours_only,omitempty"`
}

// AssignmentLogic is a tagged union over the four strategy variants.
// Type must agree with the owning rule's RuleType; fields beyond the
// variant's own are ignored by that variant's resolver.
type AssignmentLogic struct {
	Type             RuleType            `json:"type"`
	EligibleReps     []string            `json:"eligible_reps,omitempty"`
	MaxLeadsPerRep   *int                `json:"max_leads_per_rep,omitempty"`
	TerritoryMapping map[string][]string `json:"territory_mapping,omitempty"`
	Tiers            []ScoreTier         `json:"tiers,omitempty"`
	FallbackReps     []string            `json:"fallback_reps,omitempty"`
}

// ScoreTier routes leads whose score falls in [MinScore, MaxScore].
// Tiers may overlap; the first matching tier in list order wins.
type ScoreTier struct {
	MinScore       int      `json:"min_score"`
	MaxScore       int      `json:"max_score"`
	Reps           []string `json:"reps"`
	MaxLeadsPerRep *int     `json:"max_leads_per_rep,omitempty"`
}

// ReferencedReps returns every rep id the logic can ever select,
// deduplicated, for roster validation at save time.
func (l AssignmentLogic) ReferencedReps() []string {
	seen := map[string]bool{}
	var out []string
	add := func(ids []string) {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	add(l.EligibleReps)
	for _, reps := range l.TerritoryMapping {
		add(reps)
	}
	for _, tier := range l.Tiers {
		add(tier.Reps)
	}
	add(l.FallbackReps)
	return out
}
