package engine

import (
	"sort"
	"time"

	"github.com/leadrouter/backend/internal/models"
)

const (
	ReasonNoRuleMatched = "no rule conditions satisfied"
	ReasonRuleInactive  = "rule is not active"
	ReasonConditionsMet = "rule conditions satisfied"
	ReasonConditionsNot = "rule conditions not satisfied"
)

// EvalResult reports which rule, if any, claimed the lead.
type EvalResult struct {
	Rule    *models.Rule
	Matched bool
	Reason  string
}

// Evaluate walks the active rules in priority order and returns the
// first whose conditions match. First match wins; rules are never
// combined. Equal priorities are ordered by id ascending so repeated
// evaluations are reproducible.
func Evaluate(rules []models.Rule, lead models.Lead, now time.Time) EvalResult {
	ordered := make([]models.Rule, 0, len(rules))
	for _, r := range rules {
		if r.Active {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority == ordered[j].Priority {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Priority > ordered[j].Priority
	})

	for i := range ordered {
		if MatchesConditions(ordered[i].Conditions, lead, now) {
			return EvalResult{Rule: &ordered[i], Matched: true, Reason: ReasonConditionsMet}
		}
	}
	return EvalResult{Reason: ReasonNoRuleMatched}
}

// EvaluateOne checks a single rule in isolation, ignoring every other
// rule and its priority. Used by scoped test/apply for rule authoring.
func EvaluateOne(rule models.Rule, lead models.Lead, now time.Time) EvalResult {
	if !rule.Active {
		return EvalResult{Rule: &rule, Reason: ReasonRuleInactive}
	}
	if !MatchesConditions(rule.Conditions, lead, now) {
		return EvalResult{Rule: &rule, Reason: ReasonConditionsNot}
	}
	return EvalResult{Rule: &rule, Matched: true, Reason: ReasonConditionsMet}
}
