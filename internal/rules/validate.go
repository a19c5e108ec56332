package rules

import (
	"fmt"
	"strings"

	"github.com/leadrouter/backend/internal/models"
)

// FieldError pins a configuration problem to the field that carries it.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError rejects a rule definition at save time, before the
// evaluator can ever see it. Resolvers rely on this: configured pools
// are non-empty, so only capacity-exhausted emptiness exists at
// evaluation time.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Field+": "+fe.Message)
	}
	return "invalid rule: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate checks a rule definition against the configuration-error
// taxonomy. roster maps rep id to active; every rep a strategy can ever
// select must be an active roster member.
func Validate(rule models.Rule, roster map[string]bool) error {
	ve := &ValidationError{}

	if strings.TrimSpace(rule.Name) == "" {
		ve.add("name", "required")
	}
	if rule.Priority < 1 || rule.Priority > 10 {
		ve.add("priority", "must be between 1 and 10")
	}
	if !rule.RuleType.Valid() {
		ve.add("rule_type", fmt.Sprintf("unknown rule type %q", rule.RuleType))
	} else if rule.Logic.Type != rule.RuleType {
		ve.add("assignment_logic.type", fmt.Sprintf("must agree with rule_type %q", rule.RuleType))
	}

	validateConditions(rule.Conditions, ve)
	validateLogic(rule.Logic, ve)
	validateRoster(rule.Logic, roster, ve)

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateConditions(c models.RuleConditions, ve *ValidationError) {
	if c.ScoreMin != nil && (*c.ScoreMin < 0 || *c.ScoreMin > 100) {
		ve.add("conditions.score_min", "must be between 0 and 100")
	}
	if c.ScoreMax != nil && (*c.ScoreMax < 0 || *c.ScoreMax > 100) {
		ve.add("conditions.score_max", "must be between 0 and 100")
	}
	if c.ScoreMin != nil && c.ScoreMax != nil && *c.ScoreMin > *c.ScoreMax {
		ve.add("conditions.score_min", "must not exceed score_max")
	}
	for _, d := range c.DaysOfWeek {
		if d < 1 || d > 7 {
			ve.add("conditions.days_of_week", fmt.Sprintf("invalid ISO weekday %d", d))
			break
		}
	}
}

func validateLogic(l models.AssignmentLogic, ve *ValidationError) {
	if l.MaxLeadsPerRep != nil && *l.MaxLeadsPerRep < 1 {
		ve.add("assignment_logic.max_leads_per_rep", "must be at least 1")
	}

	switch l.Type {
	case models.RuleRoundRobin, models.RuleWorkload:
		if len(l.EligibleReps) == 0 {
			ve.add("assignment_logic.eligible_reps", "must not be empty")
		}
	case models.RuleTerritory:
		if len(l.TerritoryMapping) == 0 {
			ve.add("assignment_logic.territory_mapping", "must not be empty")
		}
		for location, reps := range l.TerritoryMapping {
			if len(reps) == 0 {
				ve.add("assignment_logic.territory_mapping."+location, "must not be empty")
			}
		}
	case models.RuleScoreBased:
		if len(l.Tiers) == 0 && len(l.FallbackReps) == 0 {
			ve.add("assignment_logic.tiers", "at least one tier or fallback rep required")
		}
		for i, tier := range l.Tiers {
			field := fmt.Sprintf("assignment_logic.tiers[%d]", i)
			if tier.MinScore < 0 || tier.MaxScore > 100 || tier.MinScore > tier.MaxScore {
				ve.add(field, "score range must satisfy 0 <= min <= max <= 100")
			}
			if len(tier.Reps) == 0 {
				ve.add(field+".reps", "must not be empty")
			}
			if tier.MaxLeadsPerRep != nil && *tier.MaxLeadsPerRep < 1 {
				ve.add(field+".max_leads_per_rep", "must be at least 1")
			}
		}
	}
}

func validateRoster(l models.AssignmentLogic, roster map[string]bool, ve *ValidationError) {
	for _, repID := range l.ReferencedReps() {
		active, known := roster[repID]
		if !known {
			ve.add("assignment_logic", fmt.Sprintf("unknown rep %q", repID))
		} else if !active {
			ve.add("assignment_logic", fmt.Sprintf("rep %q is not active", repID))
		}
	}
}
