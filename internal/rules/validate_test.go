package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadrouter/backend/internal/models"
)

func intPtr(n int) *int { return &n }

func roster() map[string]bool {
	return map[string]bool{"R1": true, "R2": true, "R3": false}
}

func validRule() models.Rule {
	return models.Rule{
		Name:     "inbound web leads",
		Priority: 5,
		Active:   true,
		RuleType: models.RuleRoundRobin,
		Logic: models.AssignmentLogic{
			Type:         models.RuleRoundRobin,
			EligibleReps: []string{"R1", "R2"},
		},
	}
}

func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	return ve.Errors
}

func hasField(errs []FieldError, field string) bool {
	for _, fe := range errs {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func TestValidateAcceptsValidRule(t *testing.T) {
	assert.NoError(t, Validate(validRule(), roster()))
}

func TestValidateRejectsBasics(t *testing.T) {
	rule := validRule()
	rule.Name = "  "
	rule.Priority = 11
	errs := fieldErrors(t, Validate(rule, roster()))
	assert.True(t, hasField(errs, "name"))
	assert.True(t, hasField(errs, "priority"))
}

func TestValidateRejectsTypeMismatch(t *testing.T) {
	rule := validRule()
	rule.Logic.Type = models.RuleWorkload
	errs := fieldErrors(t, Validate(rule, roster()))
	assert.True(t, hasField(errs, "assignment_logic.type"))

	rule = validRule()
	rule.RuleType = "weighted"
	rule.Logic.Type = "weighted"
	errs = fieldErrors(t, Validate(rule, roster()))
	assert.True(t, hasField(errs, "rule_type"))
}

func TestValidateRejectsInvertedScoreRange(t *testing.T) {
	rule := validRule()
	rule.Conditions.ScoreMin = intPtr(80)
	rule.Conditions.ScoreMax = intPtr(20)
	errs := fieldErrors(t, Validate(rule, roster()))
	assert.True(t, hasField(errs, "conditions.score_min"))
}

func TestValidateRejectsOutOfRangeConditionValues(t *testing.T) {
	rule := validRule()
	rule.Conditions.ScoreMax = intPtr(150)
	rule.Conditions.DaysOfWeek = []int{0, 8}
	errs := fieldErrors(t, Validate(rule, roster()))
	assert.True(t, hasField(errs, "conditions.score_max"))
	assert.True(t, hasField(errs, "conditions.days_of_week"))
}

func TestValidateRejectsEmptyPools(t *testing.T) {
	rule := validRule()
	rule.Logic.EligibleReps = nil
	errs := fieldErrors(t, Validate(rule, roster()))
	assert.True(t, hasField(errs, "assignment_logic.eligible_reps"))

	rule = validRule()
	rule.RuleType = models.RuleTerritory
	rule.Logic = models.AssignmentLogic{Type: models.RuleTerritory}
	errs = fieldErrors(t, Validate(rule, roster()))
	assert.True(t, hasField(errs, "assignment_logic.territory_mapping"))

	rule.Logic.TerritoryMapping = map[string][]string{"NYC": {}}
	errs = fieldErrors(t, Validate(rule, roster()))
	assert.True(t, hasField(errs, "assignment_logic.territory_mapping.NYC"))
}

func TestValidateScoreBased(t *testing.T) {
	rule := validRule()
	rule.RuleType = models.RuleScoreBased
	rule.Logic = models.AssignmentLogic{Type: models.RuleScoreBased}
	errs := fieldErrors(t, Validate(rule, roster()))
	assert.True(t, hasField(errs, "assignment_logic.tiers"))

	// Fallback reps alone are enough.
	rule.Logic.FallbackReps = []string{"R1"}
	assert.NoError(t, Validate(rule, roster()))

	// Overlapping tiers are allowed; first match wins at evaluation.
	rule.Logic.Tiers = []models.ScoreTier{
		{MinScore: 0, MaxScore: 100, Reps: []string{"R1"}},
		{MinScore: 50, MaxScore: 100, Reps: []string{"R2"}},
	}
	assert.NoError(t, Validate(rule, roster()))

	rule.Logic.Tiers = []models.ScoreTier{{MinScore: 60, MaxScore: 40, Reps: nil}}
	errs = fieldErrors(t, Validate(rule, roster()))
	assert.True(t, hasField(errs, "assignment_logic.tiers[0]"))
	assert.True(t, hasField(errs, "assignment_logic.tiers[0].reps"))
}

func TestValidateRejectsBadCaps(t *testing.T) {
	rule := validRule()
	rule.Logic.MaxLeadsPerRep = intPtr(0)
	errs := fieldErrors(t, Validate(rule, roster()))
	assert.True(t, hasField(errs, "assignment_logic.max_leads_per_rep"))
}

func TestValidateChecksRoster(t *testing.T) {
	rule := validRule()
	rule.Logic.EligibleReps = []string{"R1", "ghost"}
	errs := fieldErrors(t, Validate(rule, roster()))
	assert.True(t, hasField(errs, "assignment_logic"))

	rule.Logic.EligibleReps = []string{"R1", "R3"} // R3 inactive
	errs = fieldErrors(t, Validate(rule, roster()))
	assert.True(t, hasField(errs, "assignment_logic"))
}
