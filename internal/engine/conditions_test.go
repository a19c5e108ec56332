package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leadrouter/backend/internal/models"
)

func intPtr(n int) *int { return &n }

// 2026-03-02 is a Monday.
var monday10 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestMatchesConditions(t *testing.T) {
	lead := models.Lead{ID: "L1", Score: 55, Source: "webform", Location: "NYC"}
	sunday20 := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		c    models.RuleConditions
		now  time.Time
		want bool
	}{
		{"empty conditions match everything", models.RuleConditions{}, monday10, true},
		{"score within range", models.RuleConditions{ScoreMin: intPtr(50), ScoreMax: intPtr(60)}, monday10, true},
		{"score at inclusive bounds", models.RuleConditions{ScoreMin: intPtr(55), ScoreMax: intPtr(55)}, monday10, true},
		{"score below min", models.RuleConditions{ScoreMin: intPtr(56)}, monday10, false},
		{"score above max", models.RuleConditions{ScoreMax: intPtr(54)}, monday10, false},
		{"min only unbounded above", models.RuleConditions{ScoreMin: intPtr(10)}, monday10, true},
		{"source member", models.RuleConditions{Sources: []string{"referral", "webform"}}, monday10, true},
		{"source case sensitive", models.RuleConditions{Sources: []string{"Webform"}}, monday10, false},
		{"location member", models.RuleConditions{Locations: []string{"NYC"}}, monday10, true},
		{"location miss", models.RuleConditions{Locations: []string{"LA"}}, monday10, false},
		{"monday in days", models.RuleConditions{DaysOfWeek: []int{1, 2}}, monday10, true},
		{"sunday is iso day 7", models.RuleConditions{DaysOfWeek: []int{7}}, sunday20, true},
		{"sunday not a weekday", models.RuleConditions{DaysOfWeek: []int{1, 2, 3, 4, 5}}, sunday20, false},
		{"business hours mid-day", models.RuleConditions{BusinessHoursOnly: true}, monday10, true},
		{"business hours evening", models.RuleConditions{BusinessHoursOnly: true}, sunday20, false},
		{
			"all axes AND together",
			models.RuleConditions{
				ScoreMin:          intPtr(50),
				Sources:           []string{"webform"},
				Locations:         []string{"NYC"},
				DaysOfWeek:        []int{1},
				BusinessHoursOnly: true,
			},
			monday10, true,
		},
		{
			"one failing axis fails the rule",
			models.RuleConditions{
				ScoreMin:  intPtr(50),
				Sources:   []string{"webform"},
				Locations: []string{"LA"},
			},
			monday10, false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesConditions(tt.c, lead, tt.now))
		})
	}
}

func TestBusinessHoursBoundaries(t *testing.T) {
	c := models.RuleConditions{BusinessHoursOnly: true}
	lead := models.Lead{ID: "L1"}
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	assert.False(t, MatchesConditions(c, lead, day.Add(8*time.Hour+59*time.Minute)))
	assert.True(t, MatchesConditions(c, lead, day.Add(9*time.Hour)))
	assert.True(t, MatchesConditions(c, lead, day.Add(17*time.Hour+59*time.Minute)))
	assert.False(t, MatchesConditions(c, lead, day.Add(18*time.Hour)))
}

func TestMatchesConditionsUsesUTC(t *testing.T) {
	c := models.RuleConditions{BusinessHoursOnly: true}
	lead := models.Lead{ID: "L1"}
	// 07:00+05:00 is 02:00 UTC, outside business hours.
	early := time.Date(2026, 3, 2, 7, 0, 0, 0, time.FixedZone("UTC+5", 5*3600))
	assert.False(t, MatchesConditions(c, lead, early))
}
