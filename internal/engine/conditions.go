package engine

import (
	"time"

	"github.com/leadrouter/backend/internal/models"
)

// Business hours window, UTC. Start inclusive, end exclusive.
const (
	businessHoursStart = 9
	businessHoursEnd   = 18
)

// MatchesConditions reports whether every present condition holds for
// the lead at the given evaluation time. Callers pass now explicitly so
// test and apply runs stay reproducible.
func MatchesConditions(c models.RuleConditions, lead models.Lead, now time.Time) bool {
	if c.ScoreMin != nil && lead.Score < *c.ScoreMin {
		return false
	}
	if c.ScoreMax != nil && lead.Score > *c.ScoreMax {
		return false
	}
	if len(c.Sources) > 0 && !containsString(c.Sources, lead.Source) {
		return false
	}
	if len(c.Locations) > 0 && !containsString(c.Locations, lead.Location) {
		return false
	}
	if len(c.DaysOfWeek) > 0 && !containsInt(c.DaysOfWeek, isoWeekday(now)) {
		return false
	}
	if c.BusinessHoursOnly && !withinBusinessHours(now) {
		return false
	}
	return true
}

// isoWeekday maps time.Weekday to ISO numbering (1=Mon .. 7=Sun).
func isoWeekday(now time.Time) int {
	wd := int(now.UTC().Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func withinBusinessHours(now time.Time) bool {
	h := now.UTC().Hour()
	return h >= businessHoursStart && h < businessHoursEnd
}

func containsString(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}

func containsInt(list []int, target int) bool {
	for _, n := range list {
		if n == target {
			return true
		}
	}
	return false
}
