package rules

// PriorityForPosition maps a drag-reorder position (0 = top) to the
// stored priority: clamp(10 - index, 1, 10). Positions beyond the
// tenth all land on priority 1, where creation order still keeps the
// evaluation sequence deterministic.
func PriorityForPosition(index int) int {
	p := 10 - index
	if p < 1 {
		return 1
	}
	if p > 10 {
		return 10
	}
	return p
}

// PriorityUpdate carries one rule's reassigned priority after a bulk
// reorder.
type PriorityUpdate struct {
	RuleID   int64
	Priority int
}

// Reorder reassigns priorities for the full ordered rule id list,
// top of the list first.
func Reorder(orderedIDs []int64) []PriorityUpdate {
	updates := make([]PriorityUpdate, 0, len(orderedIDs))
	for i, id := range orderedIDs {
		updates = append(updates, PriorityUpdate{RuleID: id, Priority: PriorityForPosition(i)})
	}
	return updates
}
