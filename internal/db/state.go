package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/leadrouter/backend/internal/engine"
)

// State is the durable engine.StateStore: workload counters live on the
// reps rows, rotation cursors in routing_cursors. Commit applies the
// whole mutation in one transaction with conditional updates, so an
// apply that raced another one rolls back and reports a conflict
// instead of double-booking a rep or skipping a rotation slot.
type State struct {
	Store *Store
}

func (s *State) Snapshot(ctx context.Context) (engine.Snapshot, error) {
	snap := engine.Snapshot{
		Workloads: map[string]int{},
		Cursors:   map[string]int{},
	}

	rows, err := s.Store.Pool.Query(ctx, `SELECT id, active_assignments FROM reps WHERE active`)
	if err != nil {
		return engine.Snapshot{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   string
			load int
		)
		if err := rows.Scan(&id, &load); err != nil {
			return engine.Snapshot{}, err
		}
		snap.Workloads[id] = load
	}
	if err := rows.Err(); err != nil {
		return engine.Snapshot{}, err
	}

	cursorRows, err := s.Store.Pool.Query(ctx, `SELECT key, value FROM routing_cursors`)
	if err != nil {
		return engine.Snapshot{}, err
	}
	defer cursorRows.Close()
	for cursorRows.Next() {
		var (
			key   string
			value int
		)
		if err := cursorRows.Scan(&key, &value); err != nil {
			return engine.Snapshot{}, err
		}
		snap.Cursors[key] = value
	}
	return snap, cursorRows.Err()
}

func (s *State) Commit(ctx context.Context, mut engine.Mutation) error {
	return s.Store.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE reps SET active_assignments = active_assignments + 1, updated_at = $3
			 WHERE id = $1 AND active_assignments = $2`,
			mut.RepID, mut.ExpectWorkload, mut.Assignment.AssignedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return engine.ErrStateConflict
		}

		if mut.CursorKey != "" {
			tag, err = tx.Exec(ctx,
				`INSERT INTO routing_cursors (key, value) VALUES ($1, $2)
				 ON CONFLICT (key) DO UPDATE SET value = $2
				 WHERE routing_cursors.value = $3`,
				mut.CursorKey, mut.NextCursor, mut.ExpectCursor)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return engine.ErrStateConflict
			}
		}

		a := mut.Assignment
		_, err = tx.Exec(ctx,
			`INSERT INTO assignments (id, lead_id, rep_id, rule_id, status, assigned_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			a.ID, a.LeadID, a.RepID, a.RuleID, a.Status, a.AssignedAt)
		return err
	})
}
