package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadrouter/backend/internal/models"
	"github.com/leadrouter/backend/internal/rules"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const ruleColumns = `id, name, description, priority, active, rule_type, conditions, assignment_logic, created_at, updated_at`

func scanRule(row pgx.Row) (models.Rule, error) {
	var (
		r          models.Rule
		conditions []byte
		logic      []byte
	)
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.Priority, &r.Active, &r.RuleType, &conditions, &logic, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Rule{}, ErrNotFound
		}
		return models.Rule{}, err
	}
	if err := json.Unmarshal(conditions, &r.Conditions); err != nil {
		return models.Rule{}, fmt.Errorf("rule %d conditions: %w", r.ID, err)
	}
	if err := json.Unmarshal(logic, &r.Logic); err != nil {
		return models.Rule{}, fmt.Errorf("rule %d assignment_logic: %w", r.ID, err)
	}
	return r, nil
}

func (s *Store) listRules(ctx context.Context, query string, args ...any) ([]models.Rule, error) {
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ListRules(ctx context.Context) ([]models.Rule, error) {
	return s.listRules(ctx, `SELECT `+ruleColumns+` FROM rules ORDER BY priority DESC, id ASC`)
}

func (s *Store) ActiveRules(ctx context.Context) ([]models.Rule, error) {
	return s.listRules(ctx, `SELECT `+ruleColumns+` FROM rules WHERE active ORDER BY priority DESC, id ASC`)
}

func (s *Store) RuleByID(ctx context.Context, id int64) (models.Rule, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = $1`, id)
	return scanRule(row)
}

func (s *Store) CreateRule(ctx context.Context, r models.Rule) (models.Rule, error) {
	conditions, err := json.Marshal(r.Conditions)
	if err != nil {
		return models.Rule{}, err
	}
	logic, err := json.Marshal(r.Logic)
	if err != nil {
		return models.Rule{}, err
	}
	now := time.Now().UTC()
	row := s.Pool.QueryRow(ctx,
		`INSERT INTO rules (name, description, priority, active, rule_type, conditions, assignment_logic, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		 RETURNING `+ruleColumns,
		r.Name, r.Description, r.Priority, r.Active, r.RuleType, conditions, logic, now)
	return scanRule(row)
}

func (s *Store) UpdateRule(ctx context.Context, r models.Rule) (models.Rule, error) {
	conditions, err := json.Marshal(r.Conditions)
	if err != nil {
		return models.Rule{}, err
	}
	logic, err := json.Marshal(r.Logic)
	if err != nil {
		return models.Rule{}, err
	}
	row := s.Pool.QueryRow(ctx,
		`UPDATE rules
		 SET name = $2, description = $3, priority = $4, active = $5, rule_type = $6,
		     conditions = $7, assignment_logic = $8, updated_at = $9
		 WHERE id = $1
		 RETURNING `+ruleColumns,
		r.ID, r.Name, r.Description, r.Priority, r.Active, r.RuleType, conditions, logic, time.Now().UTC())
	return scanRule(row)
}

func (s *Store) DeleteRule(ctx context.Context, id int64) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetRuleActive(ctx context.Context, id int64, active bool) (models.Rule, error) {
	row := s.Pool.QueryRow(ctx,
		`UPDATE rules SET active = $2, updated_at = $3 WHERE id = $1 RETURNING `+ruleColumns,
		id, active, time.Now().UTC())
	return scanRule(row)
}

// ReorderRules reassigns priorities for the full ordered id list in a
// single transaction, so a concurrent evaluation never observes a
// half-reordered rule set.
func (s *Store) ReorderRules(ctx context.Context, orderedIDs []int64) error {
	updates := rules.Reorder(orderedIDs)
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		for _, u := range updates {
			tag, err := tx.Exec(ctx, `UPDATE rules SET priority = $2, updated_at = $3 WHERE id = $1`,
				u.RuleID, u.Priority, time.Now().UTC())
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("rule %d: %w", u.RuleID, ErrNotFound)
			}
		}
		return nil
	})
}

func (s *Store) LeadByID(ctx context.Context, id string) (models.Lead, error) {
	var l models.Lead
	err := s.Pool.QueryRow(ctx,
		`SELECT id, score, source, location, created_at FROM leads WHERE id = $1`, id).
		Scan(&l.ID, &l.Score, &l.Source, &l.Location, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Lead{}, ErrNotFound
	}
	return l, err
}

func (s *Store) ListLeads(ctx context.Context, limit, offset int) ([]models.Lead, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT id, score, source, location, created_at FROM leads ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Lead
	for rows.Next() {
		var l models.Lead
		if err := rows.Scan(&l.ID, &l.Score, &l.Source, &l.Location, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) CreateLead(ctx context.Context, l models.Lead) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO leads (id, score, source, location, created_at) VALUES ($1, $2, $3, $4, $5)`,
		l.ID, l.Score, l.Source, l.Location, l.CreatedAt)
	return err
}

func (s *Store) ListReps(ctx context.Context) ([]models.Rep, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, name, active, active_assignments, updated_at FROM reps ORDER BY active_assignments ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Rep
	for rows.Next() {
		var r models.Rep
		if err := rows.Scan(&r.ID, &r.Name, &r.Active, &r.ActiveAssignments, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CreateRep(ctx context.Context, r models.Rep) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO reps (id, name, active, active_assignments, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.Name, r.Active, r.ActiveAssignments, r.UpdatedAt)
	return err
}

// Roster returns rep id -> active for rule-save validation.
func (s *Store) Roster(ctx context.Context) (map[string]bool, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, active FROM reps`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roster := map[string]bool{}
	for rows.Next() {
		var (
			id     string
			active bool
		)
		if err := rows.Scan(&id, &active); err != nil {
			return nil, err
		}
		roster[id] = active
	}
	return roster, rows.Err()
}

// RecomputeWorkloads rebuilds every rep's counter from the active
// assignments on record. Safe to run any time; cursors are never
// recomputed this way.
func (s *Store) RecomputeWorkloads(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE reps SET active_assignments = (
			SELECT count(*) FROM assignments a WHERE a.rep_id = reps.id AND a.status = $1
		)`, models.AssignmentActive)
	return err
}

func (s *Store) ListAssignments(ctx context.Context, limit, offset int) ([]models.Assignment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT id, lead_id, rep_id, rule_id, status, assigned_at FROM assignments ORDER BY assigned_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Assignment
	for rows.Next() {
		var a models.Assignment
		if err := rows.Scan(&a.ID, &a.LeadID, &a.RepID, &a.RuleID, &a.Status, &a.AssignedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ResolveAssignment closes an active assignment and releases the rep's
// workload slot, both in one transaction.
func (s *Store) ResolveAssignment(ctx context.Context, id string) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		var repID string
		err := tx.QueryRow(ctx,
			`UPDATE assignments SET status = $2 WHERE id = $1 AND status = $3 RETURNING rep_id`,
			id, models.AssignmentResolved, models.AssignmentActive).Scan(&repID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE reps SET active_assignments = GREATEST(active_assignments - 1, 0), updated_at = $2 WHERE id = $1`,
			repID, time.Now().UTC())
		return err
	})
}
