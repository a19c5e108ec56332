package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/leadrouter/backend/internal/models"
)

// Outcome codes let callers distinguish "loosen your conditions" from
// "add reps or raise caps" without parsing reason text.
const (
	CodeAssigned   = "ASSIGNED"
	CodeMatched    = "MATCHED"
	CodeNoMatch    = "NO_MATCH"
	CodeNoCapacity = "NO_CAPACITY"
	CodeConflict   = "STATE_CONFLICT"
)

type RuleSource interface {
	ActiveRules(ctx context.Context) ([]models.Rule, error)
	RuleByID(ctx context.Context, id int64) (models.Rule, error)
}

type LeadSource interface {
	LeadByID(ctx context.Context, id string) (models.Lead, error)
}

type TestResult struct {
	Matches       bool    `json:"matches"`
	RuleID        *int64  `json:"rule_id,omitempty"`
	RuleName      string  `json:"rule_name,omitempty"`
	AssignedRepID *string `json:"assigned_rep_id,omitempty"`
	Code          string  `json:"code"`
	Reason        string  `json:"reason"`
}

type ApplyResult struct {
	Success       bool    `json:"success"`
	RuleID        *int64  `json:"rule_id,omitempty"`
	AssignedRepID *string `json:"assigned_rep_id,omitempty"`
	Code          string  `json:"code"`
	Message       string  `json:"message"`
}

// Executor runs rule evaluation in two modes: Test reads a snapshot and
// reports what would happen; Apply re-evaluates from current state and
// commits the assignment atomically.
type Executor struct {
	Rules  RuleSource
	Leads  LeadSource
	State  StateStore
	Logger zerolog.Logger
}

// Test evaluates without mutating anything. With ruleID set it checks
// only that rule's conditions, ignoring all other rules; otherwise it
// runs the full active set in priority order. Idempotent for unchanged
// state.
func (e *Executor) Test(ctx context.Context, leadID string, ruleID *int64, now time.Time) (TestResult, error) {
	lead, err := e.Leads.LeadByID(ctx, leadID)
	if err != nil {
		return TestResult{}, fmt.Errorf("lead lookup: %w", err)
	}
	snap, err := e.State.Snapshot(ctx)
	if err != nil {
		return TestResult{}, fmt.Errorf("state snapshot: %w", err)
	}

	eval, err := e.evaluate(ctx, lead, ruleID, now)
	if err != nil {
		return TestResult{}, err
	}
	if !eval.Matched {
		res := TestResult{Code: CodeNoMatch, Reason: eval.Reason}
		if eval.Rule != nil {
			res.RuleID = &eval.Rule.ID
			res.RuleName = eval.Rule.Name
		}
		return res, nil
	}

	sel, err := e.resolve(*eval.Rule, lead, snap)
	if err != nil {
		return TestResult{}, err
	}
	res := TestResult{
		Matches:  true,
		RuleID:   &eval.Rule.ID,
		RuleName: eval.Rule.Name,
	}
	if sel.RepID == "" {
		res.Code = CodeNoCapacity
		res.Reason = sel.Reason
		return res, nil
	}
	rep := sel.RepID
	res.AssignedRepID = &rep
	res.Code = CodeMatched
	res.Reason = eval.Reason
	return res, nil
}

// Apply evaluates from current state (never trusting an earlier Test)
// and commits the assignment, workload bump, and cursor advance as one
// unit. A state conflict between snapshot and commit is retried once.
func (e *Executor) Apply(ctx context.Context, leadID string, ruleID *int64, now time.Time) (ApplyResult, error) {
	lead, err := e.Leads.LeadByID(ctx, leadID)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("lead lookup: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		snap, err := e.State.Snapshot(ctx)
		if err != nil {
			return ApplyResult{}, fmt.Errorf("state snapshot: %w", err)
		}

		eval, err := e.evaluate(ctx, lead, ruleID, now)
		if err != nil {
			return ApplyResult{}, err
		}
		if !eval.Matched {
			res := ApplyResult{Code: CodeNoMatch, Message: eval.Reason}
			if eval.Rule != nil {
				res.RuleID = &eval.Rule.ID
			}
			return res, nil
		}

		sel, err := e.resolve(*eval.Rule, lead, snap)
		if err != nil {
			return ApplyResult{}, err
		}
		if sel.RepID == "" {
			return ApplyResult{
				RuleID:  &eval.Rule.ID,
				Code:    CodeNoCapacity,
				Message: sel.Reason,
			}, nil
		}

		mut := Mutation{
			Assignment: models.Assignment{
				ID:         uuid.NewString(),
				LeadID:     lead.ID,
				RepID:      sel.RepID,
				RuleID:     eval.Rule.ID,
				Status:     models.AssignmentActive,
				AssignedAt: now,
			},
			RepID:          sel.RepID,
			ExpectWorkload: snap.Workload(sel.RepID),
			CursorKey:      sel.CursorKey,
			ExpectCursor:   snap.Cursor(sel.CursorKey),
			NextCursor:     sel.NextCursor,
		}
		err = e.State.Commit(ctx, mut)
		if errors.Is(err, ErrStateConflict) {
			e.Logger.Warn().
				Str("lead_id", lead.ID).
				Int64("rule_id", eval.Rule.ID).
				Int("attempt", attempt+1).
				Msg("routing state conflict, re-evaluating")
			continue
		}
		if err != nil {
			return ApplyResult{}, fmt.Errorf("commit assignment: %w", err)
		}

		rep := sel.RepID
		e.Logger.Info().
			Str("lead_id", lead.ID).
			Str("rep_id", rep).
			Int64("rule_id", eval.Rule.ID).
			Msg("lead assigned")
		return ApplyResult{
			Success:       true,
			RuleID:        &eval.Rule.ID,
			AssignedRepID: &rep,
			Code:          CodeAssigned,
			Message:       fmt.Sprintf("lead %s assigned to %s by rule %q", lead.ID, rep, eval.Rule.Name),
		}, nil
	}

	return ApplyResult{
		Code:    CodeConflict,
		Message: "routing state kept changing during apply, try again",
	}, nil
}

func (e *Executor) evaluate(ctx context.Context, lead models.Lead, ruleID *int64, now time.Time) (EvalResult, error) {
	if ruleID != nil {
		rule, err := e.Rules.RuleByID(ctx, *ruleID)
		if err != nil {
			return EvalResult{}, fmt.Errorf("rule lookup: %w", err)
		}
		return EvaluateOne(rule, lead, now), nil
	}
	rules, err := e.Rules.ActiveRules(ctx)
	if err != nil {
		return EvalResult{}, fmt.Errorf("rules lookup: %w", err)
	}
	return Evaluate(rules, lead, now), nil
}

func (e *Executor) resolve(rule models.Rule, lead models.Lead, snap Snapshot) (Selection, error) {
	resolver, err := ResolverFor(rule.RuleType)
	if err != nil {
		return Selection{}, err
	}
	return resolver.Resolve(rule, lead, snap), nil
}
