package models

import "time"

type Lead struct {
	ID        string    `json:"id"`
	Score     int       `json:"score"`
	Source    string    `json:"source"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}

type Rep struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Active            bool      `json:"active"`
	ActiveAssignments int       `json:"active_assignments"`
	UpdatedAt         time.Time `json:"updated_at"`
}

const (
	AssignmentActive   = "ACTIVE"
	AssignmentResolved = "RESOLVED"
)

type Assignment struct {
	ID         string    `json:"id"`
	LeadID     string    `json:"lead_id"`
	RepID      string    `json:"rep_id"`
	RuleID     int64     `json:"rule_id"`
	Status     string    `json:"status"`
	AssignedAt time.Time `json:"assigned_at"`
}
