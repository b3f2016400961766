// Package audit keeps an append-only trail of actions against proposals.
// Writes never fail the caller; a broken audit pipe must not block an
// approval.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// ActionType is the closed enum of auditable actions.
type ActionType string

const (
	ActionCreate  ActionType = "CREATE"
	ActionUpdate  ActionType = "UPDATE"
	ActionDelete  ActionType = "DELETE"
	ActionApprove ActionType = "APPROVE"
	ActionReject  ActionType = "REJECT"
	ActionLogin   ActionType = "LOGIN"
	ActionLogout  ActionType = "LOGOUT"
	ActionView    ActionType = "VIEW"
	ActionExport  ActionType = "EXPORT"
)

// actionTypes maps loosely-named action strings from callers to the closed
// enum. Unmapped names default to ActionUpdate; the recorder logs a warning
// naming the input so unmapped actions are visible rather than silently
// reclassified.
var actionTypes = map[string]ActionType{
	"proposal_created":            ActionCreate,
	"proposal_submitted":          ActionUpdate,
	"proposal_resubmitted":        ActionUpdate,
	"proposal_approved":           ActionApprove,
	"proposal_rejected":           ActionReject,
	"proposal_revision_requested": ActionUpdate,
	"proposal_deleted":            ActionDelete,
	"proposal_viewed":             ActionView,
	"report_submitted":            ActionUpdate,
	"report_approved":             ActionApprove,
	"report_rejected":             ActionReject,
	"audit_exported":              ActionExport,
	"user_login":                  ActionLogin,
	"user_logout":                 ActionLogout,
}

// MapAction resolves a loose action name to its ActionType. The second
// return reports whether the name was in the table.
func MapAction(name string) (ActionType, bool) {
	if t, ok := actionTypes[name]; ok {
		return t, true
	}
	return ActionUpdate, false
}

// Entry is one immutable audit record. Entries are never mutated or deleted
// by this system; retention is an external concern.
type Entry struct {
	ID           int64
	ProposalID   int64
	ProposalUUID uuid.UUID
	Action       ActionType
	ActorID      int64
	OldValue     string
	NewValue     string
	Note         string
	Meta         map[string]any
	CreatedAt    time.Time
}

// ActionStat summarizes one action's occurrences for a proposal.
type ActionStat struct {
	Action ActionType `json:"action"`
	Count  int        `json:"count"`
	First  time.Time  `json:"first"`
	Last   time.Time  `json:"last"`
}

// ExportVersion tags export bundles for downstream tooling.
const ExportVersion = "audit-export/1"

// ExportBundle packages the full trail of a proposal for download.
type ExportBundle struct {
	Version      string         `json:"version"`
	ProposalUUID uuid.UUID      `json:"proposal_uuid"`
	GeneratedAt  time.Time      `json:"generated_at"`
	Entries      []Entry        `json:"entries"`
	Stats        []ActionStat   `json:"stats"`
	Snapshot     map[string]any `json:"snapshot"`
}
