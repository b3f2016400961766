package models

import (
	"time"

	"github.com/google/uuid"
)

// ProposalStatus is the lifecycle stage of an event proposal. It only
// changes through a validated transition (see Transitions).
type ProposalStatus string

const (
	StatusDraft             ProposalStatus = "draft"
	StatusPending           ProposalStatus = "pending"
	StatusApproved          ProposalStatus = "approved"
	StatusDenied            ProposalStatus = "denied"
	StatusRevisionRequested ProposalStatus = "revision_requested"
)

// Valid reports whether s is a known proposal status.
func (s ProposalStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusDenied, StatusRevisionRequested:
		return true
	}
	return false
}

// ReportStatus is the lifecycle stage of the post-event accomplishment
// report, independent of the proposal status.
type ReportStatus string

const (
	ReportDraft         ReportStatus = "draft"
	ReportPending       ReportStatus = "pending"
	ReportApproved      ReportStatus = "approved"
	ReportDenied        ReportStatus = "denied"
	ReportNotApplicable ReportStatus = "not_applicable"
)

// EventStatus tracks the scheduled event itself.
type EventStatus string

const (
	EventScheduled EventStatus = "scheduled"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
	EventPostponed EventStatus = "postponed"
)

// Proposal is an event proposal moving through the approval workflow.
// Organization and contact fields are opaque to the workflow core.
type Proposal struct {
	ID            int64
	UUID          uuid.UUID
	SubmitterID   int64
	Organization  string
	ContactName   string
	ContactEmail  string
	Title         string
	Description   string
	EventDate     *time.Time
	Status        ProposalStatus
	ReportStatus  ReportStatus
	EventStatus   EventStatus
	AdminComments string
	ReviewerID    *int64
	SubmittedAt   *time.Time
	ReviewedAt    *time.Time
	ApprovedAt    *time.Time
	// Proposals are never hard-deleted, only flagged.
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transitions is the closed edge table for proposal statuses. Any edge not
// listed here is rejected.
var Transitions = map[ProposalStatus][]ProposalStatus{
	StatusDraft:             {StatusPending},
	StatusPending:           {StatusApproved, StatusDenied, StatusRevisionRequested},
	StatusRevisionRequested: {StatusPending},
}

// EdgeKind classifies a valid transition; the kind decides which timestamps
// are stamped and which side effects fire.
type EdgeKind int

const (
	EdgeSubmit EdgeKind = iota
	EdgeReview
	EdgeResubmit
)

// EdgeOf returns the classification of the from→to edge and whether the
// edge exists in the transition table.
func EdgeOf(from, to ProposalStatus) (EdgeKind, bool) {
	allowed := false
	for _, next := range Transitions[from] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return 0, false
	}
	switch {
	case from == StatusDraft && to == StatusPending:
		return EdgeSubmit, true
	case from == StatusRevisionRequested && to == StatusPending:
		return EdgeResubmit, true
	default:
		return EdgeReview, true
	}
}

// NewProposal constructs a proposal in draft with defaulted sub-statuses.
func NewProposal(submitterID int64, title string) *Proposal {
	now := time.Now()
	return &Proposal{
		UUID:         uuid.New(),
		SubmitterID:  submitterID,
		Title:        title,
		Status:       StatusDraft,
		ReportStatus: ReportNotApplicable,
		EventStatus:  EventScheduled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
