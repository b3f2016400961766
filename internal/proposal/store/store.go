// Package store persists proposals. Implementations return sentinel errors
// (pkg/platform/sentinel); the service layer translates them.
package store

import (
	"time"

	"github.com/google/uuid"

	"eventdesk/internal/proposal/models"
)

// StatusUpdate describes a conditional status write. The write applies only
// if the proposal's current status equals From; a concurrent writer that got
// there first surfaces as sentinel.ErrConflict.
type StatusUpdate struct {
	UUID uuid.UUID
	From models.ProposalStatus
	To   models.ProposalStatus

	// Optional fields stamped depending on the edge.
	SubmittedAt   *time.Time
	ReviewedAt    *time.Time
	ApprovedAt    *time.Time
	ReviewerID    *int64
	AdminComments *string
	UpdatedAt     time.Time
}
