package models

import (
	"time"

	"github.com/google/uuid"
)

// Priority is the urgency tier controlling list ordering.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank orders priorities for sorting; higher sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 0
	}
	return -1
}

// ParsePriority resolves a loose priority string. Unknown or empty input
// yields PriorityNormal and false; the dispatcher defaults rather than
// failing (deliberate leniency).
func ParsePriority(s string) (Priority, bool) {
	switch Priority(s) {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return Priority(s), true
	}
	return PriorityNormal, false
}

// Status is a notification's delivery lifecycle stage. It progresses
// pending→delivered→{read,archived}; expired is reachable from any
// non-terminal state once ExpiresAt has passed and is terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusArchived  Status = "archived"
	StatusExpired   Status = "expired"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusDelivered, StatusRead, StatusArchived, StatusExpired:
		return true
	}
	return false
}

// Notification is one in-app message to a single recipient.
type Notification struct {
	ID                  int64
	UUID                uuid.UUID
	RecipientID         int64
	SenderID            *int64
	Type                string
	Title               string
	Message             string
	Priority            Priority
	Status              Status
	RelatedProposalID   *int64
	RelatedProposalUUID *uuid.UUID
	Metadata            map[string]any
	Tags                []string
	ExpiresAt           *time.Time
	DeliveredAt         *time.Time
	ReadAt              *time.Time
	CreatedAt           time.Time
}

// Expired reports whether the notification is past its expiry at the given
// instant. A nil ExpiresAt never expires.
func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !n.ExpiresAt.After(now)
}

// Preference holds a user's channel choices for one notification type.
// Only in-app status bookkeeping is implemented here; email/sms/push
// fan-out reads these later.
type Preference struct {
	UserID    int64
	Type      string
	InApp     bool
	Email     bool
	SMS       bool
	Push      bool
	Frequency string
	UpdatedAt time.Time
}
