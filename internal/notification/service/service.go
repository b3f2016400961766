// Package service implements the notification dispatcher: creation with
// synchronous in-app delivery, priority-ordered listing, read tracking and
// the two-phase expiry sweep.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eventdesk/internal/notification/models"
	"eventdesk/internal/notification/store"
	"eventdesk/internal/platform/metrics"
	proposalmodels "eventdesk/internal/proposal/models"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/platform/sentinel"
)

// Store is the persistence contract the dispatcher needs. Memory and
// postgres implementations live in internal/notification/store.
type Store interface {
	Insert(ctx context.Context, n *models.Notification) error
	MarkDelivered(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context, recipientID int64, f store.Filter, now time.Time) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipientID int64, now time.Time) (int, error)
	MarkRead(ctx context.Context, recipientID int64, ids []int64, readAt time.Time) (int64, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	PurgeExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
	UpsertPreference(ctx context.Context, p *models.Preference) error
	FindPreference(ctx context.Context, userID int64, typ string) (*models.Preference, error)
}

// Directory resolves broadcast recipients.
type Directory interface {
	ListApprovedIDs(ctx context.Context) ([]int64, error)
}

// UnreadCache caches per-user unread counts. Optional; cache failures are
// logged and the store answers instead.
type UnreadCache interface {
	Get(ctx context.Context, userID int64) (int, bool, error)
	Set(ctx context.Context, userID int64, count int) error
	Invalidate(ctx context.Context, userIDs ...int64) error
	InvalidateAll(ctx context.Context) error
}

// defaultRetention is how long expired notifications are kept before the
// cleanup sweep hard-deletes them.
const defaultRetention = 30 * 24 * time.Hour

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service is the notification dispatcher.
type Service struct {
	store     Store
	users     Directory
	cache     UnreadCache
	logger    *slog.Logger
	metrics   *metrics.Metrics
	retention time.Duration
	now       func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithUnreadCache(c UnreadCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithRetention(d time.Duration) Option {
	return func(s *Service) { s.retention = d }
}

// WithClock injects the time source; tests use it to cross the expiry and
// retention windows without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs the dispatcher.
func New(st Store, users Directory, opts ...Option) *Service {
	s := &Service{
		store:     st,
		users:     users,
		logger:    slog.Default(),
		retention: defaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput carries everything needed to create one notification.
type CreateInput struct {
	RecipientID         int64
	SenderID            *int64
	Type                string
	Title               string
	Message             string
	Priority            string
	RelatedProposalID   *int64
	RelatedProposalUUID *uuid.UUID
	Metadata            map[string]any
	Tags                []string
	ExpiresAt           *time.Time
}

// Create inserts a notification and delivers it synchronously for the
// in-app channel: status pending on insert, flipped to delivered with
// DeliveredAt set. Invalid or missing priority defaults to normal.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Notification, error) {
	if in.RecipientID <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "recipient is required")
	}
	if in.Title == "" || in.Message == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "title and message are required")
	}

	priority, ok := models.ParsePriority(in.Priority)
	if !ok && in.Priority != "" {
		s.logger.WarnContext(ctx, "invalid notification priority, defaulting to normal",
			"priority", in.Priority,
			"recipient_id", in.RecipientID,
		)
	}

	now := s.now()
	n := &models.Notification{
		UUID:                uuid.New(),
		RecipientID:         in.RecipientID,
		SenderID:            in.SenderID,
		Type:                in.Type,
		Title:               in.Title,
		Message:             in.Message,
		Priority:            priority,
		Status:              models.StatusPending,
		RelatedProposalID:   in.RelatedProposalID,
		RelatedProposalUUID: in.RelatedProposalUUID,
		Metadata:            in.Metadata,
		Tags:                in.Tags,
		ExpiresAt:           in.ExpiresAt,
		CreatedAt:           now,
	}
	if err := s.store.Insert(ctx, n); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create notification")
	}

	// In-app delivery is local and synchronous; there is no transport to
	// wait on. A failed flip leaves the row pending, which a later sweep
	// or redelivery can pick up.
	if err := s.store.MarkDelivered(ctx, n.ID, now); err != nil {
		s.logger.ErrorContext(ctx, "notification delivery flip failed",
			"notification_id", n.ID,
			"error", err.Error(),
		)
	} else {
		n.Status = models.StatusDelivered
		n.DeliveredAt = &now
	}

	if s.metrics != nil {
		s.metrics.NotificationsCreated.WithLabelValues(string(n.Priority)).Inc()
	}
	s.invalidate(ctx, n.RecipientID)
	return n, nil
}

// List returns a page of the user's notifications, urgent first, newest
// first within a priority. Expired rows never show.
func (s *Service) List(ctx context.Context, userID int64, f store.Filter) ([]models.Notification, error) {
	if userID <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "user is required")
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Page < 1 {
		f.Page = 1
	}

	out, err := s.store.List(ctx, userID, f, s.now())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return out, nil
}

// UnreadCount counts the user's visible notifications not yet read, serving
// from the cache when warm.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	if userID <= 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "user is required")
	}

	if s.cache != nil {
		count, hit, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.logger.WarnContext(ctx, "unread cache read failed", "error", err.Error())
		} else if hit {
			return count, nil
		}
	}

	count, err := s.store.CountUnread(ctx, userID, s.now())
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count notifications")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, count); err != nil {
			s.logger.WarnContext(ctx, "unread cache write failed", "error", err.Error())
		}
	}
	return count, nil
}

// MarkAsRead marks the given notifications read, scoped to the user. With
// no ids it marks everything unread.
func (s *Service) MarkAsRead(ctx context.Context, userID int64, ids ...int64) (int64, error) {
	if userID <= 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "user is required")
	}
	count, err := s.store.MarkRead(ctx, userID, ids, s.now())
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notifications read")
	}
	s.invalidate(ctx, userID)
	return count, nil
}

// Cleanup is the two-phase sweep: mark rows past their expiry as expired,
// then hard-delete rows that have been expired longer than the retention
// window. Both phases are predicate-guarded, so concurrent sweeps are safe.
func (s *Service) Cleanup(ctx context.Context) error {
	now := s.now()

	expired, err := s.store.ExpireDue(ctx, now)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to expire notifications")
	}
	purged, err := s.store.PurgeExpiredBefore(ctx, now.Add(-s.retention))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge notifications")
	}

	if s.metrics != nil {
		s.metrics.NotificationsExpired.Add(float64(expired))
		s.metrics.NotificationsPurged.Add(float64(purged))
	}
	if expired > 0 || purged > 0 {
		s.logger.InfoContext(ctx, "notification cleanup",
			"expired", expired,
			"purged", purged,
		)
	}
	if expired > 0 && s.cache != nil {
		if err := s.cache.InvalidateAll(ctx); err != nil {
			s.logger.WarnContext(ctx, "unread cache flush failed", "error", err.Error())
		}
	}
	return nil
}

// OnProposalEvent fans out the notifications for a proposal workflow event.
// Failures here are for the caller (the state machine) to log, never to
// propagate.
func (s *Service) OnProposalEvent(ctx context.Context, action string, p *proposalmodels.Proposal, adminID, studentID int64) error {
	relatedUUID := p.UUID
	base := CreateInput{
		Type:                action,
		RelatedProposalID:   &p.ID,
		RelatedProposalUUID: &relatedUUID,
	}

	switch action {
	case "submitted", "resubmitted":
		base.RecipientID = adminID
		base.SenderID = &studentID
		base.Priority = string(models.PriorityNormal)
		base.Title = "New Proposal Submitted"
		base.Message = fmt.Sprintf("Proposal %q is awaiting review.", p.Title)
	case "approved":
		base.RecipientID = studentID
		base.SenderID = &adminID
		base.Priority = string(models.PriorityNormal)
		base.Title = "Proposal Approved"
		base.Message = fmt.Sprintf("Your proposal %q has been approved.", p.Title)
	case "rejected":
		base.RecipientID = studentID
		base.SenderID = &adminID
		base.Priority = string(models.PriorityHigh)
		base.Title = "Proposal Not Approved"
		base.Message = fmt.Sprintf("Your proposal %q was not approved. See the reviewer feedback for the required changes.", p.Title)
	case "revision_requested":
		base.RecipientID = studentID
		base.SenderID = &adminID
		base.Priority = string(models.PriorityHigh)
		base.Title = "Revision Requested"
		base.Message = fmt.Sprintf("Your proposal %q needs revisions before it can be reviewed again.", p.Title)
	default:
		return dErrors.New(dErrors.CodeValidation, "unknown proposal event: "+action)
	}

	if _, err := s.Create(ctx, base); err != nil {
		return err
	}
	return nil
}

// BroadcastInput targets either an explicit recipient list or, with All
// set, every currently-approved user.
type BroadcastInput struct {
	RecipientIDs []int64
	All          bool
	Title        string
	Message      string
	Priority     string
	ExpiresAt    *time.Time
}

// Broadcast creates one notification per recipient. The batch is partial-
// failure tolerant: one bad recipient is logged and skipped, the rest still
// get theirs. Returns how many were created.
func (s *Service) Broadcast(ctx context.Context, in BroadcastInput) (int, error) {
	recipients := in.RecipientIDs
	if in.All {
		ids, err := s.users.ListApprovedIDs(ctx)
		if err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve broadcast recipients")
		}
		recipients = ids
	}
	if len(recipients) == 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "no recipients")
	}

	created := 0
	for _, recipientID := range recipients {
		_, err := s.Create(ctx, CreateInput{
			RecipientID: recipientID,
			Type:        "broadcast",
			Title:       in.Title,
			Message:     in.Message,
			Priority:    in.Priority,
			ExpiresAt:   in.ExpiresAt,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "broadcast recipient skipped",
				"recipient_id", recipientID,
				"error", err.Error(),
			)
			continue
		}
		created++
	}
	return created, nil
}

// UpsertPreference stores the user's channel choices for one type.
func (s *Service) UpsertPreference(ctx context.Context, p *models.Preference) error {
	if p.UserID <= 0 || p.Type == "" {
		return dErrors.New(dErrors.CodeValidation, "user and type are required")
	}
	p.UpdatedAt = s.now()
	if err := s.store.UpsertPreference(ctx, p); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save preference")
	}
	return nil
}

// GetPreference loads the user's channel choices for one type.
func (s *Service) GetPreference(ctx context.Context, userID int64, typ string) (*models.Preference, error) {
	p, err := s.store.FindPreference(ctx, userID, typ)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "preference not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load preference")
	}
	return p, nil
}

func (s *Service) invalidate(ctx context.Context, userIDs ...int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userIDs...); err != nil {
		s.logger.WarnContext(ctx, "unread cache invalidation failed", "error", err.Error())
	}
}
