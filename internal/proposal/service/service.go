// Package service implements the proposal state machine. Status writes are
// compare-and-swap on the expected prior status; audit and notification
// side effects run after the authoritative write commits and never affect
// its outcome.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"eventdesk/internal/audit"
	"eventdesk/internal/platform/metrics"
	"eventdesk/internal/proposal/models"
	"eventdesk/internal/proposal/store"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/platform/sentinel"
)

// Store is the persistence contract for proposals.
type Store interface {
	Create(ctx context.Context, p *models.Proposal) error
	FindByUUID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	UpdateStatus(ctx context.Context, upd store.StatusUpdate) (*models.Proposal, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// Recorder is the audit side effect. Record never fails; a nil entry means
// the write was swallowed at the recorder boundary.
type Recorder interface {
	Record(ctx context.Context, proposalUUID uuid.UUID, action string, actorID int64, note string, meta map[string]any) *audit.Entry
}

// Notifier is the notification side effect.
type Notifier interface {
	OnProposalEvent(ctx context.Context, action string, p *models.Proposal, adminID, studentID int64) error
}

// Directory resolves the reviewing admin for submission notifications.
type Directory interface {
	FindAdminID(ctx context.Context) (int64, error)
}

// Service validates and applies proposal status transitions.
type Service struct {
	store    Store
	recorder Recorder
	notifier Notifier
	users    Directory
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	now      func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithClock injects the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs the state machine service.
func New(st Store, recorder Recorder, notifier Notifier, users Directory, opts ...Option) *Service {
	s := &Service{
		store:    st,
		recorder: recorder,
		notifier: notifier,
		users:    users,
		logger:   slog.Default(),
		tracer:   noop.NewTracerProvider().Tracer("eventdesk/proposal"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput carries the fields a submitter provides for a new draft.
type CreateInput struct {
	SubmitterID  int64
	Organization string
	ContactName  string
	ContactEmail string
	Title        string
	Description  string
	EventDate    *time.Time
}

// Create stores a new proposal in draft.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Proposal, error) {
	if in.SubmitterID <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "submitter is required")
	}
	if in.Title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "title is required")
	}

	p := models.NewProposal(in.SubmitterID, in.Title)
	p.Organization = in.Organization
	p.ContactName = in.ContactName
	p.ContactEmail = in.ContactEmail
	p.Description = in.Description
	p.EventDate = in.EventDate

	if err := s.store.Create(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create proposal")
	}

	s.recorder.Record(ctx, p.UUID, "proposal_created", in.SubmitterID, "", map[string]any{
		"new_value": string(models.StatusDraft),
	})
	return p, nil
}

// Get loads a proposal by its external UUID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	p, err := s.store.FindByUUID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "proposal not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load proposal")
	}
	return p, nil
}

// Transition validates newStatus against the edge table and applies it with
// a compare-and-swap write on the expected prior status. A concurrent
// reviewer who got there first surfaces as CodeConflict. Submitting an
// already-pending proposal is a no-op success so client retries stay
// idempotent.
func (s *Service) Transition(ctx context.Context, proposalUUID uuid.UUID, newStatus models.ProposalStatus, actorID int64, comment string) (*models.Proposal, error) {
	ctx, span := s.tracer.Start(ctx, "proposal.Transition",
		trace.WithAttributes(
			attribute.String("proposal.uuid", proposalUUID.String()),
			attribute.String("proposal.to", string(newStatus)),
		))
	defer span.End()

	if !newStatus.Valid() {
		s.rejected("invalid_status")
		return nil, dErrors.New(dErrors.CodeValidation, "unknown status: "+string(newStatus))
	}

	p, err := s.store.FindByUUID(ctx, proposalUUID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.rejected("not_found")
			return nil, dErrors.New(dErrors.CodeNotFound, "proposal not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load proposal")
	}

	// A timed-out submit attempt may have completed server-side; the
	// retried call must not be a second transition attempt.
	if newStatus == models.StatusPending && p.Status == models.StatusPending {
		return p, nil
	}

	edge, ok := models.EdgeOf(p.Status, newStatus)
	if !ok {
		s.rejected("invalid_transition")
		return nil, dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("cannot transition from %s to %s", p.Status, newStatus))
	}

	now := s.now()
	upd := store.StatusUpdate{
		UUID:      proposalUUID,
		From:      p.Status,
		To:        newStatus,
		UpdatedAt: now,
	}
	switch edge {
	case models.EdgeSubmit:
		// submittedAt is set exactly once, on the draft→pending edge.
		upd.SubmittedAt = &now
	case models.EdgeReview:
		upd.ReviewedAt = &now
		upd.ReviewerID = &actorID
		upd.AdminComments = &comment
		if newStatus == models.StatusApproved {
			upd.ApprovedAt = &now
		}
	case models.EdgeResubmit:
	}

	updated, err := s.store.UpdateStatus(ctx, upd)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			if s.metrics != nil {
				s.metrics.TransitionConflicts.Inc()
			}
			return nil, dErrors.New(dErrors.CodeConflict, "proposal was modified by another reviewer")
		case errors.Is(err, sentinel.ErrNotFound):
			s.rejected("not_found")
			return nil, dErrors.New(dErrors.CodeNotFound, "proposal not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update proposal status")
		}
	}

	if s.metrics != nil {
		s.metrics.TransitionsApplied.WithLabelValues(string(newStatus)).Inc()
	}

	s.fireSideEffects(ctx, updated, p.Status, edge, actorID, comment)
	return updated, nil
}

// Delete soft-flags a proposal; rows are never removed.
func (s *Service) Delete(ctx context.Context, proposalUUID uuid.UUID, actorID int64) error {
	if err := s.store.SoftDelete(ctx, proposalUUID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "proposal not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete proposal")
	}
	s.recorder.Record(ctx, proposalUUID, "proposal_deleted", actorID, "", nil)
	return nil
}

// auditActions maps each applied edge to the loose action name the audit
// recorder classifies.
var auditActions = map[models.ProposalStatus]string{
	models.StatusPending:           "proposal_submitted",
	models.StatusApproved:          "proposal_approved",
	models.StatusDenied:            "proposal_rejected",
	models.StatusRevisionRequested: "proposal_revision_requested",
}

// notifyEvents maps each applied edge to the dispatcher's fan-out event.
var notifyEvents = map[models.ProposalStatus]string{
	models.StatusPending:           "submitted",
	models.StatusApproved:          "approved",
	models.StatusDenied:            "rejected",
	models.StatusRevisionRequested: "revision_requested",
}

// fireSideEffects records the audit entry and fans out notifications after
// the status write has committed. The two run independently; a failure or
// panic in one is logged and cannot affect the other or the committed
// status.
func (s *Service) fireSideEffects(ctx context.Context, p *models.Proposal, from models.ProposalStatus, edge models.EdgeKind, actorID int64, comment string) {
	action := auditActions[p.Status]
	event := notifyEvents[p.Status]
	if edge == models.EdgeResubmit {
		action = "proposal_resubmitted"
		event = "resubmitted"
	}

	var g errgroup.Group
	g.Go(func() error {
		defer s.recoverSideEffect(ctx, "audit")
		s.recorder.Record(ctx, p.UUID, action, actorID, comment, map[string]any{
			"old_value": string(from),
			"new_value": string(p.Status),
		})
		return nil
	})
	g.Go(func() error {
		defer s.recoverSideEffect(ctx, "notify")
		adminID := actorID
		if edge == models.EdgeSubmit || edge == models.EdgeResubmit {
			id, err := s.users.FindAdminID(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "no admin to notify for submission",
					"proposal_uuid", p.UUID.String(),
					"error", err.Error(),
				)
				return nil
			}
			adminID = id
		}
		if err := s.notifier.OnProposalEvent(ctx, event, p, adminID, p.SubmitterID); err != nil {
			s.logger.ErrorContext(ctx, "proposal notification failed",
				"proposal_uuid", p.UUID.String(),
				"event", event,
				"error", err.Error(),
			)
		}
		return nil
	})
	_ = g.Wait()
}

func (s *Service) recoverSideEffect(ctx context.Context, name string) {
	if rec := recover(); rec != nil {
		s.logger.ErrorContext(ctx, "side effect panic", "side_effect", name, "panic", rec)
	}
}

func (s *Service) rejected(reason string) {
	if s.metrics != nil {
		s.metrics.TransitionsRejected.WithLabelValues(reason).Inc()
	}
}
