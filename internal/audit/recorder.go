package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eventdesk/internal/platform/metrics"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/platform/sentinel"
)

// Store is the storage-agnostic backend for audit entries. Memory and
// postgres implementations live in internal/audit/store.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	ListByProposal(ctx context.Context, proposalID int64, limit, offset int) ([]Entry, error)
	StatsByProposal(ctx context.Context, proposalID int64) ([]ActionStat, error)
}

// ProposalResolver resolves external proposal UUIDs to internal ids.
type ProposalResolver interface {
	ResolveID(ctx context.Context, id uuid.UUID) (int64, error)
}

// Recorder writes and reads the audit trail. Record never returns an error:
// failures are logged and swallowed so audit problems cannot block the
// operation that triggered them. Reads propagate errors normally.
type Recorder struct {
	store     Store
	proposals ProposalResolver
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(r *Recorder)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// NewRecorder constructs a Recorder.
func NewRecorder(store Store, proposals ProposalResolver, opts ...Option) *Recorder {
	r := &Recorder{store: store, proposals: proposals, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// exportListLimit bounds how many entries an export bundle carries.
const exportListLimit = 10000

// Record appends one audit entry. It never panics and never returns an
// error; on any failure it logs and returns nil.
func (r *Recorder) Record(ctx context.Context, proposalUUID uuid.UUID, action string, actorID int64, note string, meta map[string]any) (entry *Entry) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "audit record panic", "panic", rec, "action", action)
			entry = nil
		}
	}()

	actionType, mapped := MapAction(action)
	if !mapped {
		r.logger.WarnContext(ctx, "unmapped audit action, defaulting to UPDATE",
			"action", action,
			"proposal_uuid", proposalUUID.String(),
		)
	}

	proposalID, err := r.proposals.ResolveID(ctx, proposalUUID)
	if err != nil {
		r.logger.WarnContext(ctx, "audit record skipped: proposal not resolved",
			"proposal_uuid", proposalUUID.String(),
			"action", action,
			"error", err.Error(),
		)
		return nil
	}

	e := &Entry{
		ProposalID:   proposalID,
		ProposalUUID: proposalUUID,
		Action:       actionType,
		ActorID:      actorID,
		OldValue:     metaString(meta, "old_value"),
		NewValue:     metaString(meta, "new_value"),
		Note:         note,
		Meta:         meta,
		CreatedAt:    time.Now(),
	}

	if err := r.store.Append(ctx, e); err != nil {
		r.logger.ErrorContext(ctx, "audit append failed",
			"proposal_uuid", proposalUUID.String(),
			"action", action,
			"error", err.Error(),
		)
		if r.metrics != nil {
			r.metrics.AuditRecordFailures.Inc()
		}
		return nil
	}

	if r.metrics != nil {
		r.metrics.AuditEntriesRecorded.Inc()
	}
	return e
}

// List returns a proposal's audit entries, newest first.
func (r *Recorder) List(ctx context.Context, proposalUUID uuid.UUID, limit, offset int) ([]Entry, error) {
	proposalID, err := r.resolve(ctx, proposalUUID)
	if err != nil {
		return nil, err
	}
	entries, err := r.store.ListByProposal(ctx, proposalID, limit, offset)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}

// Stats groups a proposal's entries by action with count and first/last
// occurrence.
func (r *Recorder) Stats(ctx context.Context, proposalUUID uuid.UUID) ([]ActionStat, error) {
	proposalID, err := r.resolve(ctx, proposalUUID)
	if err != nil {
		return nil, err
	}
	stats, err := r.store.StatsByProposal(ctx, proposalID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute audit stats")
	}
	return stats, nil
}

// Export bundles list + stats + a debug snapshot for downstream tooling.
func (r *Recorder) Export(ctx context.Context, proposalUUID uuid.UUID) (*ExportBundle, error) {
	proposalID, err := r.resolve(ctx, proposalUUID)
	if err != nil {
		return nil, err
	}
	entries, err := r.store.ListByProposal(ctx, proposalID, exportListLimit, 0)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	stats, err := r.store.StatsByProposal(ctx, proposalID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute audit stats")
	}
	return &ExportBundle{
		Version:      ExportVersion,
		ProposalUUID: proposalUUID,
		GeneratedAt:  time.Now(),
		Entries:      entries,
		Stats:        stats,
		Snapshot: map[string]any{
			"proposal_id": proposalID,
			"entry_count": len(entries),
			"actions":     len(stats),
		},
	}, nil
}

func (r *Recorder) resolve(ctx context.Context, proposalUUID uuid.UUID) (int64, error) {
	proposalID, err := r.proposals.ResolveID(ctx, proposalUUID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.New(dErrors.CodeNotFound, "proposal not found")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve proposal")
	}
	return proposalID, nil
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}
