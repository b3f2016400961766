package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"eventdesk/internal/proposal/models"
	"eventdesk/pkg/platform/sentinel"
)

// PostgresStore persists proposals in the proposals table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const proposalColumns = `
	id, uuid, submitter_id, organization, contact_name, contact_email,
	title, description, event_date, proposal_status, report_status,
	event_status, admin_comments, reviewer_id, submitted_at, reviewed_at,
	approved_at, deleted, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *models.Proposal) error {
	query := `
		INSERT INTO proposals (
			uuid, submitter_id, organization, contact_name, contact_email,
			title, description, event_date, proposal_status, report_status,
			event_status, admin_comments, deleted, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		p.UUID,
		p.SubmitterID,
		p.Organization,
		p.ContactName,
		p.ContactEmail,
		p.Title,
		p.Description,
		p.EventDate,
		string(p.Status),
		string(p.ReportStatus),
		string(p.EventStatus),
		p.AdminComments,
		p.Deleted,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByUUID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	query := `SELECT` + proposalColumns + `
		FROM proposals
		WHERE uuid = $1 AND NOT deleted
	`
	return s.scanProposal(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) ResolveID(ctx context.Context, id uuid.UUID) (int64, error) {
	var internalID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM proposals WHERE uuid = $1 AND NOT deleted`, id,
	).Scan(&internalID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, sentinel.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("resolve proposal id: %w", err)
	}
	return internalID, nil
}

// UpdateStatus applies the conditional status write. The WHERE clause pins
// the expected prior status; zero rows affected means either the proposal is
// gone (ErrNotFound) or a concurrent writer changed it first (ErrConflict).
func (s *PostgresStore) UpdateStatus(ctx context.Context, upd StatusUpdate) (*models.Proposal, error) {
	query := `
		UPDATE proposals
		SET proposal_status = $1,
			updated_at = $2,
			submitted_at = COALESCE($3, submitted_at),
			reviewed_at = COALESCE($4, reviewed_at),
			approved_at = COALESCE($5, approved_at),
			reviewer_id = COALESCE($6, reviewer_id),
			admin_comments = COALESCE($7, admin_comments)
		WHERE uuid = $8 AND proposal_status = $9 AND NOT deleted
		RETURNING` + proposalColumns

	row := s.db.QueryRowContext(ctx, query,
		string(upd.To),
		upd.UpdatedAt,
		upd.SubmittedAt,
		upd.ReviewedAt,
		upd.ApprovedAt,
		upd.ReviewerID,
		upd.AdminComments,
		upd.UUID,
		string(upd.From),
	)
	p, err := s.scanProposal(row)
	if errors.Is(err, sentinel.ErrNotFound) {
		// Distinguish a missing proposal from a lost race.
		if _, resolveErr := s.ResolveID(ctx, upd.UUID); resolveErr != nil {
			return nil, sentinel.ErrNotFound
		}
		return nil, sentinel.ErrConflict
	}
	return p, err
}

func (s *PostgresStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE proposals SET deleted = TRUE, updated_at = NOW() WHERE uuid = $1 AND NOT deleted`, id)
	if err != nil {
		return fmt.Errorf("soft delete proposal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete proposal: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanProposal(row rowScanner) (*models.Proposal, error) {
	var (
		p             models.Proposal
		status        string
		reportStatus  string
		eventStatus   string
		eventDate     sql.NullTime
		adminComments sql.NullString
		reviewerID    sql.NullInt64
		submittedAt   sql.NullTime
		reviewedAt    sql.NullTime
		approvedAt    sql.NullTime
	)

	err := row.Scan(
		&p.ID,
		&p.UUID,
		&p.SubmitterID,
		&p.Organization,
		&p.ContactName,
		&p.ContactEmail,
		&p.Title,
		&p.Description,
		&eventDate,
		&status,
		&reportStatus,
		&eventStatus,
		&adminComments,
		&reviewerID,
		&submittedAt,
		&reviewedAt,
		&approvedAt,
		&p.Deleted,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan proposal: %w", err)
	}

	p.Status = models.ProposalStatus(status)
	p.ReportStatus = models.ReportStatus(reportStatus)
	p.EventStatus = models.EventStatus(eventStatus)
	if eventDate.Valid {
		p.EventDate = &eventDate.Time
	}
	if adminComments.Valid {
		p.AdminComments = adminComments.String
	}
	if reviewerID.Valid {
		p.ReviewerID = &reviewerID.Int64
	}
	if submittedAt.Valid {
		p.SubmittedAt = &submittedAt.Time
	}
	if reviewedAt.Valid {
		p.ReviewedAt = &reviewedAt.Time
	}
	if approvedAt.Valid {
		p.ApprovedAt = &approvedAt.Time
	}
	return &p, nil
}
