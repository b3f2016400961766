package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"eventdesk/internal/notification/models"
	"eventdesk/pkg/platform/sentinel"
)

// PostgresStore persists notifications in the notifications and
// notification_preferences tables.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const notificationColumns = `
	id, uuid, recipient_id, sender_id, type, title, message, priority,
	status, related_proposal_id, related_proposal_uuid, metadata, tags,
	expires_at, delivered_at, read_at, created_at`

// priorityRank orders priorities in SQL: urgent > high > normal > low.
const priorityRank = `
	CASE priority
		WHEN 'urgent' THEN 3
		WHEN 'high' THEN 2
		WHEN 'normal' THEN 1
		ELSE 0
	END`

func (s *PostgresStore) Insert(ctx context.Context, n *models.Notification) error {
	var metadata []byte
	if n.Metadata != nil {
		var err error
		metadata, err = json.Marshal(n.Metadata)
		if err != nil {
			return fmt.Errorf("marshal notification metadata: %w", err)
		}
	}

	query := `
		INSERT INTO notifications (
			uuid, recipient_id, sender_id, type, title, message, priority,
			status, related_proposal_id, related_proposal_uuid, metadata,
			tags, expires_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		n.UUID,
		n.RecipientID,
		n.SenderID,
		n.Type,
		n.Title,
		n.Message,
		string(n.Priority),
		string(n.Status),
		n.RelatedProposalID,
		n.RelatedProposalUUID,
		metadata,
		pq.Array(n.Tags),
		n.ExpiresAt,
		n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkDelivered(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = 'delivered', delivered_at = $1
		WHERE id = $2 AND status = 'pending'
	`, at, id)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, recipientID int64, f Filter, now time.Time) ([]models.Notification, error) {
	var (
		conds = []string{
			"recipient_id = $1",
			"status != 'expired'",
			"(expires_at IS NULL OR expires_at > $2)",
		}
		args = []any{recipientID, now}
	)
	if f.UnreadOnly {
		conds = append(conds, "status NOT IN ('read', 'archived')")
	}
	if f.Priority != "" {
		args = append(args, f.Priority)
		conds = append(conds, fmt.Sprintf("priority = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, f.Offset())

	query := fmt.Sprintf(`
		SELECT %s
		FROM notifications
		WHERE %s
		ORDER BY %s DESC, created_at DESC
		LIMIT $%d OFFSET $%d
	`, notificationColumns, strings.Join(conds, " AND "), priorityRank, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

func (s *PostgresStore) CountUnread(ctx context.Context, recipientID int64, now time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM notifications
		WHERE recipient_id = $1
		  AND status != 'expired'
		  AND (expires_at IS NULL OR expires_at > $2)
		  AND status != 'read'
	`, recipientID, now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) MarkRead(ctx context.Context, recipientID int64, ids []int64, readAt time.Time) (int64, error) {
	query := `
		UPDATE notifications
		SET status = 'read', read_at = $1
		WHERE recipient_id = $2
		  AND status NOT IN ('read', 'archived', 'expired')
		  AND (expires_at IS NULL OR expires_at > $1)
	`
	args := []any{readAt, recipientID}
	if len(ids) > 0 {
		query += " AND id = ANY($3)"
		args = append(args, pq.Array(ids))
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return affected, nil
}

// ExpireDue flips rows past their expiry to expired. Predicate-guarded, so
// concurrent sweeps are safe and idempotent.
func (s *PostgresStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = 'expired'
		WHERE status != 'expired' AND expires_at IS NOT NULL AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("expire notifications: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire notifications: %w", err)
	}
	return affected, nil
}

// PurgeExpiredBefore hard-deletes expired rows whose expiry predates the
// cutoff. The only deletion path in the system.
func (s *PostgresStore) PurgeExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM notifications
		WHERE status = 'expired' AND expires_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge expired notifications: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired notifications: %w", err)
	}
	return affected, nil
}

func (s *PostgresStore) UpsertPreference(ctx context.Context, p *models.Preference) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_preferences (
			user_id, type, in_app, email, sms, push, frequency, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, type) DO UPDATE SET
			in_app = EXCLUDED.in_app,
			email = EXCLUDED.email,
			sms = EXCLUDED.sms,
			push = EXCLUDED.push,
			frequency = EXCLUDED.frequency,
			updated_at = EXCLUDED.updated_at
	`, p.UserID, p.Type, p.InApp, p.Email, p.SMS, p.Push, p.Frequency, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert notification preference: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindPreference(ctx context.Context, userID int64, typ string) (*models.Preference, error) {
	var p models.Preference
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, type, in_app, email, sms, push, frequency, updated_at
		FROM notification_preferences
		WHERE user_id = $1 AND type = $2
	`, userID, typ).Scan(&p.UserID, &p.Type, &p.InApp, &p.Email, &p.SMS, &p.Push, &p.Frequency, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find notification preference: %w", err)
	}
	return &p, nil
}

func scanNotifications(rows *sql.Rows) ([]models.Notification, error) {
	var out []models.Notification
	for rows.Next() {
		var (
			n           models.Notification
			priority    string
			status      string
			metadata    []byte
			tags        pq.StringArray
			expiresAt   sql.NullTime
			deliveredAt sql.NullTime
			readAt      sql.NullTime
		)
		err := rows.Scan(
			&n.ID,
			&n.UUID,
			&n.RecipientID,
			&n.SenderID,
			&n.Type,
			&n.Title,
			&n.Message,
			&priority,
			&status,
			&n.RelatedProposalID,
			&n.RelatedProposalUUID,
			&metadata,
			&tags,
			&expiresAt,
			&deliveredAt,
			&readAt,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Priority = models.Priority(priority)
		n.Status = models.Status(status)
		n.Tags = tags
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal notification metadata: %w", err)
			}
		}
		if expiresAt.Valid {
			n.ExpiresAt = &expiresAt.Time
		}
		if deliveredAt.Valid {
			n.DeliveredAt = &deliveredAt.Time
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}
