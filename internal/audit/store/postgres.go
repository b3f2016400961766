package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"eventdesk/internal/audit"
)

// PostgresStore persists audit entries in the audit_logs table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry *audit.Entry) error {
	var meta []byte
	if entry.Meta != nil {
		var err error
		meta, err = json.Marshal(entry.Meta)
		if err != nil {
			return fmt.Errorf("marshal audit meta: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (
			proposal_id, proposal_uuid, action_type, actor_id,
			old_values, new_values, note, additional_info, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		entry.ProposalID,
		entry.ProposalUUID,
		string(entry.Action),
		entry.ActorID,
		entry.OldValue,
		entry.NewValue,
		entry.Note,
		meta,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByProposal(ctx context.Context, proposalID int64, limit, offset int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, proposal_id, proposal_uuid, action_type, actor_id,
			   old_values, new_values, note, additional_info, created_at
		FROM audit_logs
		WHERE proposal_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, query, proposalID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			e      audit.Entry
			action string
			meta   []byte
		)
		err := rows.Scan(
			&e.ID,
			&e.ProposalID,
			&e.ProposalUUID,
			&action,
			&e.ActorID,
			&e.OldValue,
			&e.NewValue,
			&e.Note,
			&meta,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = audit.ActionType(action)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal audit meta: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) StatsByProposal(ctx context.Context, proposalID int64) ([]audit.ActionStat, error) {
	query := `
		SELECT action_type, COUNT(*), MIN(created_at), MAX(created_at)
		FROM audit_logs
		WHERE proposal_id = $1
		GROUP BY action_type
		ORDER BY action_type
	`
	rows, err := s.db.QueryContext(ctx, query, proposalID)
	if err != nil {
		return nil, fmt.Errorf("query audit stats: %w", err)
	}
	defer rows.Close()

	var stats []audit.ActionStat
	for rows.Next() {
		var (
			stat   audit.ActionStat
			action string
		)
		if err := rows.Scan(&action, &stat.Count, &stat.First, &stat.Last); err != nil {
			return nil, fmt.Errorf("scan audit stat: %w", err)
		}
		stat.Action = audit.ActionType(action)
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit stats: %w", err)
	}
	return stats, nil
}
