// Package postgres stores the audit trail in PostgreSQL.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/octofit/internal/audit"
)

// Repository implements audit.Repository backed by PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts the entry. Redelivered events are ignored.
func (r *Repository) Record(ctx context.Context, entry audit.Entry) error {
	recordedAt := entry.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO membership_audit (event_id, event_type, user_id, team_id, team_name, action, member_ids, fields, actor, session_id, occurred_at, recorded_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
         ON CONFLICT (event_id) DO NOTHING`,
		entry.EventID,
		entry.EventType,
		entry.UserID,
		nullIfEmpty(entry.TeamID),
		nullIfEmpty(entry.TeamName),
		nullIfEmpty(entry.Action),
		nonNil(entry.MemberIDs),
		nonNil(entry.Fields),
		nullIfEmpty(entry.Actor),
		nullIfEmpty(entry.SessionID),
		entry.OccurredAt,
		recordedAt,
	)
	return err
}

// ListByUser returns a user's entries newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string, cursor *audit.Cursor, limit int) ([]audit.Entry, *audit.Cursor, error) {
	if limit <= 0 {
		limit = audit.DefaultPageSize
	}
	args := []interface{}{userID, limit}
	query := `SELECT event_id, event_type, user_id, COALESCE(team_id, ''), COALESCE(team_name, ''), COALESCE(action, ''),
        member_ids, fields, COALESCE(actor, ''), COALESCE(session_id, ''), occurred_at, recorded_at
        FROM membership_audit WHERE user_id=$1`

	if cursor != nil {
		query += ` AND (occurred_at, event_id) < ($3, $4)`
		args = append(args, cursor.OccurredAt, cursor.EventID)
	}

	query += ` ORDER BY occurred_at DESC, event_id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (audit.Entry, error) {
		var e audit.Entry
		err := row.Scan(&e.EventID, &e.EventType, &e.UserID, &e.TeamID, &e.TeamName, &e.Action,
			&e.MemberIDs, &e.Fields, &e.Actor, &e.SessionID, &e.OccurredAt, &e.RecordedAt)
		return e, err
	})
	if err != nil {
		return nil, nil, err
	}

	var next *audit.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		next = &audit.Cursor{OccurredAt: last.OccurredAt, EventID: last.EventID}
	}
	return results, next, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
