package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/octofit/internal/audit"
)

// DeadLetterStore parks messages the audit consumer could not record and
// tracks their replay.
type DeadLetterStore struct {
	pool *pgxpool.Pool
}

// NewDeadLetterStore initialises a store backed by the provided pool.
func NewDeadLetterStore(pool *pgxpool.Pool) *DeadLetterStore {
	return &DeadLetterStore{pool: pool}
}

// Write stores the message alongside the failure reason. A message parked
// twice keeps the latest reason and attempt count and becomes due again.
func (s *DeadLetterStore) Write(ctx context.Context, dl audit.DeadLetter) error {
	failedAt := dl.FailedAt
	if failedAt.IsZero() {
		failedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_dead_letters (topic, partition, "offset", message_key, event_type, payload, reason, attempts, failed_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
         ON CONFLICT (topic, partition, "offset") DO UPDATE
           SET reason = EXCLUDED.reason, attempts = EXCLUDED.attempts, failed_at = EXCLUDED.failed_at,
               next_retry_at = now(), quarantined_at = NULL`,
		dl.Topic, dl.Partition, dl.Offset, nullIfEmpty(dl.Key), dl.EventType, dl.Payload, dl.Reason, dl.Attempts, failedAt,
	)
	return err
}

// Due returns parked messages whose next retry time has passed, oldest first.
func (s *DeadLetterStore) Due(ctx context.Context, limit int) ([]audit.DeadLetter, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, topic, partition, "offset", COALESCE(message_key, ''), event_type, payload, reason, attempts, retry_count, failed_at
           FROM audit_dead_letters
          WHERE quarantined_at IS NULL AND next_retry_at <= now()
          ORDER BY failed_at
          LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (audit.DeadLetter, error) {
		var dl audit.DeadLetter
		err := row.Scan(&dl.ID, &dl.Topic, &dl.Partition, &dl.Offset, &dl.Key, &dl.EventType, &dl.Payload,
			&dl.Reason, &dl.Attempts, &dl.Retries, &dl.FailedAt)
		return dl, err
	})
}

// Resolve removes a message that was replayed successfully.
func (s *DeadLetterStore) Resolve(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM audit_dead_letters WHERE id = $1`, id)
	return err
}

// Reschedule records a failed replay and pushes the next attempt out by delay.
func (s *DeadLetterStore) Reschedule(ctx context.Context, id int64, reason string, delay time.Duration) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE audit_dead_letters
            SET retry_count = retry_count + 1,
                next_retry_at = now() + $1::interval,
                reason = $2
          WHERE id = $3`,
		delay, reason, id,
	)
	return err
}

// Quarantine stops replaying a message.
func (s *DeadLetterStore) Quarantine(ctx context.Context, id int64, reason string) error {
	_, err := s.pool.Exec(ctx, `UPDATE audit_dead_letters SET quarantined_at = now(), reason = $1 WHERE id = $2`, reason, id)
	return err
}

// Count returns the number of parked messages for a topic, quarantined ones included.
func (s *DeadLetterStore) Count(ctx context.Context, topic string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM audit_dead_letters WHERE topic=$1`, topic).Scan(&n)
	return n, err
}
