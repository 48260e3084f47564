package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	id "lingkod/pkg/domain"
	"lingkod/pkg/platform/sentinel"
)

// PostgresStore persists outbox entries in the notification_outbox table.
// It uses pgx natively: claim batches lean on FOR UPDATE SKIP LOCKED so
// concurrent workers never double-send an entry.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const uniqueViolation = "23505"

func (s *PostgresStore) InsertIfAbsent(ctx context.Context, entry *Entry) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO notification_outbox
			(id, resident_id, channel, event_type, entity_id, payload,
			 status, attempts, next_attempt_at, dedupe_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (dedupe_key) DO NOTHING`,
		entry.ID, uuid.UUID(entry.ResidentID), string(entry.Channel),
		string(entry.EventType), entry.EntityID, []byte(entry.Payload),
		string(entry.Status), entry.Attempts, entry.NextAttemptAt,
		entry.DedupeKey, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *PostgresStore) InsertBatch(ctx context.Context, entries []*Entry) error {
	batch := &pgx.Batch{}
	for _, entry := range entries {
		batch.Queue(`
			INSERT INTO notification_outbox
				(id, resident_id, channel, event_type, entity_id, payload,
				 status, attempts, next_attempt_at, dedupe_key, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (dedupe_key) DO NOTHING`,
			entry.ID, uuid.UUID(entry.ResidentID), string(entry.Channel),
			string(entry.EventType), entry.EntityID, []byte(entry.Payload),
			string(entry.Status), entry.Attempts, entry.NextAttemptAt,
			entry.DedupeKey, entry.CreatedAt,
		)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range entries {
		if _, err := results.Exec(); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				continue
			}
			return fmt.Errorf("insert outbox batch entry: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT dedupe_key FROM notification_outbox WHERE dedupe_key = ANY($1)`, keys)
	if err != nil {
		return nil, fmt.Errorf("query existing dedupe keys: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool, len(keys))
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan dedupe key: %w", err)
		}
		found[key] = true
	}
	return found, rows.Err()
}

// ClaimPending locks up to limit due pending rows, extends their
// next_attempt_at by the lease, and returns them. SKIP LOCKED makes the
// claim exclusive across concurrent workers.
func (s *PostgresStore) ClaimPending(ctx context.Context, limit int, now time.Time, lease time.Duration) ([]*Entry, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE notification_outbox
		SET next_attempt_at = $3
		WHERE id IN (
			SELECT id FROM notification_outbox
			WHERE status = 'pending' AND next_attempt_at <= $2
			ORDER BY next_attempt_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, resident_id, channel, event_type, entity_id, payload,
		          status, attempts, next_attempt_at, last_error, dedupe_key, created_at`,
		limit, now, now.Add(lease),
	)
	if err != nil {
		return nil, fmt.Errorf("claim pending outbox entries: %w", err)
	}
	defer rows.Close()

	var claimed []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, entry)
	}
	return claimed, rows.Err()
}

func (s *PostgresStore) MarkSent(ctx context.Context, entryID uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_outbox
		SET status = 'sent', next_attempt_at = $2, last_error = ''
		WHERE id = $1`,
		entryID, at,
	)
	if err != nil {
		return fmt.Errorf("mark outbox entry sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Reschedule(ctx context.Context, entryID uuid.UUID, attempts int, nextAttemptAt time.Time, lastError string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_outbox
		SET attempts = $2, next_attempt_at = $3, last_error = $4
		WHERE id = $1`,
		entryID, attempts, nextAttemptAt, lastError,
	)
	if err != nil {
		return fmt.Errorf("reschedule outbox entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) MarkFailed(ctx context.Context, entryID uuid.UUID, attempts int, lastError string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_outbox
		SET status = 'failed', attempts = $2, last_error = $3
		WHERE id = $1`,
		entryID, attempts, lastError,
	)
	if err != nil {
		return fmt.Errorf("mark outbox entry failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanEntry(rows pgx.Rows) (*Entry, error) {
	var (
		entry      Entry
		residentID uuid.UUID
		channel    string
		eventType  string
		status     string
		payload    []byte
	)
	err := rows.Scan(
		&entry.ID, &residentID, &channel, &eventType, &entry.EntityID,
		&payload, &status, &entry.Attempts, &entry.NextAttemptAt,
		&entry.LastError, &entry.DedupeKey, &entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan outbox entry: %w", err)
	}
	entry.ResidentID = id.ResidentID(residentID)
	entry.Channel = Channel(channel)
	entry.EventType = EventType(eventType)
	entry.Status = EntryStatus(status)
	entry.Payload = payload
	return &entry, nil
}
