package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/conduit/internal/shared/infrastructure/database"
)

// SQLRepository persists outbox records in the datastore registered under one
// alias. The same SQL serves SQLite and PostgreSQL via placeholder rebinding.
type SQLRepository struct {
	db    *database.Manager
	alias string
}

// NewSQLRepository creates a repository bound to a datastore alias.
func NewSQLRepository(db *database.Manager, alias string) *SQLRepository {
	if alias == "" {
		alias = database.DefaultAlias
	}
	return &SQLRepository{db: db, alias: alias}
}

// Alias returns the datastore alias this repository writes to.
func (r *SQLRepository) Alias() string { return r.alias }

// Add implements Repository. The insert joins the transaction open on the
// repository's alias, so the record commits or rolls back with the command
// that produced it.
func (r *SQLRepository) Add(ctx context.Context, aggregateType, aggregateID, eventType string, payload map[string]any, tenantID string) error {
	conn, err := r.db.Get(r.alias)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode outbox payload: %w", err)
	}

	query := database.Rebind(conn.Driver(), `
		INSERT INTO outbox_events
			(aggregate_type, aggregate_id, event_type, payload, tenant_id, created_at, processed, retry_count)
		VALUES (?, ?, ?, ?, ?, ?, FALSE, 0)`)

	exec := database.ExecutorFromContext(ctx, r.alias, conn)
	if _, err := exec.Exec(ctx, query, aggregateType, aggregateID, eventType, string(raw), tenantID, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// GetUnprocessed implements Repository.
func (r *SQLRepository) GetUnprocessed(ctx context.Context, limit int) ([]*Record, error) {
	conn, err := r.db.Get(r.alias)
	if err != nil {
		return nil, err
	}

	query := database.Rebind(conn.Driver(), `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, tenant_id,
		       created_at, processed, retry_count, next_retry_at, last_error, dead_lettered_at
		FROM outbox_events
		WHERE processed = FALSE
		  AND dead_lettered_at IS NULL
		  AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY created_at ASC
		LIMIT ?`)

	rows, err := conn.Query(ctx, query, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed outbox events: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox events: %w", err)
	}
	return records, nil
}

// MarkProcessed implements Repository.
func (r *SQLRepository) MarkProcessed(ctx context.Context, id int64) error {
	conn, err := r.db.Get(r.alias)
	if err != nil {
		return err
	}
	query := database.Rebind(conn.Driver(), `UPDATE outbox_events SET processed = TRUE WHERE id = ?`)
	if _, err := conn.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("mark outbox event %d processed: %w", id, err)
	}
	return nil
}

// MarkFailed implements Repository.
func (r *SQLRepository) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	conn, err := r.db.Get(r.alias)
	if err != nil {
		return err
	}
	query := database.Rebind(conn.Driver(), `
		UPDATE outbox_events
		SET retry_count = retry_count + 1, last_error = ?, next_retry_at = ?
		WHERE id = ?`)
	if _, err := conn.Exec(ctx, query, errMsg, nextRetryAt.UTC(), id); err != nil {
		return fmt.Errorf("mark outbox event %d failed: %w", id, err)
	}
	return nil
}

// MarkDead implements Repository.
func (r *SQLRepository) MarkDead(ctx context.Context, id int64, reason string) error {
	conn, err := r.db.Get(r.alias)
	if err != nil {
		return err
	}
	query := database.Rebind(conn.Driver(), `
		UPDATE outbox_events
		SET dead_lettered_at = ?, last_error = ?
		WHERE id = ?`)
	if _, err := conn.Exec(ctx, query, time.Now().UTC(), reason, id); err != nil {
		return fmt.Errorf("dead-letter outbox event %d: %w", id, err)
	}
	return nil
}

// DeleteOld implements Repository.
func (r *SQLRepository) DeleteOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	conn, err := r.db.Get(r.alias)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	query := database.Rebind(conn.Driver(), `DELETE FROM outbox_events WHERE processed = TRUE AND created_at < ?`)
	res, err := conn.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old outbox events: %w", err)
	}
	return res.RowsAffected()
}

func scanRecord(rows database.Rows) (*Record, error) {
	var (
		rec          Record
		payload      []byte
		nextRetry    sql.NullTime
		lastError    sql.NullString
		deadLettered sql.NullTime
	)
	err := rows.Scan(
		&rec.ID, &rec.AggregateType, &rec.AggregateID, &rec.EventType, &payload, &rec.TenantID,
		&rec.CreatedAt, &rec.Processed, &rec.RetryCount, &nextRetry, &lastError, &deadLettered,
	)
	if err != nil {
		return nil, fmt.Errorf("scan outbox event: %w", err)
	}
	rec.Payload = json.RawMessage(payload)
	if nextRetry.Valid {
		t := nextRetry.Time
		rec.NextRetryAt = &t
	}
	if lastError.Valid {
		s := lastError.String
		rec.LastError = &s
	}
	if deadLettered.Valid {
		t := deadLettered.Time
		rec.DeadLetteredAt = &t
	}
	return &rec, nil
}
