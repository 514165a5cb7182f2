package fulfillment

import (
	"context"
	"database/sql"
	"fmt"

	"ticketpin-workers/internal/models"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS ticket_fulfillments (
    run_id        TEXT PRIMARY KEY,
    request_id    TEXT NOT NULL,
    location      TEXT NOT NULL,
    keyword       TEXT NOT NULL,
    status        TEXT NOT NULL,
    content_hash  TEXT,
    result        TEXT,
    encoding      TEXT,
    error_kind    TEXT,
    error_stage   TEXT,
    error_message TEXT,
    source        TEXT NOT NULL,
    started_at    TIMESTAMPTZ NOT NULL,
    completed_at  TIMESTAMPTZ NOT NULL,
    duration_ms   BIGINT NOT NULL
)`

const insertSQL = `
INSERT INTO ticket_fulfillments (
    run_id, request_id, location, keyword, status, content_hash, result, encoding,
    error_kind, error_stage, error_message, source, started_at, completed_at, duration_ms
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

// PostgresRecorder appends fulfillments to the ticket_fulfillments table.
type PostgresRecorder struct {
	db *sql.DB
}

func NewPostgresRecorder(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

func (r *PostgresRecorder) Name() string { return "postgres" }

// EnsureSchema creates the audit table if it does not exist.
func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create ticket_fulfillments: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) Record(ctx context.Context, f *models.Fulfillment) error {
	_, err := r.db.ExecContext(ctx, insertSQL,
		f.RunID,
		f.RequestID,
		f.Location,
		f.Keyword,
		f.Status,
		nullString(f.ContentHash),
		nullString(f.Result),
		nullString(f.Encoding),
		nullString(f.ErrorKind),
		nullString(f.ErrorStage),
		nullString(f.ErrorMessage),
		f.Source,
		f.StartedAt,
		f.CompletedAt,
		f.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("insert fulfillment %s: %w", f.RunID, err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
