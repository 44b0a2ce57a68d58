package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mind-engage/drivequiz/internal/db"
)

// SQLOutbox stores pending results in a pending_results table.
type SQLOutbox struct{ DB *sql.DB }

// Migrate applies the outbox schema for the selected driver (idempotent).
func Migrate(ctx context.Context, h *sql.DB, driver db.Driver) error {
	var schema string
	switch driver {
	case db.DriverPostgres:
		schema = schemaPostgres
	case db.DriverSQLite:
		schema = schemaSQLite
	default:
		return fmt.Errorf("unsupported driver %q (expected postgres/sqlite)", driver)
	}
	_, err := h.ExecContext(ctx, schema)
	return err
}

// OpenSQL connects and migrates.
func OpenSQL(ctx context.Context, driver db.Driver, dsn string) (*SQLOutbox, error) {
	h, err := db.Connect(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, h, driver); err != nil {
		_ = h.Close()
		return nil, err
	}
	return &SQLOutbox{DB: h}, nil
}

func (s *SQLOutbox) Append(ctx context.Context, r Result) error {
	if err := validate(r); err != nil {
		return err
	}
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO pending_results (id, quiz_id, answers_json, score, passed, completed_at, time_taken, offline)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO NOTHING`,
		r.ID, r.QuizID, string(answers), r.Score, r.Passed, r.CompletedAt.UnixMilli(), r.TimeTaken, r.Offline)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, r.ID)
	}
	return nil
}

func (s *SQLOutbox) List(ctx context.Context) ([]Result, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, quiz_id, answers_json, score, passed, completed_at, time_taken, offline
		FROM pending_results
		ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Result{}
	for rows.Next() {
		var (
			r       Result
			answers string
			doneMs  int64
		)
		if err := rows.Scan(&r.ID, &r.QuizID, &answers, &r.Score, &r.Passed, &doneMs, &r.TimeTaken, &r.Offline); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
			return nil, fmt.Errorf("pending result %s answers: %w", r.ID, err)
		}
		r.CompletedAt = time.UnixMilli(doneMs).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLOutbox) Remove(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM pending_results WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLOutbox) Len(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_results`).Scan(&n)
	return n, err
}

func (s *SQLOutbox) Close() error { return s.DB.Close() }

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS pending_results (
  seq            BIGSERIAL PRIMARY KEY,
  id             TEXT NOT NULL UNIQUE,
  quiz_id        TEXT NOT NULL,
  answers_json   TEXT NOT NULL,
  score          INTEGER NOT NULL,
  passed         BOOLEAN NOT NULL,
  completed_at   BIGINT NOT NULL, -- unix millis
  time_taken     INTEGER NOT NULL,
  offline        BOOLEAN NOT NULL DEFAULT FALSE,
  queued_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS pending_results (
  seq            INTEGER PRIMARY KEY AUTOINCREMENT,
  id             TEXT NOT NULL UNIQUE,
  quiz_id        TEXT NOT NULL,
  answers_json   TEXT NOT NULL,
  score          INTEGER NOT NULL,
  passed         INTEGER NOT NULL,
  completed_at   INTEGER NOT NULL, -- unix millis
  time_taken     INTEGER NOT NULL,
  offline        INTEGER NOT NULL DEFAULT 0,
  queued_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
