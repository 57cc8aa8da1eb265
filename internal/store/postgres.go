package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/waldjos/zoriapp/internal/model"
)

// PostgresStore implements ScheduleStore and SendLog on a postgres database
// (pgx stdlib driver). The schedule is replaced inside one transaction so
// readers never observe a half-written generation; the send log is insert
// only.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the two tables when they do not exist yet. One
// statement per Exec; the pgx driver rejects multi-statement commands.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schedule_entries (
			position       INT PRIMARY KEY,
			entry_id       TEXT NOT NULL,
			full_name      TEXT NOT NULL,
			phone          TEXT NOT NULL,
			scheduled_date TEXT NOT NULL,
			send_date      TEXT NOT NULL,
			content        TEXT NOT NULL
		)
	`); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS send_log (
			id         TEXT PRIMARY KEY,
			sent_date  TEXT NOT NULL,
			ok         BOOLEAN NOT NULL,
			via        TEXT NOT NULL,
			status     INT NOT NULL,
			body       TEXT NOT NULL,
			item_count INT NOT NULL,
			auto       BOOLEAN NOT NULL DEFAULT FALSE,
			entry_type TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

func (s *PostgresStore) Replace(ctx context.Context, entries []model.ScheduleEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_entries`); err != nil {
		return err
	}

	for i, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO schedule_entries (position, entry_id, full_name, phone, scheduled_date, send_date, content)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, i, e.ID, e.FullName, e.Phone, e.ScheduledDate, e.SendDate, e.Text); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) Load(ctx context.Context) ([]model.ScheduleEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, full_name, phone, scheduled_date, send_date, content
		FROM schedule_entries
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ScheduleEntry
	for rows.Next() {
		var e model.ScheduleEntry
		if err := rows.Scan(&e.ID, &e.FullName, &e.Phone, &e.ScheduledDate, &e.SendDate, &e.Text); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Append(ctx context.Context, entry model.SendLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO send_log (id, sent_date, ok, via, status, body, item_count, auto, entry_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		entry.ID,
		entry.Date,
		entry.Result.OK,
		entry.Result.Via,
		entry.Result.Status,
		entry.Result.Body,
		entry.Count,
		entry.Auto,
		entry.Type,
		time.Now().UTC(),
	)
	return err
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]model.SendLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sent_date, ok, via, status, body, item_count, auto, entry_type
		FROM send_log
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SendLogEntry
	for rows.Next() {
		var e model.SendLogEntry
		if err := rows.Scan(
			&e.ID,
			&e.Date,
			&e.Result.OK,
			&e.Result.Via,
			&e.Result.Status,
			&e.Result.Body,
			&e.Count,
			&e.Auto,
			&e.Type,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
