// Package storage is the SQLite-backed implementation of the ledger ports.
// Dates are stored as naive YYYY-MM-DD strings and amounts as integer cents.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"scadenze/internal/core"
	"scadenze/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ ledger.ObligationPersistence = (*SQLiteRepository)(nil)
	_ ledger.Store                 = (*SQLiteRepository)(nil)
)

var ErrNoRecord = errors.New("record not found")

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CreateObligation(ctx context.Context, o core.Obligation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO obligations (
			id, name, type, category, amount, description, frequency,
			start_date, end_date, next_execution, is_active, last_executed,
			execution_count, reminder_days
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Name, string(o.Kind), o.Category, o.Amount.Cents, o.Description,
		string(o.Frequency), o.StartDate.String(), nullableDate(o.EndDate),
		o.NextOccurrence.String(), boolToInt(o.IsActive), nullableDate(o.LastExecuted),
		o.ExecutionCount, o.ReminderLeadDays)
	if err != nil {
		return fmt.Errorf("insert obligation: %w", err)
	}

	slog.InfoContext(ctx, "Obligation saved to SQLite",
		"id", o.ID,
		"name", o.Name,
		"amount_cents", o.Amount.Cents)
	return nil
}

func (r *SQLiteRepository) UpdateObligation(ctx context.Context, o core.Obligation) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE obligations SET
			name = ?, type = ?, category = ?, amount = ?, description = ?,
			frequency = ?, start_date = ?, end_date = ?, next_execution = ?,
			is_active = ?, last_executed = ?, execution_count = ?,
			reminder_days = ?, updated_at = datetime('now')
		WHERE id = ?`,
		o.Name, string(o.Kind), o.Category, o.Amount.Cents, o.Description,
		string(o.Frequency), o.StartDate.String(), nullableDate(o.EndDate),
		o.NextOccurrence.String(), boolToInt(o.IsActive), nullableDate(o.LastExecuted),
		o.ExecutionCount, o.ReminderLeadDays, o.ID)
	if err != nil {
		return fmt.Errorf("update obligation: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteObligation(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM obligations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete obligation: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) ToggleObligation(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE obligations SET is_active = ?, updated_at = datetime('now')
		WHERE id = ?`,
		boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("toggle obligation: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) ListObligations(ctx context.Context) ([]core.Obligation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, type, category, amount, description, frequency,
			start_date, end_date, next_execution, is_active, last_executed,
			execution_count, reminder_days
		FROM obligations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	defer rows.Close()

	var out []core.Obligation
	for rows.Next() {
		var (
			o            core.Obligation
			kind, freq   string
			start, next  string
			end, last    sql.NullString
			active       int
		)
		if err := rows.Scan(&o.ID, &o.Name, &kind, &o.Category, &o.Amount.Cents,
			&o.Description, &freq, &start, &end, &next, &active, &last,
			&o.ExecutionCount, &o.ReminderLeadDays); err != nil {
			return nil, fmt.Errorf("scan obligation: %w", err)
		}
		o.Kind = core.Kind(kind)
		o.Frequency = core.Frequency(freq)
		o.IsActive = active != 0
		if o.StartDate, err = parseStoredDate(start); err != nil {
			return nil, fmt.Errorf("obligation %d start date: %w", o.ID, err)
		}
		if o.NextOccurrence, err = parseStoredDate(next); err != nil {
			return nil, fmt.Errorf("obligation %d next execution: %w", o.ID, err)
		}
		if end.Valid {
			if o.EndDate, err = parseStoredDate(end.String); err != nil {
				return nil, fmt.Errorf("obligation %d end date: %w", o.ID, err)
			}
		}
		if last.Valid {
			if o.LastExecuted, err = parseStoredDate(last.String); err != nil {
				return nil, fmt.Errorf("obligation %d last executed: %w", o.ID, err)
			}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreatePosting(ctx context.Context, p ledger.Posting) (string, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO postings (type, category, amount, note, posted_on)
		VALUES (?, ?, ?, ?, ?)`,
		string(p.Kind), p.Category, p.Amount.Cents, p.Note, p.Date.String())
	if err != nil {
		return "", fmt.Errorf("insert posting: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("posting id: %w", err)
	}

	slog.InfoContext(ctx, "Posting saved to SQLite",
		"posting_id", id,
		"amount_cents", p.Amount.Cents,
		"note", p.Note)
	return strconv.FormatInt(id, 10), nil
}

func (r *SQLiteRepository) DeletePosting(ctx context.Context, postingID string) error {
	id, err := strconv.ParseInt(postingID, 10, 64)
	if err != nil {
		return fmt.Errorf("parse posting id %q: %w", postingID, err)
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM postings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete posting: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) ListPostings(ctx context.Context) ([]ledger.Posting, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, category, amount, note, posted_on
		FROM postings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}
	defer rows.Close()

	var out []ledger.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPosting loads a single posting for the sync worker.
func (r *SQLiteRepository) GetPosting(ctx context.Context, postingID string) (ledger.Posting, error) {
	id, err := strconv.ParseInt(postingID, 10, 64)
	if err != nil {
		return ledger.Posting{}, fmt.Errorf("parse posting id %q: %w", postingID, err)
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT id, type, category, amount, note, posted_on
		FROM postings WHERE id = ?`, id)
	p, err := scanPosting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Posting{}, ErrNoRecord
	}
	return p, err
}

// PendingSyncPostings returns posting ids that have not been mirrored to the
// external sheet yet. Backup path for lost queue messages.
func (r *SQLiteRepository) PendingSyncPostings(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM postings
		WHERE synced = 0 AND sync_error = 0
		ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending sync postings: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending posting: %w", err)
		}
		out = append(out, strconv.FormatInt(id, 10))
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkPostingSynced(ctx context.Context, postingID string) error {
	return r.setSyncFlag(ctx, postingID, "synced")
}

func (r *SQLiteRepository) MarkPostingSyncError(ctx context.Context, postingID string) error {
	slog.WarnContext(ctx, "Posting marked with sync error", "posting_id", postingID)
	return r.setSyncFlag(ctx, postingID, "sync_error")
}

func (r *SQLiteRepository) setSyncFlag(ctx context.Context, postingID, column string) error {
	id, err := strconv.ParseInt(postingID, 10, 64)
	if err != nil {
		return fmt.Errorf("parse posting id %q: %w", postingID, err)
	}
	// column is one of two fixed names, never user input
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE postings SET %s = 1 WHERE id = ?`, column), id)
	if err != nil {
		return fmt.Errorf("mark posting %s: %w", column, err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosting(row rowScanner) (ledger.Posting, error) {
	var (
		p        ledger.Posting
		id       int64
		kind     string
		postedOn string
	)
	if err := row.Scan(&id, &kind, &p.Category, &p.Amount.Cents, &p.Note, &postedOn); err != nil {
		return ledger.Posting{}, err
	}
	p.ID = strconv.FormatInt(id, 10)
	p.Kind = core.Kind(kind)
	var err error
	if p.Date, err = parseStoredDate(postedOn); err != nil {
		return ledger.Posting{}, fmt.Errorf("posting %s date: %w", p.ID, err)
	}
	return p, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNoRecord
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func parseStoredDate(s string) (core.Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return core.Date{}, err
	}
	return core.DateOf(t), nil
}
