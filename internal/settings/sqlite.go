package settings

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	logx "coinbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// SQLStore is the sqlite-backed Store.
type SQLStore struct {
	db  *sql.DB
	log logx.Logger
	opt Options
}

func Open(opt Options, log logx.Logger) (*SQLStore, error) {
	if strings.TrimSpace(opt.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if dir := filepath.Dir(opt.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", opt.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if opt.BusyTimeout > 0 {
		ms := opt.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA foreign_keys = ON")

	st := &SQLStore{db: db, log: log, opt: opt}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) EnsureRecipient(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("ensure recipient", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO recipients(id) VALUES(?)`, id)
	if err != nil {
		return storageErr("ensure recipient", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Already known; defaults were seeded on first creation.
		return nil
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO recipient_settings(recipient_id, result_count) VALUES(?,?)`,
		id, s.opt.defaultResultCount(),
	); err != nil {
		return storageErr("ensure recipient", err)
	}

	hours := s.opt.defaultHours()
	query, args := scheduleInsert(id, hours)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return storageErr("ensure recipient", err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("ensure recipient", err)
	}
	s.log.Debug("recipient created", logx.Int64("recipient", id), logx.Int("default_hours", len(hours)))
	return nil
}

func (s *SQLStore) ResultCount(ctx context.Context, id int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT result_count FROM recipient_settings WHERE recipient_id = ?`, id,
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, storageErr("result count", err)
	}
	return n, nil
}

func (s *SQLStore) SetResultCount(ctx context.Context, id int64, n int) error {
	if n < 1 || n > 100 {
		return validationf("result count must be between 1 and 100, got %d", n)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE recipient_settings SET result_count = ? WHERE recipient_id = ?`, n, id,
	)
	if err != nil {
		return storageErr("set result count", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Schedule(ctx context.Context, id int64) ([]int, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM recipients WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("schedule", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT hour FROM schedule WHERE recipient_id = ? ORDER BY hour ASC`, id,
	)
	if err != nil {
		return nil, storageErr("schedule", err)
	}
	defer rows.Close()

	var hours []int
	for rows.Next() {
		var h int
		if err := rows.Scan(&h); err != nil {
			return nil, storageErr("schedule", err)
		}
		hours = append(hours, h)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("schedule", err)
	}
	return hours, nil
}

func (s *SQLStore) ReplaceSchedule(ctx context.Context, id int64, hours []int) error {
	if len(hours) == 0 {
		return validationf("schedule must contain at least one hour between 0 and 23")
	}
	// Reject the whole set on any out-of-range hour; silently dropping bad
	// elements would store a schedule the caller did not ask for.
	for _, h := range hours {
		if h < 0 || h > 23 {
			return validationf("hour %d is outside the range 0 to 23", h)
		}
	}
	hours = dedupeHours(hours)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("replace schedule", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM recipients WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return storageErr("replace schedule", err)
	}

	// Clear-then-insert inside one transaction keeps the replace atomic.
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule WHERE recipient_id = ?`, id); err != nil {
		return storageErr("replace schedule", err)
	}
	query, args := scheduleInsert(id, hours)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return storageErr("replace schedule", err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("replace schedule", err)
	}
	return nil
}

func (s *SQLStore) ListDue(ctx context.Context, hour int) ([]DueRecipient, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sc.recipient_id, st.result_count
		   FROM schedule sc
		   JOIN recipient_settings st ON st.recipient_id = sc.recipient_id
		  WHERE sc.hour = ?`, hour,
	)
	if err != nil {
		return nil, storageErr("list due", err)
	}
	defer rows.Close()

	var due []DueRecipient
	for rows.Next() {
		var d DueRecipient
		if err := rows.Scan(&d.ID, &d.ResultCount); err != nil {
			return nil, storageErr("list due", err)
		}
		due = append(due, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list due", err)
	}
	return due, nil
}

// scheduleInsert builds a single parameterized multi-row insert for hours.
func scheduleInsert(id int64, hours []int) (string, []any) {
	var b strings.Builder
	b.WriteString(`INSERT INTO schedule(recipient_id, hour) VALUES `)
	args := make([]any, 0, len(hours)*2)
	for i, h := range hours {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?,?)")
		args = append(args, id, h)
	}
	return b.String(), args
}
