package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anvilide/core/errors"
)

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and runs the
// schema migration.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "open history db")
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "set WAL mode")
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "migrate history db")
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS commands (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			command     TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			tags        TEXT NOT NULL DEFAULT '[]',
			favorite    INTEGER NOT NULL DEFAULT 0,
			use_count   INTEGER NOT NULL DEFAULT 0,
			last_used   TEXT NOT NULL,
			created_at  TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_commands_last_used ON commands(last_used DESC);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(ctx context.Context, command string) (*Entry, error) {
	if command == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty command")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commands (command, use_count, last_used, created_at)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(command) DO UPDATE SET
			use_count = use_count + 1,
			last_used = excluded.last_used
	`, command, now, now)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "append history entry")
	}
	return s.byCommand(ctx, command)
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, selectCols+" ORDER BY last_used DESC LIMIT ?", limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "query history")
	}
	return scanEntries(rows)
}

func (s *SQLiteStore) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	like := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		selectCols+" WHERE command LIKE ? OR description LIKE ? ORDER BY last_used DESC LIMIT ?",
		like, like, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "search history")
	}
	return scanEntries(rows)
}

func (s *SQLiteStore) Bookmark(ctx context.Context, command, description string, tags []string) (*Entry, error) {
	if command == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty command")
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "marshal tags")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO commands (command, description, tags, favorite, use_count, last_used, created_at)
		VALUES (?, ?, ?, 1, 0, ?, ?)
		ON CONFLICT(command) DO UPDATE SET
			description = excluded.description,
			tags = excluded.tags,
			favorite = 1
	`, command, description, string(tagsJSON), now, now)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "bookmark command")
	}
	return s.byCommand(ctx, command)
}

func (s *SQLiteStore) Unbookmark(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE commands SET favorite = 0 WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreUnavailable, "unbookmark command")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no such history entry")
	}
	return nil
}

func (s *SQLiteStore) Bookmarks(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectCols+" WHERE favorite = 1 ORDER BY last_used DESC")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "query bookmarks")
	}
	return scanEntries(rows)
}

func (s *SQLiteStore) IncrementUse(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		"UPDATE commands SET use_count = use_count + 1, last_used = ? WHERE id = ?", now, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreUnavailable, "increment use count")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no such history entry")
	}
	return nil
}

const selectCols = "SELECT id, command, description, tags, favorite, use_count, last_used, created_at FROM commands"

func (s *SQLiteStore) byCommand(ctx context.Context, command string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, selectCols+" WHERE command = ?", command)
	e, err := scanEntry(row)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "read history entry")
	}
	return e, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (*Entry, error) {
	var e Entry
	var tagsJSON, lastUsed, createdAt string
	var favorite int
	if err := r.Scan(&e.ID, &e.Command, &e.Description, &tagsJSON, &favorite, &e.UseCount, &lastUsed, &createdAt); err != nil {
		return nil, err
	}
	e.Favorite = favorite != 0
	_ = json.Unmarshal([]byte(tagsJSON), &e.Tags)
	e.LastUsed, _ = time.Parse(time.RFC3339Nano, lastUsed)
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "scan history entry")
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
