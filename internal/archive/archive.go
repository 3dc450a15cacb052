package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/yomite/threadsnap/internal/model"
)

// dbFileName is the SQLite database file created inside the archive
// directory.
const dbFileName = "threadsnap.db"

// Options configures how the archive database is opened.
type Options struct {
	// CreateIfNotExists creates the database file and its parent
	// directory when they do not exist yet. When false, opening a
	// missing database fails.
	CreateIfNotExists bool

	// EnableWAL switches the database to write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the CLI: create the
// database on first use and enable WAL.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Store is a handle to the snapshot archive. It is safe for
// concurrent use; the underlying pool is capped at a single
// connection because SQLite serializes writers anyway.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens the archive database inside dbDir.
func Open(dbDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); err != nil {
			return nil, fmt.Errorf("archive database not found at %s: %w", dbPath, err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if opts.EnableWAL {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the location of the database file.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS threads (
		thread_id TEXT PRIMARY KEY,
		title TEXT,
		page_count INTEGER NOT NULL,
		post_count INTEGER NOT NULL,
		saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		thread_id TEXT NOT NULL,
		page INTEGER NOT NULL,
		page_json TEXT NOT NULL,
		saved_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(thread_id, page)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_thread_id ON pages(thread_id);
	CREATE INDEX IF NOT EXISTS idx_threads_saved_at ON threads(saved_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// SaveThread stores a full walk of a thread, replacing any snapshot
// saved earlier under the same thread ID. Pages are stored in the
// order given; the thread metadata row is derived from them.
func (s *Store) SaveThread(ctx context.Context, pages []*model.ThreadPage) error {
	if len(pages) == 0 {
		return fmt.Errorf("nothing to save: snapshot has no pages")
	}

	threadID := pages[0].ThreadID
	title := pages[0].Title
	postCount := 0
	for _, page := range pages {
		postCount += len(page.Posts)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO threads (thread_id, title, page_count, post_count, saved_at)
	VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(thread_id) DO UPDATE SET
		title = excluded.title,
		page_count = excluded.page_count,
		post_count = excluded.post_count,
		saved_at = CURRENT_TIMESTAMP
	`
	if _, err := tx.ExecContext(ctx, query, threadID, title, len(pages), postCount); err != nil {
		return fmt.Errorf("failed to save thread metadata: %w", err)
	}

	// Drop the previous walk entirely. A fresh walk may have fewer
	// pages than the stored one, and stale tail pages must not
	// survive the save.
	if _, err := tx.ExecContext(ctx, "DELETE FROM pages WHERE thread_id = ?", threadID); err != nil {
		return fmt.Errorf("failed to clear previous snapshot: %w", err)
	}

	insert := `
	INSERT INTO pages (thread_id, page, page_json, saved_at)
	VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	`
	for _, page := range pages {
		blob, err := json.Marshal(page)
		if err != nil {
			return fmt.Errorf("failed to marshal page %d: %w", page.Page, err)
		}
		if _, err := tx.ExecContext(ctx, insert, threadID, page.Page, string(blob)); err != nil {
			return fmt.Errorf("failed to save page %d: %w", page.Page, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// GetThread loads the stored snapshot of a thread, pages in ascending
// order. It returns nil without an error when the thread has never
// been saved.
func (s *Store) GetThread(ctx context.Context, threadID string) ([]*model.ThreadPage, error) {
	query := `
	SELECT page_json FROM pages
	WHERE thread_id = ?
	ORDER BY page ASC
	`

	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	var pages []*model.ThreadPage
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to scan page row: %w", err)
		}

		var page model.ThreadPage
		if err := json.Unmarshal([]byte(blob), &page); err != nil {
			// Skip rows that no longer parse rather than failing
			// the whole load.
			continue
		}
		pages = append(pages, &page)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate page rows: %w", err)
	}
	return pages, nil
}

// ThreadMetadata summarizes a saved thread without loading its pages.
type ThreadMetadata struct {
	ThreadID  string    `json:"thread_id"`
	Title     string    `json:"title,omitempty"`
	PageCount int       `json:"page_count"`
	PostCount int       `json:"post_count"`
	SavedAt   time.Time `json:"saved_at"`
}

// ListThreads returns metadata for every saved thread, most recently
// saved first.
func (s *Store) ListThreads(ctx context.Context) ([]ThreadMetadata, error) {
	query := `
	SELECT thread_id, title, page_count, post_count, saved_at
	FROM threads
	ORDER BY saved_at DESC, thread_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query threads: %w", err)
	}
	defer rows.Close()

	var threads []ThreadMetadata
	for rows.Next() {
		var meta ThreadMetadata
		var savedAt string
		if err := rows.Scan(&meta.ThreadID, &meta.Title, &meta.PageCount, &meta.PostCount, &savedAt); err != nil {
			return nil, fmt.Errorf("failed to scan thread row: %w", err)
		}
		meta.SavedAt = parseTimestamp(savedAt)
		threads = append(threads, meta)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate thread rows: %w", err)
	}
	return threads, nil
}

// HasRecentSnapshot reports whether the thread was saved within
// maxAge of now.
func (s *Store) HasRecentSnapshot(ctx context.Context, threadID string, maxAge time.Duration) (bool, error) {
	query := `
	SELECT COUNT(*) FROM threads
	WHERE thread_id = ? AND saved_at > datetime('now', ?)
	`

	modifier := fmt.Sprintf("-%d seconds", int(maxAge.Seconds()))

	var count int
	if err := s.db.QueryRowContext(ctx, query, threadID, modifier).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check snapshot age: %w", err)
	}
	return count > 0, nil
}

// DeleteThread removes a saved thread and its pages. Deleting a
// thread that was never saved is not an error.
func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM pages WHERE thread_id = ?", threadID); err != nil {
		return fmt.Errorf("failed to delete pages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM threads WHERE thread_id = ?", threadID); err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deletion: %w", err)
	}
	return nil
}

// timestampFormats lists the layouts SQLite may hand back for
// DATETIME columns, tried in order.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05Z",
}

// parseTimestamp parses a SQLite timestamp string, returning the zero
// time when no known layout matches.
func parseTimestamp(value string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
