package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yomite/threadsnap/internal/model"
)

// setupTestStore creates a temporary archive for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tmpDir := t.TempDir()

	store, err := Open(tmpDir, DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}

	cleanup := func() {
		_ = store.Close()
	}

	return store, cleanup
}

// testPages builds a walk of pageCount pages with two posts each.
func testPages(threadID string, pageCount int) []*model.ThreadPage {
	pages := make([]*model.ThreadPage, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		pages = append(pages, &model.ThreadPage{
			ThreadID: threadID,
			Page:     i,
			Title:    "新人报到帖",
			Posts: []model.Post{
				{
					ID:       fmt.Sprintf("%d01", i),
					Floor:    (i-1)*2 + 1,
					Author:   "alice",
					PostedAt: "2024-03-01 12:30:45",
					Content:  fmt.Sprintf("<p>page %d, first post</p>", i),
				},
				{
					ID:      fmt.Sprintf("%d02", i),
					Floor:   (i-1)*2 + 2,
					Author:  "bob",
					Content: fmt.Sprintf("<p>page %d, second post</p>", i),
				},
			},
			HasNext: i < pageCount,
		})
	}
	return pages
}

// TestOpen tests archive opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()

		dbDir := filepath.Join(tmpDir, "newdir", "subdir")
		store, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open archive: %v", err)
		}
		defer store.Close()

		dbPath := filepath.Join(dbDir, "threadsnap.db")
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if store.Path() != dbPath {
			t.Errorf("expected path %q, got %q", dbPath, store.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		dbDir := filepath.Join(tmpDir, "nonexistent-db")

		opts := Options{
			CreateIfNotExists: false,
			EnableWAL:         true,
		}

		_, err := Open(dbDir, opts)
		if err == nil {
			t.Fatal("expected error when CreateIfNotExists=false and database does not exist")
		}
		if !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected error to mention missing database, got %q", err.Error())
		}

		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created when CreateIfNotExists=false")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		dbDir := filepath.Join(tmpDir, "existing-db")
		ctx := context.Background()

		store1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create archive: %v", err)
		}
		if err := store1.SaveThread(ctx, testPages("1843321", 1)); err != nil {
			t.Fatalf("failed to save thread: %v", err)
		}
		store1.Close()

		opts := Options{
			CreateIfNotExists: false,
			EnableWAL:         true,
		}
		store2, err := Open(dbDir, opts)
		if err != nil {
			t.Fatalf("failed to open existing archive: %v", err)
		}
		defer store2.Close()

		pages, err := store2.GetThread(ctx, "1843321")
		if err != nil {
			t.Fatalf("failed to load thread: %v", err)
		}
		if len(pages) != 1 {
			t.Errorf("expected 1 page to persist across reopen, got %d", len(pages))
		}
	})
}

// TestDefaultOptions tests the default options values.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()

	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true by default")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true by default")
	}
}

// TestSaveAndGetThread tests snapshot round-trips.
func TestSaveAndGetThread(t *testing.T) {
	t.Parallel()

	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("save and retrieve a thread", func(t *testing.T) {
		saved := testPages("1843321", 2)
		if err := store.SaveThread(ctx, saved); err != nil {
			t.Fatalf("failed to save thread: %v", err)
		}

		pages, err := store.GetThread(ctx, "1843321")
		if err != nil {
			t.Fatalf("failed to load thread: %v", err)
		}
		if len(pages) != 2 {
			t.Fatalf("expected 2 pages, got %d", len(pages))
		}

		for i, page := range pages {
			if page.Page != i+1 {
				t.Errorf("expected page %d at position %d, got %d", i+1, i, page.Page)
			}
		}
		if pages[0].Title != "新人报到帖" {
			t.Errorf("expected title to round-trip, got %q", pages[0].Title)
		}
		if len(pages[1].Posts) != 2 {
			t.Fatalf("expected 2 posts on page 2, got %d", len(pages[1].Posts))
		}
		if pages[1].Posts[0].Author != "alice" {
			t.Errorf("expected author 'alice', got %q", pages[1].Posts[0].Author)
		}
		if pages[1].Posts[0].Content != "<p>page 2, first post</p>" {
			t.Errorf("content mismatch: %q", pages[1].Posts[0].Content)
		}
		if pages[0].HasNext != true || pages[1].HasNext != false {
			t.Error("expected HasNext to round-trip per page")
		}
	})

	t.Run("replaces previous snapshot", func(t *testing.T) {
		if err := store.SaveThread(ctx, testPages("777", 3)); err != nil {
			t.Fatalf("failed to save first snapshot: %v", err)
		}
		if err := store.SaveThread(ctx, testPages("777", 2)); err != nil {
			t.Fatalf("failed to save second snapshot: %v", err)
		}

		pages, err := store.GetThread(ctx, "777")
		if err != nil {
			t.Fatalf("failed to load thread: %v", err)
		}
		if len(pages) != 2 {
			t.Errorf("expected stale third page to be dropped, got %d pages", len(pages))
		}
	})

	t.Run("returns nil for unknown thread", func(t *testing.T) {
		pages, err := store.GetThread(ctx, "no-such-thread")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pages != nil {
			t.Errorf("expected nil for unknown thread, got %d pages", len(pages))
		}
	})

	t.Run("rejects empty snapshot", func(t *testing.T) {
		if err := store.SaveThread(ctx, nil); err == nil {
			t.Error("expected error when saving an empty snapshot")
		}
	})
}

// TestListThreads tests the saved-thread listing.
func TestListThreads(t *testing.T) {
	t.Parallel()

	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	if err := store.SaveThread(ctx, testPages("100", 2)); err != nil {
		t.Fatalf("failed to save thread: %v", err)
	}
	if err := store.SaveThread(ctx, testPages("200", 3)); err != nil {
		t.Fatalf("failed to save thread: %v", err)
	}

	threads, err := store.ListThreads(ctx)
	if err != nil {
		t.Fatalf("failed to list threads: %v", err)
	}
	if len(threads) != 2 {
		t.Fatalf("expected 2 threads, got %d", len(threads))
	}

	byID := make(map[string]ThreadMetadata, len(threads))
	for _, meta := range threads {
		byID[meta.ThreadID] = meta
	}

	first, ok := byID["100"]
	if !ok {
		t.Fatal("expected thread 100 in listing")
	}
	if first.PageCount != 2 {
		t.Errorf("expected 2 pages for thread 100, got %d", first.PageCount)
	}
	if first.PostCount != 4 {
		t.Errorf("expected 4 posts for thread 100, got %d", first.PostCount)
	}
	if first.Title != "新人报到帖" {
		t.Errorf("expected title in metadata, got %q", first.Title)
	}
	if first.SavedAt.IsZero() {
		t.Error("expected SavedAt to be set")
	}

	second, ok := byID["200"]
	if !ok {
		t.Fatal("expected thread 200 in listing")
	}
	if second.PageCount != 3 {
		t.Errorf("expected 3 pages for thread 200, got %d", second.PageCount)
	}
}

// TestHasRecentSnapshot tests the snapshot age check.
func TestHasRecentSnapshot(t *testing.T) {
	t.Parallel()

	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	if err := store.SaveThread(ctx, testPages("1843321", 1)); err != nil {
		t.Fatalf("failed to save thread: %v", err)
	}

	t.Run("returns true for recent save", func(t *testing.T) {
		recent, err := store.HasRecentSnapshot(ctx, "1843321", time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !recent {
			t.Error("expected true for a thread saved moments ago")
		}
	})

	t.Run("returns false for unknown thread", func(t *testing.T) {
		recent, err := store.HasRecentSnapshot(ctx, "nonexistent", time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if recent {
			t.Error("expected false for a thread never saved")
		}
	})
}

// TestDeleteThread tests snapshot removal.
func TestDeleteThread(t *testing.T) {
	t.Parallel()

	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	if err := store.SaveThread(ctx, testPages("1843321", 2)); err != nil {
		t.Fatalf("failed to save thread: %v", err)
	}

	if err := store.DeleteThread(ctx, "1843321"); err != nil {
		t.Fatalf("failed to delete thread: %v", err)
	}

	pages, err := store.GetThread(ctx, "1843321")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pages != nil {
		t.Errorf("expected no pages after deletion, got %d", len(pages))
	}

	threads, err := store.ListThreads(ctx)
	if err != nil {
		t.Fatalf("failed to list threads: %v", err)
	}
	if len(threads) != 0 {
		t.Errorf("expected empty listing after deletion, got %d threads", len(threads))
	}

	// Deleting a thread that was never saved is a no-op.
	if err := store.DeleteThread(ctx, "never-saved"); err != nil {
		t.Errorf("unexpected error deleting unknown thread: %v", err)
	}
}

// TestParseTimestamp tests SQLite timestamp parsing.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		want  time.Time
	}{
		{
			name:  "sqlite default format",
			value: "2024-03-01 12:30:45",
			want:  time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC),
		},
		{
			name:  "rfc3339",
			value: "2024-03-01T12:30:45Z",
			want:  time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC),
		},
		{
			name:  "unparseable value",
			value: "not-a-timestamp",
			want:  time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := parseTimestamp(tt.value)
			if !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
