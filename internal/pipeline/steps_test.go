package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yomite/threadsnap/internal/model"
)

// snapshotPages builds a walk of pageCount pages with two posts each.
func snapshotPages(threadID string, pageCount int) []*model.ThreadPage {
	pages := make([]*model.ThreadPage, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		pages = append(pages, &model.ThreadPage{
			ThreadID: threadID,
			Page:     i,
			Title:    "新人报到帖",
			Posts: []model.Post{
				{Floor: (i-1)*2 + 1, Author: "alice", Content: fmt.Sprintf("<p>page %d, first</p>", i)},
				{Floor: (i-1)*2 + 2, Author: "bob", Content: fmt.Sprintf("<p>page %d, second</p>", i)},
			},
			HasNext: i < pageCount,
		})
	}
	return pages
}

// fakeLoader implements ThreadLoader.
type fakeLoader struct {
	pages []*model.ThreadPage
	err   error

	threadID string
	first    int
}

func (f *fakeLoader) LoadThread(_ context.Context, threadID string, first int) ([]*model.ThreadPage, error) {
	f.threadID = threadID
	f.first = first
	return f.pages, f.err
}

// fakeSaver implements SnapshotSaver.
type fakeSaver struct {
	err   error
	saved [][]*model.ThreadPage
}

func (f *fakeSaver) SaveThread(_ context.Context, pages []*model.ThreadPage) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, pages)
	return nil
}

// TestStepNames tests the step name constants used in logs.
func TestStepNames(t *testing.T) {
	t.Parallel()

	if name := NewLoadStep(&fakeLoader{}).Name(); name != "load_thread" {
		t.Errorf("expected load_thread, got %q", name)
	}
	if name := NewArchiveStep(&fakeSaver{}).Name(); name != "archive" {
		t.Errorf("expected archive, got %q", name)
	}
	if name := NewExportStep(t.TempDir()).Name(); name != "export_markdown" {
		t.Errorf("expected export_markdown, got %q", name)
	}
}

// TestLoadStepDo tests the network load step.
func TestLoadStepDo(t *testing.T) {
	t.Parallel()

	t.Run("puts loaded pages on the job", func(t *testing.T) {
		t.Parallel()

		loader := &fakeLoader{pages: snapshotPages("1843321", 2)}
		step := NewLoadStep(loader)

		job := NewJob("1843321")
		if err := step.Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if job.PageCount() != 2 {
			t.Errorf("expected 2 pages on job, got %d", job.PageCount())
		}
		if loader.threadID != "1843321" {
			t.Errorf("expected loader called with thread 1843321, got %q", loader.threadID)
		}
		if loader.first != 1 {
			t.Errorf("expected walk to start at page 1, got %d", loader.first)
		}
	})

	t.Run("keeps partial pages when the walk fails", func(t *testing.T) {
		t.Parallel()

		loadErr := errors.New("page 2 unreachable")
		loader := &fakeLoader{pages: snapshotPages("1843321", 1), err: loadErr}
		step := NewLoadStep(loader)

		job := NewJob("1843321")
		err := step.Do(context.Background(), job)

		if !errors.Is(err, loadErr) {
			t.Errorf("expected wrapped load error, got %v", err)
		}
		if job.PageCount() != 1 {
			t.Errorf("expected partial page to stay on job, got %d pages", job.PageCount())
		}
	})

	t.Run("fails when nothing was loaded", func(t *testing.T) {
		t.Parallel()

		step := NewLoadStep(&fakeLoader{})

		if err := step.Do(context.Background(), NewJob("1843321")); err == nil {
			t.Error("expected error when no pages were loaded")
		}
	})
}

// TestArchiveStepDo tests the snapshot persistence step.
func TestArchiveStepDo(t *testing.T) {
	t.Parallel()

	t.Run("saves the job's pages", func(t *testing.T) {
		t.Parallel()

		saver := &fakeSaver{}
		step := NewArchiveStep(saver)

		job := NewJob("1843321")
		job.Pages = snapshotPages("1843321", 2)

		if err := step.Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(saver.saved) != 1 {
			t.Fatalf("expected 1 save call, got %d", len(saver.saved))
		}
		if len(saver.saved[0]) != 2 {
			t.Errorf("expected 2 pages saved, got %d", len(saver.saved[0]))
		}
	})

	t.Run("fails on empty job without touching the store", func(t *testing.T) {
		t.Parallel()

		saver := &fakeSaver{}
		step := NewArchiveStep(saver)

		if err := step.Do(context.Background(), NewJob("1843321")); err == nil {
			t.Error("expected error for empty job")
		}
		if len(saver.saved) != 0 {
			t.Errorf("expected no save calls, got %d", len(saver.saved))
		}
	})

	t.Run("wraps store failures", func(t *testing.T) {
		t.Parallel()

		saveErr := errors.New("disk full")
		step := NewArchiveStep(&fakeSaver{err: saveErr})

		job := NewJob("1843321")
		job.Pages = snapshotPages("1843321", 1)

		if err := step.Do(context.Background(), job); !errors.Is(err, saveErr) {
			t.Errorf("expected wrapped save error, got %v", err)
		}
	})
}

// TestExportStepDo tests the markdown export step.
func TestExportStepDo(t *testing.T) {
	t.Parallel()

	t.Run("writes a markdown file and records its path", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "exports", "md")
		step := NewExportStep(dir)

		job := NewJob("1843321")
		job.Pages = snapshotPages("1843321", 2)

		if err := step.Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantPath := filepath.Join(dir, "thread-1843321.md")
		if job.ExportPath != wantPath {
			t.Errorf("expected export path %q, got %q", wantPath, job.ExportPath)
		}

		content, err := os.ReadFile(wantPath)
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}
		if !strings.Contains(string(content), "# 新人报到帖") {
			t.Error("expected export to contain the thread title heading")
		}
		if !strings.Contains(string(content), "## Page 2") {
			t.Error("expected export to contain the second page section")
		}
	})

	t.Run("fails on empty job", func(t *testing.T) {
		t.Parallel()

		step := NewExportStep(t.TempDir())

		if err := step.Do(context.Background(), NewJob("1843321")); err == nil {
			t.Error("expected error for empty job")
		}
	})
}
