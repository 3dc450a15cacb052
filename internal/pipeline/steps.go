package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/yomite/threadsnap/internal/model"
	"github.com/yomite/threadsnap/internal/render"
)

// ThreadLoader walks a thread page by page. Implemented by
// repo.Repository.
type ThreadLoader interface {
	LoadThread(ctx context.Context, threadID string, first int) ([]*model.ThreadPage, error)
}

// SnapshotSaver persists a full thread walk. Implemented by
// archive.Store.
type SnapshotSaver interface {
	SaveThread(ctx context.Context, pages []*model.ThreadPage) error
}

// LoadStep walks the thread over the network and puts the pages on
// the job. A partial walk stays on the job even when the step fails,
// so later inspection can see what was fetched.
type LoadStep struct {
	loader ThreadLoader
	logger *slog.Logger
}

// LoadStepOption configures a LoadStep.
type LoadStepOption func(*LoadStep)

// WithLoadLogger sets a custom logger for the load step.
func WithLoadLogger(logger *slog.Logger) LoadStepOption {
	return func(s *LoadStep) {
		s.logger = logger
	}
}

// NewLoadStep creates a step that loads thread pages through loader.
func NewLoadStep(loader ThreadLoader, opts ...LoadStepOption) *LoadStep {
	s := &LoadStep{
		loader: loader,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *LoadStep) Name() string {
	return "load_thread"
}

// Do executes the load step.
func (s *LoadStep) Do(ctx context.Context, job *Job) error {
	pages, err := s.loader.LoadThread(ctx, job.ThreadID, 1)
	job.Pages = pages
	if err != nil {
		return fmt.Errorf("failed to load thread %s: %w", job.ThreadID, err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("thread %s: no pages loaded", job.ThreadID)
	}

	s.logger.Debug("thread loaded",
		"thread", job.ThreadID,
		"pages", job.PageCount(),
		"posts", job.PostCount(),
	)
	return nil
}

// ArchiveStep saves the job's pages into the snapshot store.
type ArchiveStep struct {
	store  SnapshotSaver
	logger *slog.Logger
}

// ArchiveStepOption configures an ArchiveStep.
type ArchiveStepOption func(*ArchiveStep)

// WithArchiveLogger sets a custom logger for the archive step.
func WithArchiveLogger(logger *slog.Logger) ArchiveStepOption {
	return func(s *ArchiveStep) {
		s.logger = logger
	}
}

// NewArchiveStep creates a step that persists loaded pages in store.
func NewArchiveStep(store SnapshotSaver, opts ...ArchiveStepOption) *ArchiveStep {
	s := &ArchiveStep{
		store:  store,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ArchiveStep) Name() string {
	return "archive"
}

// Do executes the archive step.
func (s *ArchiveStep) Do(ctx context.Context, job *Job) error {
	if len(job.Pages) == 0 {
		return fmt.Errorf("thread %s: nothing to archive", job.ThreadID)
	}

	if err := s.store.SaveThread(ctx, job.Pages); err != nil {
		return fmt.Errorf("failed to archive thread %s: %w", job.ThreadID, err)
	}

	s.logger.Debug("thread archived",
		"thread", job.ThreadID,
		"pages", job.PageCount(),
	)
	return nil
}

// ExportStep renders the job's pages into a Markdown file named
// thread-<id>.md inside the configured directory.
type ExportStep struct {
	dir    string
	logger *slog.Logger
}

// ExportStepOption configures an ExportStep.
type ExportStepOption func(*ExportStep)

// WithExportLogger sets a custom logger for the export step.
func WithExportLogger(logger *slog.Logger) ExportStepOption {
	return func(s *ExportStep) {
		s.logger = logger
	}
}

// NewExportStep creates a step that writes Markdown exports into dir.
// The directory is created on first use.
func NewExportStep(dir string, opts ...ExportStepOption) *ExportStep {
	s := &ExportStep{
		dir:    dir,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ExportStep) Name() string {
	return "export_markdown"
}

// Do executes the export step.
func (s *ExportStep) Do(_ context.Context, job *Job) error {
	if len(job.Pages) == 0 {
		return fmt.Errorf("thread %s: nothing to export", job.ThreadID)
	}

	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(s.dir, "thread-"+job.ThreadID+".md")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	if _, err := render.NewMarkdownWriter(f).WriteThread(job.Pages); err != nil {
		f.Close()
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}

	job.ExportPath = path
	s.logger.Debug("thread exported",
		"thread", job.ThreadID,
		"path", path,
	)
	return nil
}
