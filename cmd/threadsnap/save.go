package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/yomite/threadsnap/internal/archive"
	"github.com/yomite/threadsnap/internal/config"
	"github.com/yomite/threadsnap/internal/pipeline"
)

// NewSaveCmd creates the save command.
func NewSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <thread-id>...",
		Short: "Snapshot whole threads into the local archive",
		Long: `Save walks every page of each thread and stores the result in a local
SQLite archive. Saving the same thread again replaces its previous
snapshot, so the archive always holds the latest complete walk.

Pages within one thread are fetched sequentially with a politeness
delay; multiple threads are snapshotted in parallel.

Examples:
  # Snapshot one thread
  threadsnap save 1843321 --origin https://bbs.example.com

  # Snapshot several threads, four at a time
  threadsnap save 1843321 1850022 1861479 -b 4

  # Snapshot and also write one Markdown file per thread
  threadsnap save 1843321 -e ./exports

  # Cap the walk at 10 pages per thread
  threadsnap save 1843321 -p 10`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSaveCmd,
	}

	addFetchFlags(cmd)
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages, "Maximum pages to walk per thread (0 = unbounded)")
	cmd.Flags().Duration("page-delay", config.DefaultPageDelay, "Politeness delay between page fetches")
	cmd.Flags().IntP("concurrency", "b", config.DefaultConcurrency, "Number of threads snapshotted in parallel")
	cmd.Flags().StringP("export-dir", "e", "", "Also write one Markdown file per thread into this directory")
	cmd.Flags().String("data-dir", "", "Directory holding the SQLite archive (default: XDG data directory)")

	return cmd
}

// runSaveCmd executes the save command.
func runSaveCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildSaveConfig(cmd, args)
	if err != nil {
		return fmt.Errorf("failed to build configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runSave(ctx, cfg, logger)
}

// runSave opens the archive and the network stack, then snapshots all
// targets either sequentially or in parallel.
func runSave(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting snapshot",
		"targets", cfg.Targets,
		"origin", cfg.Origin,
		"concurrency", cfg.Concurrency,
	)

	store, err := archive.Open(resolveDataDir(cfg.DataDir), archive.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close archive", "error", err)
		}
	}()
	logger.Info("archive opened", "path", store.Path())

	fetchClient, cleanup, err := newFetchClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	repository := newRepository(fetchClient, cfg, logger)

	factory := func() *pipeline.Pipeline {
		p := pipeline.New(pipeline.WithLogger(logger))
		p.AddStep(pipeline.NewLoadStep(repository, pipeline.WithLoadLogger(logger)))
		p.AddStep(pipeline.NewArchiveStep(store, pipeline.WithArchiveLogger(logger)))
		if cfg.ExportDir != "" {
			p.AddStep(pipeline.NewExportStep(cfg.ExportDir, pipeline.WithExportLogger(logger)))
		}
		return p
	}

	if len(cfg.Targets) > 1 && cfg.Concurrency > 1 {
		return runBatchSave(ctx, cfg, factory, logger)
	}
	return runSequentialSave(ctx, cfg, factory, logger)
}

// runBatchSave snapshots multiple threads in parallel with streaming
// progress output.
func runBatchSave(ctx context.Context, cfg *config.Config, factory func() *pipeline.Pipeline, logger *slog.Logger) error {
	fmt.Printf("Starting batch snapshot of %d threads (concurrency: %d)...\n\n",
		len(cfg.Targets), cfg.Concurrency)

	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
	)

	var mu sync.Mutex
	failed := 0
	err := bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(job *pipeline.Job, index int) {
		mu.Lock()
		defer mu.Unlock()

		if job.Err != nil {
			failed++
			fmt.Printf("[%d/%d] Failed to save thread %s: %v\n",
				index+1, len(cfg.Targets), job.ThreadID, job.Err)
			return
		}

		fmt.Printf("[%d/%d] Saved thread %s: %d page(s), %d post(s)\n",
			index+1, len(cfg.Targets), job.ThreadID, job.PageCount(), job.PostCount())
		if job.ExportPath != "" {
			fmt.Printf("        exported to %s\n", job.ExportPath)
		}
	})
	if err != nil {
		return fmt.Errorf("batch snapshot aborted: %w", err)
	}

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch snapshot completed in %s (%d saved, %d failed)\n",
		elapsed.Round(time.Millisecond), len(cfg.Targets)-failed, failed)

	if failed == len(cfg.Targets) {
		return fmt.Errorf("all %d threads failed to save", failed)
	}
	return nil
}

// runSequentialSave snapshots threads one at a time. A failed thread is
// reported and the walk moves on to the next target.
func runSequentialSave(ctx context.Context, cfg *config.Config, factory func() *pipeline.Pipeline, logger *slog.Logger) error {
	failed := 0
	for _, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job := pipeline.NewJob(target)

		fmt.Printf("Saving thread %s...\n", target)
		startTime := time.Now()

		if err := factory().Execute(ctx, job); err != nil {
			failed++
			logger.Error("snapshot failed", "threadID", target, "error", err)
			fmt.Fprintf(os.Stderr, "Failed to save thread %s: %v\n\n", target, err)
			continue
		}

		elapsed := time.Since(startTime)
		fmt.Printf("Saved %d page(s), %d post(s) in %s\n",
			job.PageCount(), job.PostCount(), elapsed.Round(time.Millisecond))
		if job.ExportPath != "" {
			fmt.Printf("Exported to %s\n", job.ExportPath)
		}
		fmt.Println()
	}

	if failed == len(cfg.Targets) {
		return fmt.Errorf("all %d threads failed to save", failed)
	}
	return nil
}

// buildSaveConfig builds the configuration for the save command from
// CLI flags and arguments.
func buildSaveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := fetchConfigFromFlags(cmd)
	if err != nil {
		return nil, err
	}

	cfg.Targets = args

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.PageDelay, err = cmd.Flags().GetDuration("page-delay")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.ExportDir, err = cmd.Flags().GetString("export-dir")
	if err != nil {
		return nil, err
	}

	cfg.DataDir, err = cmd.Flags().GetString("data-dir")
	if err != nil {
		return nil, err
	}

	if err := applyForumProfile(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveDataDir returns the directory holding the SQLite archive.
func resolveDataDir(dataDir string) string {
	if dataDir != "" {
		return dataDir
	}
	return config.XDGDataDir()
}
