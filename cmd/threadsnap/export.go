package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/yomite/threadsnap/internal/archive"
	"github.com/yomite/threadsnap/internal/config"
	"github.com/yomite/threadsnap/internal/model"
	"github.com/yomite/threadsnap/internal/render"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <thread-id>",
		Short: "Export a whole thread as a Markdown document",
		Long: `Export walks every page of a thread and writes the result as a single
Markdown document. By default the pages are fetched from the forum;
with --offline the thread is read from the local archive instead, so
a previously saved thread can be exported without network access.

Examples:
  # Export a thread to thread-1843321.md
  threadsnap export 1843321 --origin https://bbs.example.com

  # Export to a specific file
  threadsnap export 1843321 -o reading/favorite.md

  # Export the archived snapshot, no network needed
  threadsnap export 1843321 --offline`,
		Args: cobra.ExactArgs(1),
		RunE: runExportCmd,
	}

	addFetchFlags(cmd)
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages, "Maximum pages to walk (0 = unbounded)")
	cmd.Flags().Duration("page-delay", config.DefaultPageDelay, "Politeness delay between page fetches")
	cmd.Flags().StringP("output", "o", "", "Output file (default: thread-<id>.md)")
	cmd.Flags().Bool("offline", false, "Read the thread from the local archive instead of the network")
	cmd.Flags().String("data-dir", "", "Directory holding the SQLite archive (default: XDG data directory)")

	return cmd
}

// runExportCmd executes the export command.
func runExportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildExportConfig(cmd, args)
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

	threadID := cfg.Targets[0]

	var pages []*model.ThreadPage
	if cfg.Offline {
		pages, err = loadArchivedThread(ctx, cfg, threadID, logger)
	} else {
		pages, err = loadLiveThread(ctx, cfg, threadID, logger)
	}
	if err != nil {
		return err
	}

	outputPath := cfg.OutputFile
	if outputPath == "" {
		outputPath = fmt.Sprintf("thread-%s.md", threadID)
	}

	output, closeOutput, err := openOutput(outputPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeOutput(); err != nil {
			logger.Error("failed to close output", "error", err)
		}
	}()

	if _, err := render.NewMarkdownWriter(output).WriteThread(pages); err != nil {
		return fmt.Errorf("failed to render thread: %w", err)
	}

	posts := 0
	for _, page := range pages {
		posts += len(page.Posts)
	}
	fmt.Printf("Exported thread %s to %s (%d page(s), %d post(s))\n",
		threadID, outputPath, len(pages), posts)

	return nil
}

// loadLiveThread walks the thread from the forum.
func loadLiveThread(ctx context.Context, cfg *config.Config, threadID string, logger *slog.Logger) ([]*model.ThreadPage, error) {
	fetchClient, cleanup, err := newFetchClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	repository := newRepository(fetchClient, cfg, logger)

	pages, err := repository.LoadThread(ctx, threadID, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}
	return pages, nil
}

// loadArchivedThread reads the thread's latest snapshot from the
// local archive.
func loadArchivedThread(ctx context.Context, cfg *config.Config, threadID string, logger *slog.Logger) ([]*model.ThreadPage, error) {
	store, err := archive.Open(resolveDataDir(cfg.DataDir), archive.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close archive", "error", err)
		}
	}()

	pages, err := store.GetThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("thread %s not found in archive (use 'threadsnap save %s' first)", threadID, threadID)
	}
	return pages, nil
}

// buildExportConfig builds the configuration for the export command
// from CLI flags and arguments.
func buildExportConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
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

	cfg.OutputFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.Offline, err = cmd.Flags().GetBool("offline")
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
