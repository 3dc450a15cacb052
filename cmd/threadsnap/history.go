package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yomite/threadsnap/internal/archive"
	"github.com/yomite/threadsnap/internal/model"
	"github.com/yomite/threadsnap/internal/render"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [thread-id]",
		Short: "List threads saved in the local archive",
		Long: `History lists the threads saved in the local archive. With a thread
id it shows that thread's snapshot instead: title, page and post
counts, and a per-page breakdown.

Examples:
  # List every archived thread
  threadsnap history

  # Show the snapshot of one thread
  threadsnap history 1843321

  # Dump the archived thread as JSON
  threadsnap history 1843321 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	cmd.Flags().String("data-dir", "", "Directory holding the SQLite archive (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return err
	}

	store, err := archive.Open(resolveDataDir(dataDir), archive.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	if len(args) == 1 {
		return showArchivedThread(ctx, store, args[0], jsonOutput)
	}
	return listArchivedThreads(ctx, store, jsonOutput)
}

// listArchivedThreads prints one line per saved thread.
func listArchivedThreads(ctx context.Context, store *archive.Store, jsonOutput bool) error {
	threads, err := store.ListThreads(ctx)
	if err != nil {
		return fmt.Errorf("failed to list archived threads: %w", err)
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(threads)
	}

	if len(threads) == 0 {
		fmt.Println("No saved threads found in the archive.")
		fmt.Println("\nUse 'threadsnap save <thread-id>' to snapshot a thread.")
		return nil
	}

	fmt.Printf("Saved threads (%d):\n\n", len(threads))
	fmt.Printf("  %-12s  %-6s  %-6s  %-20s  %s\n", "THREAD", "PAGES", "POSTS", "SAVED", "TITLE")
	fmt.Println("  " + strings.Repeat("-", 70))

	for _, meta := range threads {
		fmt.Printf("  %-12s  %-6d  %-6d  %-20s  %s\n",
			meta.ThreadID,
			meta.PageCount,
			meta.PostCount,
			meta.SavedAt.Format("2006-01-02 15:04:05"),
			meta.Title,
		)
	}

	fmt.Println("\nUse 'threadsnap history <thread-id>' to inspect one snapshot.")
	fmt.Println("Use 'threadsnap export <thread-id> --offline' to export one as Markdown.")

	return nil
}

// showArchivedThread prints the snapshot of a single thread.
func showArchivedThread(ctx context.Context, store *archive.Store, threadID string, jsonOutput bool) error {
	pages, err := store.GetThread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	if len(pages) == 0 {
		fmt.Printf("No snapshot found for thread %s\n", threadID)
		fmt.Printf("\nUse 'threadsnap save %s' to snapshot it.\n", threadID)
		return nil
	}

	if jsonOutput {
		_, err := render.NewJSONWriter(os.Stdout, render.WithPrettyPrint()).WriteThread(pages)
		return err
	}

	meta, err := findThreadMetadata(ctx, store, threadID)
	if err != nil {
		return err
	}

	title := pages[0].Title
	if title == "" {
		title = "(untitled)"
	}

	posts := 0
	for _, page := range pages {
		posts += len(page.Posts)
	}

	fmt.Printf("Thread %s: %s\n", threadID, title)
	fmt.Printf("  %d page(s), %d post(s)", len(pages), posts)
	if meta != nil {
		fmt.Printf(", saved %s", meta.SavedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Println()
	fmt.Println()

	for _, page := range pages {
		fmt.Printf("  page %d: %d post(s)", page.Page, len(page.Posts))
		if first, last := floorRange(page); last > 0 {
			fmt.Printf(" (floors %d-%d)", first, last)
		}
		fmt.Println()
	}

	fmt.Printf("\nUse 'threadsnap export %s --offline' to export this snapshot as Markdown.\n", threadID)

	return nil
}

// findThreadMetadata returns the archive metadata for threadID, or nil
// when the thread is not in the archive.
func findThreadMetadata(ctx context.Context, store *archive.Store, threadID string) (*archive.ThreadMetadata, error) {
	threads, err := store.ListThreads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived threads: %w", err)
	}
	for i := range threads {
		if threads[i].ThreadID == threadID {
			return &threads[i], nil
		}
	}
	return nil, nil
}

// floorRange returns the lowest and highest floor ordinals on the page.
// Both are zero when no post carries a floor.
func floorRange(page *model.ThreadPage) (int, int) {
	first, last := 0, 0
	for _, post := range page.Posts {
		if post.Floor == 0 {
			continue
		}
		if first == 0 || post.Floor < first {
			first = post.Floor
		}
		if post.Floor > last {
			last = post.Floor
		}
	}
	return first, last
}
