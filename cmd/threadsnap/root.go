// Package main provides the entry point for the threadsnap CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for threadsnap.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threadsnap",
		Short: "Read and snapshot forum threads from the terminal",
		Long: `threadsnap reads discussion threads from Discuz-family forums and
renders them as terminal text, JSON, or Markdown.

Point it at a forum origin and a thread id to read a single page, or
use the save command to walk every page of a thread into a local
SQLite archive that can be exported later without network access.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewReadCmd())
	cmd.AddCommand(NewSaveCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
