package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-preview"
	commit  = "dev"
	date    = "unknown"
)

// Flags shared by every command
var (
	projectDir string
	quiet      bool
)

func newRootCommand() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "rocal",
		Short: "Rocal - markup templates compiled to HTML",
		Long: `Rocal compiles HTML-like templates with embedded expressions, conditionals
and loops into instruction programs, and renders them against YAML or JSON data.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "C", ".", "Project directory containing rocal.yaml")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress per-file progress output")

	// Add commands
	rootCmd.AddCommand(newBuildCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newPreviewCommand())
	rootCmd.AddCommand(newNewCommand())
	rootCmd.AddCommand(newCacheCommand())

	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
