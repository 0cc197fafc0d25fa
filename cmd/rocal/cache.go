package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/recera/rocal/cmd/rocal/internal/tui"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the rendered page cache",
	}

	var verbose bool
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheStats(cmd.OutOrStdout(), verbose)
		},
	}
	statsCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List every cached page")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClear(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}

func runCacheStats(out io.Writer, verbose bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := openCache(cfg)
	if err != nil {
		return err
	}

	s := c.Stats()
	ratio := 0.0
	if total := s.Hits + s.Misses; total > 0 {
		ratio = float64(s.Hits) / float64(total) * 100
	}

	fmt.Fprintf(out, "Cache:     %s\n", c.Dir())
	fmt.Fprintf(out, "Entries:   %d\n", s.EntryCount)
	fmt.Fprintf(out, "Size:      %s\n", formatBytes(s.TotalSize))
	fmt.Fprintf(out, "Hits:      %d\n", s.Hits)
	fmt.Fprintf(out, "Misses:    %d\n", s.Misses)
	fmt.Fprintf(out, "Hit ratio: %.1f%%\n", ratio)
	fmt.Fprintf(out, "Evictions: %d\n", s.Evictions)

	if verbose {
		entries := c.Entries()
		sort.Slice(entries, func(i, j int) bool { return entries[i].Source < entries[j].Source })
		for _, e := range entries {
			fmt.Fprintf(out, "  %s %s %s\n", e.Source, formatBytes(e.Size),
				tui.Muted(fmt.Sprintf("(%d hits)", e.AccessCount)))
		}
	}
	return nil
}

func runCacheClear(out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := openCache(cfg)
	if err != nil {
		return err
	}

	n := c.Stats().EntryCount
	if err := c.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(out, tui.Success(fmt.Sprintf("Cleared %d cached pages", n)))
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
