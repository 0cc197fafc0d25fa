package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/recera/rocal/cmd/rocal/internal/build"
	"github.com/recera/rocal/cmd/rocal/internal/config"
	"github.com/recera/rocal/cmd/rocal/internal/tui"
	"github.com/recera/rocal/cmd/rocal/internal/watch"
)

type buildFlags struct {
	output  string
	watch   bool
	noCache bool
}

func newBuildCommand() *cobra.Command {
	var flags buildFlags

	cmd := &cobra.Command{
		Use:   "build [files...]",
		Short: "Render templates to HTML pages",
		Long: `Compiles every template in the templates directory, or the given files,
renders each against its data and writes the pages to the output directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), cmd.OutOrStdout(), args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output directory (overrides rocal.yaml)")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "Rebuild when templates or data change")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "Render every page even if a cached copy exists")

	return cmd
}

func runBuild(ctx context.Context, out io.Writer, args []string, flags buildFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// CLI flags override config
	if flags.output != "" {
		cfg.Output = flags.output
	}

	b, closeCache, err := newBuilder(cfg, !flags.noCache)
	if err != nil {
		return err
	}
	defer closeCache()

	files, err := resolveFiles(b, args)
	if err != nil {
		return err
	}
	if len(files) == 0 && !quiet {
		log.Printf("⚠️  No %s templates found in %s", cfg.Extension, cfg.TemplatesDir())
	}

	result := b.ProcessFiles(files)
	printResult(out, result)

	if !flags.watch {
		return result.Err()
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watchAndRebuild(ctx, out, cfg, b)
}

// printResult writes the build summary
func printResult(out io.Writer, result *build.Result) {
	switch {
	case len(result.Failed) > 0:
		fmt.Fprintln(out, tui.Error(fmt.Sprintf("%d built, %d failed", len(result.Built), len(result.Failed))))
	case result.Cached > 0:
		fmt.Fprintln(out, tui.Success(fmt.Sprintf("%d pages built", len(result.Built)))+
			" "+tui.Muted(fmt.Sprintf("(%d from cache)", result.Cached)))
	default:
		fmt.Fprintln(out, tui.Success(fmt.Sprintf("%d pages built", len(result.Built))))
	}
}

// watchAndRebuild rebuilds the pages affected by each batch of changes
// until ctx is done
func watchAndRebuild(ctx context.Context, out io.Writer, cfg *config.Config, b *build.Builder) error {
	roots := []string{cfg.TemplatesDir()}
	if data := cfg.DataFile(); data != "" {
		roots = append(roots, filepath.Dir(data))
	}

	w, err := watch.New(roots, cfg.Watch.Debounce, watch.Extensions(cfg.Extension, ".yaml", ".yml", ".json"))
	if err != nil {
		return err
	}
	defer w.Close()

	log.Printf("👀 Watching %s for changes...", cfg.TemplatesDir())

	err = w.Run(ctx, func(changes []watch.Change) {
		files := affectedTemplates(b, changes)
		if len(files) == 0 {
			return
		}
		log.Printf("🔄 Rebuilding %d template(s)...", len(files))
		printResult(out, b.ProcessFiles(files))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// affectedTemplates maps changed files to the templates to rebuild. A
// changed template rebuilds itself, a sibling data file its template and
// anything else, such as the global data file, every template. Removed
// templates have their pages deleted.
func affectedTemplates(b *build.Builder, changes []watch.Change) []string {
	ext := b.Options().Extension
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, c := range changes {
		b.Forget(c.Path)

		if strings.HasSuffix(c.Path, ext) {
			if c.Removed {
				page := b.OutputPath(c.Path)
				if err := os.Remove(page); err == nil {
					log.Printf("🗑️  Removed %s", page)
				}
				continue
			}
			add(c.Path)
			continue
		}

		template := strings.TrimSuffix(c.Path, filepath.Ext(c.Path)) + ext
		if _, err := os.Stat(template); err == nil {
			b.Forget(template)
			add(template)
			continue
		}

		all, err := b.Find()
		if err != nil {
			log.Printf("❌ %v", err)
			continue
		}
		for _, f := range all {
			add(f)
		}
	}
	return files
}
