package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/recera/rocal/cmd/rocal/internal/preview"
	"github.com/recera/rocal/cmd/rocal/internal/watch"
)

func newPreviewCommand() *cobra.Command {
	var host string
	var port int
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Serve rendered templates with live reload",
		Long: `Starts an HTTP server that renders templates on request. Pages reload in
the browser when their template or data changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd.Context(), host, port, noWatch)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host to bind to (overrides rocal.yaml)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides rocal.yaml)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Disable live reload")

	return cmd
}

func runPreview(ctx context.Context, host string, port int, noWatch bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// CLI flags override config
	if host != "" {
		cfg.Preview.Host = host
	}
	if port != 0 {
		cfg.Preview.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Pages are rendered fresh on every request
	b, _, err := newBuilder(cfg, false)
	if err != nil {
		return err
	}
	server := preview.New(b)

	var w *watch.Watcher
	if !noWatch {
		roots := []string{cfg.TemplatesDir()}
		if data := cfg.DataFile(); data != "" {
			roots = append(roots, filepath.Dir(data))
		}
		w, err = watch.New(roots, cfg.Watch.Debounce, watch.Extensions(cfg.Extension, ".yaml", ".yml", ".json"))
		if err != nil {
			return err
		}
		defer w.Close()
		log.Printf("👀 Watching %s for changes...", cfg.TemplatesDir())
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.ListenAndServe(ctx, preview.Address(cfg.Preview.Host, cfg.Preview.Port), w)
}
