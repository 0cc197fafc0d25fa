package main

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/recera/rocal/cmd/rocal/internal/build"
	"github.com/recera/rocal/cmd/rocal/internal/config"
	"github.com/recera/rocal/internal/cache"
)

// loadConfig loads rocal.yaml from the project directory
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", config.FileName, err)
	}
	return cfg, nil
}

// openCache opens the artifact cache the configuration describes. The
// caller closes it.
func openCache(cfg *config.Config) (*cache.Cache, error) {
	strategy, err := cache.ParseStrategy(cfg.Cache.Strategy)
	if err != nil {
		return nil, err
	}
	return cache.New(cache.Config{
		Dir:      cfg.CacheDir(),
		MaxSize:  cfg.Cache.MaxSize,
		MaxAge:   cfg.Cache.MaxAge,
		Strategy: strategy,
	})
}

// newBuilder creates a builder for the project. With useCache the artifact
// cache is attached when the configuration enables it; the returned close
// function saves its index.
func newBuilder(cfg *config.Config, useCache bool) (*build.Builder, func(), error) {
	opts := build.Options{
		TemplatesDir: cfg.TemplatesDir(),
		OutputDir:    cfg.OutputDir(),
		Extension:    cfg.Extension,
		DataFile:     cfg.DataFile(),
		Quiet:        quiet,
	}

	closeFn := func() {}
	if useCache && cfg.CacheEnabled() {
		artifacts, err := openCache(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open cache: %w", err)
		}
		if n := artifacts.Prune(); n > 0 && !quiet {
			log.Printf("🧹 Pruned %d expired cache entries", n)
		}
		opts.Artifacts = artifacts
		closeFn = func() {
			if err := artifacts.Close(); err != nil {
				log.Printf("⚠️  Failed to save cache index: %v", err)
			}
		}
	}

	return build.New(opts), closeFn, nil
}

// resolveFiles returns the templates named on the command line, or every
// template in the project when none are given
func resolveFiles(b *build.Builder, args []string) ([]string, error) {
	if len(args) == 0 {
		return b.Find()
	}
	files := make([]string, len(args))
	for i, arg := range args {
		files[i] = filepath.Clean(arg)
	}
	return files, nil
}
