// Package build compiles template files, renders them against their data
// and writes the resulting pages.
package build

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/recera/rocal/internal/cache"
	"github.com/recera/rocal/pkg/ui"
)

// Options configures a Builder
type Options struct {
	TemplatesDir string       // root of the template tree
	OutputDir    string       // where pages are written
	Extension    string       // template file extension, such as .rui
	DataFile     string       // optional global data file
	Artifacts    *cache.Cache // optional rendered page cache
	Quiet        bool         // suppress per-file progress lines
}

// FileError is a failure to build one template
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	// Syntax errors already lead with the template name and position
	var serr *ui.SyntaxError
	if errors.As(e.Err, &serr) && serr.Name == e.Path {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Result summarizes a directory build
type Result struct {
	Built  []string // output files written
	Cached int      // outputs taken from the artifact cache
	Failed []*FileError
}

// Err returns an error describing every failure, or nil
func (r *Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, fe := range r.Failed {
		errs[i] = fe
	}
	return fmt.Errorf("%d of %d templates failed: %w",
		len(r.Failed), len(r.Failed)+len(r.Built), errors.Join(errs...))
}

// Builder turns templates into pages. Compiled templates are kept in memory
// so repeated builds, as in watch mode, only recompile changed sources. Only
// the latest source of each path stays cached.
type Builder struct {
	opts      Options
	templates *ui.Cache

	mu      sync.Mutex
	sources map[string]string // path -> source last compiled
}

// New creates a Builder
func New(opts Options) *Builder {
	if opts.Extension == "" {
		opts.Extension = ".rui"
	}
	return &Builder{
		opts:      opts,
		templates: ui.NewCache(),
		sources:   make(map[string]string),
	}
}

// Options returns the builder's options
func (b *Builder) Options() Options {
	return b.opts
}

// Find returns every template under the templates directory, sorted
func (b *Builder) Find() ([]string, error) {
	return FindTemplates(b.opts.TemplatesDir, b.opts.Extension)
}

// FindTemplates walks dir for files ending in ext
func FindTemplates(dir, ext string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ext) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find template files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// Name returns the template's path relative to the templates directory,
// used in error messages and listings
func (b *Builder) Name(path string) string {
	if rel, err := filepath.Rel(b.opts.TemplatesDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

// Compile reads and compiles one template
func (b *Builder) Compile(path string) (*ui.Template, []byte, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}
	b.track(path, string(src))
	tmpl, err := b.templates.Get(b.Name(path), string(src))
	if err != nil {
		return nil, nil, err
	}
	return tmpl, src, nil
}

// track records src as the current source of path, dropping the template
// compiled from its previous source
func (b *Builder) track(path, src string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.sources[path]; ok && old != src {
		b.templates.Delete(old)
	}
	b.sources[path] = src
}

// Context loads the data context for a template: the global data file
// overlaid with the template's sibling data file. The raw bytes of both
// are returned too, for cache keys.
func (b *Builder) Context(path string) (ui.Context, [][]byte, error) {
	var global []byte
	if b.opts.DataFile != "" {
		// Named in config, so it must exist
		data, err := os.ReadFile(b.opts.DataFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read global data file: %w", err)
		}
		global = data
	}
	globalCtx, err := ParseData(b.opts.DataFile, global)
	if err != nil {
		return nil, nil, err
	}

	sibling := SiblingDataFile(path, b.opts.Extension)
	local, err := readOptional(sibling)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read data file: %w", err)
	}
	localCtx, err := ParseData(sibling, local)
	if err != nil {
		return nil, nil, err
	}

	return Merge(globalCtx, localCtx), [][]byte{global, local}, nil
}

// Render compiles and renders one template, using the artifact cache when
// one is configured. cached reports whether the page came from the cache.
func (b *Builder) Render(path string) (page []byte, cached bool, err error) {
	tmpl, src, err := b.Compile(path)
	if err != nil {
		return nil, false, err
	}

	ctx, raw, err := b.Context(path)
	if err != nil {
		return nil, false, err
	}

	var key string
	if b.opts.Artifacts != nil {
		key = cache.Key(append([][]byte{src}, raw...)...)
		if data, ok := b.opts.Artifacts.Get(key); ok {
			return data, true, nil
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return nil, false, fmt.Errorf("render: %w", err)
	}

	if b.opts.Artifacts != nil {
		if err := b.opts.Artifacts.Put(key, b.Name(path), buf.Bytes()); err != nil {
			log.Printf("⚠️  Failed to cache %s: %v", b.Name(path), err)
		}
	}

	return buf.Bytes(), false, nil
}

// OutputPath maps a template to its page: templates/blog/post.rui becomes
// dist/blog/post.html
func (b *Builder) OutputPath(path string) string {
	rel := b.Name(path)
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(path)
	}
	rel = strings.TrimSuffix(rel, b.opts.Extension) + ".html"
	return filepath.Join(b.opts.OutputDir, filepath.FromSlash(rel))
}

// ProcessFile renders one template and writes its page. It returns the
// output path.
func (b *Builder) ProcessFile(path string) (string, bool, error) {
	page, cached, err := b.Render(path)
	if err != nil {
		return "", false, &FileError{Path: b.Name(path), Err: err}
	}

	out := b.OutputPath(path)
	if err := WriteOutput(out, page); err != nil {
		return "", false, &FileError{Path: b.Name(path), Err: err}
	}

	if !b.opts.Quiet {
		if cached {
			log.Printf("✅ %s → %s (cached)", b.Name(path), out)
		} else {
			log.Printf("✅ %s → %s", b.Name(path), out)
		}
	}
	return out, cached, nil
}

// ProcessFiles builds each of files. A failing file is logged and recorded
// and does not stop the others.
func (b *Builder) ProcessFiles(files []string) *Result {
	result := &Result{}
	for _, file := range files {
		out, cached, err := b.ProcessFile(file)
		if err != nil {
			var fe *FileError
			if !errors.As(err, &fe) {
				fe = &FileError{Path: b.Name(file), Err: err}
			}
			log.Printf("❌ %v", fe)
			result.Failed = append(result.Failed, fe)
			continue
		}
		result.Built = append(result.Built, out)
		if cached {
			result.Cached++
		}
	}
	return result
}

// ProcessDirectory builds every template under the templates directory
func (b *Builder) ProcessDirectory() (*Result, error) {
	files, err := b.Find()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		log.Printf("⚠️  No %s templates found in %s", b.opts.Extension, b.opts.TemplatesDir)
	}
	return b.ProcessFiles(files), nil
}

// Forget drops everything derived from path so the next build starts from
// its current contents
func (b *Builder) Forget(path string) {
	b.mu.Lock()
	if old, ok := b.sources[path]; ok {
		b.templates.Delete(old)
		delete(b.sources, path)
	}
	b.mu.Unlock()

	if b.opts.Artifacts != nil {
		b.opts.Artifacts.InvalidateSource(b.Name(path))
	}
}

// WriteOutput writes data to path atomically, creating parent directories
func WriteOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
