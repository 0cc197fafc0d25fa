package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/recera/rocal/cmd/rocal/internal/build"
	"github.com/recera/rocal/cmd/rocal/internal/watch"
	"github.com/recera/rocal/pkg/ui"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// run executes the CLI against dir and returns its output
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"-C", dir, "--quiet"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func newSite(t *testing.T) string {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "rocal.yaml"), "data: site.yaml\n")
	writeFile(t, filepath.Join(dir, "site.yaml"), "site: Example\n")
	writeFile(t, filepath.Join(dir, "templates", "index.rui"),
		`<title>{{ site }}</title><ul>for p in pages { <li>{{ p }}</li> }</ul>`)
	writeFile(t, filepath.Join(dir, "templates", "index.yaml"), "pages: [a, b]\n")
	return dir
}

func TestBuildCommand(t *testing.T) {
	dir := newSite(t)

	out, err := run(t, dir, "build")
	if err != nil {
		t.Fatalf("build error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 pages built") {
		t.Errorf("output = %q", out)
	}

	page, err := os.ReadFile(filepath.Join(dir, "dist", "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "<title>Example</title><ul><li>a</li><li>b</li></ul>"; string(page) != want {
		t.Errorf("index.html = %q, want %q", page, want)
	}

	out, err = run(t, dir, "build")
	if err != nil || !strings.Contains(out, "(1 from cache)") {
		t.Errorf("second build = %q, %v; want a cache hit", out, err)
	}

	out, err = run(t, dir, "build", "--no-cache", "-o", "public")
	if err != nil || strings.Contains(out, "from cache") {
		t.Errorf("--no-cache build = %q, %v", out, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "public", "index.html")); err != nil {
		t.Errorf("--output ignored: %v", err)
	}
}

func TestBuildCommandFails(t *testing.T) {
	dir := newSite(t)
	writeFile(t, filepath.Join(dir, "templates", "broken.rui"), `<p>`)

	out, err := run(t, dir, "build")
	if err == nil || !strings.Contains(err.Error(), "1 of 2 templates failed") {
		t.Errorf("build error = %v", err)
	}
	if !strings.Contains(out, "1 built, 1 failed") {
		t.Errorf("output = %q", out)
	}
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "templates", "a.rui"), `<p>{{ x }}</p>`)

	out, err := run(t, dir, "check", "--tree", "--program")
	if err != nil {
		t.Fatalf("check error = %v", err)
	}
	for _, want := range []string{
		"Fragment\n  Element <p>\n    Sanitized {{ x }}\n",
		"literal \"<p\"\nliteral \">\"\nescaped x\nliteral \"</p>\"\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	writeFile(t, filepath.Join(dir, "templates", "b.rui"), "<div>\n</span>")
	out, err = run(t, dir, "check")
	if err == nil || !strings.Contains(err.Error(), "1 of 2 templates have errors") {
		t.Errorf("check error = %v", err)
	}
	if !strings.Contains(out, "b.rui:2:1:") {
		t.Errorf("output = %q, want positioned error", out)
	}
}

func TestRenderCommand(t *testing.T) {
	dir := newSite(t)
	extra := filepath.Join(dir, "extra.json")
	writeFile(t, extra, `{"pages": ["x"]}`)

	out, err := run(t, dir, "render", filepath.Join(dir, "templates", "index.rui"),
		"--data", extra, "--set", "site=<Other>")
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	if want := "<title>&lt;Other&gt;</title><ul><li>x</li></ul>\n"; out != want {
		t.Errorf("render = %q, want %q", out, want)
	}

	if _, err := run(t, dir, "render", filepath.Join(dir, "templates", "index.rui"), "--set", "novalue"); err == nil {
		t.Error("render accepted --set without '='")
	}
}

func TestNewCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "new", "blog/post", "--starter", "list", "--no-interactive")
	if err != nil {
		t.Fatalf("new error = %v", err)
	}
	if !strings.Contains(out, filepath.Join("templates", "blog", "post.rui")) {
		t.Errorf("output = %q", out)
	}

	// The created template builds
	if out, err := run(t, dir, "build"); err != nil {
		t.Fatalf("build error = %v\n%s", err, out)
	}
	page, err := os.ReadFile(filepath.Join(dir, "dist", "blog", "post.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(page), "<li>Second</li>") {
		t.Errorf("post.html = %q", page)
	}

	if _, err := run(t, dir, "new", "--no-interactive"); err == nil {
		t.Error("new without a name succeeded")
	}
}

func TestCacheCommands(t *testing.T) {
	dir := newSite(t)
	if _, err := run(t, dir, "build"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, dir, "build"); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, dir, "cache", "stats", "-v")
	if err != nil {
		t.Fatalf("cache stats error = %v", err)
	}
	for _, want := range []string{"Entries:   1", "Hits:      1", "Misses:    1", "index.rui"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, dir, "cache", "clear")
	if err != nil || !strings.Contains(out, "Cleared 1 cached pages") {
		t.Errorf("cache clear = %q, %v", out, err)
	}
	out, _ = run(t, dir, "cache", "stats")
	if !strings.Contains(out, "Entries:   0") {
		t.Errorf("stats after clear:\n%s", out)
	}
}

func TestParseSets(t *testing.T) {
	got, err := parseSets([]string{"n=3", "ok=true", "s=hello", "empty=", "eq=a=b"})
	if err != nil {
		t.Fatalf("parseSets() error = %v", err)
	}
	want := ui.Context{"n": 3, "ok": true, "s": "hello", "empty": "", "eq": "a=b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseSets() mismatch (-want +got):\n%s", diff)
	}

	if _, err := parseSets([]string{"=x"}); err == nil {
		t.Error("parseSets() accepted an empty key")
	}
}

func TestAffectedTemplates(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "templates")
	a := filepath.Join(tmpl, "a.rui")
	b := filepath.Join(tmpl, "b.rui")
	writeFile(t, a, `<p></p>`)
	writeFile(t, b, `<p></p>`)
	writeFile(t, filepath.Join(tmpl, "b.yaml"), "x: 1\n")

	builder := build.New(build.Options{TemplatesDir: tmpl, OutputDir: filepath.Join(dir, "dist"), Quiet: true})

	tests := []struct {
		name    string
		changes []watch.Change
		want    []string
	}{
		{name: "template", changes: []watch.Change{{Path: a}}, want: []string{a}},
		{name: "sibling data", changes: []watch.Change{{Path: filepath.Join(tmpl, "b.yaml")}}, want: []string{b}},
		{name: "global data", changes: []watch.Change{{Path: filepath.Join(dir, "site.yaml")}}, want: []string{a, b}},
		{name: "removed template", changes: []watch.Change{{Path: a, Removed: true}}, want: nil},
		{name: "duplicates", changes: []watch.Change{{Path: b}, {Path: filepath.Join(tmpl, "b.yaml")}}, want: []string{b}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := affectedTemplates(builder, tt.changes)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("affectedTemplates() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
