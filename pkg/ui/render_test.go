package ui

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func render(t *testing.T, src string, ctx Context) string {
	t.Helper()
	out, err := MustCompile("test", src).Render(ctx)
	if err != nil {
		t.Fatalf("Render(%q) error = %v", src, err)
	}
	return out
}

func TestRenderStatic(t *testing.T) {
	src := `<!DOCTYPE html><div class="a" hidden><p>{ "x < y & z" }</p><br></div>`
	want := `<!DOCTYPE html><div class="a" hidden><p>x < y & z</p><br></div>`

	for _, ctx := range []Context{nil, {}, {"class": "ignored"}} {
		if got := render(t, src, ctx); got != want {
			t.Errorf("Render(%v) = %q, want %q", ctx, got, want)
		}
	}
}

func TestRenderEscaping(t *testing.T) {
	tests := []struct {
		name string
		src  string
		ctx  Context
		want string
	}{
		{name: "sanitized", src: `{{ v }}`, ctx: Context{"v": "<b>"}, want: "&lt;b&gt;"},
		{name: "raw", src: `{{{ v }}}`, ctx: Context{"v": "<b>"}, want: "<b>"},
		{name: "all five", src: `{{ v }}`, ctx: Context{"v": `&"'<>`}, want: "&amp;&quot;&#39;&lt;&gt;"},
		{name: "dynamic attribute", src: `<a title={{ v }}></a>`, ctx: Context{"v": `"x"`}, want: `<a title="&quot;x&quot;"></a>`},
		{name: "number", src: `{{ n * 2 }}`, ctx: Context{"n": 21}, want: "42"},
		{name: "missing is empty", src: `<p>{{ nothing }}</p>`, ctx: nil, want: "<p></p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, tt.src, tt.ctx); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderBranch(t *testing.T) {
	const withElse = `if c1 { { "one" } } else if c2 { { "two" } } else { { "other" } }`
	const withoutElse = `if c1 { { "one" } } else if c2 { { "two" } }`

	tests := []struct {
		name string
		src  string
		ctx  Context
		want string
	}{
		{name: "first", src: withElse, ctx: Context{"c1": true, "c2": true}, want: "one"},
		{name: "second", src: withElse, ctx: Context{"c1": false, "c2": true}, want: "two"},
		{name: "else", src: withElse, ctx: Context{"c1": false, "c2": false}, want: "other"},
		{name: "no else", src: withoutElse, ctx: Context{"c1": false, "c2": false}, want: ""},
		{name: "truthy values", src: withElse, ctx: Context{"c1": "", "c2": []int{1}}, want: "two"},
		{name: "missing is false", src: withElse, ctx: nil, want: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, tt.src, tt.ctx); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderBranchStopsAtFirstMatch(t *testing.T) {
	// The second condition would fail to evaluate if it were reached.
	src := `if ok { { "yes" } } else if 1 / bad > 0 { { "no" } }`
	if got := render(t, src, Context{"ok": true, "bad": "x"}); got != "yes" {
		t.Errorf("Render() = %q, want %q", got, "yes")
	}
}

func TestRenderLoop(t *testing.T) {
	tests := []struct {
		name string
		src  string
		ctx  Context
		want string
	}{
		{name: "in order", src: `for s in items { <i>{{ s }}</i> }`, ctx: Context{"items": []string{"a", "b"}}, want: "<i>a</i><i>b</i>"},
		{name: "empty", src: `for s in items { { "x" } }`, ctx: Context{"items": []string{}}, want: ""},
		{name: "nil", src: `for s in items { { "x" } }`, ctx: nil, want: ""},
		{name: "count", src: `for i in 3 { {{ i }} }`, want: "012"},
		{name: "structs by field", src: `for u in users { <b>{{ u.Name }}</b> }`, ctx: Context{"users": []struct{ Name string }{{"Ada"}, {"Bo"}}}, want: "<b>Ada</b><b>Bo</b>"},
		{
			name: "nested",
			src:  `for row in rows { <tr>for cell in row { <td>{{ cell }}</td> }</tr> }`,
			ctx:  Context{"rows": [][]int{{1, 2}, {3}}},
			want: "<tr><td>1</td><td>2</td></tr><tr><td>3</td></tr>",
		},
		{
			name: "shadowed binding restored",
			src:  `for x in xs { {{ x }} }{{ x }}`,
			ctx:  Context{"x": "outer", "xs": []string{"1", "2"}},
			want: "12outer",
		},
		{
			name: "binding does not leak",
			src:  `for y in ys { }if y == nil { { "gone" } }`,
			ctx:  Context{"ys": []int{1}},
			want: "gone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, tt.src, tt.ctx); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderLoopBindings(t *testing.T) {
	// Record what the body sees on each iteration through a function in
	// the context.
	var seen []any
	ctx := Context{
		"items": []string{"a", "b"},
		"see": func(v any) string {
			seen = append(seen, v)
			return ""
		},
	}

	render(t, `for item in items { {{ see(item) }} }`, ctx)

	if diff := cmp.Diff([]any{"a", "b"}, seen); diff != "" {
		t.Errorf("bindings mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderDoesNotMutateContext(t *testing.T) {
	ctx := Context{"xs": []int{1, 2}}
	render(t, `for x in xs { {{ x }} }`, ctx)

	if _, ok := ctx["x"]; ok || len(ctx) != 1 {
		t.Errorf("context was modified: %v", ctx)
	}
}

func TestRenderErrors(t *testing.T) {
	t.Run("not iterable", func(t *testing.T) {
		_, err := MustCompile("test", `for x in m { }`).Render(Context{"m": map[string]int{"a": 1}})
		if !errors.Is(err, ErrNotIterable) {
			t.Errorf("Render() error = %v, want ErrNotIterable", err)
		}
	})

	t.Run("evaluation error propagates", func(t *testing.T) {
		boom := errors.New("boom")
		ctx := Context{"fail": func() (string, error) { return "", boom }}
		_, err := MustCompile("test", `<p>{{ fail() }}</p>`).Render(ctx)
		if err == nil || !strings.Contains(err.Error(), "boom") {
			t.Errorf("Render() error = %v, want %v", err, boom)
		}
	})

	t.Run("no partial output", func(t *testing.T) {
		out, err := MustCompile("test", `<p>{{ 1 / s }}</p>`).Render(Context{"s": "x"})
		if err == nil || out != "" {
			t.Errorf("Render() = %q, %v; want empty output and an error", out, err)
		}
	})
}

type failingWriter struct{ n int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n == 0 {
		return 0, errors.New("disk full")
	}
	w.n--
	return len(p), nil
}

func TestExecuteWriteError(t *testing.T) {
	err := MustCompile("test", `<p>{ "a" }</p>`).Execute(&failingWriter{n: 1}, nil)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Execute() error = %v, want disk full", err)
	}
}

func TestEscapeString(t *testing.T) {
	if got, want := EscapeString(`<a href="x">Tom & 'Jerry'</a>`), "&lt;a href=&quot;x&quot;&gt;Tom &amp; &#39;Jerry&#39;&lt;/a&gt;"; got != want {
		t.Errorf("EscapeString() = %q, want %q", got, want)
	}
}
