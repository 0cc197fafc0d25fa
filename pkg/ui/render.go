package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/recera/rocal/pkg/ui/eval"
)

// Context supplies the values expressions are evaluated against
type Context map[string]any

// htmlEscaper replaces the five characters that are significant in HTML
// text and quoted attribute values
var htmlEscaper = strings.NewReplacer(
	`&`, "&amp;",
	`"`, "&quot;",
	`'`, "&#39;",
	`<`, "&lt;",
	`>`, "&gt;",
)

// EscapeString escapes s for insertion into HTML text or a quoted attribute
func EscapeString(s string) string {
	return htmlEscaper.Replace(s)
}

// Render executes p against ctx and returns the output
func Render(p Program, ctx Context) (string, error) {
	var buf strings.Builder
	if err := Execute(&buf, p, ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Execute executes p against ctx, writing output to w. ctx is not modified;
// loop bindings live in a copy that exists only for this call.
func Execute(w io.Writer, p Program, ctx Context) error {
	scope := make(map[string]any, len(ctx)+1)
	for k, v := range ctx {
		scope[k] = v
	}

	r := &renderer{w: w, scope: scope}
	r.run(p)
	return r.err
}

// renderer carries the state of one Execute call
type renderer struct {
	w     io.Writer
	scope map[string]any
	err   error
}

// write helper that tracks errors
func (r *renderer) write(s string) {
	if r.err != nil {
		return
	}
	_, r.err = io.WriteString(r.w, s)
}

func (r *renderer) eval(e *eval.Expr) (any, bool) {
	if r.err != nil {
		return nil, false
	}
	v, err := e.Eval(r.scope)
	if err != nil {
		r.err = err
		return nil, false
	}
	return v, true
}

func (r *renderer) run(p Program) {
	for _, in := range p {
		if r.err != nil {
			return
		}

		switch in := in.(type) {
		case AppendLiteral:
			r.write(in.Text)

		case AppendEscaped:
			if v, ok := r.eval(in.Expr); ok {
				r.write(htmlEscaper.Replace(eval.Format(v)))
			}

		case AppendRaw:
			if v, ok := r.eval(in.Expr); ok {
				r.write(eval.Format(v))
			}

		case Branch:
			r.branch(in)

		case ForEach:
			r.forEach(in)
		}
	}
}

func (r *renderer) branch(b Branch) {
	for _, arm := range b.Arms {
		if arm.Cond == nil {
			r.run(arm.Body)
			return
		}
		v, ok := r.eval(arm.Cond)
		if !ok {
			return
		}
		if eval.Truthy(v) {
			r.run(arm.Body)
			return
		}
	}
}

func (r *renderer) forEach(f ForEach) {
	v, ok := r.eval(f.Iterable)
	if !ok {
		return
	}

	items, err := eval.Sequence(v)
	if err != nil {
		r.err = fmt.Errorf("for %s in %s: %w", f.Binding, f.Iterable, err)
		return
	}
	if len(items) == 0 {
		return
	}

	prev, shadowed := r.scope[f.Binding]
	defer func() {
		if shadowed {
			r.scope[f.Binding] = prev
		} else {
			delete(r.scope, f.Binding)
		}
	}()

	for _, item := range items {
		r.scope[f.Binding] = item
		r.run(f.Body)
		if r.err != nil {
			return
		}
	}
}
