// Package ui compiles HTML-like templates into instruction programs and
// renders them against a data context.
//
// A template is markup with a little logic:
//
//	<!DOCTYPE html>
//	<ul class="items">
//	  for item in items {
//	    <li data-id={{ item.id }}>{{ item.name }}</li>
//	  }
//	</ul>
//	if len(items) == 0 { <p>{ "Nothing here" }</p> } else { {{{ footer }}} }
//
// Text is always quoted inside single braces. {{ expr }} inserts a value
// HTML-escaped and {{{ expr }}} inserts it as is. Conditions, iterables and
// interpolations are expressions in the syntax of package eval.
//
// Compile parses the source once; the resulting Template is immutable and
// may be rendered from many goroutines at once.
package ui

import (
	"io"
)

// Template is a compiled template
type Template struct {
	name string
	tree *Fragment
	prog Program
}

// Compile parses src and generates its program. name is used in error
// messages only. The first syntax error aborts compilation.
func Compile(name, src string) (*Template, error) {
	toks, err := Tokenize(name, src)
	if err != nil {
		return nil, err
	}
	return CompileTokens(name, src, toks)
}

// CompileTokens is like Compile for a template that is already tokenized
func CompileTokens(name, src string, toks []Token) (*Template, error) {
	tree, err := ParseTokens(name, src, toks)
	if err != nil {
		return nil, err
	}

	return &Template{
		name: name,
		tree: tree,
		prog: Generate(tree),
	}, nil
}

// MustCompile is like Compile but panics if the template does not compile.
// It is meant for templates embedded in the program.
func MustCompile(name, src string) *Template {
	t, err := Compile(name, src)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the name the template was compiled with
func (t *Template) Name() string {
	return t.name
}

// Tree returns the document tree. It must not be modified.
func (t *Template) Tree() *Fragment {
	return t.tree
}

// Program returns the compiled instruction sequence
func (t *Template) Program() Program {
	return t.prog
}

// Render renders the template against ctx
func (t *Template) Render(ctx Context) (string, error) {
	return Render(t.prog, ctx)
}

// Execute renders the template against ctx, writing to w
func (t *Template) Execute(w io.Writer, ctx Context) error {
	return Execute(w, t.prog, ctx)
}
