// Package eval compiles the expression spans found in templates
// (conditions, loop iterables, interpolations, dynamic attribute values)
// into reusable handles and evaluates them against a render scope.
//
// Expressions use the expr-lang syntax: field access (item.name), indexing
// (items[0]), comparison and boolean operators, arithmetic, literals and
// calls to functions placed in the scope.
package eval

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ErrEmpty is returned when an expression span contains nothing to evaluate
var ErrEmpty = errors.New("empty expression")

// Error describes an expression that failed to compile
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	if e.Source == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("invalid expression %q: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Expr is a compiled expression. It is immutable and may be evaluated from
// many goroutines at once.
type Expr struct {
	src     string
	program *vm.Program
}

// Compile compiles an expression span. Surrounding whitespace is ignored.
func Compile(src string) (*Expr, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, &Error{Err: ErrEmpty}
	}

	program, err := expr.Compile(src)
	if err != nil {
		return nil, &Error{Source: src, Err: err}
	}

	return &Expr{src: src, program: program}, nil
}

// MustCompile is like Compile but panics on error
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the expression source
func (e *Expr) String() string {
	return e.src
}

// Eval runs the expression against env. Errors raised while evaluating are
// returned as the expression engine reports them.
func (e *Expr) Eval(env map[string]any) (any, error) {
	return expr.Run(e.program, env)
}
