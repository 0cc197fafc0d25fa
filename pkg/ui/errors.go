package ui

import (
	"fmt"

	"github.com/recera/rocal/pkg/ui/eval"
)

// ErrorKind classifies a SyntaxError
type ErrorKind int

const (
	// UnmatchedClosingTag is a closing tag with no open element to close
	UnmatchedClosingTag ErrorKind = iota + 1
	// TagNameMismatch is a closing tag whose name differs from the innermost open element
	TagNameMismatch
	// UnterminatedStartTag is a tag that never reaches its closing '>'
	UnterminatedStartTag
	// MissingConditionOrIterable is an if/for construct without its expression or body
	MissingConditionOrIterable
	// UnbalancedRoot is input that ends while elements are still open
	UnbalancedRoot
	// InvalidLeadingToken is a token that cannot start any construct
	InvalidLeadingToken
	// MissingDoctypeKeyword is a '<!' declaration that is not <!DOCTYPE html>
	MissingDoctypeKeyword
	// UnterminatedString is a string literal without its closing quote
	UnterminatedString
	// UnbalancedDelimiter is a brace, parenthesis or bracket without its partner
	UnbalancedDelimiter
	// InvalidExpression is an expression span that does not compile
	InvalidExpression
)

var errorKindNames = map[ErrorKind]string{
	UnmatchedClosingTag:        "UnmatchedClosingTag",
	TagNameMismatch:            "TagNameMismatch",
	UnterminatedStartTag:       "UnterminatedStartTag",
	MissingConditionOrIterable: "MissingConditionOrIterable",
	UnbalancedRoot:             "UnbalancedRoot",
	InvalidLeadingToken:        "InvalidLeadingToken",
	MissingDoctypeKeyword:      "MissingDoctypeKeyword",
	UnterminatedString:         "UnterminatedString",
	UnbalancedDelimiter:        "UnbalancedDelimiter",
	InvalidExpression:          "InvalidExpression",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// SyntaxError is returned when a template fails to compile. Compilation
// stops at the first error.
type SyntaxError struct {
	Kind ErrorKind
	Name string   // template name, may be empty
	Pos  Position // where the problem was detected
	Msg  string
	Err  error // underlying cause, set for InvalidExpression
}

func (e *SyntaxError) Error() string {
	name := e.Name
	if name == "" {
		name = "template"
	}
	if e.Pos.Line == 0 {
		return fmt.Sprintf("%s: %s", name, e.Msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s", name, e.Pos.Line, e.Pos.Col, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Is matches another *SyntaxError by kind, so the Err* values below can be
// used with errors.Is.
func (e *SyntaxError) Is(target error) bool {
	t, ok := target.(*SyntaxError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrUnmatchedClosingTag        = &SyntaxError{Kind: UnmatchedClosingTag}
	ErrTagNameMismatch            = &SyntaxError{Kind: TagNameMismatch}
	ErrUnterminatedStartTag       = &SyntaxError{Kind: UnterminatedStartTag}
	ErrMissingConditionOrIterable = &SyntaxError{Kind: MissingConditionOrIterable}
	ErrUnbalancedRoot             = &SyntaxError{Kind: UnbalancedRoot}
	ErrInvalidLeadingToken        = &SyntaxError{Kind: InvalidLeadingToken}
	ErrMissingDoctypeKeyword      = &SyntaxError{Kind: MissingDoctypeKeyword}
	ErrUnterminatedString         = &SyntaxError{Kind: UnterminatedString}
	ErrUnbalancedDelimiter        = &SyntaxError{Kind: UnbalancedDelimiter}
	ErrInvalidExpression          = &SyntaxError{Kind: InvalidExpression}
)

// ErrNotIterable is wrapped by render errors for loops over values that are
// not sequences
var ErrNotIterable = eval.ErrNotIterable

func newSyntaxError(kind ErrorKind, name string, pos Position, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Kind: kind,
		Name: name,
		Pos:  pos,
		Msg:  fmt.Sprintf(format, args...),
	}
}
