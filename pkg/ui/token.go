package ui

import (
	"fmt"
	"strconv"
	"strings"
)

// Position is a location in template source
type Position struct {
	Offset int // byte offset, starting at 0
	Line   int // line number, starting at 1
	Col    int // column in runes, starting at 1
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// TokenKind identifies the lexical class of a Token
type TokenKind uint8

const (
	// Ident is a name such as div, class, item or a keyword like if
	Ident TokenKind = iota
	// String is a quoted literal; Token.Text holds the unquoted value
	String
	// Number is a numeric literal
	Number
	// Punct is a single punctuation rune such as < > / = or !
	Punct
	// Group is a delimited token tree: {...}, (...) or [...]
	Group
)

func (k TokenKind) String() string {
	switch k {
	case Ident:
		return "identifier"
	case String:
		return "string"
	case Number:
		return "number"
	case Punct:
		return "punctuation"
	case Group:
		return "group"
	default:
		return "unknown"
	}
}

// Delimiter is the bracket pair enclosing a Group token
type Delimiter uint8

const (
	NoDelim Delimiter = iota
	Brace             // { }
	Paren             // ( )
	Bracket           // [ ]
)

func (d Delimiter) open() string {
	switch d {
	case Brace:
		return "{"
	case Paren:
		return "("
	case Bracket:
		return "["
	}
	return ""
}

func (d Delimiter) close() string {
	switch d {
	case Brace:
		return "}"
	case Paren:
		return ")"
	case Bracket:
		return "]"
	}
	return ""
}

// Token is one element of the token tree produced by Tokenize
type Token struct {
	Kind     TokenKind
	Text     string    // identifier, number or punctuation text; unquoted value of a String
	Delim    Delimiter // set for Group
	Children []Token   // tokens inside a Group
	Pos      Position  // start of the token (the opening delimiter for a Group)
	End      int       // byte offset just past the token
}

func (t Token) isPunct(s string) bool {
	return t.Kind == Punct && t.Text == s
}

func (t Token) isIdent(s string) bool {
	return t.Kind == Ident && t.Text == s
}

func (t Token) isGroup(d Delimiter) bool {
	return t.Kind == Group && t.Delim == d
}

// adjacent reports whether next starts exactly where t ends
func (t Token) adjacent(next Token) bool {
	return t.End == next.Pos.Offset
}

// String renders the token back to template syntax
func (t Token) String() string {
	switch t.Kind {
	case String:
		return strconv.Quote(t.Text)
	case Group:
		return t.Delim.open() + joinTokens(t.Children) + t.Delim.close()
	default:
		return t.Text
	}
}

// joinTokens renders toks back to template syntax. Tokens that touched in
// the source stay joined so operators like == and && survive.
func joinTokens(toks []Token) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 && !toks[i-1].adjacent(t) {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.String())
	}
	return sb.String()
}

// describe names a token for error messages
func describe(t Token) string {
	switch t.Kind {
	case Group:
		return fmt.Sprintf("%q group", t.Delim.open()+"…"+t.Delim.close())
	case String:
		return "string " + strconv.Quote(t.Text)
	default:
		return fmt.Sprintf("%s %q", t.Kind, t.Text)
	}
}
