package ui

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// shape strips positions so token trees can be compared by kind and text
type shape struct {
	Kind     TokenKind
	Text     string
	Delim    Delimiter
	Children []shape
}

func shapeOf(toks []Token) []shape {
	var out []shape
	for _, t := range toks {
		out = append(out, shape{
			Kind:     t.Kind,
			Text:     t.Text,
			Delim:    t.Delim,
			Children: shapeOf(t.Children),
		})
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []shape
	}{
		{
			name: "tag",
			src:  `<div class="a">`,
			want: []shape{
				{Kind: Punct, Text: "<"},
				{Kind: Ident, Text: "div"},
				{Kind: Ident, Text: "class"},
				{Kind: Punct, Text: "="},
				{Kind: String, Text: "a"},
				{Kind: Punct, Text: ">"},
			},
		},
		{
			name: "nested groups",
			src:  `{{ items[0] }}`,
			want: []shape{
				{Kind: Group, Delim: Brace, Children: []shape{
					{Kind: Group, Delim: Brace, Children: []shape{
						{Kind: Ident, Text: "items"},
						{Kind: Group, Delim: Bracket, Children: []shape{
							{Kind: Number, Text: "0"},
						}},
					}},
				}},
			},
		},
		{
			name: "string escapes",
			src:  `"a\"b\n" 'it\'s' ` + "`raw\\n`",
			want: []shape{
				{Kind: String, Text: "a\"b\n"},
				{Kind: String, Text: "it's"},
				{Kind: String, Text: `raw\n`},
			},
		},
		{
			name: "quotes inside single-quoted strings",
			src:  `'a\"b' 'say "hi"' 'tab\tend' 'back\\slash'`,
			want: []shape{
				{Kind: String, Text: `a"b`},
				{Kind: String, Text: `say "hi"`},
				{Kind: String, Text: "tab\tend"},
				{Kind: String, Text: `back\slash`},
			},
		},
		{
			name: "comments and whitespace",
			src:  "// heading\n  if  // trailing\n\tx",
			want: []shape{
				{Kind: Ident, Text: "if"},
				{Kind: Ident, Text: "x"},
			},
		},
		{
			name: "unicode identifier",
			src:  `héllo 3.5`,
			want: []shape{
				{Kind: Ident, Text: "héllo"},
				{Kind: Number, Text: "3.5"},
			},
		},
		{
			name: "empty",
			src:  "  \n ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Tokenize("test", tt.src)
			if err != nil {
				t.Fatalf("Tokenize() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, shapeOf(toks)); diff != "" {
				t.Errorf("Tokenize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTokenizePositions(t *testing.T) {
	src := "<p>\n  { \"hi\" }"
	toks, err := Tokenize("test", src)
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}

	group := toks[3]
	if want := (Position{Offset: 6, Line: 2, Col: 3}); group.Pos != want {
		t.Errorf("group Pos = %+v, want %+v", group.Pos, want)
	}
	if group.End != len(src) {
		t.Errorf("group End = %d, want %d", group.End, len(src))
	}
	if !toks[0].adjacent(toks[1]) {
		t.Error("'<' and 'p' should be adjacent")
	}
	if toks[2].adjacent(toks[3]) {
		t.Error("'>' and the group are separated by whitespace")
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
		pos  Position
	}{
		{name: "unterminated string", src: `<p>{ "abc }`, want: ErrUnterminatedString, pos: Position{Offset: 5, Line: 1, Col: 6}},
		{name: "bad escape", src: `{ "\q" }`, want: ErrUnterminatedString, pos: Position{Offset: 2, Line: 1, Col: 3}},
		{name: "stray closer", src: `<p> }`, want: ErrUnbalancedDelimiter, pos: Position{Offset: 4, Line: 1, Col: 5}},
		{name: "mismatched closer", src: `{ ( }`, want: ErrUnbalancedDelimiter, pos: Position{Offset: 4, Line: 1, Col: 5}},
		{name: "unclosed group", src: "if x {\n<p>", want: ErrUnbalancedDelimiter, pos: Position{Offset: 5, Line: 1, Col: 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize("test", tt.src)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Tokenize() error = %v, want %v", err, tt.want)
			}
			var serr *SyntaxError
			if !errors.As(err, &serr) {
				t.Fatalf("error %T is not *SyntaxError", err)
			}
			if serr.Pos != tt.pos {
				t.Errorf("Pos = %+v, want %+v", serr.Pos, tt.pos)
			}
		})
	}
}
