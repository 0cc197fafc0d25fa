package ui

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// lexer turns template source into a token tree. Groups are built with an
// explicit stack so deeply nested braces never grow the call stack.
type lexer struct {
	name string
	src  string
	pos  int
	line int
	col  int
}

type lexFrame struct {
	open Token
	toks []Token
}

// Tokenize splits template source into a token tree. Whitespace and
// line comments (// ...) separate tokens and are dropped.
func Tokenize(name, src string) ([]Token, error) {
	lx := &lexer{
		name: name,
		src:  src,
		line: 1,
		col:  1,
	}
	return lx.run()
}

func (lx *lexer) run() ([]Token, error) {
	stack := []*lexFrame{{}}

	for {
		lx.skipSpace()
		if lx.pos >= len(lx.src) {
			break
		}

		start := lx.position()
		top := stack[len(stack)-1]
		c := lx.src[lx.pos]

		switch {
		case c == '{' || c == '(' || c == '[':
			lx.advance()
			stack = append(stack, &lexFrame{
				open: Token{Kind: Group, Delim: delimiterOf(c), Pos: start},
			})

		case c == '}' || c == ')' || c == ']':
			if len(stack) == 1 {
				return nil, newSyntaxError(UnbalancedDelimiter, lx.name, start,
					"unexpected %q with no matching opener", string(c))
			}
			if top.open.Delim.close() != string(c) {
				return nil, newSyntaxError(UnbalancedDelimiter, lx.name, start,
					"unexpected %q, %q opened at %s is still open",
					string(c), top.open.Delim.open(), top.open.Pos)
			}
			lx.advance()

			group := top.open
			group.Children = top.toks
			group.End = lx.pos
			stack = stack[:len(stack)-1]
			parent := stack[len(stack)-1]
			parent.toks = append(parent.toks, group)

		case c == '"' || c == '\'' || c == '`':
			tok, err := lx.lexString(start, c)
			if err != nil {
				return nil, err
			}
			top.toks = append(top.toks, tok)

		case c >= '0' && c <= '9':
			for lx.pos < len(lx.src) && isNumberPart(lx.src[lx.pos]) {
				lx.advance()
			}
			top.toks = append(top.toks, Token{
				Kind: Number,
				Text: lx.src[start.Offset:lx.pos],
				Pos:  start,
				End:  lx.pos,
			})

		default:
			r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:])
			if isIdentStart(r) {
				for lx.pos < len(lx.src) {
					r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:])
					if !isIdentPart(r) {
						break
					}
					lx.advance()
				}
				top.toks = append(top.toks, Token{
					Kind: Ident,
					Text: lx.src[start.Offset:lx.pos],
					Pos:  start,
					End:  lx.pos,
				})
				continue
			}

			lx.advance()
			top.toks = append(top.toks, Token{
				Kind: Punct,
				Text: lx.src[start.Offset:lx.pos],
				Pos:  start,
				End:  lx.pos,
			})
		}
	}

	if len(stack) > 1 {
		open := stack[len(stack)-1].open
		return nil, newSyntaxError(UnbalancedDelimiter, lx.name, open.Pos,
			"%q is never closed", open.Delim.open())
	}

	return stack[0].toks, nil
}

// lexString reads a quoted literal. Double and single quotes accept Go
// escape sequences; backquotes are raw.
func (lx *lexer) lexString(start Position, quote byte) (Token, error) {
	lx.advance()

	for {
		if lx.pos >= len(lx.src) {
			return Token{}, newSyntaxError(UnterminatedString, lx.name, start,
				"string literal is not terminated")
		}
		c := lx.src[lx.pos]
		if c == '\\' && quote != '`' {
			lx.advance()
			if lx.pos < len(lx.src) {
				lx.advance()
			}
			continue
		}
		lx.advance()
		if c == quote {
			break
		}
	}

	raw := lx.src[start.Offset:lx.pos]
	value, err := unquote(raw, quote)
	if err != nil {
		return Token{}, newSyntaxError(UnterminatedString, lx.name, start,
			"malformed string literal %s", raw)
	}

	return Token{
		Kind: String,
		Text: value,
		Pos:  start,
		End:  lx.pos,
	}, nil
}

var newlineEscaper = strings.NewReplacer("\n", `\n`, "\r", `\r`)

func unquote(raw string, quote byte) (string, error) {
	body := raw[1 : len(raw)-1]
	switch quote {
	case '`':
		return body, nil
	case '\'':
		body = requote(body)
	}
	return strconv.Unquote(`"` + newlineEscaper.Replace(body) + `"`)
}

// requote rewrites a single-quoted body so it unquotes like a double-quoted
// Go string: \' loses its backslash and bare " gains one. Other escapes are
// copied through untouched.
func requote(body string) string {
	var sb strings.Builder
	sb.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body):
			i++
			if body[i] != '\'' {
				sb.WriteByte('\\')
			}
			sb.WriteByte(body[i])
		case c == '"':
			sb.WriteString(`\"`)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		if strings.HasPrefix(lx.src[lx.pos:], "//") {
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.advance()
			}
			continue
		}
		r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		lx.advance()
	}
}

// advance moves past one rune, keeping line and column current
func (lx *lexer) advance() {
	if lx.pos >= len(lx.src) {
		return
	}
	r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
	lx.pos += size
	if r == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
}

func (lx *lexer) position() Position {
	return Position{Offset: lx.pos, Line: lx.line, Col: lx.col}
}

func delimiterOf(c byte) Delimiter {
	switch c {
	case '{':
		return Brace
	case '(':
		return Paren
	default:
		return Bracket
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isNumberPart(c byte) bool {
	return c == '.' || c == '_' ||
		(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
