package ui

import (
	"strings"

	"github.com/recera/rocal/pkg/ui/eval"
)

// Parse tokenizes and parses template source into a document tree
func Parse(name, src string) (*Fragment, error) {
	toks, err := Tokenize(name, src)
	if err != nil {
		return nil, err
	}
	return ParseTokens(name, src, toks)
}

// ParseTokens parses an already tokenized template. src must be the text
// the tokens were produced from; expression spans are cut from it verbatim.
// When src is empty the spans are rebuilt from the tokens instead.
func ParseTokens(name, src string, toks []Token) (*Fragment, error) {
	p := &parser{name: name, src: src}
	return p.parse(toks)
}

type parser struct {
	name string
	src  string
}

// frame is an element whose closing tag has not been seen yet. The bottom
// frame of every stack has a nil elem and collects the fragment's children.
type frame struct {
	elem     *Element
	children []Node
}

// parse builds a fragment from toks using an explicit stack of open
// elements. Conditional and loop bodies are parsed as separate fragments.
func (p *parser) parse(toks []Token) (*Fragment, error) {
	stack := []*frame{{}}

	for i := 0; i < len(toks); {
		top := stack[len(stack)-1]
		t := toks[i]

		switch {
		case t.isPunct("<") && i+1 < len(toks) && toks[i+1].isPunct("/"):
			name, next, err := p.parseEndTag(toks, i)
			if err != nil {
				return nil, err
			}
			if top.elem == nil {
				return nil, newSyntaxError(UnmatchedClosingTag, p.name, t.Pos,
					"closing tag </%s> has no open element", name)
			}
			if !strings.EqualFold(top.elem.Name, name) {
				return nil, newSyntaxError(TagNameMismatch, p.name, t.Pos,
					"closing tag </%s> does not match <%s> opened at %s",
					name, top.elem.Name, top.elem.Position)
			}
			top.elem.Children = top.children
			stack = stack[:len(stack)-1]
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, top.elem)
			i = next

		case t.isPunct("<") && i+1 < len(toks) && toks[i+1].isPunct("!"):
			next, err := p.parseDocType(toks, i)
			if err != nil {
				return nil, err
			}
			top.children = append(top.children, &DocType{Position: t.Pos})
			i = next

		case t.isPunct("<"):
			elem, selfClosed, next, err := p.parseStartTag(toks, i)
			if err != nil {
				return nil, err
			}
			if IsVoid(elem.Name) || selfClosed {
				top.children = append(top.children, elem)
			} else {
				stack = append(stack, &frame{elem: elem})
			}
			i = next

		case t.isGroup(Brace):
			n, err := p.parseBraces(t)
			if err != nil {
				return nil, err
			}
			top.children = append(top.children, n)
			i++

		case t.isIdent("if"):
			n, next, err := p.parseConditional(toks, i)
			if err != nil {
				return nil, err
			}
			top.children = append(top.children, n)
			i = next

		case t.isIdent("for"):
			n, next, err := p.parseLoop(toks, i)
			if err != nil {
				return nil, err
			}
			top.children = append(top.children, n)
			i = next

		default:
			return nil, newSyntaxError(InvalidLeadingToken, p.name, t.Pos,
				"unexpected %s; text must be quoted inside braces", describe(t))
		}
	}

	if len(stack) > 1 {
		open := stack[len(stack)-1].elem
		return nil, newSyntaxError(UnbalancedRoot, p.name, open.Position,
			"element <%s> is never closed", open.Name)
	}

	return &Fragment{Children: stack[0].children}, nil
}

// parseStartTag reads <name attr*> or <name attr* />
func (p *parser) parseStartTag(toks []Token, i int) (*Element, bool, int, error) {
	lt := toks[i]
	i++

	name, i, ok := readName(toks, i)
	if !ok {
		if i < len(toks) {
			return nil, false, 0, newSyntaxError(InvalidLeadingToken, p.name, lt.Pos,
				"expected tag name after '<', found %s", describe(toks[i]))
		}
		return nil, false, 0, newSyntaxError(UnterminatedStartTag, p.name, lt.Pos,
			"'<' at end of input")
	}

	elem := &Element{Name: name, Position: lt.Pos}

	for {
		if i >= len(toks) {
			return nil, false, 0, newSyntaxError(UnterminatedStartTag, p.name, lt.Pos,
				"start tag <%s> is not terminated", name)
		}

		t := toks[i]
		switch {
		case t.isPunct(">"):
			return elem, false, i + 1, nil

		case t.isPunct("/") && i+1 < len(toks) && toks[i+1].isPunct(">"):
			return elem, true, i + 2, nil

		case t.Kind == Ident:
			attr, next, err := p.parseAttribute(toks, i, elem)
			if err != nil {
				return nil, false, 0, err
			}
			elem.Attributes = append(elem.Attributes, attr)
			i = next

		default:
			return nil, false, 0, newSyntaxError(UnterminatedStartTag, p.name, t.Pos,
				"unexpected %s in start tag <%s>", describe(t), name)
		}
	}
}

// parseAttribute reads key or key=value. Values are a quoted string, a
// number, or a {{ expr }} group.
func (p *parser) parseAttribute(toks []Token, i int, elem *Element) (Attribute, int, error) {
	key, i, _ := readName(toks, i)
	attr := Attribute{Key: key}

	if i >= len(toks) || !toks[i].isPunct("=") {
		return attr, i, nil
	}
	eq := toks[i]
	i++

	if i >= len(toks) {
		return attr, 0, newSyntaxError(UnterminatedStartTag, p.name, eq.Pos,
			"attribute %s of <%s> has no value", key, elem.Name)
	}

	v := toks[i]
	switch {
	case v.Kind == String, v.Kind == Number:
		attr.Value = StaticText(v.Text)

	case v.isGroup(Brace) && len(v.Children) == 1 && v.Children[0].isGroup(Brace):
		e, err := p.compile(v.Children[0].Children, v.Pos)
		if err != nil {
			return attr, 0, err
		}
		attr.Value = DynamicExpr{Expr: e}

	default:
		return attr, 0, newSyntaxError(UnterminatedStartTag, p.name, v.Pos,
			"attribute %s of <%s> needs a quoted value or {{ expression }}, found %s",
			key, elem.Name, describe(v))
	}

	return attr, i + 1, nil
}

// parseEndTag reads </name>
func (p *parser) parseEndTag(toks []Token, i int) (string, int, error) {
	lt := toks[i]
	i += 2

	name, i, ok := readName(toks, i)
	if !ok {
		return "", 0, newSyntaxError(UnterminatedStartTag, p.name, lt.Pos,
			"closing tag has no name")
	}
	if i >= len(toks) || !toks[i].isPunct(">") {
		return "", 0, newSyntaxError(UnterminatedStartTag, p.name, lt.Pos,
			"closing tag </%s> is not terminated", name)
	}

	return name, i + 1, nil
}

// parseDocType reads <!DOCTYPE html>
func (p *parser) parseDocType(toks []Token, i int) (int, error) {
	lt := toks[i]
	i += 2

	if i >= len(toks) || toks[i].Kind != Ident || !strings.EqualFold(toks[i].Text, "doctype") {
		return 0, newSyntaxError(MissingDoctypeKeyword, p.name, lt.Pos,
			"expected DOCTYPE after '<!'")
	}
	i++
	if i >= len(toks) || toks[i].Kind != Ident || !strings.EqualFold(toks[i].Text, "html") {
		return 0, newSyntaxError(MissingDoctypeKeyword, p.name, lt.Pos,
			"expected html after <!DOCTYPE")
	}
	i++
	if i >= len(toks) || !toks[i].isPunct(">") {
		return 0, newSyntaxError(UnterminatedStartTag, p.name, lt.Pos,
			"<!DOCTYPE html is not terminated")
	}

	return i + 1, nil
}

// parseBraces handles the three brace forms:
//
//	{ "text" }    Text
//	{{ expr }}    SanitizedExpr
//	{{{ expr }}}  RawExpr
func (p *parser) parseBraces(g Token) (Node, error) {
	if len(g.Children) != 1 {
		return nil, newSyntaxError(InvalidLeadingToken, p.name, g.Pos,
			"braces must hold a quoted string or a {{ expression }}")
	}

	inner := g.Children[0]
	switch {
	case inner.Kind == String:
		return &Text{Literal: inner.Text, Position: g.Pos}, nil

	case inner.isGroup(Brace) && len(inner.Children) == 1 && inner.Children[0].isGroup(Brace):
		e, err := p.compile(inner.Children[0].Children, g.Pos)
		if err != nil {
			return nil, err
		}
		return &RawExpr{Expr: e, Position: g.Pos}, nil

	case inner.isGroup(Brace):
		e, err := p.compile(inner.Children, g.Pos)
		if err != nil {
			return nil, err
		}
		return &SanitizedExpr{Expr: e, Position: g.Pos}, nil
	}

	return nil, newSyntaxError(InvalidLeadingToken, p.name, inner.Pos,
		"unexpected %s inside braces; text must be quoted", describe(inner))
}

// parseConditional reads if cond { } [else if cond { }]* [else { }]
func (p *parser) parseConditional(toks []Token, i int) (*Conditional, int, error) {
	n := &Conditional{Position: toks[i].Pos}

	cond, body, i, err := p.parseClause(toks, i, "if")
	if err != nil {
		return nil, 0, err
	}
	n.Branches = append(n.Branches, CondBranch{Cond: cond, Body: body})

	for i < len(toks) && toks[i].isIdent("else") {
		elseTok := toks[i]
		i++

		if i < len(toks) && toks[i].isIdent("if") {
			cond, body, next, err := p.parseClause(toks, i, "else if")
			if err != nil {
				return nil, 0, err
			}
			n.Branches = append(n.Branches, CondBranch{Cond: cond, Body: body})
			i = next
			continue
		}

		if i >= len(toks) || !toks[i].isGroup(Brace) {
			return nil, 0, newSyntaxError(MissingConditionOrIterable, p.name, elseTok.Pos,
				"else must be followed by { body } or if")
		}
		body, err := p.parse(toks[i].Children)
		if err != nil {
			return nil, 0, err
		}
		n.Branches = append(n.Branches, CondBranch{Body: body})
		i++
		break
	}

	return n, i, nil
}

// parseClause reads the condition and body that follow the if keyword at i
func (p *parser) parseClause(toks []Token, i int, what string) (*eval.Expr, *Fragment, int, error) {
	kw := toks[i]
	i++

	end := scanToBody(toks, i)
	if end == i {
		return nil, nil, 0, newSyntaxError(MissingConditionOrIterable, p.name, kw.Pos,
			"%s has no condition", what)
	}
	if end >= len(toks) {
		return nil, nil, 0, newSyntaxError(MissingConditionOrIterable, p.name, kw.Pos,
			"%s has no { body }", what)
	}

	cond, err := p.compile(toks[i:end], toks[i].Pos)
	if err != nil {
		return nil, nil, 0, err
	}
	body, err := p.parse(toks[end].Children)
	if err != nil {
		return nil, nil, 0, err
	}

	return cond, body, end + 1, nil
}

// parseLoop reads for binding in iterable { body }
func (p *parser) parseLoop(toks []Token, i int) (*Loop, int, error) {
	kw := toks[i]
	i++

	if i >= len(toks) || toks[i].Kind != Ident {
		return nil, 0, newSyntaxError(MissingConditionOrIterable, p.name, kw.Pos,
			"for needs a loop variable")
	}
	binding := toks[i].Text
	i++

	if i >= len(toks) || !toks[i].isIdent("in") {
		return nil, 0, newSyntaxError(MissingConditionOrIterable, p.name, kw.Pos,
			"expected in after for %s", binding)
	}
	i++

	end := scanToBody(toks, i)
	if end == i {
		return nil, 0, newSyntaxError(MissingConditionOrIterable, p.name, kw.Pos,
			"for %s in has no iterable", binding)
	}
	if end >= len(toks) {
		return nil, 0, newSyntaxError(MissingConditionOrIterable, p.name, kw.Pos,
			"for %s has no { body }", binding)
	}

	iterable, err := p.compile(toks[i:end], toks[i].Pos)
	if err != nil {
		return nil, 0, err
	}
	body, err := p.parse(toks[end].Children)
	if err != nil {
		return nil, 0, err
	}

	return &Loop{
		Binding:  binding,
		Iterable: iterable,
		Body:     body,
		Position: kw.Pos,
	}, end + 1, nil
}

// scanToBody returns the index of the first brace group at or after i, or
// len(toks). Paren and bracket groups are single tokens, so nothing inside
// them can end the scan.
func scanToBody(toks []Token, i int) int {
	for i < len(toks) && !toks[i].isGroup(Brace) {
		i++
	}
	return i
}

// compile turns a token span into an expression handle
func (p *parser) compile(span []Token, at Position) (*eval.Expr, error) {
	e, err := eval.Compile(p.text(span))
	if err != nil {
		return nil, &SyntaxError{
			Kind: InvalidExpression,
			Name: p.name,
			Pos:  at,
			Msg:  err.Error(),
			Err:  err,
		}
	}
	return e, nil
}

// text returns the source covered by span
func (p *parser) text(span []Token) string {
	if len(span) == 0 {
		return ""
	}

	start, end := span[0].Pos.Offset, span[len(span)-1].End
	if p.src != "" && start <= end && end <= len(p.src) {
		return p.src[start:end]
	}

	return joinTokens(span)
}

// readName reads an identifier optionally joined to further identifiers by
// '-' or ':' with no space between, as in data-id or xml:lang.
func readName(toks []Token, i int) (string, int, bool) {
	if i >= len(toks) || toks[i].Kind != Ident {
		return "", i, false
	}

	var sb strings.Builder
	sb.WriteString(toks[i].Text)
	last := toks[i]
	i++

	for i+1 < len(toks) {
		sep, part := toks[i], toks[i+1]
		if !(sep.isPunct("-") || sep.isPunct(":")) || !last.adjacent(sep) || !sep.adjacent(part) {
			break
		}
		if part.Kind != Ident && part.Kind != Number {
			break
		}
		sb.WriteString(sep.Text)
		sb.WriteString(part.Text)
		last = part
		i += 2
	}

	return sb.String(), i, true
}
