package ui

import (
	"fmt"
	"strings"

	"github.com/recera/rocal/pkg/ui/eval"
)

// Document tree produced by Parse. A tree is never modified once Parse
// returns, so it may be shared between any number of renders.

// Node is implemented by every node of the document tree
type Node interface {
	Pos() Position
	node()
}

// Fragment is the implicit root grouping top-level siblings. Bodies of
// conditionals and loops are fragments too.
type Fragment struct {
	Children []Node
}

// Element is an HTML element. Void elements never have children.
type Element struct {
	Name       string
	Attributes []Attribute
	Children   []Node
	Position   Position
}

// Text is a literal inserted verbatim
type Text struct {
	Literal  string
	Position Position
}

// SanitizedExpr is an interpolation whose value is HTML-escaped
type SanitizedExpr struct {
	Expr     *eval.Expr
	Position Position
}

// RawExpr is an interpolation whose value is inserted without escaping
type RawExpr struct {
	Expr     *eval.Expr
	Position Position
}

// Conditional is an if / else if / else chain. The first branch always has
// a condition and only the last may omit one.
type Conditional struct {
	Branches []CondBranch
	Position Position
}

// CondBranch is one arm of a Conditional. A nil Cond marks the else arm.
type CondBranch struct {
	Cond *eval.Expr
	Body *Fragment
}

// Loop repeats Body once per element of Iterable with Binding set to it
type Loop struct {
	Binding  string
	Iterable *eval.Expr
	Body     *Fragment
	Position Position
}

// DocType is the <!DOCTYPE html> marker
type DocType struct {
	Position Position
}

// Attribute is a key with an optional value. A nil Value is a boolean
// attribute and renders as the bare key.
type Attribute struct {
	Key   string
	Value AttrValue
}

// AttrValue is StaticText or DynamicExpr
type AttrValue interface {
	attrValue()
}

// StaticText is an attribute value fixed at compile time
type StaticText string

// DynamicExpr is an attribute value evaluated and escaped on each render
type DynamicExpr struct {
	Expr *eval.Expr
}

func (StaticText) attrValue()  {}
func (DynamicExpr) attrValue() {}

func (*Fragment) Pos() Position        { return Position{Line: 1, Col: 1} }
func (n *Element) Pos() Position       { return n.Position }
func (n *Text) Pos() Position          { return n.Position }
func (n *SanitizedExpr) Pos() Position { return n.Position }
func (n *RawExpr) Pos() Position       { return n.Position }
func (n *Conditional) Pos() Position   { return n.Position }
func (n *Loop) Pos() Position          { return n.Position }
func (n *DocType) Pos() Position       { return n.Position }

func (*Fragment) node()      {}
func (*Element) node()       {}
func (*Text) node()          {}
func (*SanitizedExpr) node() {}
func (*RawExpr) node()       {}
func (*Conditional) node()   {}
func (*Loop) node()          {}
func (*DocType) node()       {}

// Walk visits n and its descendants in document order. If fn returns false
// the children of that node are skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}

	switch n := n.(type) {
	case *Fragment:
		for _, child := range n.Children {
			Walk(child, fn)
		}
	case *Element:
		for _, child := range n.Children {
			Walk(child, fn)
		}
	case *Conditional:
		for _, branch := range n.Branches {
			Walk(branch.Body, fn)
		}
	case *Loop:
		Walk(n.Body, fn)
	}
}

// Dump returns an indented, human-readable view of a tree
func Dump(n Node) string {
	var sb strings.Builder
	dump(&sb, n, 0)
	return sb.String()
}

func dump(sb *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)

	switch n := n.(type) {
	case *Fragment:
		sb.WriteString(indent + "Fragment\n")
		for _, child := range n.Children {
			dump(sb, child, depth+1)
		}
	case *Element:
		fmt.Fprintf(sb, "%sElement <%s>", indent, n.Name)
		for _, attr := range n.Attributes {
			switch v := attr.Value.(type) {
			case nil:
				fmt.Fprintf(sb, " %s", attr.Key)
			case StaticText:
				fmt.Fprintf(sb, " %s=%q", attr.Key, string(v))
			case DynamicExpr:
				fmt.Fprintf(sb, " %s={{ %s }}", attr.Key, v.Expr)
			}
		}
		sb.WriteString("\n")
		for _, child := range n.Children {
			dump(sb, child, depth+1)
		}
	case *Text:
		fmt.Fprintf(sb, "%sText %q\n", indent, n.Literal)
	case *SanitizedExpr:
		fmt.Fprintf(sb, "%sSanitized {{ %s }}\n", indent, n.Expr)
	case *RawExpr:
		fmt.Fprintf(sb, "%sRaw {{{ %s }}}\n", indent, n.Expr)
	case *Conditional:
		for i, branch := range n.Branches {
			switch {
			case i == 0:
				fmt.Fprintf(sb, "%sIf %s\n", indent, branch.Cond)
			case branch.Cond != nil:
				fmt.Fprintf(sb, "%sElseIf %s\n", indent, branch.Cond)
			default:
				fmt.Fprintf(sb, "%sElse\n", indent)
			}
			for _, child := range branch.Body.Children {
				dump(sb, child, depth+1)
			}
		}
	case *Loop:
		fmt.Fprintf(sb, "%sFor %s in %s\n", indent, n.Binding, n.Iterable)
		for _, child := range n.Body.Children {
			dump(sb, child, depth+1)
		}
	case *DocType:
		sb.WriteString(indent + "DocType\n")
	}
}
