package ui

import (
	"fmt"
	"strings"

	"github.com/recera/rocal/pkg/ui/eval"
)

// Instruction is one step of a compiled Program
type Instruction interface {
	instruction()
}

// Program is the ordered instruction sequence a template compiles to
type Program []Instruction

// AppendLiteral writes Text verbatim
type AppendLiteral struct {
	Text string
}

// AppendEscaped evaluates Expr and writes it HTML-escaped
type AppendEscaped struct {
	Expr *eval.Expr
}

// AppendRaw evaluates Expr and writes it as is
type AppendRaw struct {
	Expr *eval.Expr
}

// Branch runs the body of the first arm whose condition holds. An arm with
// a nil Cond is the else arm and is always last.
type Branch struct {
	Arms []Arm
}

// Arm is one alternative of a Branch
type Arm struct {
	Cond *eval.Expr
	Body Program
}

// ForEach runs Body once per element of Iterable, with Binding set to the
// element
type ForEach struct {
	Binding  string
	Iterable *eval.Expr
	Body     Program
}

func (AppendLiteral) instruction() {}
func (AppendEscaped) instruction() {}
func (AppendRaw) instruction()     {}
func (Branch) instruction()        {}
func (ForEach) instruction()       {}

// Generate compiles a document tree into a Program in a single pre-order
// pass. Output order follows document order exactly; literals are neither
// merged nor reordered.
func Generate(root *Fragment) Program {
	g := &generator{}
	g.nodes(root.Children)
	return g.prog
}

type generator struct {
	prog Program
}

func (g *generator) emit(in Instruction) {
	g.prog = append(g.prog, in)
}

func (g *generator) literal(text string) {
	g.emit(AppendLiteral{Text: text})
}

func (g *generator) nodes(nodes []Node) {
	for _, n := range nodes {
		g.node(n)
	}
}

func (g *generator) node(n Node) {
	switch n := n.(type) {
	case *Fragment:
		g.nodes(n.Children)

	case *Element:
		g.literal("<" + n.Name)
		for _, attr := range n.Attributes {
			g.attribute(attr)
		}
		g.literal(">")

		if IsVoid(n.Name) {
			return
		}
		g.nodes(n.Children)
		g.literal("</" + n.Name + ">")

	case *Text:
		g.literal(n.Literal)

	case *SanitizedExpr:
		g.emit(AppendEscaped{Expr: n.Expr})

	case *RawExpr:
		g.emit(AppendRaw{Expr: n.Expr})

	case *DocType:
		g.literal("<!DOCTYPE html>")

	case *Conditional:
		arms := make([]Arm, len(n.Branches))
		for i, branch := range n.Branches {
			arms[i] = Arm{Cond: branch.Cond, Body: Generate(branch.Body)}
		}
		g.emit(Branch{Arms: arms})

	case *Loop:
		g.emit(ForEach{
			Binding:  n.Binding,
			Iterable: n.Iterable,
			Body:     Generate(n.Body),
		})
	}
}

func (g *generator) attribute(attr Attribute) {
	switch v := attr.Value.(type) {
	case nil:
		g.literal(" " + attr.Key)
	case StaticText:
		g.literal(" " + attr.Key + `="` + string(v) + `"`)
	case DynamicExpr:
		g.literal(" " + attr.Key + `="`)
		g.emit(AppendEscaped{Expr: v.Expr})
		g.literal(`"`)
	}
}

// String returns a readable listing of the program, one instruction per
// line, with nested bodies indented
func (p Program) String() string {
	var sb strings.Builder
	p.list(&sb, 0)
	return sb.String()
}

func (p Program) list(sb *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)

	for _, in := range p {
		switch in := in.(type) {
		case AppendLiteral:
			fmt.Fprintf(sb, "%sliteral %q\n", indent, in.Text)
		case AppendEscaped:
			fmt.Fprintf(sb, "%sescaped %s\n", indent, in.Expr)
		case AppendRaw:
			fmt.Fprintf(sb, "%sraw %s\n", indent, in.Expr)
		case Branch:
			for i, arm := range in.Arms {
				switch {
				case i == 0:
					fmt.Fprintf(sb, "%sif %s\n", indent, arm.Cond)
				case arm.Cond != nil:
					fmt.Fprintf(sb, "%selse if %s\n", indent, arm.Cond)
				default:
					fmt.Fprintf(sb, "%selse\n", indent)
				}
				arm.Body.list(sb, depth+1)
			}
			fmt.Fprintf(sb, "%send\n", indent)
		case ForEach:
			fmt.Fprintf(sb, "%sfor %s in %s\n", indent, in.Binding, in.Iterable)
			in.Body.list(sb, depth+1)
			fmt.Fprintf(sb, "%send\n", indent)
		}
	}
}
