// Package hir holds the parsed form of scripts that the engine runs.
package hir

import (
	"fmt"
	"strings"

	"github.com/sousajf1/nushell/internal/indexmap"
	"github.com/sousajf1/nushell/internal/protocol"
)

// Block is a sequence of pipelines. A block created by `def` carries the
// command's name and parameters in Params. Definitions lists the blocks
// defined directly inside this one.
type Block struct {
	Params      protocol.Signature
	Definitions []*Block
	Pipelines   []Pipeline
	Span        protocol.Span
}

type Pipeline struct {
	Commands []InternalCommand
	Span     protocol.Span
}

// InternalCommand is one stage of a pipeline.
type InternalCommand struct {
	Name     string
	NameSpan protocol.Span
	Args     Call
}

type Call struct {
	Head       Expression
	Positional []Expression
	Named      *indexmap.Map[string, NamedValue]
	Span       protocol.Span
}

// NamedValue is a flag given at a call site. Value is nil for switches.
type NamedValue struct {
	Switch bool
	Value  *Expression
	Span   protocol.Span
}

// Switch reports whether the switch flag name is present.
func (c Call) Switch(name string) bool {
	nv, ok := c.Named.Get(name)
	return ok && nv.Switch
}

type ExpressionKind int

const (
	Literal ExpressionKind = iota
	Variable
	List
)

type Expression struct {
	Kind    ExpressionKind
	Literal protocol.UntaggedValue
	Name    string
	Path    []string
	Items   []Expression
	Span    protocol.Span
}

func LiteralExpr(v protocol.UntaggedValue, span protocol.Span) Expression {
	return Expression{Kind: Literal, Literal: v, Span: span}
}

func StringExpr(s string, span protocol.Span) Expression {
	return LiteralExpr(protocol.String(s), span)
}

func VariableExpr(name string, path []string, span protocol.Span) Expression {
	return Expression{Kind: Variable, Name: name, Path: path, Span: span}
}

func ListExpr(items []Expression, span protocol.Span) Expression {
	return Expression{Kind: List, Items: items, Span: span}
}

func (e Expression) String() string {
	switch e.Kind {
	case Variable:
		if len(e.Path) == 0 {
			return "$" + e.Name
		}
		return "$" + e.Name + "." + strings.Join(e.Path, ".")
	case List:
		parts := make([]string, len(e.Items))
		for i, item := range e.Items {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		if s, ok := e.Literal.(protocol.String); ok {
			return fmt.Sprintf("%q", string(s))
		}
		return protocol.IntoUntaggedValue(e.Literal).String()
	}
}

func (c InternalCommand) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	for _, arg := range c.Args.Positional {
		b.WriteString(" ")
		b.WriteString(arg.String())
	}
	c.Args.Named.Range(func(name string, nv NamedValue) bool {
		b.WriteString(" --")
		b.WriteString(name)
		if nv.Value != nil {
			b.WriteString(" ")
			b.WriteString(nv.Value.String())
		}
		return true
	})
	return b.String()
}
