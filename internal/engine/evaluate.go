package engine

import (
	"fmt"

	"github.com/sousajf1/nushell/internal/hir"
	"github.com/sousajf1/nushell/internal/protocol"
)

// Evaluate computes the value of an argument expression.
func Evaluate(expr hir.Expression, scope *Scope) (protocol.Value, error) {
	tag := protocol.UnknownAnchor(expr.Span)

	switch expr.Kind {
	case hir.Literal:
		return protocol.IntoValue(expr.Literal, tag), nil

	case hir.List:
		items := make(protocol.Table, 0, len(expr.Items))
		for _, item := range expr.Items {
			v, err := Evaluate(item, scope)
			if err != nil {
				return protocol.Value{}, err
			}
			items = append(items, v)
		}
		return protocol.IntoValue(items, tag), nil

	case hir.Variable:
		v, ok := scope.GetVar(expr.Name)
		if !ok && expr.Name == "env" {
			v, ok = envRow(scope, tag), true
		}
		if !ok {
			return protocol.Value{}, protocol.LabeledError(
				fmt.Sprintf("Unknown variable $%s", expr.Name), "unknown variable", expr.Span)
		}
		if len(expr.Path) == 0 {
			return v, nil
		}
		member, ok := v.Get(expr.Path...)
		if !ok {
			return protocol.Value{}, protocol.LabeledError(
				fmt.Sprintf("Unknown column in %s", expr.String()), "unknown column", expr.Span)
		}
		return member, nil

	default:
		return protocol.Value{}, protocol.LabeledError("Unsupported expression", "here", expr.Span)
	}
}

// envRow exposes the environment of every frame as $env.
func envRow(scope *Scope, tag protocol.Tag) protocol.Value {
	row := protocol.NewRowBuilder()
	scope.GetEnvVars().Range(func(k, v string) bool {
		row.Insert(k, protocol.StringValue(v, tag))
		return true
	})
	return row.Build(tag)
}
