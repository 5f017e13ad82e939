package engine

import (
	"context"

	"github.com/sousajf1/nushell/internal/hir"
	"github.com/sousajf1/nushell/internal/indexmap"
	"github.com/sousajf1/nushell/internal/protocol"
	"github.com/sousajf1/nushell/internal/stream"
)

// Command is anything that can run as a pipeline stage.
type Command interface {
	Name() string
	Signature() protocol.Signature
	Usage() string
	Run(ctx context.Context, args *RawCommandArgs) (stream.Stream[protocol.ReturnValue], error)
}

type CallInfo struct {
	Args    hir.Call
	NameTag protocol.Tag
}

// RawCommandArgs is what a command receives: its unevaluated call, its
// input stream and the context it runs in.
type RawCommandArgs struct {
	Context *Context
	Call    CallInfo
	Input   stream.Stream[protocol.Value]
}

// EvaluatedArgs holds call arguments after variables are resolved.
// Switches evaluate to true.
type EvaluatedArgs struct {
	Positional []protocol.Value
	Named      *indexmap.Map[string, protocol.Value]
}

func (a *RawCommandArgs) Evaluate() (*EvaluatedArgs, error) {
	out := &EvaluatedArgs{Named: indexmap.New[string, protocol.Value]()}
	scope := a.Context.Scope

	for _, expr := range a.Call.Args.Positional {
		v, err := Evaluate(expr, scope)
		if err != nil {
			return nil, err
		}
		out.Positional = append(out.Positional, v)
	}

	var err error
	a.Call.Args.Named.Range(func(name string, nv hir.NamedValue) bool {
		if nv.Switch || nv.Value == nil {
			out.Named.Set(name, protocol.IntoValue(protocol.Boolean(true), protocol.UnknownAnchor(nv.Span)))
			return true
		}
		var v protocol.Value
		if v, err = Evaluate(*nv.Value, scope); err != nil {
			return false
		}
		out.Named.Set(name, v)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *EvaluatedArgs) Nth(i int) (protocol.Value, bool) {
	if i < 0 || i >= len(e.Positional) {
		return protocol.Value{}, false
	}
	return e.Positional[i], true
}

func (e *EvaluatedArgs) Has(name string) bool {
	return e.Named.Has(name)
}

func (e *EvaluatedArgs) Get(name string) (protocol.Value, bool) {
	return e.Named.Get(name)
}

// ExpectString returns positional i as text, failing with an error pointing
// at the command name when it is missing.
func (e *EvaluatedArgs) ExpectString(i int, what string, nameTag protocol.Tag) (string, error) {
	v, ok := e.Nth(i)
	if !ok {
		return "", protocol.LabeledError("Missing "+what, "requires "+what, nameTag.Span)
	}
	return v.AsString()
}

// customCommand runs the body of a `def` in a fresh frame with its
// parameters bound as variables.
type customCommand struct {
	block *hir.Block
}

func (c *customCommand) Name() string                  { return c.block.Params.Name }
func (c *customCommand) Signature() protocol.Signature { return c.block.Params }
func (c *customCommand) Usage() string                 { return c.block.Params.Usage }

func (c *customCommand) Run(ctx context.Context, args *RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	evaluated, err := args.Evaluate()
	if err != nil {
		return nil, err
	}

	ec := args.Context
	guard := ec.Scope.Enter()
	defer guard.Release()

	sig := c.block.Params
	for i, p := range sig.Positional {
		v, ok := evaluated.Nth(i)
		if !ok {
			v = protocol.NothingValue(args.Call.NameTag)
		}
		ec.Scope.AddVar(p.Name, v)
	}
	if sig.Rest != nil && len(evaluated.Positional) > len(sig.Positional) {
		rest := append(protocol.Table(nil), evaluated.Positional[len(sig.Positional):]...)
		ec.Scope.AddVar(sig.Rest.Name, protocol.IntoValue(rest, args.Call.NameTag))
	}
	for _, n := range sig.Named {
		if n.Switch {
			ec.Scope.AddVar(n.Name, protocol.IntoValue(protocol.Boolean(evaluated.Has(n.Name)), args.Call.NameTag))
			continue
		}
		v, ok := evaluated.Get(n.Name)
		if !ok {
			v = protocol.NothingValue(args.Call.NameTag)
		}
		ec.Scope.AddVar(n.Name, v)
	}

	out, err := RunBlock(ctx, ec, c.block, args.Input)
	if err != nil {
		return nil, err
	}
	values := stream.Drain(ctx, out)
	return stream.Map(stream.FromSlice(values), protocol.ValueResult), nil
}
