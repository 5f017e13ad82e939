package commands

import (
	"context"
	"fmt"

	"github.com/sousajf1/nushell/internal/engine"
	"github.com/sousajf1/nushell/internal/protocol"
	"github.com/sousajf1/nushell/internal/stream"
)

// builtinEcho yields its arguments, spreading lists into their items.
func builtinEcho(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	evaluated, err := args.Evaluate()
	if err != nil {
		return nil, err
	}
	var out []protocol.Value
	for _, v := range evaluated.Positional {
		if table, ok := v.Value.(protocol.Table); ok {
			out = append(out, table...)
			continue
		}
		out = append(out, v)
	}
	return values(out...), nil
}

// binding reads the `name = value` arguments shared by let and let-env.
func binding(args *engine.RawCommandArgs) (string, protocol.Value, error) {
	evaluated, err := args.Evaluate()
	if err != nil {
		return "", protocol.Value{}, err
	}
	name, err := evaluated.ExpectString(0, "variable name", args.Call.NameTag)
	if err != nil {
		return "", protocol.Value{}, err
	}
	if eq, _ := evaluated.ExpectString(1, "=", args.Call.NameTag); eq != "=" {
		return "", protocol.Value{}, protocol.LabeledError(
			fmt.Sprintf("Expected '=' after %s", name), "expected '='", argSpan(args, 1))
	}
	v, _ := evaluated.Nth(2)
	return name, v, nil
}

func builtinLet(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	name, v, err := binding(args)
	if err != nil {
		return nil, err
	}
	return actions(protocol.AddVariable{Name: name, Value: v}), nil
}

func builtinLetEnv(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	name, v, err := binding(args)
	if err != nil {
		return nil, err
	}
	text, err := v.AsString()
	if err != nil {
		return nil, err
	}
	return actions(protocol.AddEnvVariable{Name: name, Value: text}), nil
}

func builtinExit(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	if args.Call.Args.Switch("now") {
		return actions(protocol.Exit{}), nil
	}
	return actions(protocol.LeaveShell{}), nil
}

func builtinDebug(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	return stream.Map(args.Input, protocol.DebugValueResult), nil
}

func builtinSource(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	evaluated, err := args.Evaluate()
	if err != nil {
		return nil, err
	}
	path, err := evaluated.ExpectString(0, "filename", args.Call.NameTag)
	if err != nil {
		return nil, err
	}
	return actions(protocol.SourceScript{Path: protocol.Spanned[string]{Item: path, Span: argSpan(args, 0)}}), nil
}

func builtinLoadPlugins(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	evaluated, err := args.Evaluate()
	if err != nil {
		return nil, err
	}
	path, err := evaluated.ExpectString(0, "path", args.Call.NameTag)
	if err != nil {
		return nil, err
	}
	return actions(protocol.AddPlugins{Path: path}), nil
}

// builtinUntrust only reports; the engine records the untrust itself
// before the command runs.
func builtinUntrust(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	return values(protocol.StringValue("current directory is no longer trusted", args.Call.NameTag)), nil
}
