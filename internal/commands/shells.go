package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/sousajf1/nushell/internal/engine"
	"github.com/sousajf1/nushell/internal/protocol"
	"github.com/sousajf1/nushell/internal/shell"
	"github.com/sousajf1/nushell/internal/stream"
)

func currentShell(args *engine.RawCommandArgs) (shell.Shell, error) {
	current := args.Context.Shells.Current()
	if current == nil {
		return nil, protocol.LabeledError("No shell is open", "no shell", args.Call.NameTag.Span)
	}
	return current, nil
}

func builtinCd(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	evaluated, err := args.Evaluate()
	if err != nil {
		return nil, err
	}
	current, err := currentShell(args)
	if err != nil {
		return nil, err
	}

	var target string
	if v, ok := evaluated.Nth(0); ok {
		if target, err = v.AsString(); err != nil {
			return nil, err
		}
	}
	path, err := current.Cd(target)
	if err != nil {
		return nil, protocol.LabeledError(err.Error(), "can not change to this path", argSpan(args, 0))
	}
	return stream.One(protocol.ChangeCwd(path)), nil
}

func builtinLs(ctx context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	evaluated, err := args.Evaluate()
	if err != nil {
		return nil, err
	}
	current, err := currentShell(args)
	if err != nil {
		return nil, err
	}

	if v, ok := evaluated.Nth(0); ok {
		target, err := v.AsString()
		if err != nil {
			return nil, err
		}
		path, err := current.Cd(target)
		if err != nil {
			return nil, protocol.LabeledError(err.Error(), "can not list this path", argSpan(args, 0))
		}
		current = withPath(current, path)
	}

	listing, err := current.Ls(ctx, args.Call.NameTag)
	if err != nil {
		return nil, protocol.LabeledError(err.Error(), "can not list", args.Call.NameTag.Span)
	}
	return values(listing...), nil
}

// withPath returns a copy of s positioned at path, leaving s untouched.
func withPath(s shell.Shell, path string) shell.Shell {
	switch s := s.(type) {
	case *shell.FilesystemShell:
		c := *s
		c.SetPath(path)
		return &c
	case *shell.ValueShell:
		c := *s
		c.SetPath(path)
		return &c
	case *shell.HelpShell:
		c := *s
		c.SetPath(path)
		return &c
	}
	return s
}

func builtinPwd(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	current, err := currentShell(args)
	if err != nil {
		return nil, err
	}
	return values(protocol.StringValue(current.Path(), args.Call.NameTag)), nil
}

// builtinEnter opens a filesystem shell on a directory. A file is opened
// and its converted contents entered as a value shell.
func builtinEnter(ctx context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	evaluated, err := args.Evaluate()
	if err != nil {
		return nil, err
	}
	location, err := evaluated.ExpectString(0, "location", args.Call.NameTag)
	if err != nil {
		return nil, err
	}
	if location == "help" {
		return actions(protocol.EnterHelpShell{Value: protocol.NothingValue(args.Call.NameTag)}), nil
	}

	resolved := args.Context.ResolvePath(location)
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, protocol.LabeledError(fmt.Sprintf("Can not enter %s", location), "path not found", argSpan(args, 0))
	}
	if info.IsDir() {
		return actions(protocol.EnterShell{Location: resolved}), nil
	}

	v, err := loadFile(resolved, protocol.Tag{Anchor: resolved, Span: argSpan(args, 0)})
	if err != nil {
		return nil, err
	}
	converted, err := convert(ctx, args, v, engine.UncompressedExt(resolved))
	if err != nil {
		return nil, err
	}
	return actions(protocol.EnterValueShell{Value: converted}), nil
}

// convert runs "from <ext>" over v directly, returning v unchanged when no
// such converter is registered. Multiple outputs are collected in a table.
func convert(ctx context.Context, args *engine.RawCommandArgs, v protocol.Value, ext string) (protocol.Value, error) {
	converter, ok := args.Context.Scope.GetCommand("from " + ext)
	if !ok {
		return v, nil
	}
	results, err := converter.Run(ctx, &engine.RawCommandArgs{
		Context: args.Context,
		Call:    args.Call,
		Input:   stream.One(v),
	})
	if err != nil {
		return protocol.Value{}, err
	}

	var out protocol.Table
	for _, r := range stream.Drain(ctx, results) {
		switch r.Kind {
		case protocol.ResultError:
			return protocol.Value{}, r.Err
		case protocol.ResultValue:
			out = append(out, r.Value)
		}
	}
	if len(out) == 1 {
		return protocol.IntoValue(out[0].Value, v.Tag), nil
	}
	return protocol.IntoValue(out, v.Tag), nil
}

func builtinPrev(context.Context, *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	return actions(protocol.PreviousShell{}), nil
}

func builtinNext(context.Context, *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	return actions(protocol.NextShell{}), nil
}

func builtinShells(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	tag := args.Call.NameTag
	var out []protocol.Value
	for _, info := range args.Context.Shells.Shells() {
		active := ""
		if info.Active {
			active = "X"
		}
		out = append(out, protocol.NewRowBuilder().
			Insert("index", protocol.IntValue(int64(info.Index), tag)).
			Insert("id", protocol.StringValue(info.ID.String(), tag)).
			Insert("active", protocol.StringValue(active, tag)).
			Insert("name", protocol.StringValue(info.Name, tag)).
			Insert("path", protocol.StringValue(info.Path, tag)).
			Build(tag))
	}
	return values(out...), nil
}

// builtinHelp lists commands, or the parameters of one. With --browse it
// opens the help shell instead.
func builtinHelp(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	evaluated, err := args.Evaluate()
	if err != nil {
		return nil, err
	}
	tag := args.Call.NameTag
	scope := args.Context.Scope

	name, hasName := "", false
	if v, ok := evaluated.Nth(0); ok {
		if name, err = v.AsString(); err != nil {
			return nil, err
		}
		hasName = true
	}

	if evaluated.Has("browse") {
		target := protocol.NothingValue(tag)
		if hasName {
			target = protocol.StringValue(name, tag)
		}
		return actions(protocol.EnterHelpShell{Value: target}), nil
	}

	if hasName {
		sig, ok := scope.GetSignature(name)
		if !ok {
			return nil, protocol.LabeledError(
				fmt.Sprintf("No help available for %s", strconv.Quote(name)), "unknown command", argSpan(args, 0))
		}
		return values(shell.SignatureRows(sig, tag)...), nil
	}

	var out []protocol.Value
	for _, n := range scope.GetCommandNames() {
		sig, _ := scope.GetSignature(n)
		out = append(out, protocol.NewRowBuilder().
			Insert("name", protocol.StringValue(n, tag)).
			Insert("description", protocol.StringValue(sig.Usage, tag)).
			Build(tag))
	}
	return values(out...), nil
}
