package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sousajf1/nushell/internal/hir"
	"github.com/sousajf1/nushell/internal/indexmap"
	"github.com/sousajf1/nushell/internal/protocol"
	"github.com/sousajf1/nushell/internal/shell"
	"github.com/sousajf1/nushell/internal/stream"
)

// interpreter turns the results of one command into the values handed to
// the next stage, performing actions as they arrive. Errors become error
// values so the stage executor can cut the stream at the first one.
type interpreter struct {
	ec      *Context
	command hir.InternalCommand
	log     *zap.Logger
}

func (i *interpreter) interpret(ctx context.Context, item protocol.ReturnValue) stream.Stream[protocol.Value] {
	switch item.Kind {
	case protocol.ResultValue:
		return stream.One(item.Value)
	case protocol.ResultDebugValue:
		rendered := protocol.RenderDebug(item.Value, i.ec.width()-5)
		return stream.One(protocol.StringValue(rendered, item.Value.Tag))
	case protocol.ResultError:
		return stream.One(protocol.ErrorResultValue(item.Err))
	case protocol.ResultAction:
		return i.perform(ctx, item.Action)
	default:
		return stream.Empty[protocol.Value]()
	}
}

func (i *interpreter) perform(ctx context.Context, action protocol.CommandAction) stream.Stream[protocol.Value] {
	ec := i.ec
	i.log.Debug("performing action", zap.String("action", action.Describe()))

	switch a := action.(type) {
	case protocol.ChangePath:
		ec.Shells.SetPath(a.Path)

	case protocol.Exit:
		ec.terminate(0)

	case protocol.ErrorAction:
		ec.ReportError(a.Err)

	case protocol.EnterShell:
		fs, err := shell.NewFilesystemShell(ec.ResolvePath(a.Location))
		if err != nil {
			ec.ReportError(i.constructionError(err))
			break
		}
		ec.Shells.InsertAtCurrent(fs)

	case protocol.EnterValueShell:
		ec.Shells.InsertAtCurrent(shell.NewValueShell(a.Value))

	case protocol.EnterHelpShell:
		if name, ok := a.Value.Value.(protocol.String); ok {
			hs, err := shell.NewHelpShellForCommand(ec.Scope, string(name))
			if err != nil {
				ec.ReportError(i.constructionError(err))
				break
			}
			ec.Shells.InsertAtCurrent(hs)
			break
		}
		ec.Shells.InsertAtCurrent(shell.NewHelpShellIndex(ec.Scope))

	case protocol.AddVariable:
		ec.Scope.AddVar(a.Name, a.Value)

	case protocol.AddEnvVariable:
		ec.Scope.AddEnvVar(a.Name, a.Value)

	case protocol.SourceScript:
		ec.SourceScript(ctx, a.Path)

	case protocol.AddPlugins:
		i.addPlugins(a.Path)

	case protocol.PreviousShell:
		ec.Shells.Prev()

	case protocol.NextShell:
		ec.Shells.Next()

	case protocol.LeaveShell:
		ec.Shells.RemoveAtCurrent()
		if ec.Shells.IsEmpty() {
			ec.terminate(0)
		}

	case protocol.AutoConvert:
		return i.autoConvert(ctx, a)

	default:
		ec.ReportError(protocol.UntaggedRuntimeError(fmt.Sprintf("Unsupported action: %s", action.Describe())))
	}
	return stream.Empty[protocol.Value]()
}

func (i *interpreter) constructionError(err error) *protocol.ShellError {
	return &protocol.ShellError{
		Kind:    protocol.ShellConstructionFailure,
		Message: err.Error(),
		Label:   "could not enter shell",
		Span:    i.command.NameSpan,
	}
}

func (i *interpreter) addPlugins(path string) {
	ec := i.ec
	if ec.Plugins == nil {
		ec.ReportError(&protocol.ShellError{Kind: protocol.PluginScanFailure, Message: "Plugins are not available"})
		return
	}
	found, err := ec.Plugins.Scan([]string{ec.ResolvePath(path)})
	if err != nil {
		ec.ReportError(protocol.Wrap(protocol.PluginScanFailure, "Could not load plugins", err))
		return
	}
	for _, cmd := range found {
		if ec.Scope.HasCommand(cmd.Name()) {
			continue
		}
		ec.Scope.AddCommand(cmd.Name(), cmd)
		i.log.Debug("plugin registered", zap.String("plugin", cmd.Name()))
	}
}

// autoConvert runs "from <extension>" over the value when such a command
// exists. Tables in the converter's output are spliced in element by
// element; other values take the tag of the original value.
func (i *interpreter) autoConvert(ctx context.Context, a protocol.AutoConvert) stream.Stream[protocol.Value] {
	ec := i.ec
	converter, ok := ec.Scope.GetCommand("from " + a.Extension)
	if !ok {
		return stream.One(a.Value)
	}

	args := &RawCommandArgs{
		Context: ec,
		Call: CallInfo{
			Args: hir.Call{
				Head:  i.command.Args.Head,
				Named: indexmap.New[string, hir.NamedValue](),
				Span:  i.command.Args.Span,
			},
			NameTag: protocol.UnknownAnchor(i.command.NameSpan),
		},
		Input: stream.One(a.Value),
	}
	results, err := converter.Run(ctx, args)
	if err != nil {
		ec.ReportError(protocol.From(err).WithKind(protocol.ConversionFailure))
		return stream.Empty[protocol.Value]()
	}

	var out []protocol.Value
	for _, r := range stream.Drain(ctx, results) {
		switch r.Kind {
		case protocol.ResultValue:
			if table, ok := r.Value.Value.(protocol.Table); ok {
				out = append(out, table...)
				continue
			}
			out = append(out, protocol.IntoValue(r.Value.Value, a.Value.Tag))
		case protocol.ResultError:
			out = append(out, protocol.ErrorResultValue(r.Err))
		}
	}
	return stream.FromSlice(out)
}
