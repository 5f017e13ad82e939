package engine

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sousajf1/nushell/internal/hir"
	"github.com/sousajf1/nushell/internal/protocol"
	"github.com/sousajf1/nushell/internal/stream"
)

const untrustCommand = "autoenv untrust"

// RunInternalCommand runs one pipeline stage. The command's results pass
// through the action interpreter; the returned stream ends right before the
// first error, which is reported once.
func RunInternalCommand(ctx context.Context, ec *Context, cmd hir.InternalCommand, input stream.Stream[protocol.Value]) (stream.Stream[protocol.Value], error) {
	if ec.Terminated() {
		return stream.Empty[protocol.Value](), nil
	}

	if cmd.Name == untrustCommand {
		ec.untrusted.Store(true)
	}

	command, err := ec.Scope.ExpectCommand(cmd.Name)
	if err != nil {
		return nil, copyWithSpan(protocol.From(err), cmd.NameSpan)
	}

	log := ec.Logger.With(
		zap.String("command", cmd.Name),
		zap.String("trace", uuid.NewString()),
	)
	log.Debug("running command")

	results, err := command.Run(ctx, &RawCommandArgs{
		Context: ec,
		Call: CallInfo{
			Args:    cmd.Args,
			NameTag: protocol.UnknownAnchor(cmd.NameSpan),
		},
		Input: input,
	})
	if err != nil {
		se := protocol.From(err)
		if se.Span.IsUnknown() {
			se = copyWithSpan(se, cmd.NameSpan)
		}
		return nil, se
	}

	results = stream.Interruptible(results, ec.CtrlC)
	results = untilTerminated(ec, results)

	interp := &interpreter{ec: ec, command: cmd, log: log}
	values := stream.FlatMap(results, interp.interpret)

	values = stream.TakeWhile(values, func(v protocol.Value) bool {
		if !v.IsError() {
			return true
		}
		err := v.Err()
		if err == nil {
			err = protocol.UntaggedRuntimeError("unknown error")
		}
		ec.ReportError(err)
		return false
	})
	// Stages downstream of an exit must not see another item either.
	return untilTerminated(ec, values), nil
}

// untilTerminated stops pulling from s once the session is exiting. An
// item produced by the pull that triggered the exit is dropped as well.
func untilTerminated[T any](ec *Context, s stream.Stream[T]) stream.Stream[T] {
	return stream.Func[T](func(ctx context.Context) (T, bool) {
		var zero T
		if ec.Terminated() {
			return zero, false
		}
		item, ok := s.Next(ctx)
		if !ok || ec.Terminated() {
			return zero, false
		}
		return item, true
	})
}

func copyWithSpan(err *protocol.ShellError, span protocol.Span) *protocol.ShellError {
	out := *err
	out.Span = span
	return &out
}

// RunPipeline chains the stages of p, feeding input to the first one.
func RunPipeline(ctx context.Context, ec *Context, p hir.Pipeline, input stream.Stream[protocol.Value]) (stream.Stream[protocol.Value], error) {
	current := input
	if current == nil {
		current = stream.Empty[protocol.Value]()
	}
	for _, cmd := range p.Commands {
		out, err := RunInternalCommand(ctx, ec, cmd, current)
		if err != nil {
			return nil, err
		}
		current = out
	}
	return current, nil
}

// RunBlock registers the block's definitions and runs its pipelines in
// order. Output of all but the last pipeline is drained and dropped; the
// last pipeline's stream is returned.
func RunBlock(ctx context.Context, ec *Context, block *hir.Block, input stream.Stream[protocol.Value]) (stream.Stream[protocol.Value], error) {
	for _, def := range block.Definitions {
		ec.Scope.AddDefinition(def)
	}

	if len(block.Pipelines) == 0 {
		return stream.Empty[protocol.Value](), nil
	}

	for idx, p := range block.Pipelines {
		if ec.Terminated() {
			return stream.Empty[protocol.Value](), nil
		}
		in := stream.Empty[protocol.Value]()
		if idx == 0 {
			in = input
		}
		out, err := RunPipeline(ctx, ec, p, in)
		if err != nil {
			return nil, err
		}
		if idx == len(block.Pipelines)-1 {
			return out, nil
		}
		stream.Drain(ctx, out)
	}
	return stream.Empty[protocol.Value](), nil
}
