package plugin

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sousajf1/nushell/internal/engine"
	"github.com/sousajf1/nushell/internal/protocol"
	"github.com/sousajf1/nushell/internal/stream"
)

// Command runs a plugin executable as a pipeline stage.
type Command struct {
	desc   Descriptor
	exec   string
	logger *zap.Logger
}

func (c *Command) Name() string                  { return c.desc.Name }
func (c *Command) Usage() string                 { return c.desc.Usage }
func (c *Command) Signature() protocol.Signature { return c.desc.Signature() }

func (c *Command) Run(ctx context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	evaluated, err := args.Evaluate()
	if err != nil {
		return nil, err
	}
	nameSpan := args.Call.NameTag.Span

	argv := append([]string(nil), c.desc.Args...)
	for _, v := range evaluated.Positional {
		s, err := v.AsString()
		if err != nil {
			return nil, err
		}
		argv = append(argv, s)
	}

	// The input is collected up front so pulling it, which can perform
	// actions of earlier stages, stays on the caller's goroutine.
	input := stream.Drain(ctx, args.Input)

	out, err := c.exchange(ctx, argv, input, protocol.UnknownAnchor(nameSpan))
	if err != nil {
		return nil, err
	}
	return stream.Map(stream.FromSlice(out), protocol.ValueResult), nil
}

// exchange starts the executable, feeds it input and collects what it
// prints.
func (c *Command) exchange(ctx context.Context, argv []string, input []protocol.Value, tag protocol.Tag) ([]protocol.Value, error) {
	log := c.logger.With(zap.String("plugin", c.desc.Name))

	cmd := exec.CommandContext(ctx, c.exec, argv...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	log.Debug("starting plugin", zap.String("exec", c.exec), zap.Strings("args", argv), zap.Int("inputs", len(input)))
	if err := cmd.Start(); err != nil {
		return nil, protocol.LabeledError(fmt.Sprintf("Could not start plugin %s", c.desc.Name), err.Error(), tag.Span)
	}

	var out []protocol.Value
	var g errgroup.Group
	g.Go(func() error {
		return writeInput(stdin, input)
	})
	g.Go(func() error {
		err := protocol.DecodeJSONStream(stdout, tag, func(v protocol.Value) error {
			out = append(out, v)
			return nil
		})
		if err != nil {
			// Unblock the process so Wait returns.
			_, _ = io.Copy(io.Discard, stdout)
		}
		return err
	})
	ioErr := g.Wait()
	waitErr := cmd.Wait()

	if waitErr != nil {
		log.Debug("plugin failed", zap.Error(waitErr), zap.String("stderr", stderr.String()))
		label := strings.TrimSpace(stderr.String())
		if label == "" {
			label = waitErr.Error()
		}
		return nil, &protocol.ShellError{
			Kind:    protocol.RuntimeError,
			Message: fmt.Sprintf("Plugin %s failed", c.desc.Name),
			Label:   label,
			Span:    tag.Span,
			Cause:   waitErr,
		}
	}
	if ioErr != nil {
		return nil, &protocol.ShellError{
			Kind:    protocol.RuntimeError,
			Message: fmt.Sprintf("Plugin %s sent invalid output", c.desc.Name),
			Label:   ioErr.Error(),
			Span:    tag.Span,
			Cause:   ioErr,
		}
	}
	log.Debug("plugin finished", zap.Int("outputs", len(out)))
	return out, nil
}

// writeInput sends values as JSON lines and closes stdin. A plugin that
// exits without reading its input is not an error.
func writeInput(stdin io.WriteCloser, input []protocol.Value) error {
	defer stdin.Close()
	w := bufio.NewWriter(stdin)
	for _, v := range input {
		data, err := protocol.ToJSON(v)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return ignoreClosedPipe(err)
		}
	}
	return ignoreClosedPipe(w.Flush())
}

func ignoreClosedPipe(err error) error {
	if errors.Is(err, syscall.EPIPE) {
		return nil
	}
	return err
}
