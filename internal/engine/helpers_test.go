package engine

import (
	"context"
	"os"
	"testing"

	"go.uber.org/goleak"

	"github.com/sousajf1/nushell/internal/hir"
	"github.com/sousajf1/nushell/internal/indexmap"
	"github.com/sousajf1/nushell/internal/protocol"
	"github.com/sousajf1/nushell/internal/shell"
	"github.com/sousajf1/nushell/internal/stream"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testCommand struct {
	name  string
	sig   *protocol.Signature
	run   func(ctx context.Context, args *RawCommandArgs) (stream.Stream[protocol.ReturnValue], error)
	calls int
}

func (c *testCommand) Name() string  { return c.name }
func (c *testCommand) Usage() string { return "test command " + c.name }

func (c *testCommand) Signature() protocol.Signature {
	if c.sig != nil {
		return *c.sig
	}
	return protocol.NewSignature(c.name).RestArgs(protocol.ShapeAny, "anything")
}

func (c *testCommand) Run(ctx context.Context, args *RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	c.calls++
	if c.run == nil {
		return stream.Empty[protocol.ReturnValue](), nil
	}
	return c.run(ctx, args)
}

// emitting returns a command yielding results in order.
func emitting(name string, results ...protocol.ReturnValue) *testCommand {
	return &testCommand{
		name: name,
		run: func(context.Context, *RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
			return stream.FromSlice(results), nil
		},
	}
}

// echoCommand yields its evaluated positional arguments.
func echoCommand() *testCommand {
	return &testCommand{
		name: "echo",
		run: func(_ context.Context, args *RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
			evaluated, err := args.Evaluate()
			if err != nil {
				return nil, err
			}
			return stream.Map(stream.FromSlice(evaluated.Positional), protocol.ValueResult), nil
		},
	}
}

// counting wraps s and counts how many items were pulled.
type counting[T any] struct {
	s      stream.Stream[T]
	pulled int
}

func (c *counting[T]) Next(ctx context.Context) (T, bool) {
	item, ok := c.s.Next(ctx)
	if ok {
		c.pulled++
	}
	return item, ok
}

type bufferHost struct {
	width   int
	printed [][]protocol.Value
}

func (h *bufferHost) Width() int { return h.width }

func (h *bufferHost) Print(values []protocol.Value) {
	h.printed = append(h.printed, values)
}

func (h *bufferHost) lines() []string {
	var out []string
	for _, batch := range h.printed {
		for _, v := range batch {
			out = append(out, v.String())
		}
	}
	return out
}

type recordingSink struct {
	errors []*protocol.ShellError
}

func (s *recordingSink) Report(err *protocol.ShellError) {
	s.errors = append(s.errors, err)
}

type testEnv struct {
	ec    *Context
	host  *bufferHost
	sink  *recordingSink
	exits []int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{host: &bufferHost{width: 80}, sink: &recordingSink{}}
	env.ec = NewContext(env.host, env.sink)
	env.ec.Exit = func(code int) { env.exits = append(env.exits, code) }

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	fs, err := shell.NewFilesystemShell(wd)
	if err != nil {
		t.Fatalf("filesystem shell: %v", err)
	}
	env.ec.Shells.InsertAtCurrent(fs)
	return env
}

func call(name string) hir.InternalCommand {
	span := protocol.Span{Start: 0, End: len(name)}
	return hir.InternalCommand{
		Name:     name,
		NameSpan: span,
		Args: hir.Call{
			Head:  hir.StringExpr(name, span),
			Named: indexmap.New[string, hir.NamedValue](),
			Span:  span,
		},
	}
}

func callWith(name string, positional ...hir.Expression) hir.InternalCommand {
	c := call(name)
	c.Args.Positional = positional
	return c
}

func values(t *testing.T, s stream.Stream[protocol.Value]) []protocol.Value {
	t.Helper()
	return stream.Drain(context.Background(), s)
}

func ints(vs []protocol.Value) []int64 {
	var out []int64
	for _, v := range vs {
		if n, ok := v.Value.(protocol.Int); ok {
			out = append(out, int64(n))
		}
	}
	return out
}

func intValue(n int64) protocol.Value {
	return protocol.IntValue(n, protocol.UnknownTag())
}
