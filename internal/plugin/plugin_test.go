package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sousajf1/nushell/internal/engine"
	"github.com/sousajf1/nushell/internal/hir"
	"github.com/sousajf1/nushell/internal/indexmap"
	"github.com/sousajf1/nushell/internal/protocol"
	"github.com/sousajf1/nushell/internal/stream"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeDescriptor(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "nu_plugin_b.yaml", "name: beta\nexec: cat\n")
	writeDescriptor(t, dir, "nu_plugin_a.yaml", "name: alpha\nusage: First\nexec: ./bin/alpha\npositional: [count]\n")
	writeDescriptor(t, dir, "notes.yaml", "not: a plugin\n")

	found, err := NewScanner(nil).Scan([]string{dir})
	require.NoError(t, err)
	require.Len(t, found, 2)

	alpha := found[0].(*Command)
	assert.Equal(t, "alpha", alpha.Name())
	assert.Equal(t, "First", alpha.Usage())
	assert.Equal(t, filepath.Join(dir, "bin", "alpha"), alpha.exec)
	assert.Equal(t, 1, alpha.Signature().RequiredCount())

	beta := found[1].(*Command)
	assert.Equal(t, "cat", beta.exec)
}

func TestScanFailures(t *testing.T) {
	tests := []struct {
		name       string
		descriptor string
		wantErr    string
	}{
		{name: "missing name", descriptor: "exec: cat\n", wantErr: "plugin name is required"},
		{name: "missing exec", descriptor: "name: x\n", wantErr: "exec is required"},
		{name: "unknown field", descriptor: "name: x\nexec: cat\ncolour: red\n", wantErr: "field colour not found"},
		{name: "bad yaml", descriptor: "name: [\n", wantErr: "parsing plugin descriptor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeDescriptor(t, dir, "nu_plugin_x.yaml", tt.descriptor)

			_, err := NewScanner(nil).Scan([]string{dir})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("missing directory", func(t *testing.T) {
		_, err := NewScanner(nil).Scan([]string{filepath.Join(t.TempDir(), "nope")})
		require.Error(t, err)
	})
}

func runPlugin(t *testing.T, desc Descriptor, positional []hir.Expression, input ...protocol.Value) ([]protocol.ReturnValue, error) {
	t.Helper()
	cmd := &Command{desc: desc, exec: desc.Exec, logger: NewScanner(nil).logger}
	ec := engine.NewContext(nil, nil)
	span := protocol.Span{Start: 0, End: len(desc.Name)}
	out, err := cmd.Run(context.Background(), &engine.RawCommandArgs{
		Context: ec,
		Call: engine.CallInfo{
			Args: hir.Call{
				Head:       hir.StringExpr(desc.Name, span),
				Positional: positional,
				Named:      indexmap.New[string, hir.NamedValue](),
				Span:       span,
			},
			NameTag: protocol.UnknownAnchor(span),
		},
		Input: stream.FromSlice(input),
	})
	if err != nil {
		return nil, err
	}
	return stream.Drain(context.Background(), out), nil
}

func TestCommandEchoesJSONLines(t *testing.T) {
	row := protocol.NewRowBuilder().
		Insert("name", protocol.StringValue("nu", protocol.UnknownTag())).
		Insert("size", protocol.IntValue(3, protocol.UnknownTag())).
		Build(protocol.UnknownTag())

	results, err := runPlugin(t, Descriptor{Name: "cat", Exec: "cat"}, nil,
		protocol.IntValue(1, protocol.UnknownTag()), row)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, protocol.Int(1), results[0].Value.Value)
	data, err := protocol.ToJSON(results[1].Value)
	require.NoError(t, err)
	if diff := cmp.Diff(`{"name":"nu","size":3}`, string(data)); diff != "" {
		t.Errorf("plugin output mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, protocol.Span{Start: 0, End: 3}, results[0].Value.Tag.Span)
}

func TestCommandPassesPositionalArguments(t *testing.T) {
	desc := Descriptor{
		Name:       "emit",
		Exec:       "sh",
		Args:       []string{"-c", `echo "{\"n\": $0}"`},
		Positional: []string{"n"},
	}
	results, err := runPlugin(t, desc, []hir.Expression{hir.LiteralExpr(protocol.Int(5), protocol.Span{Start: 5, End: 6})})
	require.NoError(t, err)
	require.Len(t, results, 1)

	n, ok := results[0].Value.Get("n")
	require.True(t, ok)
	assert.Equal(t, protocol.Int(5), n.Value)
}

func TestCommandFailure(t *testing.T) {
	desc := Descriptor{Name: "fail", Exec: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}}

	_, err := runPlugin(t, desc, nil, protocol.IntValue(1, protocol.UnknownTag()))
	require.Error(t, err)
	var shellErr *protocol.ShellError
	require.ErrorAs(t, err, &shellErr)
	assert.Equal(t, "Plugin fail failed", shellErr.Message)
	assert.Equal(t, "boom", shellErr.Label)
}

func TestCommandInvalidOutput(t *testing.T) {
	desc := Descriptor{Name: "garbage", Exec: "sh", Args: []string{"-c", "echo '{oops'"}}

	_, err := runPlugin(t, desc, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Plugin garbage sent invalid output")
}

func TestCommandMissingExecutable(t *testing.T) {
	desc := Descriptor{Name: "ghost", Exec: filepath.Join(t.TempDir(), "nu_plugin_ghost")}

	_, err := runPlugin(t, desc, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Could not start plugin ghost")
}
