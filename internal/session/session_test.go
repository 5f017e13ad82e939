package session

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sousajf1/nushell/internal/config"
	"github.com/sousajf1/nushell/internal/host"
	"github.com/sousajf1/nushell/internal/protocol"
)

type fixture struct {
	session *Session
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	exits   []int
	dir     string
}

func start(t *testing.T, mutate func(cfg *config.Config, dir string), environ ...string) *fixture {
	t.Helper()
	f := &fixture{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}, dir: t.TempDir()}
	cfg := config.DefaultConfig()
	cfg.Shell.StartDir = f.dir
	if mutate != nil {
		mutate(cfg, f.dir)
	}

	s, err := New(context.Background(), Options{
		Config:  cfg,
		Host:    host.NewTerminal(f.stdout, f.stderr),
		Exit:    func(code int) { f.exits = append(f.exits, code) },
		Environ: environ,
	})
	require.NoError(t, err)
	f.session = s
	return f
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewSeedsEnvironmentAndVariables(t *testing.T) {
	f := start(t, func(cfg *config.Config, _ string) {
		cfg.Env["EDITOR"] = "vi"
		cfg.Vars["greeting"] = "hello"
	}, "HOME=/home/nu", "PATH=/bin", "broken")

	ec := f.session.Context()
	home, ok := ec.Scope.GetEnvVar("HOME")
	require.True(t, ok)
	assert.Equal(t, "/home/nu", home)
	assert.Equal(t, []string{"HOME", "PATH", "EDITOR"}, ec.Scope.GetEnvVars().Keys())
	assert.Equal(t, f.dir, ec.Shells.Path())

	require.NoError(t, f.session.Run(context.Background(), "echo $greeting $env.EDITOR", "test.nu"))
	assert.Equal(t, "hello\nvi\n", f.stdout.String())
	assert.Equal(t, 0, f.session.ExitCode())
}

func TestNewRejectsMissingStartDir(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Shell.StartDir = filepath.Join(t.TempDir(), "missing")

	_, err := New(context.Background(), Options{Config: cfg, Host: host.NewTerminal(&bytes.Buffer{}, &bytes.Buffer{})})
	require.Error(t, err)
	assert.ErrorIs(t, err, &protocol.ShellError{Kind: protocol.ShellConstructionFailure})
}

func TestStartupLoadsPluginsAndScripts(t *testing.T) {
	f := start(t, func(cfg *config.Config, dir string) {
		plugins := filepath.Join(dir, "plugins")
		require.NoError(t, os.Mkdir(plugins, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(plugins, "nu_plugin_passthru.yaml"),
			[]byte("name: passthru\nusage: Pass values through\nexec: cat\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "init.nu"), []byte("let answer = 42\n"), 0o644))

		cfg.Plugins.Dirs = []string{plugins}
		cfg.Startup.Scripts = []string{filepath.Join(dir, "init.nu")}
	})

	ec := f.session.Context()
	assert.True(t, ec.Scope.HasCommand("passthru"))
	answer, ok := ec.Scope.GetVar("answer")
	require.True(t, ok)
	assert.Equal(t, protocol.Int(42), answer.Value)

	require.NoError(t, f.session.Run(context.Background(), "echo 1 two | passthru", "test.nu"))
	assert.Equal(t, "1\ntwo\n", f.stdout.String())
	assert.Empty(t, f.stderr.String())
}

func TestStartupFailuresAreReported(t *testing.T) {
	f := start(t, func(cfg *config.Config, dir string) {
		cfg.Plugins.Dirs = []string{filepath.Join(dir, "no-plugins")}
	})

	assert.Contains(t, f.stderr.String(), "Could not load plugins")
	assert.Equal(t, 1, f.session.ExitCode())
}

func TestRunReportsErrors(t *testing.T) {
	f := start(t, nil)

	err := f.session.Run(context.Background(), "echo ok\nfrobnicate", "script.nu")
	require.Error(t, err)
	assert.Equal(t, "ok\n", f.stdout.String())
	assert.Contains(t, f.stderr.String(), "Missing command 'frobnicate'")
	assert.Contains(t, f.stderr.String(), "╭─[script.nu:2:1]")
	assert.Equal(t, 1, f.session.ExitCode())
}

func TestRunFileDecompresses(t *testing.T) {
	f := start(t, nil)

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll([]byte("echo compressed"), nil)
	require.NoError(t, enc.Close())
	path := f.write(t, "script.nu.zst", string(compressed))

	require.NoError(t, f.session.RunFile(context.Background(), path))
	assert.Equal(t, "compressed\n", f.stdout.String())

	err = f.session.RunFile(context.Background(), filepath.Join(f.dir, "missing.nu"))
	require.Error(t, err)
	assert.Contains(t, f.stderr.String(), "Can't read script")
}

func TestLoop(t *testing.T) {
	f := start(t, nil)
	var prompt bytes.Buffer

	in := strings.NewReader("echo hi\n\nnope\nexit\necho never\n")
	require.NoError(t, f.session.Loop(context.Background(), in, &prompt))

	assert.Equal(t, "hi\n", f.stdout.String())
	assert.Contains(t, f.stderr.String(), "Missing command 'nope'")
	assert.Equal(t, []int{0}, f.exits)
	assert.Equal(t, 4, strings.Count(prompt.String(), f.dir+"> "))
}

func TestLoopEndsAtEOF(t *testing.T) {
	f := start(t, nil)
	var prompt bytes.Buffer

	require.NoError(t, f.session.Loop(context.Background(), strings.NewReader("echo a"), &prompt))
	assert.Equal(t, "a\n", f.stdout.String())
	assert.Empty(t, f.exits)
}
