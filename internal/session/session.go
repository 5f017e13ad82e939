// Package session assembles a ready-to-use shell context from
// configuration and drives scripts and interactive input through it.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sousajf1/nushell/internal/commands"
	"github.com/sousajf1/nushell/internal/config"
	"github.com/sousajf1/nushell/internal/engine"
	"github.com/sousajf1/nushell/internal/plugin"
	"github.com/sousajf1/nushell/internal/protocol"
	"github.com/sousajf1/nushell/internal/shell"
)

const startupFile = "<startup>"

// Host is a terminal that both prints values and displays errors.
type Host interface {
	engine.Host
	engine.ErrorSink
}

// sourceTracker is implemented by hosts that point errors into the text
// being run.
type sourceTracker interface {
	SetSource(filename, source string)
}

type Options struct {
	Config *config.Config
	Host   Host
	Logger *zap.Logger
	// Exit replaces os.Exit.
	Exit func(code int)
	// Environ seeds the environment frame, usually os.Environ().
	Environ []string
}

type Session struct {
	ctx  *engine.Context
	host Host
	cfg  *config.Config
}

// New builds a context with the built-in commands, a filesystem shell at
// the configured start directory, the environment, configured variables,
// plugins and startup scripts.
func New(ctx context.Context, opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ec := engine.NewContext(opts.Host, opts.Host)
	ec.Logger = logger
	ec.Plugins = plugin.NewScanner(logger)
	if opts.Exit != nil {
		ec.Exit = opts.Exit
	}
	commands.Register(ec.Scope)

	start := cfg.Shell.StartDir
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		start = wd
	}
	fs, err := shell.NewFilesystemShell(expandHome(start))
	if err != nil {
		return nil, protocol.Wrap(protocol.ShellConstructionFailure, "Could not open the start directory", err)
	}
	ec.Shells.InsertAtCurrent(fs)

	for _, kv := range opts.Environ {
		if name, value, ok := strings.Cut(kv, "="); ok && name != "" {
			ec.Scope.AddEnvVar(name, value)
		}
	}
	for _, name := range config.SortedKeys(cfg.Env) {
		ec.Scope.AddEnvVar(name, cfg.Env[name])
	}
	for _, name := range config.SortedKeys(cfg.Vars) {
		ec.Scope.AddVar(name, protocol.StringValue(cfg.Vars[name], protocol.UnknownTag()))
	}

	s := &Session{ctx: ec, host: opts.Host, cfg: cfg}

	// Startup goes through the same commands a user would type, so failures
	// are reported like any other.
	for _, dir := range cfg.Plugins.Dirs {
		s.startup(ctx, "load-plugins "+strconv.Quote(expandHome(dir)))
	}
	for _, script := range cfg.Startup.Scripts {
		s.startup(ctx, "source "+strconv.Quote(expandHome(script)))
	}
	logger.Debug("session started",
		zap.String("path", ec.Shells.Path()),
		zap.Strings("commands", ec.Scope.GetCommandNames()))
	return s, nil
}

func (s *Session) startup(ctx context.Context, line string) {
	if err := s.Run(ctx, line, startupFile); err != nil {
		s.ctx.Logger.Debug("startup line failed", zap.String("line", line), zap.Error(err))
	}
}

// Context is the engine context the session drives.
func (s *Session) Context() *engine.Context { return s.ctx }

// Run executes source, reporting a failure through the host before
// returning it.
func (s *Session) Run(ctx context.Context, source, filename string) error {
	if t, ok := s.host.(sourceTracker); ok {
		t.SetSource(filename, source)
	}
	err := engine.RunScript(ctx, s.ctx, source, filename)
	if err != nil {
		s.ctx.ReportError(protocol.From(err))
	}
	return err
}

// RunFile runs a script file, decompressing .gz and .zst scripts.
func (s *Session) RunFile(ctx context.Context, path string) error {
	content, err := engine.ReadSource(path)
	if err != nil {
		se := &protocol.ShellError{
			Kind:    protocol.FileReadFailure,
			Message: fmt.Sprintf("Can't read script %s", path),
			Cause:   err,
		}
		s.ctx.ReportError(se)
		return se
	}
	return s.Run(ctx, string(content), path)
}

// Loop reads lines from in and runs each one until input ends or the
// session exits. The prompt is written to out before each line.
func (s *Session) Loop(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for !s.ctx.Terminated() {
		fmt.Fprint(out, s.Prompt())
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.ctx.CtrlC.Store(false)
		_ = s.Run(ctx, line, "<repl>")
	}
	return nil
}

// Prompt shows the current shell path.
func (s *Session) Prompt() string {
	return s.ctx.Shells.Path() + s.cfg.Shell.Prompt
}

// ExitCode is 1 when any error was reported, 0 otherwise.
func (s *Session) ExitCode() int {
	if s.ctx.ErrorsReported() > 0 {
		return 1
	}
	return 0
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
