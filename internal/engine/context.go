package engine

import (
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sousajf1/nushell/internal/protocol"
	"github.com/sousajf1/nushell/internal/shell"
)

// Host is where pipeline output ends up.
type Host interface {
	Width() int
	Print(values []protocol.Value)
}

// ErrorSink displays errors to the user.
type ErrorSink interface {
	Report(err *protocol.ShellError)
}

// ShellStack is the list of open shells actions navigate.
type ShellStack interface {
	SetPath(path string)
	Path() string
	Current() shell.Shell
	InsertAtCurrent(s shell.Shell)
	RemoveAtCurrent()
	Next()
	Prev()
	IsEmpty() bool
	Shells() []shell.Info
}

// PluginScanner finds plugin commands under a set of directories.
type PluginScanner interface {
	Scan(paths []string) ([]Command, error)
}

// Context is the state shared by every command of a session.
type Context struct {
	Scope   *Scope
	Shells  ShellStack
	Host    Host
	Errors  ErrorSink
	Plugins PluginScanner
	// CtrlC stops running command streams quietly when set.
	CtrlC *atomic.Bool
	// Exit ends the process. It is only called once.
	Exit   func(code int)
	Logger *zap.Logger

	untrusted  atomic.Bool
	terminated atomic.Bool
	reported   atomic.Int64
}

func NewContext(host Host, sink ErrorSink) *Context {
	return &Context{
		Scope:  NewScope(),
		Shells: shell.NewManager(),
		Host:   host,
		Errors: sink,
		CtrlC:  &atomic.Bool{},
		Exit:   os.Exit,
		Logger: zap.NewNop(),
	}
}

// ReportError hands err to the error sink.
func (c *Context) ReportError(err *protocol.ShellError) {
	if err == nil {
		return
	}
	c.reported.Add(1)
	c.Logger.Debug("error reported",
		zap.String("kind", err.Kind.String()),
		zap.String("message", err.Error()))
	if c.Errors != nil {
		c.Errors.Report(err)
	}
}

// width is the host's display width, or 80 without a host.
func (c *Context) width() int {
	if c.Host == nil {
		return 80
	}
	return c.Host.Width()
}

// ErrorsReported counts the errors reported so far.
func (c *Context) ErrorsReported() int64 { return c.reported.Load() }

// Untrusted reports whether `autoenv untrust` ran in this session.
func (c *Context) Untrusted() bool { return c.untrusted.Load() }

// Terminated reports whether the session asked the process to exit.
func (c *Context) Terminated() bool { return c.terminated.Load() }

func (c *Context) terminate(code int) {
	if !c.terminated.CompareAndSwap(false, true) {
		return
	}
	c.Logger.Debug("exiting", zap.Int("code", code))
	if c.Exit != nil {
		c.Exit(code)
	}
}

// ResolvePath makes p absolute against the active filesystem shell.
func (c *Context) ResolvePath(p string) string {
	if filepath.IsAbs(p) || c.Shells == nil {
		return p
	}
	if fs, ok := c.Shells.Current().(*shell.FilesystemShell); ok {
		return filepath.Join(fs.Path(), p)
	}
	return p
}
