package protocol

// CommandAction asks the command processor to change its state. Commands
// emit actions instead of touching the processor themselves; the engine
// performs them as they flow out of the command.
type CommandAction interface {
	// Describe is a short human description used in traces.
	Describe() string
	isCommandAction()
}

// ChangePath changes directory, or path inside a non-filesystem shell.
type ChangePath struct{ Path string }

// Exit leaves the process.
type Exit struct{}

// ErrorAction displays an error without stopping the stream.
type ErrorAction struct{ Err *ShellError }

// EnterShell enters a filesystem shell at Location.
type EnterShell struct{ Location string }

// AutoConvert converts Value with the "from <Extension>" command if one exists.
type AutoConvert struct {
	Value     Value
	Extension string
}

// EnterValueShell enters a shell exploring the inside of Value.
type EnterValueShell struct{ Value Value }

// EnterHelpShell enters the help browser, scoped to a command when Value is
// a string.
type EnterHelpShell struct{ Value Value }

type AddVariable struct {
	Name  string
	Value Value
}

type AddEnvVariable struct {
	Name  string
	Value string
}

// AddPlugins registers the plugins found under Path.
type AddPlugins struct{ Path string }

// SourceScript runs the named script in the current context.
type SourceScript struct{ Path Spanned[string] }

type PreviousShell struct{}

type NextShell struct{}

// LeaveShell leaves the current shell, exiting when it was the last one.
type LeaveShell struct{}

func (a ChangePath) Describe() string      { return "change path " + a.Path }
func (Exit) Describe() string              { return "exit" }
func (ErrorAction) Describe() string       { return "error" }
func (a EnterShell) Describe() string      { return "enter shell " + a.Location }
func (a AutoConvert) Describe() string     { return "auto convert " + a.Extension }
func (a EnterValueShell) Describe() string { return "enter value shell " + a.Value.TypeName() }
func (a EnterHelpShell) Describe() string  { return "enter help shell " + a.Value.String() }
func (AddVariable) Describe() string       { return "add variable" }
func (AddEnvVariable) Describe() string    { return "add environment variable" }
func (AddPlugins) Describe() string        { return "add plugins" }
func (SourceScript) Describe() string      { return "source script" }
func (PreviousShell) Describe() string     { return "previous shell" }
func (NextShell) Describe() string         { return "next shell" }
func (LeaveShell) Describe() string        { return "leave shell" }

func (ChangePath) isCommandAction()      {}
func (Exit) isCommandAction()            {}
func (ErrorAction) isCommandAction()     {}
func (EnterShell) isCommandAction()      {}
func (AutoConvert) isCommandAction()     {}
func (EnterValueShell) isCommandAction() {}
func (EnterHelpShell) isCommandAction()  {}
func (AddVariable) isCommandAction()     {}
func (AddEnvVariable) isCommandAction()  {}
func (AddPlugins) isCommandAction()      {}
func (SourceScript) isCommandAction()    {}
func (PreviousShell) isCommandAction()   {}
func (NextShell) isCommandAction()       {}
func (LeaveShell) isCommandAction()      {}
