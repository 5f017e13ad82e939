// Package commands holds the built-in commands.
package commands

import (
	"context"
	"sort"

	"github.com/sousajf1/nushell/internal/engine"
	"github.com/sousajf1/nushell/internal/protocol"
	"github.com/sousajf1/nushell/internal/stream"
)

// BuiltinFunc runs a built-in command.
type BuiltinFunc func(ctx context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error)

type builtin struct {
	sig protocol.Signature
	run BuiltinFunc
}

func (b *builtin) Name() string                  { return b.sig.Name }
func (b *builtin) Signature() protocol.Signature { return b.sig }
func (b *builtin) Usage() string                 { return b.sig.Usage }

func (b *builtin) Run(ctx context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	return b.run(ctx, args)
}

func sig(name string) protocol.Signature { return protocol.NewSignature(name) }

// Built-in dispatch table
var builtins = map[string]*builtin{
	// Core
	"echo":            {sig("echo").Desc("Echo the arguments back").RestArgs(protocol.ShapeAny, "values to echo"), builtinEcho},
	"let":             {letSignature("let", "Create a variable"), builtinLet},
	"let-env":         {letSignature("let-env", "Create an environment variable"), builtinLetEnv},
	"exit":            {sig("exit").Desc("Leave the current shell, or the process with --now").Switch("now", "exit even with other shells open"), builtinExit},
	"debug":           {sig("debug").Desc("Show the structure of the input"), builtinDebug},
	"source":          {sig("source").Desc("Run a script in the current context").Required("filename", protocol.ShapePath, "script to run"), builtinSource},
	"load-plugins":    {sig("load-plugins").Desc("Register the plugins found in a directory").Required("path", protocol.ShapePath, "plugin directory"), builtinLoadPlugins},
	"autoenv untrust": {sig("autoenv untrust").Desc("Stop trusting the current directory's environment file"), builtinUntrust},

	// Shells
	"cd":     {sig("cd").Desc("Change to a new path").Optional("directory", protocol.ShapePath, "where to go"), builtinCd},
	"ls":     {sig("ls").Desc("List the contents of the current shell").Optional("path", protocol.ShapePath, "directory to list"), builtinLs},
	"pwd":    {sig("pwd").Desc("Print the path of the current shell"), builtinPwd},
	"enter":  {sig("enter").Desc("Open a new shell on a directory or file").Required("location", protocol.ShapePath, "directory or file"), builtinEnter},
	"p":      {sig("p").Desc("Go to the previous shell"), builtinPrev},
	"n":      {sig("n").Desc("Go to the next shell"), builtinNext},
	"shells": {sig("shells").Desc("List the open shells"), builtinShells},
	"help":   {sig("help").Desc("Show help for commands").Optional("command", protocol.ShapeString, "command to describe").Switch("browse", "open the help browser"), builtinHelp},

	// Formats
	"open":      {sig("open").Desc("Load a file, converting it by extension").Required("path", protocol.ShapePath, "file to open").Switch("raw", "skip conversion"), builtinOpen},
	"get":       {sig("get").Desc("Get a column path from each row").Required("member", protocol.ShapeString, "dotted column path"), builtinGet},
	"to json":   {sig("to json").Desc("Convert values to JSON text"), builtinToJSON},
	"from json": {sig("from json").Desc("Parse text as JSON"), builtinFromJSON},
	"from csv":  {sig("from csv").Desc("Parse text as CSV").Flag("separator", protocol.ShapeString, "field separator"), builtinFromCSV},
	"from yaml": {sig("from yaml").Desc("Parse text as YAML"), builtinFromYAML},
	"from yml":  {sig("from yml").Desc("Parse text as YAML"), builtinFromYAML},
	"from toml": {sig("from toml").Desc("Parse text as TOML"), builtinFromTOML},
	"from gz":   {sig("from gz").Desc("Decompress gzip data"), decompressWith("gz")},
	"from zst":  {sig("from zst").Desc("Decompress zstd data"), decompressWith("zst")},
}

func letSignature(name, usage string) protocol.Signature {
	return sig(name).Desc(usage).
		Required("name", protocol.ShapeString, "name to bind").
		Required("equals", protocol.ShapeString, "the = sign").
		Required("value", protocol.ShapeAny, "value to bind")
}

// Register adds every built-in command to the scope's current frame.
func Register(scope *engine.Scope) {
	for _, name := range Names() {
		scope.AddCommand(name, builtins[name])
	}
}

func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func values(vs ...protocol.Value) stream.Stream[protocol.ReturnValue] {
	return stream.Map(stream.FromSlice(vs), protocol.ValueResult)
}

func actions(as ...protocol.CommandAction) stream.Stream[protocol.ReturnValue] {
	return stream.Map(stream.FromSlice(as), protocol.ActionResult)
}

// argSpan is the source span of positional argument i, or of the command
// name when the argument is absent.
func argSpan(args *engine.RawCommandArgs, i int) protocol.Span {
	if i < len(args.Call.Args.Positional) {
		return args.Call.Args.Positional[i].Span
	}
	return args.Call.NameTag.Span
}
