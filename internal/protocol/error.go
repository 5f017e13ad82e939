package protocol

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind int

const (
	RuntimeError ErrorKind = iota
	MissingCommand
	ConversionFailure
	FileReadFailure
	ShellConstructionFailure
	PluginScanFailure
	ParseError
	ArgumentError
)

func (k ErrorKind) String() string {
	switch k {
	case RuntimeError:
		return "runtime error"
	case MissingCommand:
		return "missing command"
	case ConversionFailure:
		return "conversion failure"
	case FileReadFailure:
		return "file read failure"
	case ShellConstructionFailure:
		return "shell construction failure"
	case PluginScanFailure:
		return "plugin scan failure"
	case ParseError:
		return "parse error"
	case ArgumentError:
		return "argument error"
	default:
		return "unknown error"
	}
}

// ShellError is the error type that flows through pipelines and reaches the
// error sink. Label and Span point at the source text responsible.
type ShellError struct {
	Kind    ErrorKind
	Message string
	Label   string
	Span    Span
	Help    string
	Cause   error
}

func (e *ShellError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ShellError) Unwrap() error { return e.Cause }

// Is matches any *ShellError of the same kind, so errors.Is works with a
// kind sentinel such as &ShellError{Kind: MissingCommand}.
func (e *ShellError) Is(target error) bool {
	t, ok := target.(*ShellError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

func UntaggedRuntimeError(msg string) *ShellError {
	return &ShellError{Kind: RuntimeError, Message: msg}
}

func LabeledError(msg, label string, span Span) *ShellError {
	return &ShellError{Kind: RuntimeError, Message: msg, Label: label, Span: span}
}

func MissingCommandError(name string, span Span) *ShellError {
	return &ShellError{
		Kind:    MissingCommand,
		Message: fmt.Sprintf("Missing command '%s'", name),
		Label:   "command not found",
		Span:    span,
	}
}

func Wrap(kind ErrorKind, msg string, err error) *ShellError {
	return &ShellError{Kind: kind, Message: msg, Cause: err}
}

// From recovers a *ShellError from err, wrapping foreign errors as runtime
// errors. It returns nil for a nil err.
func From(err error) *ShellError {
	if err == nil {
		return nil
	}
	var se *ShellError
	if errors.As(err, &se) {
		return se
	}
	return &ShellError{Kind: RuntimeError, Message: err.Error()}
}

func (e *ShellError) WithKind(kind ErrorKind) *ShellError {
	out := *e
	out.Kind = kind
	return &out
}

// FormatError renders err with a caret diagram over source when the error
// carries a span.
func FormatError(err *ShellError, filename, source string) string {
	var b strings.Builder

	b.WriteString("✗ ")
	b.WriteString(err.Error())
	b.WriteString("\n")

	if err.Span.IsUnknown() || source == "" || err.Span.Start > len(source) {
		if err.Help != "" {
			b.WriteString("  💡 Help: ")
			b.WriteString(err.Help)
			b.WriteString("\n")
		}
		return b.String()
	}

	line, column := lineColumn(source, err.Span.Start)
	if filename == "" {
		filename = "source"
	}
	b.WriteString(fmt.Sprintf("  ╭─[%s:%d:%d]\n", filename, line, column))
	b.WriteString("  │\n")

	lines := strings.Split(source, "\n")
	start := line - 2
	if start < 1 {
		start = 1
	}
	end := line + 1
	if end > len(lines) {
		end = len(lines)
	}

	for n := start; n <= end; n++ {
		text := lines[n-1]
		b.WriteString(fmt.Sprintf("%3d│ %s\n", n, text))
		if n != line {
			continue
		}

		width := err.Span.End - err.Span.Start
		if width < 1 {
			width = 1
		}
		if rest := len(text) - (column - 1); width > rest && rest > 0 {
			width = rest
		}
		pad := indentFor(text, column-1)

		b.WriteString("  │ ")
		b.WriteString(pad)
		b.WriteString(strings.Repeat("─", width/2))
		b.WriteString("┬")
		b.WriteString(strings.Repeat("─", width-width/2-1))
		b.WriteString("\n")
		b.WriteString("  │ ")
		b.WriteString(pad)
		b.WriteString(strings.Repeat(" ", width/2))
		b.WriteString("╰─ ")
		if err.Label != "" {
			b.WriteString(err.Label)
		} else {
			b.WriteString(err.Message)
		}
		b.WriteString("\n")
	}

	b.WriteString("  │\n")
	if err.Help != "" {
		b.WriteString("  │ 💡 Help: ")
		b.WriteString(err.Help)
		b.WriteString("\n")
		b.WriteString("  │\n")
	}

	return b.String()
}

// lineColumn converts a byte offset to a 1-based line and column.
func lineColumn(source string, offset int) (int, int) {
	if offset > len(source) {
		offset = len(source)
	}
	line := 1 + strings.Count(source[:offset], "\n")
	lineStart := strings.LastIndex(source[:offset], "\n") + 1
	return line, offset - lineStart + 1
}

// indentFor keeps tabs so the caret lines up under tab-indented source.
func indentFor(line string, n int) string {
	var b strings.Builder
	for j := 0; j < n; j++ {
		if j < len(line) && line[j] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}
