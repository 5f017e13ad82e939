// Package host is the terminal side of a session: it prints pipeline output
// and displays reported errors.
package host

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/sousajf1/nushell/internal/protocol"
)

const defaultWidth = 80

type fileDescriptor interface {
	Fd() uintptr
}

// Terminal writes values to out and errors to errOut.
type Terminal struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	fd     int

	errStyle    lipgloss.Style
	headerStyle lipgloss.Style

	filename string
	source   string
}

func NewTerminal(out, errOut io.Writer) *Terminal {
	fd := -1
	if f, ok := out.(fileDescriptor); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	errRenderer := lipgloss.NewRenderer(errOut)
	outRenderer := lipgloss.NewRenderer(out)
	return &Terminal{
		out:         out,
		errOut:      errOut,
		fd:          fd,
		errStyle:    errRenderer.NewStyle().Foreground(lipgloss.Color("#ff5f5f")),
		headerStyle: outRenderer.NewStyle().Bold(true).Padding(0, 1),
	}
}

// Interactive reports whether output goes to a terminal.
func (t *Terminal) Interactive() bool { return t.fd >= 0 }

// Width is the terminal width, or 80 when output is not a terminal.
func (t *Terminal) Width() int {
	if t.fd < 0 {
		return defaultWidth
	}
	w, _, err := term.GetSize(t.fd)
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// SetSource records the text being run so errors can point into it.
func (t *Terminal) SetSource(filename, source string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.filename = filename
	t.source = source
}

// Print writes a batch of values. A batch made only of rows is drawn as a
// table; anything else is written one value per line.
func (t *Terminal) Print(values []protocol.Value) {
	if len(values) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if headers, ok := columns(values); ok {
		fmt.Fprintln(t.out, t.renderTable(headers, values))
		return
	}
	for _, v := range values {
		fmt.Fprintln(t.out, v.String())
	}
}

// columns collects the union of row keys in first-seen order. It fails
// when any value is not a row.
func columns(values []protocol.Value) ([]string, bool) {
	var headers []string
	seen := map[string]bool{}
	for _, v := range values {
		row, ok := v.Value.(protocol.Row)
		if !ok {
			return nil, false
		}
		for _, k := range row.Entries.Keys() {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
	}
	return headers, true
}

func (t *Terminal) renderTable(headers []string, values []protocol.Value) string {
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return t.headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, v := range values {
		cells := make([]string, len(headers))
		for i, h := range headers {
			if field, ok := v.Get(h); ok {
				cells[i] = field.String()
			}
		}
		tbl.Row(cells...)
	}
	return tbl.Render()
}

// Report renders err against the current source.
func (t *Terminal) Report(err *protocol.ShellError) {
	t.mu.Lock()
	defer t.mu.Unlock()

	text := protocol.FormatError(err, t.filename, t.source)
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		fmt.Fprint(t.errOut, t.errStyle.Render(strings.TrimSuffix(line, "\n")), "\n")
	}
}
