package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// PrettyDebug is the single-line structural form of v.
func (v Value) PrettyDebug() string {
	switch u := v.Value.(type) {
	case nil, Nothing:
		return "nothing"
	case String:
		return strconv.Quote(string(u))
	case Int, Decimal, Boolean:
		s, _ := v.AsString()
		return s
	case Binary:
		return fmt.Sprintf("binary(%d bytes)", len(u))
	case Row:
		parts := make([]string, 0, u.Entries.Len())
		u.Entries.Range(func(k string, field Value) bool {
			parts = append(parts, k+": "+field.PrettyDebug())
			return true
		})
		return "[row " + strings.Join(parts, " ") + "]"
	case Table:
		parts := make([]string, len(u))
		for i, item := range u {
			parts[i] = item.PrettyDebug()
		}
		return "[list " + strings.Join(parts, " ") + "]"
	case ErrorValue:
		return "error(" + strconv.Quote(u.Err.Error()) + ")"
	default:
		return fmt.Sprintf("%v", u)
	}
}

// RenderDebug lays the structural form of v out within width columns,
// breaking rows and lists one entry per line when they do not fit.
func RenderDebug(v Value, width int) string {
	var b strings.Builder
	renderDebug(&b, v, width, 0)
	return b.String()
}

func renderDebug(b *strings.Builder, v Value, width, indent int) {
	flat := v.PrettyDebug()
	if indent+len(flat) <= width {
		b.WriteString(flat)
		return
	}
	pad := strings.Repeat("  ", indent/2+1)
	closing := strings.Repeat("  ", indent/2)

	switch u := v.Value.(type) {
	case Row:
		b.WriteString("[row\n")
		u.Entries.Range(func(k string, field Value) bool {
			b.WriteString(pad)
			b.WriteString(k)
			b.WriteString(": ")
			renderDebug(b, field, width, len(pad))
			b.WriteString("\n")
			return true
		})
		b.WriteString(closing)
		b.WriteString("]")
	case Table:
		b.WriteString("[list\n")
		for _, item := range u {
			b.WriteString(pad)
			renderDebug(b, item, width, len(pad))
			b.WriteString("\n")
		}
		b.WriteString(closing)
		b.WriteString("]")
	default:
		b.WriteString(flat)
	}
}
