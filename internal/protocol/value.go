package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sousajf1/nushell/internal/indexmap"
)

// Span is a half-open byte range into the source text.
type Span struct {
	Start int
	End   int
}

func UnknownSpan() Span { return Span{} }

func (s Span) IsUnknown() bool { return s.Start == 0 && s.End == 0 }

// Until returns the span from the start of s to the end of other.
func (s Span) Until(other Span) Span { return Span{Start: s.Start, End: other.End} }

func (s Span) Slice(source string) string {
	if s.Start < 0 || s.End > len(source) || s.Start > s.End {
		return ""
	}
	return source[s.Start:s.End]
}

// Tag records where a value came from: the anchor is the file or URL it was
// read from, the span the text that produced it.
type Tag struct {
	Anchor string
	Span   Span
}

func UnknownTag() Tag { return Tag{} }

func UnknownAnchor(span Span) Tag { return Tag{Span: span} }

type Spanned[T any] struct {
	Item T
	Span Span
}

// UntaggedValue is the closed set of value shapes. The unexported method
// keeps the set inside this package.
type UntaggedValue interface {
	TypeName() string
	isUntagged()
}

type (
	Nothing struct{}
	String  string
	Int     int64
	Decimal float64
	Boolean bool
	Binary  []byte
	// Row is an ordered record of named values.
	Row struct {
		Entries *indexmap.Map[string, Value]
	}
	Table []Value
	// ErrorValue is an error travelling inside the value stream.
	ErrorValue struct {
		Err *ShellError
	}
)

func (Nothing) TypeName() string    { return "nothing" }
func (String) TypeName() string     { return "string" }
func (Int) TypeName() string        { return "integer" }
func (Decimal) TypeName() string    { return "decimal" }
func (Boolean) TypeName() string    { return "boolean" }
func (Binary) TypeName() string     { return "binary" }
func (Row) TypeName() string        { return "row" }
func (Table) TypeName() string      { return "table" }
func (ErrorValue) TypeName() string { return "error" }

func (Nothing) isUntagged()    {}
func (String) isUntagged()     {}
func (Int) isUntagged()        {}
func (Decimal) isUntagged()    {}
func (Boolean) isUntagged()    {}
func (Binary) isUntagged()     {}
func (Row) isUntagged()        {}
func (Table) isUntagged()      {}
func (ErrorValue) isUntagged() {}

// Value is an untagged value paired with its origin.
type Value struct {
	Value UntaggedValue
	Tag   Tag
}

func IntoValue(u UntaggedValue, tag Tag) Value { return Value{Value: u, Tag: tag} }

func IntoUntaggedValue(u UntaggedValue) Value { return Value{Value: u} }

func StringValue(s string, tag Tag) Value { return IntoValue(String(s), tag) }

func IntValue(n int64, tag Tag) Value { return IntoValue(Int(n), tag) }

func NothingValue(tag Tag) Value { return IntoValue(Nothing{}, tag) }

// ErrorResultValue wraps err as a value. A nil err becomes an untagged
// runtime error so the value still reads as a failure.
func ErrorResultValue(err *ShellError) Value {
	if err == nil {
		err = UntaggedRuntimeError("unknown error")
	}
	return IntoValue(ErrorValue{Err: err}, UnknownAnchor(err.Span))
}

// RowBuilder accumulates ordered fields for a row value.
type RowBuilder struct {
	entries *indexmap.Map[string, Value]
}

func NewRowBuilder() *RowBuilder {
	return &RowBuilder{entries: indexmap.New[string, Value]()}
}

func (b *RowBuilder) Insert(key string, v Value) *RowBuilder {
	b.entries.Set(key, v)
	return b
}

func (b *RowBuilder) Build(tag Tag) Value {
	return IntoValue(Row{Entries: b.entries}, tag)
}

func (v Value) IsError() bool {
	_, ok := v.Value.(ErrorValue)
	return ok
}

// Err returns the embedded error of an error value, or nil.
func (v Value) Err() *ShellError {
	if e, ok := v.Value.(ErrorValue); ok {
		return e.Err
	}
	return nil
}

func (v Value) IsNothing() bool {
	if v.Value == nil {
		return true
	}
	_, ok := v.Value.(Nothing)
	return ok
}

func (v Value) TypeName() string {
	if v.Value == nil {
		return Nothing{}.TypeName()
	}
	return v.Value.TypeName()
}

// AsString returns the text of a string-like value.
func (v Value) AsString() (string, error) {
	switch u := v.Value.(type) {
	case String:
		return string(u), nil
	case Int:
		return strconv.FormatInt(int64(u), 10), nil
	case Decimal:
		return strconv.FormatFloat(float64(u), 'f', -1, 64), nil
	case Boolean:
		return strconv.FormatBool(bool(u)), nil
	case Binary:
		return string(u), nil
	default:
		return "", LabeledError(
			fmt.Sprintf("Expected a string, found %s", v.TypeName()),
			"expected a string",
			v.Tag.Span,
		)
	}
}

// Get follows a member path through rows.
func (v Value) Get(path ...string) (Value, bool) {
	cur := v
	for _, member := range path {
		row, ok := cur.Value.(Row)
		if !ok {
			return Value{}, false
		}
		next, ok := row.Entries.Get(member)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// String is the plain display form used when values reach the terminal.
func (v Value) String() string {
	switch u := v.Value.(type) {
	case nil, Nothing:
		return ""
	case String:
		return string(u)
	case Int, Decimal, Boolean:
		s, _ := v.AsString()
		return s
	case Binary:
		return fmt.Sprintf("<binary: %d bytes>", len(u))
	case Row:
		parts := make([]string, 0, u.Entries.Len())
		u.Entries.Range(func(k string, field Value) bool {
			parts = append(parts, k+": "+field.String())
			return true
		})
		return "[" + strings.Join(parts, ", ") + "]"
	case Table:
		return fmt.Sprintf("[table %d rows]", len(u))
	case ErrorValue:
		return u.Err.Error()
	default:
		return fmt.Sprintf("%v", u)
	}
}
