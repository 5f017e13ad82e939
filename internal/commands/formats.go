package commands

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/sousajf1/nushell/internal/engine"
	"github.com/sousajf1/nushell/internal/protocol"
	"github.com/sousajf1/nushell/internal/stream"
)

// loadFile reads a file, decompressing by extension. Valid UTF-8 becomes a
// string, anything else binary.
func loadFile(path string, tag protocol.Tag) (protocol.Value, error) {
	content, err := engine.ReadSource(path)
	if err != nil {
		return protocol.Value{}, &protocol.ShellError{
			Kind:    protocol.FileReadFailure,
			Message: "Can't open file",
			Label:   "can't open",
			Span:    tag.Span,
			Cause:   err,
		}
	}
	if utf8.Valid(content) {
		return protocol.StringValue(string(content), tag), nil
	}
	return protocol.IntoValue(protocol.Binary(content), tag), nil
}

// builtinOpen loads a file and asks for it to be converted by extension
// unless --raw is given.
func builtinOpen(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	evaluated, err := args.Evaluate()
	if err != nil {
		return nil, err
	}
	path, err := evaluated.ExpectString(0, "path", args.Call.NameTag)
	if err != nil {
		return nil, err
	}
	resolved := args.Context.ResolvePath(path)
	v, err := loadFile(resolved, protocol.Tag{Anchor: resolved, Span: argSpan(args, 0)})
	if err != nil {
		return nil, err
	}

	ext := engine.UncompressedExt(resolved)
	if evaluated.Has("raw") || ext == "" {
		return values(v), nil
	}
	return actions(protocol.AutoConvert{Value: v, Extension: ext}), nil
}

// builtinGet follows a dotted column path through each input row, or each
// row of an input table. Rows without the column yield an error value.
func builtinGet(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	evaluated, err := args.Evaluate()
	if err != nil {
		return nil, err
	}
	member, err := evaluated.ExpectString(0, "member", args.Call.NameTag)
	if err != nil {
		return nil, err
	}
	path := strings.Split(member, ".")
	span := argSpan(args, 0)

	lookup := func(v protocol.Value) protocol.ReturnValue {
		found, ok := v.Get(path...)
		if !ok {
			return protocol.ErrorResult(protocol.LabeledError(
				fmt.Sprintf("Unknown column %s", member), "unknown column", span))
		}
		return protocol.ValueResult(found)
	}
	return stream.FlatMap(args.Input, func(_ context.Context, v protocol.Value) stream.Stream[protocol.ReturnValue] {
		if table, ok := v.Value.(protocol.Table); ok {
			return stream.Map(stream.FromSlice(table), lookup)
		}
		return stream.One(lookup(v))
	}), nil
}

func builtinToJSON(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	return stream.Map(args.Input, func(v protocol.Value) protocol.ReturnValue {
		data, err := protocol.ToJSON(v)
		if err != nil {
			return protocol.ErrorResult(protocol.LabeledError(err.Error(), "can not convert to json", args.Call.NameTag.Span))
		}
		return protocol.ValueResult(protocol.StringValue(string(data), v.Tag))
	}), nil
}

// decodeFunc turns the text of one input value into a value.
type decodeFunc func(text []byte, tag protocol.Tag) (protocol.Value, error)

// converting runs parse over every input value. Output keeps the input's
// anchor and points at the command that converted it.
func converting(args *engine.RawCommandArgs, format string, parse decodeFunc) stream.Stream[protocol.ReturnValue] {
	nameSpan := args.Call.NameTag.Span
	return stream.Map(args.Input, func(v protocol.Value) protocol.ReturnValue {
		var text []byte
		switch u := v.Value.(type) {
		case protocol.String:
			text = []byte(u)
		case protocol.Binary:
			text = u
		default:
			return protocol.ErrorResult(protocol.LabeledError(
				fmt.Sprintf("Expected text for %s, found %s", format, v.TypeName()),
				"requires text input", nameSpan))
		}
		out, err := parse(text, protocol.Tag{Anchor: v.Tag.Anchor, Span: nameSpan})
		if err != nil {
			return protocol.ErrorResult(&protocol.ShellError{
				Kind:    protocol.ConversionFailure,
				Message: fmt.Sprintf("Could not parse as %s", format),
				Label:   err.Error(),
				Span:    nameSpan,
				Cause:   err,
			})
		}
		return protocol.ValueResult(out)
	})
}

func builtinFromJSON(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	return converting(args, "json", protocol.FromJSON), nil
}

func builtinFromCSV(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	evaluated, err := args.Evaluate()
	if err != nil {
		return nil, err
	}
	sep := ','
	if v, ok := evaluated.Get("separator"); ok {
		s, err := v.AsString()
		if err != nil {
			return nil, err
		}
		r, size := utf8.DecodeRuneInString(s)
		if size == 0 || size != len(s) {
			return nil, protocol.LabeledError("Expected a single character separator", "bad separator", v.Tag.Span)
		}
		sep = r
	}
	return converting(args, "csv", func(text []byte, tag protocol.Tag) (protocol.Value, error) {
		return fromCSV(text, sep, tag)
	}), nil
}

// fromCSV reads a header row followed by records into a table of rows.
func fromCSV(text []byte, sep rune, tag protocol.Tag) (protocol.Value, error) {
	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = sep
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return protocol.IntoValue(protocol.Table{}, tag), nil
	}
	if err != nil {
		return protocol.Value{}, err
	}

	table := protocol.Table{}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return protocol.Value{}, err
		}
		row := protocol.NewRowBuilder()
		for i, column := range header {
			field := ""
			if i < len(record) {
				field = record[i]
			}
			row.Insert(column, protocol.StringValue(field, tag))
		}
		table = append(table, row.Build(tag))
	}
	return protocol.IntoValue(table, tag), nil
}

func builtinFromYAML(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	return converting(args, "yaml", fromYAML), nil
}

// fromYAML decodes every document in text. Mapping order is kept by walking
// the node tree.
func fromYAML(text []byte, tag protocol.Tag) (protocol.Value, error) {
	dec := yaml.NewDecoder(bytes.NewReader(text))
	var docs protocol.Table
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return protocol.Value{}, err
		}
		v, err := yamlValue(&doc, tag)
		if err != nil {
			return protocol.Value{}, err
		}
		docs = append(docs, v)
	}
	switch len(docs) {
	case 0:
		return protocol.NothingValue(tag), nil
	case 1:
		return docs[0], nil
	default:
		return protocol.IntoValue(docs, tag), nil
	}
}

func yamlValue(n *yaml.Node, tag protocol.Tag) (protocol.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return protocol.NothingValue(tag), nil
		}
		return yamlValue(n.Content[0], tag)
	case yaml.AliasNode:
		return yamlValue(n.Alias, tag)
	case yaml.SequenceNode:
		table := protocol.Table{}
		for _, item := range n.Content {
			v, err := yamlValue(item, tag)
			if err != nil {
				return protocol.Value{}, err
			}
			table = append(table, v)
		}
		return protocol.IntoValue(table, tag), nil
	case yaml.MappingNode:
		row := protocol.NewRowBuilder()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := yamlValue(n.Content[i+1], tag)
			if err != nil {
				return protocol.Value{}, err
			}
			row.Insert(n.Content[i].Value, v)
		}
		return row.Build(tag), nil
	case yaml.ScalarNode:
		return yamlScalar(n, tag)
	}
	return protocol.Value{}, fmt.Errorf("unsupported yaml node at line %d", n.Line)
}

func yamlScalar(n *yaml.Node, tag protocol.Tag) (protocol.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return protocol.NothingValue(tag), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return protocol.Value{}, err
		}
		return protocol.IntoValue(protocol.Boolean(b), tag), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return protocol.Value{}, err
		}
		return protocol.IntValue(i, tag), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return protocol.Value{}, err
		}
		return protocol.IntoValue(protocol.Decimal(f), tag), nil
	default:
		return protocol.StringValue(n.Value, tag), nil
	}
}

func builtinFromTOML(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
	return converting(args, "toml", fromTOML), nil
}

// fromTOML decodes a document into rows ordered the way keys appear in the
// source.
func fromTOML(text []byte, tag protocol.Tag) (protocol.Value, error) {
	var doc map[string]any
	md, err := toml.Decode(string(text), &doc)
	if err != nil {
		return protocol.Value{}, err
	}
	order := tomlOrder{keys: md.Keys()}
	return order.table(nil, doc, tag), nil
}

type tomlOrder struct {
	keys []toml.Key
}

// children lists the names directly under prefix in document order.
func (o tomlOrder) children(prefix []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, key := range o.keys {
		if len(key) != len(prefix)+1 || !hasPrefix(key, prefix) {
			continue
		}
		name := key[len(prefix)]
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func hasPrefix(key toml.Key, prefix []string) bool {
	for i, p := range prefix {
		if key[i] != p {
			return false
		}
	}
	return true
}

func (o tomlOrder) table(prefix []string, m map[string]any, tag protocol.Tag) protocol.Value {
	row := protocol.NewRowBuilder()
	done := map[string]bool{}
	for _, name := range o.children(prefix) {
		v, ok := m[name]
		if !ok {
			continue
		}
		done[name] = true
		row.Insert(name, o.value(append(append([]string(nil), prefix...), name), v, tag))
	}
	// Keys the metadata did not report, such as those of inline tables.
	for _, name := range sortedKeys(m) {
		if !done[name] {
			row.Insert(name, o.value(append(append([]string(nil), prefix...), name), m[name], tag))
		}
	}
	return row.Build(tag)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (o tomlOrder) value(key []string, v any, tag protocol.Tag) protocol.Value {
	switch v := v.(type) {
	case map[string]any:
		return o.table(key, v, tag)
	case []map[string]any:
		table := protocol.Table{}
		for _, item := range v {
			table = append(table, o.table(key, item, tag))
		}
		return protocol.IntoValue(table, tag)
	case []any:
		table := protocol.Table{}
		for _, item := range v {
			table = append(table, o.value(key, item, tag))
		}
		return protocol.IntoValue(table, tag)
	case string:
		return protocol.StringValue(v, tag)
	case int64:
		return protocol.IntValue(v, tag)
	case float64:
		return protocol.IntoValue(protocol.Decimal(v), tag)
	case bool:
		return protocol.IntoValue(protocol.Boolean(v), tag)
	case time.Time:
		return protocol.StringValue(v.Format(time.RFC3339), tag)
	default:
		return protocol.StringValue(fmt.Sprint(v), tag)
	}
}

// decompressWith builds a converter that inflates its input and hands the
// result on as text when it is valid UTF-8.
func decompressWith(format string) BuiltinFunc {
	return func(_ context.Context, args *engine.RawCommandArgs) (stream.Stream[protocol.ReturnValue], error) {
		return converting(args, format, func(data []byte, tag protocol.Tag) (protocol.Value, error) {
			out, err := engine.Decompress(format, data)
			if err != nil {
				return protocol.Value{}, err
			}
			if utf8.Valid(out) {
				return protocol.StringValue(string(out), tag), nil
			}
			return protocol.IntoValue(protocol.Binary(out), tag), nil
		}), nil
	}
}
