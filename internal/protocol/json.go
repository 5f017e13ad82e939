package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// FromJSON decodes one JSON document into a value, keeping object keys in
// document order. Every produced value carries tag.
func FromJSON(data []byte, tag Tag) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSON(dec, tag)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

// DecodeJSONStream decodes consecutive JSON documents from r, as written by
// line-oriented producers.
func DecodeJSONStream(r io.Reader, tag Tag, emit func(Value) error) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	for {
		v, err := decodeJSON(dec, tag)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := emit(v); err != nil {
			return err
		}
	}
}

func decodeJSON(dec *json.Decoder, tag Tag) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			row := NewRowBuilder()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("expected object key, found %v", keyTok)
				}
				field, err := decodeJSON(dec, tag)
				if err != nil {
					return Value{}, err
				}
				row.Insert(key, field)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return row.Build(tag), nil
		case '[':
			var items Table
			for dec.More() {
				item, err := decodeJSON(dec, tag)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			if items == nil {
				items = Table{}
			}
			return IntoValue(items, tag), nil
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %v", t)
		}
	case string:
		return IntoValue(String(t), tag), nil
	case json.Number:
		if n, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return IntoValue(Int(n), tag), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return IntoValue(Decimal(f), tag), nil
	case bool:
		return IntoValue(Boolean(t), tag), nil
	case nil:
		return IntoValue(Nothing{}, tag), nil
	default:
		return Value{}, fmt.Errorf("unexpected JSON token %v", tok)
	}
}

// ToJSON encodes v, keeping row fields in order. Binary values are base64
// strings and error values encode as {"error": message}.
func ToJSON(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeJSON(buf *bytes.Buffer, v Value) error {
	switch u := v.Value.(type) {
	case nil, Nothing:
		buf.WriteString("null")
	case String:
		return writeJSON(buf, string(u))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(u), 10))
	case Decimal:
		return writeJSON(buf, float64(u))
	case Boolean:
		buf.WriteString(strconv.FormatBool(bool(u)))
	case Binary:
		return writeJSON(buf, base64.StdEncoding.EncodeToString(u))
	case Row:
		buf.WriteByte('{')
		var err error
		first := true
		u.Entries.Range(func(k string, field Value) bool {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			if err = writeJSON(buf, k); err != nil {
				return false
			}
			buf.WriteByte(':')
			err = encodeJSON(buf, field)
			return err == nil
		})
		if err != nil {
			return err
		}
		buf.WriteByte('}')
	case Table:
		buf.WriteByte('[')
		for i, item := range u {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case ErrorValue:
		buf.WriteString(`{"error":`)
		if err := writeJSON(buf, u.Err.Error()); err != nil {
			return err
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("cannot encode %s as JSON", v.TypeName())
	}
	return nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
