package protocol

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsString(t *testing.T) {
	tests := []struct {
		name    string
		value   Value
		want    string
		wantErr bool
	}{
		{name: "string", value: StringValue("abc", UnknownTag()), want: "abc"},
		{name: "int", value: IntValue(42, UnknownTag()), want: "42"},
		{name: "decimal", value: IntoUntaggedValue(Decimal(1.5)), want: "1.5"},
		{name: "boolean", value: IntoUntaggedValue(Boolean(true)), want: "true"},
		{name: "row", value: NewRowBuilder().Build(UnknownTag()), wantErr: true},
		{name: "nothing", value: NothingValue(UnknownTag()), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.value.AsString()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "Expected a string")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetFollowsRows(t *testing.T) {
	inner := NewRowBuilder().Insert("name", StringValue("nu", UnknownTag())).Build(UnknownTag())
	outer := NewRowBuilder().Insert("package", inner).Build(UnknownTag())

	got, ok := outer.Get("package", "name")
	require.True(t, ok)
	assert.Equal(t, "nu", got.String())

	_, ok = outer.Get("package", "version")
	assert.False(t, ok)
	_, ok = outer.Get("package", "name", "deeper")
	assert.False(t, ok)
}

func TestErrorValue(t *testing.T) {
	err := LabeledError("bad input", "here", Span{Start: 3, End: 5})
	v := ErrorResultValue(err)

	assert.True(t, v.IsError())
	assert.Same(t, err, v.Err())
	assert.Equal(t, Span{Start: 3, End: 5}, v.Tag.Span)
	assert.Nil(t, StringValue("x", UnknownTag()).Err())
}

func TestFromJSONKeepsOrder(t *testing.T) {
	tag := Tag{Anchor: "data.json"}
	v, err := FromJSON([]byte(`{"zeta": 1, "alpha": [true, null, 2.5], "mid": {"b": "x", "a": "y"}}`), tag)
	require.NoError(t, err)

	row, ok := v.Value.(Row)
	require.True(t, ok)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, row.Entries.Keys())

	mid, _ := v.Get("mid")
	assert.Equal(t, []string{"b", "a"}, mid.Value.(Row).Entries.Keys())

	alpha, _ := v.Get("alpha")
	list, ok := alpha.Value.(Table)
	require.True(t, ok)
	require.Len(t, list, 3)
	assert.Equal(t, Boolean(true), list[0].Value)
	assert.True(t, list[1].IsNothing())
	assert.Equal(t, Decimal(2.5), list[2].Value)
	assert.Equal(t, tag, list[2].Tag)

	zeta, _ := v.Get("zeta")
	assert.Equal(t, Int(1), zeta.Value)
}

func TestFromJSONRejectsTrailingData(t *testing.T) {
	_, err := FromJSON([]byte(`{} {}`), UnknownTag())
	assert.Error(t, err)

	_, err = FromJSON([]byte(`{"a": `), UnknownTag())
	assert.Error(t, err)
}

func TestToJSON(t *testing.T) {
	v := NewRowBuilder().
		Insert("name", StringValue("nu", UnknownTag())).
		Insert("size", IntValue(3, UnknownTag())).
		Insert("tags", IntoUntaggedValue(Table{StringValue("a", UnknownTag())})).
		Build(UnknownTag())

	out, err := ToJSON(v)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"nu","size":3,"tags":["a"]}`, string(out))

	back, err := FromJSON(out, UnknownTag())
	require.NoError(t, err)
	if diff := cmp.Diff(v.PrettyDebug(), back.PrettyDebug()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeJSONStream(t *testing.T) {
	var got []string
	err := DecodeJSONStream(bytes.NewBufferString("1\n\"two\"\n{\"n\": 3}\n"), UnknownTag(), func(v Value) error {
		got = append(got, v.PrettyDebug())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", `"two"`, "[row n: 3]"}, got)
}

func TestRenderDebug(t *testing.T) {
	v := NewRowBuilder().
		Insert("name", StringValue("nushell", UnknownTag())).
		Insert("deps", IntoUntaggedValue(Table{
			StringValue("serde", UnknownTag()),
			StringValue("futures", UnknownTag()),
		})).
		Build(UnknownTag())

	assert.Equal(t, `[row name: "nushell" deps: [list "serde" "futures"]]`, RenderDebug(v, 80))

	narrow := RenderDebug(v, 20)
	lines := strings.Split(narrow, "\n")
	assert.Equal(t, "[row", lines[0])
	assert.Equal(t, `  name: "nushell"`, lines[1])
	assert.Equal(t, "  deps: [list", lines[2])
	assert.Equal(t, `    "serde"`, lines[3])
	assert.Equal(t, "]", lines[len(lines)-1])
}

func TestReturnValueRawValue(t *testing.T) {
	v := IntValue(1, UnknownTag())

	raw, ok := ValueResult(v).RawValue()
	assert.True(t, ok)
	assert.Equal(t, v, raw)

	_, ok = DebugValueResult(v).RawValue()
	assert.True(t, ok)

	_, ok = ChangeCwd("/tmp").RawValue()
	assert.False(t, ok)
	assert.Equal(t, "action change path /tmp", ChangeCwd("/tmp").Describe())
}
