package value

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAny_Scalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null{}},
		{"string", "hello", String("hello")},
		{"bool", true, Bool(true)},
		{"int", 42, Int(42)},
		{"int64", int64(-7), Int(-7)},
		{"uint8", uint8(3), Int(3)},
		{"float", 1.5, Float(1.5)},
		{"json int", json.Number("12"), Int(12)},
		{"json float", json.Number("0.25"), Float(0.25)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromAny_Pointer(t *testing.T) {
	got, err := FromAny(map[string]any{
		"__type":    "Pointer",
		"className": "Player",
		"objectId":  "abc",
	})
	require.NoError(t, err)
	assert.Equal(t, Pointer{ClassName: "Player", ObjectID: "abc"}, got)
}

func TestFromAny_PointerMissingID(t *testing.T) {
	_, err := FromAny(map[string]any{"__type": "Pointer", "className": "Player"})
	assert.Error(t, err)
}

func TestFromAny_YAMLStyleMap(t *testing.T) {
	got, err := FromAny(map[any]any{"a": []any{1, "x"}})
	require.NoError(t, err)
	assert.Equal(t, Object{"a": Array{Int(1), String("x")}}, got)
}

func TestFromAny_RejectsNonFinite(t *testing.T) {
	_, err := FromAny(math.NaN())
	assert.Error(t, err)
	_, err = FromAny(math.Inf(1))
	assert.Error(t, err)
}

func TestToAny_RoundTrip(t *testing.T) {
	original := NewObject(
		O("name", String("cart")),
		O("count", Int(5)),
		O("ratio", Float(0.5)),
		O("tags", NewArray(String("a"), Null{})),
		O("owner", Pointer{ClassName: "User", ObjectID: "u1"}),
	)

	back, err := FromAny(ToAny(original))
	require.NoError(t, err)
	assert.Equal(t, original, back)
}

func TestMarshal_SortedKeysNoSpaces(t *testing.T) {
	obj := Object{"b": Int(2), "a": String("x"), "c": Bool(false)}
	assert.Equal(t, `{"a":"x","b":2,"c":false}`, string(MustMarshal(obj)))
}

func TestMarshal_Pointer(t *testing.T) {
	p := Pointer{ClassName: "User", ObjectID: "u1"}
	assert.Equal(t, `{"__type":"Pointer","className":"User","objectId":"u1"}`, string(MustMarshal(p)))
}

func TestMarshal_NoHTMLEscape(t *testing.T) {
	assert.Equal(t, `"<a&b>"`, string(MustMarshal(String("<a&b>"))))
}

func TestMarshal_LineSeparatorsLiteral(t *testing.T) {
	assert.Equal(t, "\"a\u2028b\"", string(MustMarshal(String("a\u2028b"))))
	// An escaped backslash followed by the letters u2028 stays escaped.
	assert.Equal(t, `"\\u2028"`, string(MustMarshal(String(`\u2028`))))
}

func TestMarshal_NFC(t *testing.T) {
	decomposed := String("e\u0301")
	composed := String("\u00e9")
	assert.Equal(t, MustMarshal(composed), MustMarshal(decomposed))
}

func TestMarshal_Floats(t *testing.T) {
	assert.Equal(t, "2", string(MustMarshal(Float(2))))
	assert.Equal(t, "0.125", string(MustMarshal(Float(0.125))))
	assert.Equal(t, "1e+21", string(MustMarshal(Float(1e21))))

	_, err := Marshal(Float(math.NaN()))
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	v, err := Parse([]byte(`{"n": 9007199254740993, "f": 1.5, "s": "x", "z": null}`))
	require.NoError(t, err)

	obj, ok := v.(Object)
	require.True(t, ok)
	assert.Equal(t, Int(9007199254740993), obj["n"], "large ints must not lose precision")
	assert.Equal(t, Float(1.5), obj["f"])
	assert.Equal(t, Null{}, obj["z"])
}

func TestParse_TrailingData(t *testing.T) {
	_, err := Parse([]byte(`1 2`))
	assert.Error(t, err)
}

func TestKeyAndEqual(t *testing.T) {
	assert.True(t, Equal(Int(2), Float(2)), "integral float shares canonical form with int")
	assert.True(t, Equal(Object{"a": Int(1), "b": Int(2)}, Object{"b": Int(2), "a": Int(1)}))
	assert.False(t, Equal(String("1"), Int(1)))
	assert.Equal(t, `"x"`, Key(String("x")))
}

func TestAddNumbers(t *testing.T) {
	sum, err := AddNumbers(Int(2), Int(3))
	require.NoError(t, err)
	assert.Equal(t, Int(5), sum)

	sum, err = AddNumbers(Int(2), Float(0.5))
	require.NoError(t, err)
	assert.Equal(t, Float(2.5), sum)

	sum, err = AddNumbers(Int(math.MaxInt64), Int(1))
	require.NoError(t, err)
	assert.IsType(t, Float(0), sum, "overflow degrades to float")

	_, err = AddNumbers(Float(math.MaxFloat64), Float(math.MaxFloat64))
	assert.ErrorContains(t, err, "overflows")

	_, err = AddNumbers(Float(-math.MaxFloat64), Int(math.MinInt64))
	assert.NoError(t, err, "rounding back to MaxFloat64 is still finite")

	_, err = AddNumbers(String("a"), Int(1))
	assert.Error(t, err)
}

func TestToParam(t *testing.T) {
	p, err := ToParam(String("x"))
	require.NoError(t, err)
	assert.Equal(t, "x", p)

	p, err = ToParam(Null{})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = ToParam(Array{Int(1), Int(2)})
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", p)
}

func TestDigest_StableAcrossKeyOrder(t *testing.T) {
	a, err := Digest(DomainChangeSet, Object{"x": Int(1), "y": Int(2)})
	require.NoError(t, err)
	b, err := Digest(DomainChangeSet, Object{"y": Int(2), "x": Int(1)})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	c, err := Digest(DomainObject, Object{"x": Int(1), "y": Int(2)})
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "domain separation")
}
