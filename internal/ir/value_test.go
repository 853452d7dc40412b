package ir

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	// Compile-time check via assignment
	var _ Value = Null{}
	var _ Value = Bool(true)
	var _ Value = Int(-1)
	var _ Value = Uint(1)
	var _ Value = Float(1.5)
	var _ Value = String("a")
	var _ Value = NewTime(time.Unix(0, 0))
	var _ Value = NewBytes([]byte{1})
}

func TestValue_UsableAsMapKey(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 6, time.FixedZone("x", 3600))
	m := map[Value]int{
		String("high"):            1,
		NewTime(ts):               2,
		NewBytes([]byte{0xde}):    3,
		Int(7):                    4,
		NewTime(ts.UTC()):         5, // same instant overwrites
		NewBytes([]byte{0xde, 0}): 6,
	}

	assert.Len(t, m, 5)
	assert.Equal(t, 5, m[NewTime(ts)])
	assert.Equal(t, 3, m[Bytes("\xde")])
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"bool", KindBool},
		{"int8", KindInt},
		{"Int64", KindInt},
		{"uint16", KindUint},
		{"double", KindFloat},
		{"float32", KindFloat},
		{"string", KindString},
		{"date", KindTime},
		{"data", KindBytes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKind(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseKind("decimal")
	assert.Error(t, err)
}

func TestKind_JSON(t *testing.T) {
	schema := Schema{Collection: "tasks", Fields: map[string]Kind{"rank": KindInt, "due": KindTime}}

	data, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"collection":"tasks","fields":{"rank":"int","due":"time"}}`, string(data))

	var back Schema
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, schema, back)

	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("invalid")))
	assert.Equal(t, KindInvalid, k)
	assert.Error(t, k.UnmarshalText([]byte("decimal")))
}

func TestCoerce(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		kind Kind
		want Value
		ok   bool
	}{
		{"int widths", int16(4), KindInt, Int(4), true},
		{"uint into int", uint32(4), KindInt, Int(4), true},
		{"integral float into int", float64(3), KindInt, Int(3), true},
		{"fractional float into int", 3.5, KindInt, nil, false},
		{"negative into uint", -1, KindUint, nil, false},
		{"uint8 into uint", uint8(9), KindUint, Uint(9), true},
		{"float32 widens", float32(0.5), KindFloat, Float(0.5), true},
		{"nan", math.NaN(), KindFloat, nil, false},
		{"nan float32", float32(math.NaN()), KindFloat, nil, false},
		{"nan value", Float(math.NaN()), KindFloat, nil, false},
		{"nan into int", math.NaN(), KindInt, nil, false},
		{"infinity", math.Inf(1), KindFloat, Float(math.Inf(1)), true},
		{"string", "low", KindString, String("low"), true},
		{"string is not int", "1", KindInt, nil, false},
		{"time", ts, KindTime, NewTime(ts), true},
		{"rfc3339 string", "2024-05-06T07:08:09Z", KindTime, NewTime(ts), true},
		{"bytes", []byte("ab"), KindBytes, Bytes("ab"), true},
		{"matching value", String("x"), KindString, String("x"), true},
		{"value of other kind", Int(2), KindFloat, nil, false},
		{"nil", nil, KindString, nil, false},
		{"null", Null{}, KindString, nil, false},
		{"bool", true, KindBool, Bool(true), true},
		{"bool is not int", true, KindInt, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Coerce(tt.in, tt.kind)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsKey(t *testing.T) {
	assert.True(t, IsKey(String("")))
	assert.True(t, IsKey(Float(0)))
	assert.True(t, IsKey(Float(math.Inf(-1))))
	assert.False(t, IsKey(nil))
	assert.False(t, IsKey(Null{}))
	assert.False(t, IsKey(Float(math.NaN())))
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, Compare(Int(1), Int(2)))
	assert.Equal(t, 0, Compare(String("a"), String("a")))
	assert.Equal(t, 1, Compare(String("b"), String("a")))
	assert.Equal(t, -1, Compare(Bool(false), Bool(true)))
	assert.Equal(t, -1, Compare(Null{}, Bool(false)), "null orders first")
	assert.Equal(t, -1, Compare(Bytes("\x00"), Bytes("\x01")))
	assert.Equal(t, 1, Compare(TimeFromUnixNano(2), TimeFromUnixNano(1)))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "high", Format(String("high")))
	assert.Equal(t, "-3", Format(Int(-3)))
	assert.Equal(t, "0xbeef", Format(NewBytes([]byte{0xbe, 0xef})))
	assert.Equal(t, "null", Format(nil))
	assert.Equal(t, "1970-01-01T00:00:00Z", Format(TimeFromUnixNano(0)))
}

func TestValueRoundTrip(t *testing.T) {
	values := []Value{
		Null{},
		Bool(true),
		Int(-42),
		Uint(18446744073709551615),
		Float(2.25),
		String("héllo"),
		TimeFromUnixNano(1700000000123456789),
		NewBytes([]byte{0, 1, 0xff}),
	}
	for _, v := range values {
		data, err := MarshalValue(v)
		require.NoError(t, err)

		got, err := UnmarshalValue(data)
		require.NoError(t, err)
		assert.Equal(t, v, got, "round trip of %s", data)
	}
}

func TestMarshalValue_TaggedShape(t *testing.T) {
	data, err := MarshalValue(NewBytes([]byte{0xab}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"bytes","v":"ab"}`, string(data))

	data, err = MarshalValue(Int(5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"int","v":5}`, string(data))
}

func TestUnmarshalValue_Errors(t *testing.T) {
	_, err := UnmarshalValue([]byte(`{"k":"decimal","v":1}`))
	assert.Error(t, err)

	_, err = UnmarshalValue([]byte(`{"k":"int","v":"x"}`))
	assert.Error(t, err)

	_, err = UnmarshalValue([]byte(`{"k":"bytes","v":"zz"}`))
	assert.Error(t, err)
}
