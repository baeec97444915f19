package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMappingRepeatedKey(t *testing.T) {
	v := Mapping(
		Entry{Key: "a", Value: Int(1)},
		Entry{Key: "b", Value: Int(2)},
		Entry{Key: "a", Value: Int(3)},
	)
	assert.Equal(t, []string{"a", "b"}, v.Keys())
	got, _ := v.Get("a")
	assert.Equal(t, Int(3), got)
	assert.Equal(t, 2, v.Len())
}

func TestValueEqual(t *testing.T) {
	a := Mapping(Entry{Key: "x", Value: Int(1)}, Entry{Key: "y", Value: List(String("z"))})
	b := Mapping(Entry{Key: "y", Value: List(String("z"))}, Entry{Key: "x", Value: Number(1)})
	assert.True(t, a.Equal(b), "mapping order is ignored")
	assert.False(t, List(Int(1), Int(2)).Equal(List(Int(2), Int(1))), "list order matters")
	assert.False(t, String("1").Equal(Int(1)))
	assert.True(t, Null().Equal(Value{}))
}

func TestValueScalar(t *testing.T) {
	tests := []struct {
		in   Value
		want string
		ok   bool
	}{
		{String("x"), "x", true},
		{Int(30), "30", true},
		{Number(2.5), "2.5", true},
		{Number(1e20), "1e+20", true},
		{Bool(true), "true", true},
		{Null(), "", false},
		{List(), "", false},
		{Mapping(), "", false},
	}
	for _, tt := range tests {
		got, ok := tt.in.Scalar()
		assert.Equal(t, tt.ok, ok, tt.in.Kind().String())
		assert.Equal(t, tt.want, got)
	}
}

func TestValueAsInt(t *testing.T) {
	i, ok := Number(7).AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(7), i)

	_, ok = Number(7.5).AsInt()
	assert.False(t, ok)
	_, ok = Number(math.Inf(1)).AsInt()
	assert.False(t, ok)
	_, ok = String("7").AsInt()
	assert.False(t, ok)
	_, ok = Number(1e20).AsInt()
	assert.False(t, ok)

	i, ok = Int(9007199254740993).AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(9007199254740993), i)
}

func TestValueIntegerPrecision(t *testing.T) {
	big := Int(9007199254740993)
	s, _ := big.Scalar()
	assert.Equal(t, "9007199254740993", s)
	assert.False(t, big.Equal(Int(9007199254740992)))
	assert.True(t, Int(3).Equal(Number(3)))
	assert.True(t, Int(3).IsInt())
	assert.False(t, Number(3).IsInt())

	s, _ = Int(1000000000000000).Scalar()
	assert.Equal(t, "1000000000000000", s)
}

func TestValueInterface(t *testing.T) {
	v := Mapping(
		Entry{Key: "s", Value: String("x")},
		Entry{Key: "n", Value: Int(2)},
		Entry{Key: "l", Value: List(Bool(true), Null())},
	)
	assert.Equal(t, map[string]any{
		"s": "x",
		"n": int64(2),
		"l": []any{true, nil},
	}, v.Interface())
}
