package core

import (
	"math"
	"strconv"
)

// Kind identifies which variant a Value holds
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindList:
		return "list"
	case KindMap:
		return "mapping"
	}
	return "unknown"
}

// Value is a loosely typed document node: template parameters, variables and
// the raw tree handed to the decoder are all Values. The zero Value is null.
//
// Mappings remember the order their keys were added in. Empty lists and
// mappings are stored as nil so that equal documents produce equal Values.
// Integers keep their exact int64 alongside the float.
type Value struct {
	kind   Kind
	str    string
	num    float64
	i      int64
	isInt  bool
	flag   bool
	list   []Value
	keys   []string
	fields map[string]Value
}

// Entry is one key/value pair of a mapping
type Entry struct {
	Key   string
	Value Value
}

func Null() Value { return Value{} }

func String(s string) Value { return Value{kind: KindString, str: s} }

func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

func Int(i int64) Value { return Value{kind: KindNumber, num: float64(i), i: i, isInt: true} }

func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

func List(items ...Value) Value {
	if len(items) == 0 {
		return Value{kind: KindList}
	}
	return Value{kind: KindList, list: items}
}

// Mapping builds a mapping from entries in order. A repeated key keeps its
// first position and its last value.
func Mapping(entries ...Entry) Value {
	if len(entries) == 0 {
		return Value{kind: KindMap}
	}
	v := Value{kind: KindMap, fields: make(map[string]Value, len(entries))}
	for _, e := range entries {
		if _, ok := v.fields[e.Key]; !ok {
			v.keys = append(v.keys, e.Key)
		}
		v.fields[e.Key] = e.Value
	}
	return v
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

func (v Value) AsBool() (bool, bool) { return v.flag, v.kind == KindBool }

// AsInt reports the number as an integer when it has no fractional part.
func (v Value) AsInt() (int64, bool) {
	if v.isInt {
		return v.i, true
	}
	if v.kind != KindNumber || v.num != math.Trunc(v.num) || math.Abs(v.num) >= 1<<63 {
		return 0, false
	}
	return int64(v.num), true
}

// IsInt reports whether v was read or built as an integer.
func (v Value) IsInt() bool { return v.isInt }

// Items returns the elements of a list.
func (v Value) Items() []Value { return v.list }

// Keys returns the keys of a mapping in insertion order.
func (v Value) Keys() []string { return v.keys }

// Get looks up key in a mapping.
func (v Value) Get(key string) (Value, bool) {
	f, ok := v.fields[key]
	return f, ok
}

// Len is the number of list elements or mapping entries.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.keys)
	}
	return 0
}

// Scalar renders a string, number or boolean as text. Null, lists and
// mappings report false.
func (v Value) Scalar() (string, bool) {
	switch v.kind {
	case KindString:
		return v.str, true
	case KindNumber:
		if v.isInt {
			return strconv.FormatInt(v.i, 10), true
		}
		return formatNumber(v.num), true
	case KindBool:
		return strconv.FormatBool(v.flag), true
	}
	return "", false
}

// Equal compares two Values structurally. Mapping key order is ignored.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		if v.isInt && o.isInt {
			return v.i == o.i
		}
		return v.num == o.num
	case KindBool:
		return v.flag == o.flag
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.keys) != len(o.keys) {
			return false
		}
		for k, f := range v.fields {
			g, ok := o.fields[k]
			if !ok || !f.Equal(g) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface converts v into plain Go values: map[string]any, []any, string,
// int64, float64, bool and nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		if v.isInt {
			return v.i
		}
		return v.num
	case KindBool:
		return v.flag
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			out[k] = v.fields[k].Interface()
		}
		return out
	}
	return nil
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
