package core

import (
	"fmt"
	"math"
	"slices"
)

// object reads the fields of one mapping node under a fixed key set. Keys
// outside the set are rejected when the object is opened, so a shape can
// never succeed while leaving part of its node unread. A null field counts
// as absent.
type object struct {
	path  string
	value Value
}

func openObject(v Value, path string, known ...string) (*object, error) {
	if v.Kind() != KindMap {
		return nil, typeMismatch(path, "", "mapping", v)
	}
	for _, key := range v.Keys() {
		if !slices.Contains(known, key) {
			return nil, unrecognizedField(path, key)
		}
	}
	return &object{path: path, value: v}, nil
}

func (o *object) lookup(key string) (Value, bool) {
	v, ok := o.value.Get(key)
	if !ok || v.IsNull() {
		return Value{}, false
	}
	return v, true
}

func (o *object) child(key string) string {
	return childPath(o.path, key)
}

func (o *object) required(key string) (Value, error) {
	v, ok := o.lookup(key)
	if !ok {
		if raw, present := o.value.Get(key); present {
			return Value{}, typeMismatch(o.path, key, "a value", raw)
		}
		return Value{}, missingField(o.path, key)
	}
	return v, nil
}

func (o *object) requiredString(key string) (string, error) {
	v, err := o.required(key)
	if err != nil {
		return "", err
	}
	s, ok := v.AsString()
	if !ok {
		return "", typeMismatch(o.path, key, "string", v)
	}
	return s, nil
}

func (o *object) optionalString(key string) (*string, error) {
	v, ok := o.lookup(key)
	if !ok {
		return nil, nil
	}
	s, ok := v.AsString()
	if !ok {
		return nil, typeMismatch(o.path, key, "string", v)
	}
	return &s, nil
}

// optionalText accepts any scalar and keeps its text form. Used for fields
// authors routinely leave unquoted, such as timeoutInMinutes: 60.
func (o *object) optionalText(key string) (*string, error) {
	v, ok := o.lookup(key)
	if !ok {
		return nil, nil
	}
	s, ok := v.Scalar()
	if !ok {
		return nil, typeMismatch(o.path, key, "scalar", v)
	}
	return &s, nil
}

func (o *object) requiredText(key string) (string, error) {
	v, err := o.required(key)
	if err != nil {
		return "", err
	}
	s, ok := v.Scalar()
	if !ok {
		return "", typeMismatch(o.path, key, "scalar", v)
	}
	return s, nil
}

func (o *object) optionalBool(key string) (bool, error) {
	v, ok := o.lookup(key)
	if !ok {
		return false, nil
	}
	b, ok := v.AsBool()
	if !ok {
		return false, typeMismatch(o.path, key, "boolean", v)
	}
	return b, nil
}

func (o *object) optionalInt32(key string) (*int32, error) {
	v, ok := o.lookup(key)
	if !ok {
		return nil, nil
	}
	i, ok := v.AsInt()
	if !ok || i < math.MinInt32 || i > math.MaxInt32 {
		return nil, typeMismatch(o.path, key, "32-bit integer", v)
	}
	n := int32(i)
	return &n, nil
}

func (o *object) stringList(key string) ([]string, error) {
	v, ok := o.lookup(key)
	if !ok {
		return nil, nil
	}
	return decodeStrings(v, o.child(key))
}

// textMap decodes a mapping of scalars, keeping each value's text form.
func (o *object) textMap(key string) (map[string]string, error) {
	v, ok := o.lookup(key)
	if !ok {
		return nil, nil
	}
	if v.Kind() != KindMap {
		return nil, typeMismatch(o.path, key, "mapping", v)
	}
	if v.Len() == 0 {
		return nil, nil
	}
	out := make(map[string]string, v.Len())
	for _, k := range v.Keys() {
		item, _ := v.Get(k)
		s, ok := item.Scalar()
		if !ok {
			return nil, typeMismatch(o.child(key), k, "scalar", item)
		}
		out[k] = s
	}
	return out, nil
}

func (o *object) requiredTextMap(key string) (map[string]string, error) {
	if _, err := o.required(key); err != nil {
		return nil, err
	}
	return o.textMap(key)
}

// valueMap decodes an open mapping of arbitrary Values.
func (o *object) valueMap(key string) (map[string]Value, error) {
	v, ok := o.lookup(key)
	if !ok {
		return nil, nil
	}
	if v.Kind() != KindMap {
		return nil, typeMismatch(o.path, key, "mapping", v)
	}
	if v.Len() == 0 {
		return nil, nil
	}
	out := make(map[string]Value, v.Len())
	for _, k := range v.Keys() {
		out[k], _ = v.Get(k)
	}
	return out, nil
}

func decodeStrings(v Value, path string) ([]string, error) {
	return decodeList(v, path, func(item Value, itemPath string) (string, error) {
		s, ok := item.AsString()
		if !ok {
			return "", typeMismatch(itemPath, "", "string", item)
		}
		return s, nil
	})
}

// decodeList decodes every element of a list with decode, preserving order.
func decodeList[T any](v Value, path string, decode func(Value, string) (T, error)) ([]T, error) {
	if v.Kind() != KindList {
		return nil, typeMismatch(path, "", "list", v)
	}
	if v.Len() == 0 {
		return nil, nil
	}
	out := make([]T, 0, v.Len())
	for i, item := range v.Items() {
		decoded, err := decode(item, indexPath(path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, decoded)
	}
	return out, nil
}

// optionalList decodes key as a list with decode when present.
func optionalList[T any](o *object, key string, decode func(Value, string) (T, error)) ([]T, error) {
	v, ok := o.lookup(key)
	if !ok {
		return nil, nil
	}
	return decodeList(v, o.child(key), decode)
}

// variant is one candidate shape of a polymorphic node.
type variant[T any] struct {
	shape  string
	decode func(Value, string) (T, error)
}

// firstMatch tries each variant in order and returns the first that decodes
// v. The order is part of the schema: shapes can overlap, and the earlier
// shape wins. When nothing matches, the error keeps every attempt.
func firstMatch[T any](node string, v Value, path string, variants []variant[T]) (T, error) {
	attempts := make([]Attempt, 0, len(variants))
	for _, c := range variants {
		out, err := c.decode(v, path)
		if err == nil {
			return out, nil
		}
		attempts = append(attempts, Attempt{Shape: c.shape, Err: err})
	}
	var zero T
	return zero, &DecodeError{Code: ErrNoVariantMatched, Path: path, Node: node, Attempts: attempts}
}

func childPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func indexPath(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}
