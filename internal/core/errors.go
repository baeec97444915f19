package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies a DecodeError.
type ErrorCode string

const (
	// ErrMissingField indicates a required key is absent.
	ErrMissingField ErrorCode = "missing-field"
	// ErrUnrecognizedField indicates a key the shape does not declare.
	ErrUnrecognizedField ErrorCode = "unrecognized-field"
	// ErrTypeMismatch indicates a value of the wrong kind.
	ErrTypeMismatch ErrorCode = "type-mismatch"
	// ErrNoVariantMatched indicates no shape of a polymorphic node fit.
	ErrNoVariantMatched ErrorCode = "no-variant-matched"
)

// DecodeError describes why a node could not be decoded. Path locates the
// node (for example "extends.parameters.stages[1]"); Key names the field of
// that node the error is about, if any.
type DecodeError struct {
	Code     ErrorCode
	Path     string
	Key      string
	Expected string
	Actual   string

	// Node and Attempts are set for ErrNoVariantMatched: the polymorphic
	// kind ("stage", "step", ...) and every shape tried, in order.
	Node     string
	Attempts []Attempt
}

// Attempt records one shape tried for a polymorphic node and why it failed.
type Attempt struct {
	Shape string
	Err   error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "decode error <nil>"
	}
	var b strings.Builder
	e.write(&b, "")
	return b.String()
}

func (e *DecodeError) write(b *strings.Builder, indent string) {
	b.WriteString(location(e.Path))
	b.WriteString(": ")
	switch e.Code {
	case ErrMissingField:
		fmt.Fprintf(b, "missing required field %q", e.Key)
	case ErrUnrecognizedField:
		fmt.Fprintf(b, "unrecognized field %q", e.Key)
	case ErrTypeMismatch:
		if e.Key != "" {
			fmt.Fprintf(b, "field %q: ", e.Key)
		}
		fmt.Fprintf(b, "expected %s, got %s", e.Expected, e.Actual)
	case ErrNoVariantMatched:
		shapes := make([]string, len(e.Attempts))
		for i, a := range e.Attempts {
			shapes[i] = a.Shape
		}
		fmt.Fprintf(b, "does not match any %s shape (tried %s)", e.Node, strings.Join(shapes, ", "))
		for _, a := range e.Attempts {
			fmt.Fprintf(b, "\n%s  as %s: ", indent, a.Shape)
			var nested *DecodeError
			if errors.As(a.Err, &nested) {
				nested.write(b, indent+"  ")
			} else {
				b.WriteString(a.Err.Error())
			}
		}
	default:
		b.WriteString(string(e.Code))
	}
}

// AsDecodeError extracts a DecodeError from err.
func AsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

func location(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}

func missingField(path, key string) *DecodeError {
	return &DecodeError{Code: ErrMissingField, Path: path, Key: key}
}

func unrecognizedField(path, key string) *DecodeError {
	return &DecodeError{Code: ErrUnrecognizedField, Path: path, Key: key}
}

func typeMismatch(path, key, expected string, actual Value) *DecodeError {
	return &DecodeError{Code: ErrTypeMismatch, Path: path, Key: key, Expected: expected, Actual: actual.Kind().String()}
}
