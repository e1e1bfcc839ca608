package schema

import (
	"github.com/dealerdesk/dealerdesk.go/internal/codec"
)

// ParseJSON decodes data and parses it against s. Empty input is treated as null.
func ParseJSON(s Shape, data []byte, opts ...Option) (any, error) {
	var v any
	if len(data) > 0 {
		if err := codec.Default.Unmarshal(data, &v); err != nil {
			return nil, fail("", "malformed JSON: %v", err)
		}
	}
	return Parse(s, v, opts...)
}

// Decode parses data against s and converts the normalised result into T.
func Decode[T any](s Shape, data []byte, opts ...Option) (T, error) {
	var zero T
	out, err := ParseJSON(s, data, opts...)
	if err != nil {
		return zero, err
	}
	return convert[T](out)
}

// DecodeValue is Decode for values that are already decoded.
func DecodeValue[T any](s Shape, v any, opts ...Option) (T, error) {
	var zero T
	out, err := Parse(s, v, opts...)
	if err != nil {
		return zero, err
	}
	return convert[T](out)
}

// Encode converts a Go value into its decoded JSON form: maps, slices, strings, bools and numbers.
func Encode(v any) (any, error) {
	data, err := codec.Default.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := codec.Default.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EncodeObject is Encode for values that must encode to a JSON object.
func EncodeObject(v any) (map[string]any, error) {
	out, err := Encode(v)
	if err != nil {
		return nil, err
	}
	m, ok := out.(map[string]any)
	if !ok {
		return nil, fail("", "expected object, got %s", typeName(out))
	}
	return m, nil
}

// As converts a value returned by Parse into T.
func As[T any](v any) (T, error) {
	return convert[T](v)
}

func convert[T any](v any) (T, error) {
	var target T
	if p, ok := any(&target).(*any); ok {
		*p = v
		return target, nil
	}
	data, err := codec.Default.Marshal(v)
	if err != nil {
		return target, fail("", "cannot encode parsed value: %v", err)
	}
	if err := codec.Default.Unmarshal(data, &target); err != nil {
		return target, fail("", "cannot decode into %T: %v", target, err)
	}
	return target, nil
}
