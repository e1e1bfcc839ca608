package schema

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/dealerdesk/dealerdesk.go/internal/codec"
)

type Option func(*parser)

// WithDropHandler receives every element a SoftArray discards.
func WithDropHandler(fn func(Drop)) Option {
	return func(p *parser) {
		p.onDrop = fn
	}
}

type parser struct {
	onDrop func(Drop)
}

func newParser(opts []Option) *parser {
	p := &parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *parser) drop(d Drop) {
	if p.onDrop != nil {
		p.onDrop(d)
	}
}

// Parse checks v against s. v is a decoded JSON value, or any Go value that encodes to JSON.
// The result is normalised: objects are map[string]any holding declared fields only, integers
// are int64, other numbers float64, and transforms have been applied.
func Parse(s Shape, v any, opts ...Option) (any, error) {
	plain, err := plainValue(v)
	if err != nil {
		return nil, fail("", "cannot encode %T: %v", v, err)
	}
	out, verr := newParser(opts).parse(s, plain, "")
	if verr != nil {
		return nil, verr
	}
	return out, nil
}

// Is reports whether v conforms to s.
func Is(s Shape, v any) bool {
	_, err := Parse(s, v)
	return err == nil
}

func (p *parser) parse(s Shape, v any, path string) (any, *ValidationError) {
	switch t := s.(type) {
	case String:
		str, ok := v.(string)
		if !ok {
			return nil, fail(path, "expected string, got %s", typeName(v))
		}
		if msg := checkString(t, str); msg != "" {
			return nil, fail(path, "%s", msg)
		}
		return str, nil
	case Number:
		return p.parseNumber(t, v, path)
	case Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, fail(path, "expected boolean, got %s", typeName(v))
		}
		return b, nil
	case Literal:
		if !literalEqual(t.Value, v) {
			return nil, fail(path, "expected literal %v, got %v", t.Value, describe(v))
		}
		return normaliseLiteral(t.Value), nil
	case Enum:
		str, ok := v.(string)
		if !ok {
			return nil, fail(path, "expected string, got %s", typeName(v))
		}
		for _, allowed := range t.Values {
			if allowed == str {
				return str, nil
			}
		}
		return nil, fail(path, "must be one of: %s", strings.Join(t.Values, ", "))
	case Nullable:
		if v == nil {
			return nil, nil
		}
		return p.parse(t.Inner, v, path)
	case Object:
		return p.parseObject(t, v, path)
	case Array:
		items, ok := asSlice(v)
		if !ok {
			return nil, fail(path, "expected array, got %s", typeName(v))
		}
		if len(items) < t.MinItems {
			return nil, fail(path, "must contain at least %d items", t.MinItems)
		}
		if t.MaxItems > 0 && len(items) > t.MaxItems {
			return nil, fail(path, "must contain at most %d items", t.MaxItems)
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			parsed, err := p.parse(t.Elem, item, indexPath(path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, parsed)
		}
		return out, nil
	case SoftArray:
		items, ok := asSlice(v)
		if !ok {
			return nil, fail(path, "expected array, got %s", typeName(v))
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			parsed, err := p.parse(t.Elem, item, indexPath(path, i))
			if err != nil {
				p.drop(Drop{Path: path, Index: i, Err: err})
				continue
			}
			out = append(out, parsed)
		}
		return out, nil
	case Union:
		for _, option := range t.Options {
			if parsed, err := p.parse(option, v, path); err == nil {
				return parsed, nil
			}
		}
		return nil, fail(path, "matches none of the %d allowed shapes", len(t.Options))
	case Pipe:
		parsed, err := p.parse(t.Inner, v, path)
		if err != nil {
			return nil, err
		}
		if t.Transform.Fn == nil {
			return parsed, nil
		}
		transformed, terr := t.Transform.Fn(parsed)
		if terr != nil {
			return nil, fail(path, "%s: %v", t.Transform.Name, terr)
		}
		return transformed, nil
	case Any:
		return v, nil
	case Ref:
		return p.parse(t.Resolve(), v, path)
	case nil:
		return nil, fail(path, "no shape")
	default:
		return nil, fail(path, "unsupported shape %T", s)
	}
}

func (p *parser) parseObject(o Object, v any, path string) (any, *ValidationError) {
	m, ok := asMap(v)
	if !ok {
		return nil, fail(path, "expected object, got %s", typeName(v))
	}
	out := make(map[string]any, len(o.Fields))
	for _, f := range o.Fields {
		raw, present := m[f.Name]
		fieldPath := keyPath(path, f.Name)
		if !present {
			if f.Optional {
				continue
			}
			return nil, fail(fieldPath, "required")
		}
		parsed, err := p.parse(f.Shape, raw, fieldPath)
		if err != nil {
			return nil, err
		}
		out[f.Name] = parsed
	}
	return out, nil
}

func (p *parser) parseNumber(n Number, v any, path string) (any, *ValidationError) {
	f, ok := toFloat(v)
	if !ok && n.Coerce {
		if s, isString := v.(string); isString {
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				f, ok = parsed, true
			}
		}
	}
	if !ok {
		return nil, fail(path, "expected number, got %s", typeName(v))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fail(path, "must be a finite number")
	}
	if n.Integer && f != math.Trunc(f) {
		return nil, fail(path, "must be an integer")
	}
	if n.Min != nil {
		if n.ExclusiveMin && f <= *n.Min {
			return nil, fail(path, "must be greater than %s", formatFloat(*n.Min))
		}
		if !n.ExclusiveMin && f < *n.Min {
			return nil, fail(path, "must be at least %s", formatFloat(*n.Min))
		}
	}
	if n.Max != nil {
		if n.ExclusiveMax && f >= *n.Max {
			return nil, fail(path, "must be less than %s", formatFloat(*n.Max))
		}
		if !n.ExclusiveMax && f > *n.Max {
			return nil, fail(path, "must be at most %s", formatFloat(*n.Max))
		}
	}
	if n.Integer {
		i, ok := toInt64(v, f)
		if !ok {
			return nil, fail(path, "must fit in a 64-bit integer")
		}
		return i, nil
	}
	return f, nil
}

// toInt64 reads an integral value without a float round trip when the input allows it. f is the
// float form of v, used for exponent notation.
func toInt64(v any, f float64) (int64, bool) {
	switch n := v.(type) {
	case codec.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, true
		}
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func keyPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func indexPath(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case codec.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func literalEqual(want, got any) bool {
	if wf, ok := toFloat(want); ok {
		gf, isNum := toFloat(got)
		return isNum && wf == gf
	}
	return reflect.DeepEqual(want, got)
}

func normaliseLiteral(v any) any {
	if f, ok := toFloat(v); ok {
		if f == math.Trunc(f) {
			return int64(f)
		}
		return f
	}
	return v
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

func describe(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	if v == nil {
		return "null"
	}
	return fmt.Sprint(v)
}

func asMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func asSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// plainValue turns arbitrary Go values (structs, typed slices) into decoded JSON values.
func plainValue(v any) (any, error) {
	if isPlain(v) {
		return v, nil
	}
	return Encode(v)
}

func isPlain(v any) bool {
	switch t := v.(type) {
	case nil, string, bool, codec.Number, float64, int64, int:
		return true
	case map[string]any:
		for _, item := range t {
			if !isPlain(item) {
				return false
			}
		}
		return true
	case []any:
		for _, item := range t {
			if !isPlain(item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
