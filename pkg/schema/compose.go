package schema

import "strings"

// Extend returns o with fields appended. A field with an existing name replaces the old one in place.
func Extend(o Object, fields ...Field) Object {
	out := Object{Fields: make([]Field, len(o.Fields), len(o.Fields)+len(fields))}
	copy(out.Fields, o.Fields)
	for _, f := range fields {
		replaced := false
		for i := range out.Fields {
			if out.Fields[i].Name == f.Name {
				out.Fields[i] = f
				replaced = true
				break
			}
		}
		if !replaced {
			out.Fields = append(out.Fields, f)
		}
	}
	return out
}

// Omit returns o without the named fields.
func Omit(o Object, names ...string) Object {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	out := Object{}
	for _, f := range o.Fields {
		if _, ok := skip[f.Name]; !ok {
			out.Fields = append(out.Fields, f)
		}
	}
	return out
}

// Partial marks every field of o optional, for PATCH bodies.
func Partial(o Object) Object {
	out := Object{Fields: make([]Field, len(o.Fields))}
	for i, f := range o.Fields {
		f.Optional = true
		out.Fields[i] = f
	}
	return out
}

// DeepNullable makes s and everything nested in objects and arrays nullable.
func DeepNullable(s Shape) Shape {
	switch t := s.(type) {
	case Object:
		out := Object{Fields: make([]Field, len(t.Fields))}
		for i, f := range t.Fields {
			f.Shape = DeepNullable(f.Shape)
			out.Fields[i] = f
		}
		return Nullable{Inner: out}
	case Array:
		t.Elem = DeepNullable(t.Elem)
		return Nullable{Inner: t}
	case SoftArray:
		t.Elem = DeepNullable(t.Elem)
		return Nullable{Inner: t}
	case Nullable:
		return Nullable{Inner: unwrapNullable(DeepNullable(t.Inner))}
	default:
		return Nullable{Inner: s}
	}
}

func unwrapNullable(s Shape) Shape {
	if n, ok := s.(Nullable); ok {
		return n.Inner
	}
	return s
}

// FieldAt walks a dotted path such as "owner.address" through objects and pipes.
func FieldAt(s Shape, path string) (Field, bool) {
	var (
		field Field
		found bool
	)
	current := s
	for _, name := range strings.Split(path, ".") {
		obj, ok := objectOf(current)
		if !ok {
			return Field{}, false
		}
		field, found = obj.Field(name)
		if !found {
			return Field{}, false
		}
		current = field.Shape
	}
	return field, found
}

func objectOf(s Shape) (Object, bool) {
	switch t := s.(type) {
	case Object:
		return t, true
	case Pipe:
		return objectOf(t.Inner)
	case Nullable:
		return objectOf(t.Inner)
	case Ref:
		return objectOf(t.Resolve())
	default:
		return Object{}, false
	}
}

// IsRequired reports whether a form must supply the field: it is neither optional nor nullable.
func IsRequired(f Field) bool {
	if f.Optional {
		return false
	}
	return !Is(f.Shape, nil)
}
