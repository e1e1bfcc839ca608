// Package schema describes the expected shape of API payloads and checks decoded JSON against it.
//
// A Shape is plain data. Parse walks it together with a decoded value and returns the normalised
// value or the first violation found. Other packages (the mock generator, the YAML loader) inspect
// shapes with a type switch over the concrete types declared here.
//
// SoftArray is the tolerant list: elements that do not conform are dropped and reported through
// the drop handler instead of failing the whole payload.
package schema

import "regexp"

// Shape is implemented only by the types in this package.
type Shape interface {
	shape()
}

// Format names a well known string format.
type Format string

const (
	FormatNone     Format = ""
	FormatEmail    Format = "email"
	FormatUUID     Format = "uuid"
	FormatURL      Format = "url"
	FormatJWT      Format = "jwt"
	FormatDateTime Format = "datetime"
	FormatDate     Format = "date"
)

type String struct {
	Format  Format
	MinLen  int
	MaxLen  int // 0 means unbounded
	Pattern *regexp.Regexp
}

type Number struct {
	Integer      bool
	Min          *float64
	Max          *float64
	ExclusiveMin bool
	ExclusiveMax bool
	// Coerce accepts numeric strings such as "42".
	Coerce bool
}

type Bool struct{}

// Literal matches exactly one string, number or boolean value.
type Literal struct {
	Value any
}

type Enum struct {
	Values []string
}

type Nullable struct {
	Inner Shape
}

type Field struct {
	Name     string
	Shape    Shape
	Optional bool
}

// Object matches a JSON object. Fields are checked in declaration order and undeclared keys are
// dropped from the output.
type Object struct {
	Fields []Field
}

type Array struct {
	Elem     Shape
	MinItems int
	MaxItems int // 0 means unbounded
}

type SoftArray struct {
	Elem Shape
}

// Union matches the first option that accepts the value.
type Union struct {
	Options []Shape
}

// Pipe parses Inner then applies Transform to the result.
type Pipe struct {
	Inner     Shape
	Transform Transform
}

type Any struct{}

// Ref defers shape construction, which allows recursive shapes.
type Ref struct {
	Name    string
	Resolve func() Shape
}

func (String) shape()    {}
func (Number) shape()    {}
func (Bool) shape()      {}
func (Literal) shape()   {}
func (Enum) shape()      {}
func (Nullable) shape()  {}
func (Object) shape()    {}
func (Array) shape()     {}
func (SoftArray) shape() {}
func (Union) shape()     {}
func (Pipe) shape()      {}
func (Any) shape()       {}
func (Ref) shape()       {}

// Float returns a pointer to f, for Number bounds.
func Float(f float64) *float64 {
	return &f
}

// Positive is an integer strictly greater than zero.
func Positive() Number {
	return Number{Integer: true, Min: Float(0), ExclusiveMin: true}
}

func Required(name string, s Shape) Field {
	return Field{Name: name, Shape: s}
}

func Optional(name string, s Shape) Field {
	return Field{Name: name, Shape: s, Optional: true}
}

// Field returns the named field of o.
func (o Object) Field(name string) (Field, bool) {
	for _, f := range o.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
