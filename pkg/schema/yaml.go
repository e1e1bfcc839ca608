package schema

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
)

// Spec is the YAML form of a shape.
//
//	type: object
//	base: uuid
//	fields:
//	  - name: vin
//	    type: string
//	    min: 17
//	    max: 17
//	  - name: mileage
//	    type: integer
//	    min: 0
//	    nullable: true
//	    optional: true
type Spec struct {
	Name     string `yaml:"name,omitempty"`
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional,omitempty"`
	Nullable bool   `yaml:"nullable,omitempty"`

	Format       string   `yaml:"format,omitempty"`
	Pattern      string   `yaml:"pattern,omitempty"`
	Min          *float64 `yaml:"min,omitempty"`
	Max          *float64 `yaml:"max,omitempty"`
	ExclusiveMin bool     `yaml:"exclusive_min,omitempty"`
	ExclusiveMax bool     `yaml:"exclusive_max,omitempty"`
	Coerce       bool     `yaml:"coerce,omitempty"`

	Values    []string `yaml:"values,omitempty"`
	Value     any      `yaml:"value,omitempty"`
	Transform string   `yaml:"transform,omitempty"`

	// Base is "uuid" or "id" for entity objects.
	Base    string `yaml:"base,omitempty"`
	Fields  []Spec `yaml:"fields,omitempty"`
	Items   *Spec  `yaml:"items,omitempty"`
	Options []Spec `yaml:"options,omitempty"`
	Ref     string `yaml:"ref,omitempty"`
}

// LoadYAML reads a document mapping shape names to specs. Specs may refer to each other,
// and to themselves, with type: ref.
func LoadYAML(data []byte) (map[string]Shape, error) {
	var specs map[string]Spec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("%w: schema yaml: %v", constants.ErrConfiguration, err)
	}
	shapes := make(map[string]Shape, len(specs))
	for name, spec := range specs {
		built, err := spec.Build(shapes)
		if err != nil {
			return nil, fmt.Errorf("shape %q: %w", name, err)
		}
		shapes[name] = built
	}
	for name, spec := range specs {
		if err := checkRefs(spec, shapes); err != nil {
			return nil, fmt.Errorf("shape %q: %w", name, err)
		}
	}
	return shapes, nil
}

// CheckRefs reports the first ref in s, or in its children, that shapes cannot resolve.
func (s Spec) CheckRefs(shapes map[string]Shape) error {
	return checkRefs(s, shapes)
}

func checkRefs(spec Spec, shapes map[string]Shape) error {
	if spec.Type == "ref" {
		if _, ok := shapes[spec.Ref]; !ok {
			return fmt.Errorf("%w: unknown ref %q", constants.ErrConfiguration, spec.Ref)
		}
	}
	children := append(append([]Spec{}, spec.Fields...), spec.Options...)
	if spec.Items != nil {
		children = append(children, *spec.Items)
	}
	for _, child := range children {
		if err := checkRefs(child, shapes); err != nil {
			return err
		}
	}
	return nil
}

// Build turns s into a Shape. refs resolves type: ref lazily, so it may still be filling up.
func (s Spec) Build(refs map[string]Shape) (Shape, error) {
	built, err := s.build(refs)
	if err != nil {
		return nil, err
	}
	if s.Transform != "" {
		t, err := LookupTransform(s.Transform)
		if err != nil {
			return nil, err
		}
		built = Pipe{Inner: built, Transform: t}
	}
	if s.Nullable {
		built = Nullable{Inner: built}
	}
	return built, nil
}

// BuildFields builds the specs as object fields.
func BuildFields(specs []Spec, refs map[string]Shape) ([]Field, error) {
	fields := make([]Field, 0, len(specs))
	for _, fs := range specs {
		if fs.Name == "" {
			return nil, fmt.Errorf("%w: field without name", constants.ErrConfiguration)
		}
		shape, err := fs.Build(refs)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fs.Name, err)
		}
		fields = append(fields, Field{Name: fs.Name, Shape: shape, Optional: fs.Optional})
	}
	return fields, nil
}

func (s Spec) build(refs map[string]Shape) (Shape, error) {
	switch s.Type {
	case "string":
		str := String{Format: Format(s.Format)}
		switch str.Format {
		case FormatNone, FormatEmail, FormatUUID, FormatURL, FormatJWT, FormatDateTime, FormatDate:
		default:
			return nil, fmt.Errorf("%w: unknown string format %q", constants.ErrConfiguration, s.Format)
		}
		if s.Min != nil {
			str.MinLen = int(*s.Min)
		}
		if s.Max != nil {
			str.MaxLen = int(*s.Max)
		}
		if s.Pattern != "" {
			re, err := regexp.Compile(s.Pattern)
			if err != nil {
				return nil, fmt.Errorf("%w: pattern: %v", constants.ErrConfiguration, err)
			}
			str.Pattern = re
		}
		return str, nil
	case "number", "integer":
		return Number{
			Integer:      s.Type == "integer",
			Min:          s.Min,
			Max:          s.Max,
			ExclusiveMin: s.ExclusiveMin,
			ExclusiveMax: s.ExclusiveMax,
			Coerce:       s.Coerce,
		}, nil
	case "boolean", "bool":
		return Bool{}, nil
	case "literal":
		return Literal{Value: s.Value}, nil
	case "enum":
		if len(s.Values) == 0 {
			return nil, fmt.Errorf("%w: enum without values", constants.ErrConfiguration)
		}
		return Enum{Values: s.Values}, nil
	case "object":
		fields, err := BuildFields(s.Fields, refs)
		if err != nil {
			return nil, err
		}
		switch s.Base {
		case "":
			return Object{Fields: fields}, nil
		case "uuid":
			return UUIDEntity(fields...), nil
		case "id":
			return NumericEntity(fields...), nil
		default:
			return nil, fmt.Errorf("%w: unknown entity base %q", constants.ErrConfiguration, s.Base)
		}
	case "array", "list":
		if s.Items == nil {
			return nil, fmt.Errorf("%w: %s without items", constants.ErrConfiguration, s.Type)
		}
		elem, err := s.Items.Build(refs)
		if err != nil {
			return nil, err
		}
		if s.Type == "list" {
			return SoftArray{Elem: elem}, nil
		}
		arr := Array{Elem: elem}
		if s.Min != nil {
			arr.MinItems = int(*s.Min)
		}
		if s.Max != nil {
			arr.MaxItems = int(*s.Max)
		}
		return arr, nil
	case "union":
		options := make([]Shape, 0, len(s.Options))
		for _, o := range s.Options {
			built, err := o.Build(refs)
			if err != nil {
				return nil, err
			}
			options = append(options, built)
		}
		return Union{Options: options}, nil
	case "any":
		return Any{}, nil
	case "ref":
		name := s.Ref
		return Ref{Name: name, Resolve: func() Shape { return refs[name] }}, nil
	case "choice":
		return Choice(), nil
	case "timestamp":
		return Timestamp(), nil
	default:
		return nil, fmt.Errorf("%w: unknown shape type %q", constants.ErrConfiguration, s.Type)
	}
}
