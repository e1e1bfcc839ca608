package service

import (
	"fmt"

	"github.com/dealerdesk/dealerdesk.go/pkg/models"
	"github.com/dealerdesk/dealerdesk.go/pkg/schema"
)

// WithTools attaches a tool namespace to a type by embedding. The tools keep their own receiver, so
// they never see the embedding service.
//
//	type Vehicles struct {
//		*service.Paginated[Vehicle]
//		service.WithTools[VehicleTools]
//	}
type WithTools[T any] struct {
	Tools T
}

// EntityTools are the identifier helpers every Reader carries.
type EntityTools[E models.Entity] struct {
	desc Descriptor
}

func NewEntityTools[E models.Entity](desc Descriptor) EntityTools[E] {
	return EntityTools[E]{desc: desc}
}

// Conforms reports whether v strictly parses against the resource schema.
func (t EntityTools[E]) Conforms(v any) bool {
	return schema.Is(t.desc.Schema, v)
}

// Check returns id when it has the resource's identifier kind.
func (t EntityTools[E]) Check(id models.Identifier) (models.Identifier, error) {
	if id.IsZero() {
		return id, &schema.ValidationError{Path: t.desc.Kind.Field(), Message: "identifier is empty"}
	}
	if id.Kind() != t.desc.Kind {
		return id, kindError(t.desc.Kind, id)
	}
	return id, nil
}

// Resolve extracts the identifier of an entity, a decoded entity map or a bare identifier value.
// Entities are checked against the schema before their identifier is trusted.
func (t EntityTools[E]) Resolve(what any) (models.Identifier, error) {
	switch v := what.(type) {
	case E:
		if _, err := schema.Parse(t.desc.Schema, v); err != nil {
			return models.Identifier{}, err
		}
		return t.Check(v.Identifier())
	case map[string]any, models.Record:
		obj, err := schema.EncodeObject(v)
		if err != nil {
			return models.Identifier{}, err
		}
		if _, err := schema.Parse(t.desc.Schema, obj); err != nil {
			return models.Identifier{}, err
		}
		id, err := models.IdentifierOf(obj)
		if err != nil {
			return models.Identifier{}, err
		}
		return t.Check(id)
	}
	id, err := models.IdentifierFromValue(what)
	if err != nil {
		return models.Identifier{}, &schema.ValidationError{Path: t.desc.Kind.Field(), Message: err.Error()}
	}
	return t.Check(id)
}

// Split encodes body as a JSON object and removes its identifier field, returning both.
func (t EntityTools[E]) Split(body any) (models.Identifier, map[string]any, error) {
	obj, err := schema.EncodeObject(body)
	if err != nil {
		return models.Identifier{}, nil, err
	}
	field := t.desc.Kind.Field()
	raw, ok := obj[field]
	if !ok || raw == nil {
		return models.Identifier{}, nil, &schema.ValidationError{Path: field, Message: "required"}
	}
	id, err := models.IdentifierFromValue(raw)
	if err != nil {
		return models.Identifier{}, nil, &schema.ValidationError{Path: field, Message: err.Error()}
	}
	if _, err := t.Check(id); err != nil {
		return models.Identifier{}, nil, err
	}
	delete(obj, field)
	return id, obj, nil
}

// mock returns a placeholder entity with id, when given, in place of the generated identifier.
func (t EntityTools[E]) mock(o options, id *models.Identifier) (E, error) {
	var zero E
	v, err := o.mock.Generate(t.desc.Schema)
	if err != nil {
		return zero, err
	}
	if id != nil {
		if _, err := t.Check(*id); err != nil {
			return zero, err
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return zero, fmt.Errorf("mock for %s is %T, not an object", t.desc.Path, v)
		}
		obj[t.desc.Kind.Field()] = id.Value()
	}
	return schema.DecodeValue[E](t.desc.Schema, v)
}
