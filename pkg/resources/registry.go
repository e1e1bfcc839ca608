// Package resources declares resource services in YAML so that tools can talk to resources
// without a Go type per entity.
//
//	shapes:
//	  address:
//	    type: object
//	    fields:
//	      - {name: city, type: string}
//	resources:
//	  - name: vehicles
//	    path: vehicles
//	    identifier: uuid
//	    tier: paginated
//	    fields:
//	      - {name: vin, type: string, min: 17, max: 17}
//	      - {name: address, type: ref, ref: address, optional: true}
//	  - name: internal-companies
//	    path: companies/internal
//	    tier: choices
//
// Entities of every resource are registered as shapes under the resource name, so one resource can
// refer to another.
package resources

import (
	"fmt"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
	"github.com/dealerdesk/dealerdesk.go/pkg/models"
	"github.com/dealerdesk/dealerdesk.go/pkg/schema"
	"github.com/dealerdesk/dealerdesk.go/pkg/service"
	"github.com/dealerdesk/dealerdesk.go/pkg/transport"
)

// Tier is the service tier a resource is served with.
type Tier string

const (
	TierRead      Tier = "read"
	TierCRUD      Tier = "crud"
	TierChoices   Tier = "choices"
	TierCRUDC     Tier = "crudc"
	TierPaginated Tier = "paginated"
)

// Capability is a group of operations a tier may offer.
type Capability string

const (
	CanRead    Capability = "read"
	CanWrite   Capability = "write"
	CanChoices Capability = "choices"
	CanPage    Capability = "page"
)

var tierCapabilities = map[Tier][]Capability{
	TierRead:      {CanRead},
	TierCRUD:      {CanRead, CanWrite},
	TierChoices:   {CanChoices},
	TierCRUDC:     {CanRead, CanWrite, CanChoices},
	TierPaginated: {CanRead, CanWrite, CanChoices, CanPage},
}

// Declaration is one entry of the resources list.
type Declaration struct {
	Name string `yaml:"name"`
	// Path defaults to Name.
	Path string `yaml:"path,omitempty"`
	// Identifier is "uuid" or "id". Choices-only resources have none.
	Identifier string        `yaml:"identifier,omitempty"`
	Tier       Tier          `yaml:"tier"`
	Fields     []schema.Spec `yaml:"fields,omitempty"`
}

type document struct {
	Shapes    map[string]schema.Spec `yaml:"shapes"`
	Resources []Declaration          `yaml:"resources"`
}

// Resource is a validated declaration.
type Resource struct {
	Name       string
	Tier       Tier
	Descriptor service.Descriptor
}

func (r Resource) Supports(c Capability) bool {
	return slices.Contains(tierCapabilities[r.Tier], c)
}

type Registry struct {
	resources map[string]Resource
	shapes    map[string]schema.Shape
}

// LoadYAML parses and validates a resources document.
func LoadYAML(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: resources yaml: %v", constants.ErrConfiguration, err)
	}

	reg := &Registry{
		resources: make(map[string]Resource, len(doc.Resources)),
		shapes:    make(map[string]schema.Shape, len(doc.Shapes)+len(doc.Resources)),
	}
	for name, spec := range doc.Shapes {
		built, err := spec.Build(reg.shapes)
		if err != nil {
			return nil, fmt.Errorf("shape %q: %w", name, err)
		}
		reg.shapes[name] = built
	}
	for _, decl := range doc.Resources {
		res, err := reg.build(decl)
		if err != nil {
			return nil, fmt.Errorf("resource %q: %w", decl.Name, err)
		}
		reg.resources[res.Name] = res
		if res.Descriptor.Schema != nil {
			if _, taken := reg.shapes[res.Name]; !taken {
				reg.shapes[res.Name] = res.Descriptor.Schema
			}
		}
	}

	for name, spec := range doc.Shapes {
		if err := spec.CheckRefs(reg.shapes); err != nil {
			return nil, fmt.Errorf("shape %q: %w", name, err)
		}
	}
	for _, decl := range doc.Resources {
		for _, f := range decl.Fields {
			if err := f.CheckRefs(reg.shapes); err != nil {
				return nil, fmt.Errorf("resource %q: %w", decl.Name, err)
			}
		}
	}
	return reg, nil
}

func (reg *Registry) build(decl Declaration) (Resource, error) {
	if decl.Name == "" {
		return Resource{}, fmt.Errorf("%w: resource without name", constants.ErrConfiguration)
	}
	if _, dup := reg.resources[decl.Name]; dup {
		return Resource{}, fmt.Errorf("%w: declared twice", constants.ErrConfiguration)
	}
	if _, ok := tierCapabilities[decl.Tier]; !ok {
		return Resource{}, fmt.Errorf("%w: unknown tier %q", constants.ErrConfiguration, decl.Tier)
	}
	path := decl.Path
	if path == "" {
		path = decl.Name
	}
	res := Resource{Name: decl.Name, Tier: decl.Tier, Descriptor: service.Descriptor{Path: path}}
	if decl.Tier == TierChoices {
		return res, nil
	}

	kind, err := models.ParseIdentifierKind(decl.Identifier)
	if err != nil {
		return Resource{}, fmt.Errorf("%w: identifier: %v", constants.ErrConfiguration, err)
	}
	fields, err := schema.BuildFields(decl.Fields, reg.shapes)
	if err != nil {
		return Resource{}, err
	}
	res.Descriptor.Kind = kind
	if kind == models.KindUUID {
		res.Descriptor.Schema = schema.UUIDEntity(fields...)
	} else {
		res.Descriptor.Schema = schema.NumericEntity(fields...)
	}
	return res, nil
}

// Names lists the declared resources in lexical order.
func (reg *Registry) Names() []string {
	names := make([]string, 0, len(reg.resources))
	for name := range reg.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (reg *Registry) Resource(name string) (Resource, error) {
	res, ok := reg.resources[name]
	if !ok {
		return Resource{}, fmt.Errorf("%w: %q", constants.ErrUnknownResource, name)
	}
	return res, nil
}

// Shape returns a named shape or a resource's entity shape.
func (reg *Registry) Shape(name string) (schema.Shape, bool) {
	s, ok := reg.shapes[name]
	return s, ok
}

// Supports reports whether the named resource offers c. Unknown resources support nothing.
func (reg *Registry) Supports(name string, c Capability) bool {
	res, ok := reg.resources[name]
	return ok && res.Supports(c)
}

// Require returns ErrNotSupported unless the named resource offers c.
func (reg *Registry) Require(name string, c Capability) error {
	res, err := reg.Resource(name)
	if err != nil {
		return err
	}
	if !res.Supports(c) {
		return fmt.Errorf("%w: %s cannot %s (tier %s)", constants.ErrNotSupported, name, c, res.Tier)
	}
	return nil
}

// build constructs the concrete service of res's tier, which offers exactly the tier's
// capabilities.
func build(res Resource, t *transport.Transport, opts []service.Option) (any, error) {
	switch res.Tier {
	case TierRead:
		return service.NewReader[models.Record](t, res.Descriptor, opts...)
	case TierCRUD:
		return service.NewCRUD[models.Record](t, res.Descriptor, opts...)
	case TierCRUDC:
		return service.NewCRUDC[models.Record](t, res.Descriptor, opts...)
	case TierPaginated:
		return service.NewPaginated[models.Record](t, res.Descriptor, opts...)
	default:
		return nil, fmt.Errorf("%w: %s has no entity service (tier %s)", constants.ErrNotSupported, res.Name, res.Tier)
	}
}

// serve returns the named resource's service as the capability interface S.
func serve[S any](reg *Registry, name string, c Capability, t *transport.Transport, opts []service.Option) (S, error) {
	var zero S
	if err := reg.Require(name, c); err != nil {
		return zero, err
	}
	svc, err := build(reg.resources[name], t, opts)
	if err != nil {
		return zero, err
	}
	out, ok := svc.(S)
	if !ok {
		return zero, fmt.Errorf("%w: %s cannot %s", constants.ErrNotSupported, name, c)
	}
	return out, nil
}

// Reader serves Get and GetDummy of any entity resource.
func (reg *Registry) Reader(name string, t *transport.Transport, opts ...service.Option) (service.Readable[models.Record], error) {
	return serve[service.Readable[models.Record]](reg, name, CanRead, t, opts)
}

// Writer serves the list and write operations of crud, crudc and paginated resources.
func (reg *Registry) Writer(name string, t *transport.Transport, opts ...service.Option) (service.Writable[models.Record], error) {
	return serve[service.Writable[models.Record]](reg, name, CanWrite, t, opts)
}

// Pager serves the page operations of paginated resources.
func (reg *Registry) Pager(name string, t *transport.Transport, opts ...service.Option) (service.Paginable[models.Record], error) {
	return serve[service.Paginable[models.Record]](reg, name, CanPage, t, opts)
}

// Choices builds the choices service of a resource that offers them.
func (reg *Registry) Choices(name string, t *transport.Transport, opts ...service.Option) (*service.Choices, error) {
	if err := reg.Require(name, CanChoices); err != nil {
		return nil, err
	}
	return service.NewChoices(t, reg.resources[name].Descriptor.Path, opts...)
}
