package service

import (
	"context"
	"io"
	"net/http"

	"github.com/dealerdesk/dealerdesk.go/pkg/mock"
	"github.com/dealerdesk/dealerdesk.go/pkg/models"
	"github.com/dealerdesk/dealerdesk.go/pkg/schema"
	"github.com/dealerdesk/dealerdesk.go/pkg/transport"
)

// CRUD adds listing and mutations to the read tier.
type CRUD[E models.Entity] struct {
	*Reader[E]
}

func NewCRUD[E models.Entity](t *transport.Transport, desc Descriptor, opts ...Option) (*CRUD[E], error) {
	r, err := NewReader[E](t, desc, opts...)
	if err != nil {
		return nil, err
	}
	return &CRUD[E]{Reader: r}, nil
}

// GetAll fetches every entity. Elements that fail the schema are dropped.
func (c *CRUD[E]) GetAll(ctx context.Context, opts ...transport.Option) ([]E, error) {
	return transport.Send[[]E](ctx, c.t, http.MethodGet, c.desc.path("all"),
		schema.SoftArray{Elem: c.desc.Schema}, opts...)
}

// GetDummies waits for the configured delay and returns a placeholder list.
func (c *CRUD[E]) GetDummies(ctx context.Context) ([]E, error) {
	if err := wait(ctx, c.opts.delay); err != nil {
		return nil, err
	}
	return mock.Value[[]E](c.opts.mock, schema.Array{Elem: c.desc.Schema})
}

// Post creates an entity. A zero identifier is left out so that the server assigns one.
func (c *CRUD[E]) Post(ctx context.Context, e E, opts ...transport.Option) (E, error) {
	var zero E
	obj, err := schema.EncodeObject(e)
	if err != nil {
		return zero, err
	}
	if e.Identifier().IsZero() {
		delete(obj, c.desc.Kind.Field())
	}
	return c.send(ctx, http.MethodPost, c.desc.path(), obj, opts)
}

// PostAny creates an entity from an arbitrary payload. An io.Reader is sent without JSON encoding;
// give its content type with transport.WithHeader.
func (c *CRUD[E]) PostAny(ctx context.Context, body any, opts ...transport.Option) (E, error) {
	if r, ok := body.(io.Reader); ok {
		return transport.Send[E](ctx, c.t, http.MethodPost, c.desc.path(), c.desc.Schema,
			append([]transport.Option{transport.WithRawBody(r, "")}, opts...)...)
	}
	return c.send(ctx, http.MethodPost, c.desc.path(), body, opts)
}

// PostForm creates an entity from a multipart form, e.g. a document upload.
func (c *CRUD[E]) PostForm(ctx context.Context, fields map[string]string, files []transport.File, opts ...transport.Option) (E, error) {
	var zero E
	body, contentType, err := transport.Multipart(fields, files...)
	if err != nil {
		return zero, err
	}
	return transport.Send[E](ctx, c.t, http.MethodPost, c.desc.path(), c.desc.Schema,
		append([]transport.Option{transport.WithRawBody(body, contentType)}, opts...)...)
}

// Put replaces e. The identifier goes in the URL and is removed from the body.
func (c *CRUD[E]) Put(ctx context.Context, e E, opts ...transport.Option) (E, error) {
	return c.replace(ctx, http.MethodPut, e, opts)
}

// PutAny is Put for a payload that is not an E. The payload must carry the identifier field.
func (c *CRUD[E]) PutAny(ctx context.Context, body any, opts ...transport.Option) (E, error) {
	return c.replace(ctx, http.MethodPut, body, opts)
}

func (c *CRUD[E]) Patch(ctx context.Context, e E, opts ...transport.Option) (E, error) {
	return c.replace(ctx, http.MethodPatch, e, opts)
}

// PatchPartial sends only the fields present in body, which must carry the identifier field.
func (c *CRUD[E]) PatchPartial(ctx context.Context, body any, opts ...transport.Option) (E, error) {
	return c.replace(ctx, http.MethodPatch, body, opts)
}

// Delete removes an entity given as E, as a decoded entity map, or as a bare identifier
// (models.Identifier, uuid.UUID, string or integer).
func (c *CRUD[E]) Delete(ctx context.Context, what any, opts ...transport.Option) error {
	id, err := c.Tools.Resolve(what)
	if err != nil {
		return err
	}
	_, err = c.t.Do(ctx, http.MethodDelete, c.desc.path(id.String()), nil, opts...)
	return err
}

func (c *CRUD[E]) replace(ctx context.Context, method string, body any, opts []transport.Option) (E, error) {
	var zero E
	id, obj, err := c.Tools.Split(body)
	if err != nil {
		return zero, err
	}
	return c.send(ctx, method, c.desc.path(id.String()), obj, opts)
}

func (c *CRUD[E]) send(ctx context.Context, method, path string, body any, opts []transport.Option) (E, error) {
	return transport.Send[E](ctx, c.t, method, path, c.desc.Schema,
		append([]transport.Option{transport.WithBody(body)}, opts...)...)
}
