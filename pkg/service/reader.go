package service

import (
	"context"
	"net/http"

	"github.com/dealerdesk/dealerdesk.go/pkg/models"
	"github.com/dealerdesk/dealerdesk.go/pkg/transport"
)

// Reader is the read tier: strict single-entity fetches and their placeholders.
type Reader[E models.Entity] struct {
	WithTools[EntityTools[E]]

	t    *transport.Transport
	desc Descriptor
	opts options
}

func NewReader[E models.Entity](t *transport.Transport, desc Descriptor, opts ...Option) (*Reader[E], error) {
	if err := desc.validate(); err != nil {
		return nil, err
	}
	return &Reader[E]{
		WithTools: WithTools[EntityTools[E]]{Tools: NewEntityTools[E](desc)},
		t:         t,
		desc:      desc,
		opts:      newOptions(opts),
	}, nil
}

func (r *Reader[E]) Descriptor() Descriptor {
	return r.desc
}

// Get fetches the entity keyed by id.
func (r *Reader[E]) Get(ctx context.Context, id models.Identifier, opts ...transport.Option) (E, error) {
	var zero E
	if _, err := r.Tools.Check(id); err != nil {
		return zero, err
	}
	return transport.Send[E](ctx, r.t, http.MethodGet, r.desc.path(id.String()), r.desc.Schema, opts...)
}

// GetDummy waits for the configured delay and returns a placeholder entity. When id is not nil the
// placeholder carries it.
func (r *Reader[E]) GetDummy(ctx context.Context, id *models.Identifier) (E, error) {
	var zero E
	if err := wait(ctx, r.opts.delay); err != nil {
		return zero, err
	}
	return r.Tools.mock(r.opts, id)
}
