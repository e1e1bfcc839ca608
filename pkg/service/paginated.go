package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
	"github.com/dealerdesk/dealerdesk.go/pkg/mock"
	"github.com/dealerdesk/dealerdesk.go/pkg/models"
	"github.com/dealerdesk/dealerdesk.go/pkg/schema"
	"github.com/dealerdesk/dealerdesk.go/pkg/transport"
)

// Paginated adds page access to CRUDC.
type Paginated[E models.Entity] struct {
	*CRUDC[E]
}

func NewPaginated[E models.Entity](t *transport.Transport, desc Descriptor, opts ...Option) (*Paginated[E], error) {
	crudc, err := NewCRUDC[E](t, desc, opts...)
	if err != nil {
		return nil, err
	}
	return &Paginated[E]{CRUDC: crudc}, nil
}

// GetPage fetches page number page holding at most size entities. The envelope is strict, its
// results are tolerant.
func (p *Paginated[E]) GetPage(ctx context.Context, page, size int, opts ...transport.Option) (models.Page[E], error) {
	var zero models.Page[E]
	if size <= 0 {
		size = constants.DefaultPageSize
	}

	req := transport.NewRequest(http.MethodGet, p.desc.path(), schema.PageOf(p.desc.Schema), opts...)
	query, err := transport.EncodeQuery(req.Query)
	if err != nil {
		return zero, err
	}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(size))
	req.Query = query

	resp, err := p.t.Execute(ctx, req)
	if err != nil {
		return zero, err
	}
	out, err := schema.As[models.Page[E]](resp.Value)
	if err != nil {
		return zero, err
	}
	if len(out.Results) > size {
		return zero, &schema.ValidationError{
			Path:    "results",
			Message: fmt.Sprintf("page holds %d results, more than the page size %d", len(out.Results), size),
		}
	}
	return out, nil
}

// GetDummyPage waits for the configured delay and returns a placeholder page of at most size
// entities.
func (p *Paginated[E]) GetDummyPage(ctx context.Context, page, size int) (models.Page[E], error) {
	var zero models.Page[E]
	if size <= 0 {
		size = constants.DefaultPageSize
	}
	if err := wait(ctx, p.opts.delay); err != nil {
		return zero, err
	}
	shape := schema.Extend(schema.StrictPageOf(p.desc.Schema),
		schema.Required("results", schema.Array{Elem: p.desc.Schema, MaxItems: size}))
	return mock.Value[models.Page[E]](p.opts.mock, shape)
}
