package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
	"github.com/dealerdesk/dealerdesk.go/pkg/mock"
	"github.com/dealerdesk/dealerdesk.go/pkg/models"
	"github.com/dealerdesk/dealerdesk.go/pkg/schema"
	"github.com/dealerdesk/dealerdesk.go/pkg/transport"
)

// Choices fetches the label/value pairs of a resource from {path}/choices/. It works on its own
// for resources that expose nothing else.
type Choices struct {
	t    *transport.Transport
	path string
	opts options
}

func NewChoices(t *transport.Transport, path string, opts ...Option) (*Choices, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, fmt.Errorf("%w: resource path is empty", constants.ErrConfiguration)
	}
	return &Choices{t: t, path: path, opts: newOptions(opts)}, nil
}

// GetChoices returns the valid choices in server order. Malformed entries are dropped.
func (c *Choices) GetChoices(ctx context.Context, opts ...transport.Option) ([]models.Choice, error) {
	return transport.Send[[]models.Choice](ctx, c.t, http.MethodGet, c.path+"/choices",
		schema.SoftArray{Elem: schema.Choice()}, opts...)
}

// GetDummyChoices waits for the configured delay and returns placeholder choices.
func (c *Choices) GetDummyChoices(ctx context.Context) ([]models.Choice, error) {
	if err := wait(ctx, c.opts.delay); err != nil {
		return nil, err
	}
	return mock.Value[[]models.Choice](c.opts.mock, schema.Array{Elem: schema.Choice()})
}

// CRUDC is CRUD plus choices.
type CRUDC[E models.Entity] struct {
	*CRUD[E]
	*Choices
}

func NewCRUDC[E models.Entity](t *transport.Transport, desc Descriptor, opts ...Option) (*CRUDC[E], error) {
	crud, err := NewCRUD[E](t, desc, opts...)
	if err != nil {
		return nil, err
	}
	choices, err := NewChoices(t, desc.Path, opts...)
	if err != nil {
		return nil, err
	}
	return &CRUDC[E]{CRUD: crud, Choices: choices}, nil
}
