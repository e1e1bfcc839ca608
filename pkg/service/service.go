// Package service implements the resource service tiers.
//
// Each tier embeds the previous one:
//
//	Reader[E]     Get, GetDummy
//	CRUD[E]       + GetAll, GetDummies, Post, PostAny, PostForm, Put, PutAny, Patch, PatchPartial, Delete
//	CRUDC[E]      + GetChoices, GetDummyChoices (through an embedded *Choices)
//	Paginated[E]  + GetPage, GetDummyPage
//
// Consumers should depend on the capability interfaces (Readable, Writable, Choosable, Paginable)
// rather than on a tier.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
	"github.com/dealerdesk/dealerdesk.go/pkg/logger"
	"github.com/dealerdesk/dealerdesk.go/pkg/mock"
	"github.com/dealerdesk/dealerdesk.go/pkg/models"
	"github.com/dealerdesk/dealerdesk.go/pkg/schema"
)

// Descriptor names a resource: its path, how it is keyed and the shape of one entity.
type Descriptor struct {
	Path   string
	Kind   models.IdentifierKind
	Schema schema.Shape
}

func (d Descriptor) validate() error {
	if strings.Trim(d.Path, "/") == "" {
		return fmt.Errorf("%w: resource path is empty", constants.ErrConfiguration)
	}
	if d.Kind != models.KindUUID && d.Kind != models.KindNumeric {
		return fmt.Errorf("%w: resource %s has no identifier kind", constants.ErrConfiguration, d.Path)
	}
	if d.Schema == nil {
		return fmt.Errorf("%w: resource %s has no schema", constants.ErrConfiguration, d.Path)
	}
	return nil
}

func (d Descriptor) path(parts ...string) string {
	return strings.Join(append([]string{strings.Trim(d.Path, "/")}, parts...), "/")
}

// Options shared by every tier.
type options struct {
	mock  *mock.Generator
	delay time.Duration
	log   logger.Logger
}

type Option func(*options)

// WithMock sets the generator used by the dummy operations.
func WithMock(g *mock.Generator) Option {
	return func(o *options) {
		o.mock = g
	}
}

// WithDummyDelay sets the artificial latency of the dummy operations.
func WithDummyDelay(d time.Duration) Option {
	return func(o *options) {
		o.delay = d
	}
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

func newOptions(opts []Option) options {
	o := options{delay: constants.DefaultDummyDelay}
	for _, opt := range opts {
		opt(&o)
	}
	if o.mock == nil {
		o.mock = mock.New()
	}
	o.log = logger.OrNop(o.log)
	return o
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func kindError(want models.IdentifierKind, got models.Identifier) error {
	return fmt.Errorf("%w: %w", &schema.ValidationError{
		Path:    want.Field(),
		Message: fmt.Sprintf("expected a %s identifier, got %s", want, got.Kind()),
	}, constants.ErrIdentifierKind)
}
