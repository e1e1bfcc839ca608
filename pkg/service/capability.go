package service

import (
	"context"

	"github.com/dealerdesk/dealerdesk.go/pkg/models"
	"github.com/dealerdesk/dealerdesk.go/pkg/transport"
)

type Readable[E models.Entity] interface {
	Get(ctx context.Context, id models.Identifier, opts ...transport.Option) (E, error)
	GetDummy(ctx context.Context, id *models.Identifier) (E, error)
}

type Writable[E models.Entity] interface {
	GetAll(ctx context.Context, opts ...transport.Option) ([]E, error)
	GetDummies(ctx context.Context) ([]E, error)
	Post(ctx context.Context, e E, opts ...transport.Option) (E, error)
	PostAny(ctx context.Context, body any, opts ...transport.Option) (E, error)
	PostForm(ctx context.Context, fields map[string]string, files []transport.File, opts ...transport.Option) (E, error)
	Put(ctx context.Context, e E, opts ...transport.Option) (E, error)
	PutAny(ctx context.Context, body any, opts ...transport.Option) (E, error)
	Patch(ctx context.Context, e E, opts ...transport.Option) (E, error)
	PatchPartial(ctx context.Context, body any, opts ...transport.Option) (E, error)
	Delete(ctx context.Context, what any, opts ...transport.Option) error
}

type Choosable interface {
	GetChoices(ctx context.Context, opts ...transport.Option) ([]models.Choice, error)
	GetDummyChoices(ctx context.Context) ([]models.Choice, error)
}

type Paginable[E models.Entity] interface {
	GetPage(ctx context.Context, page, size int, opts ...transport.Option) (models.Page[E], error)
	GetDummyPage(ctx context.Context, page, size int) (models.Page[E], error)
}

var (
	_ Readable[models.Record]  = (*Reader[models.Record])(nil)
	_ Readable[models.Record]  = (*CRUD[models.Record])(nil)
	_ Writable[models.Record]  = (*CRUD[models.Record])(nil)
	_ Choosable                = (*Choices)(nil)
	_ Choosable                = (*CRUDC[models.Record])(nil)
	_ Writable[models.Record]  = (*Paginated[models.Record])(nil)
	_ Choosable                = (*Paginated[models.Record])(nil)
	_ Paginable[models.Record] = (*Paginated[models.Record])(nil)
)
