package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// Entity is anything the API addresses by identifier.
type Entity interface {
	Identifier() Identifier
}

// UUIDEntity is the base of resources keyed by uuid. Embed it in a resource struct.
// Timestamps are set by the server.
type UUIDEntity struct {
	UUID      uuid.UUID  `json:"uuid"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (e UUIDEntity) Identifier() Identifier {
	return UUIDIdentifier(e.UUID)
}

// NumericEntity is the base of resources keyed by a positive integer id.
type NumericEntity struct {
	ID        int64      `json:"id"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (e NumericEntity) Identifier() Identifier {
	return NumericIdentifier(e.ID)
}
