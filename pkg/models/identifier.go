package models

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofrs/uuid"

	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
)

// IdentifierKind tells which field identifies an entity on the wire.
type IdentifierKind int

const (
	KindUUID IdentifierKind = iota + 1
	KindNumeric
)

const (
	FieldUUID = "uuid"
	FieldID   = "id"
)

// Field is the JSON property carrying the identifier.
func (k IdentifierKind) Field() string {
	switch k {
	case KindUUID:
		return FieldUUID
	case KindNumeric:
		return FieldID
	default:
		return ""
	}
}

func (k IdentifierKind) String() string {
	switch k {
	case KindUUID:
		return "uuid"
	case KindNumeric:
		return "numeric"
	default:
		return "unknown"
	}
}

// ParseIdentifierKind accepts "uuid" and "id"/"numeric".
func ParseIdentifierKind(s string) (IdentifierKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uuid":
		return KindUUID, nil
	case "id", "numeric", "int":
		return KindNumeric, nil
	default:
		return 0, fmt.Errorf("%w: unknown identifier kind %q", constants.ErrValidation, s)
	}
}

// Identifier is either a UUID or a positive integer. The zero value identifies nothing.
type Identifier struct {
	kind IdentifierKind
	uuid uuid.UUID
	num  int64
}

func UUIDIdentifier(u uuid.UUID) Identifier {
	return Identifier{kind: KindUUID, uuid: u}
}

func NumericIdentifier(n int64) Identifier {
	return Identifier{kind: KindNumeric, num: n}
}

// ParseIdentifier reads s as an identifier of the given kind.
func ParseIdentifier(kind IdentifierKind, s string) (Identifier, error) {
	switch kind {
	case KindUUID:
		u, err := uuid.FromString(s)
		if err != nil {
			return Identifier{}, fmt.Errorf("%w: %q is not a valid uuid", constants.ErrValidation, s)
		}
		return UUIDIdentifier(u), nil
	case KindNumeric:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 {
			return Identifier{}, fmt.Errorf("%w: %q is not a positive integer id", constants.ErrValidation, s)
		}
		return NumericIdentifier(n), nil
	default:
		return Identifier{}, fmt.Errorf("%w: unknown identifier kind", constants.ErrValidation)
	}
}

func (id Identifier) Kind() IdentifierKind { return id.kind }

func (id Identifier) UUID() (uuid.UUID, bool) {
	return id.uuid, id.kind == KindUUID
}

func (id Identifier) Int() (int64, bool) {
	return id.num, id.kind == KindNumeric
}

func (id Identifier) IsZero() bool {
	switch id.kind {
	case KindUUID:
		return id.uuid == uuid.Nil
	case KindNumeric:
		return id.num == 0
	default:
		return true
	}
}

// String renders the identifier as it appears in a URL path.
func (id Identifier) String() string {
	switch id.kind {
	case KindUUID:
		return id.uuid.String()
	case KindNumeric:
		return strconv.FormatInt(id.num, 10)
	default:
		return ""
	}
}

// Value is the JSON value of the identifier: a string for UUIDs, an int64 otherwise.
func (id Identifier) Value() any {
	switch id.kind {
	case KindUUID:
		return id.uuid.String()
	case KindNumeric:
		return id.num
	default:
		return nil
	}
}

func (id Identifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Value())
}

func (id *Identifier) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = Identifier{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseIdentifier(KindUUID, s)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}
	parsed, err := ParseIdentifier(KindNumeric, string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// IdentifierFromValue converts a decoded JSON value, or a Go value a caller passed, into an identifier.
// Strings are read as UUIDs, or as integers when they look like one.
func IdentifierFromValue(v any) (Identifier, error) {
	switch t := v.(type) {
	case Identifier:
		if t.IsZero() {
			return Identifier{}, fmt.Errorf("%w: empty identifier", constants.ErrValidation)
		}
		return t, nil
	case *Identifier:
		if t == nil {
			return Identifier{}, fmt.Errorf("%w: empty identifier", constants.ErrValidation)
		}
		return IdentifierFromValue(*t)
	case uuid.UUID:
		if t == uuid.Nil {
			return Identifier{}, fmt.Errorf("%w: nil uuid", constants.ErrValidation)
		}
		return UUIDIdentifier(t), nil
	case string:
		if u, err := uuid.FromString(t); err == nil {
			return UUIDIdentifier(u), nil
		}
		return ParseIdentifier(KindNumeric, t)
	case json.Number:
		return ParseIdentifier(KindNumeric, t.String())
	case int:
		return positive(int64(t))
	case int32:
		return positive(int64(t))
	case int64:
		return positive(t)
	case uint:
		if uint64(t) > math.MaxInt64 {
			return Identifier{}, fmt.Errorf("%w: id %d out of range", constants.ErrValidation, t)
		}
		return positive(int64(t))
	case uint32:
		return positive(int64(t))
	case uint64:
		if t > math.MaxInt64 {
			return Identifier{}, fmt.Errorf("%w: id %d out of range", constants.ErrValidation, t)
		}
		return positive(int64(t))
	case float64:
		if t != math.Trunc(t) {
			return Identifier{}, fmt.Errorf("%w: id %v is not an integer", constants.ErrValidation, t)
		}
		return positive(int64(t))
	default:
		return Identifier{}, fmt.Errorf("%w: cannot use %T as identifier", constants.ErrValidation, v)
	}
}

func positive(n int64) (Identifier, error) {
	if n <= 0 {
		return Identifier{}, fmt.Errorf("%w: id must be positive, got %d", constants.ErrValidation, n)
	}
	return NumericIdentifier(n), nil
}

// IdentifierOf returns the uuid field of a decoded entity when present, the id field otherwise.
func IdentifierOf(m map[string]any) (Identifier, error) {
	if v, ok := m[FieldUUID]; ok && v != nil {
		s, isString := v.(string)
		if !isString {
			return Identifier{}, fmt.Errorf("%w: uuid must be a string, got %T", constants.ErrValidation, v)
		}
		return ParseIdentifier(KindUUID, s)
	}
	if v, ok := m[FieldID]; ok && v != nil {
		return IdentifierFromValue(v)
	}
	return Identifier{}, fmt.Errorf("%w: cannot find identifier in entity", constants.ErrValidation)
}
