package session

import (
	"fmt"

	"github.com/dealerdesk/dealerdesk.go/internal/codec"
	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
	"github.com/dealerdesk/dealerdesk.go/pkg/schema"
)

// CurrentVersion is the envelope version written by this package. Envelopes carrying any other
// version are treated as absent.
const CurrentVersion = constants.SessionVersion

type AccessState struct {
	Token  string `json:"token"`
	Role   string `json:"role"`
	UserID int64  `json:"user_id"`
}

type RefreshState struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
}

// State is the token pair with the claims the client relies on.
type State struct {
	Access  AccessState  `json:"access"`
	Refresh RefreshState `json:"refresh"`
}

// Envelope is the persisted form of a session.
type Envelope struct {
	Version     int      `json:"version"`
	State       State    `json:"state"`
	Permissions []string `json:"permissions,omitempty"`
}

// EnvelopeShape is the strict shape every loaded envelope must satisfy.
func EnvelopeShape() schema.Object {
	return schema.Object{Fields: []schema.Field{
		schema.Required("version", schema.Number{Integer: true}),
		schema.Required("state", schema.Object{Fields: []schema.Field{
			schema.Required("access", schema.Object{Fields: []schema.Field{
				schema.Required("token", schema.String{Format: schema.FormatJWT}),
				schema.Required("role", schema.String{MinLen: 1}),
				schema.Required("user_id", schema.Positive()),
			}}),
			schema.Required("refresh", schema.Object{Fields: []schema.Field{
				schema.Required("token", schema.String{Format: schema.FormatJWT}),
				schema.Required("user_id", schema.Positive()),
			}}),
		}}),
		schema.Optional("permissions", schema.Array{Elem: schema.String{}}),
	}}
}

// NewEnvelope wraps state in an envelope of the current version.
func NewEnvelope(state State) Envelope {
	return Envelope{Version: CurrentVersion, State: state}
}

func (e Envelope) Marshal() ([]byte, error) {
	return codec.Default.Marshal(e)
}

// DecodeEnvelope strictly parses data. A version other than CurrentVersion reports ErrNoSession.
func DecodeEnvelope(data []byte) (Envelope, error) {
	env, err := schema.Decode[Envelope](EnvelopeShape(), data)
	if err != nil {
		return Envelope{}, err
	}
	if env.Version != CurrentVersion {
		return Envelope{}, fmt.Errorf("%w: envelope version %d, want %d", constants.ErrNoSession, env.Version, CurrentVersion)
	}
	return env, nil
}
