package session

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
)

// EncodeCookie stores env in a cookie as base64 encoded JSON.
func EncodeCookie(env Envelope, name string) (*http.Cookie, error) {
	if name == "" {
		name = constants.SessionCookieName
	}
	data, err := env.Marshal()
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     name,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// DecodeCookie strictly parses the envelope held by c.
func DecodeCookie(c *http.Cookie) (Envelope, error) {
	if c == nil || c.Value == "" {
		return Envelope{}, constants.ErrNoSession
	}
	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: cookie is not base64: %w", constants.ErrNoSession, err)
	}
	return DecodeEnvelope(data)
}
