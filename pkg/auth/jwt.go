package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/dealerdesk/dealerdesk.go/pkg/schema"
	"github.com/dealerdesk/dealerdesk.go/pkg/session"
)

// JWTTools decode token payloads without checking signatures; the server verifies them on use.
type JWTTools struct {
	parser *jwt.Parser
}

func NewJWTTools() JWTTools {
	return JWTTools{parser: jwt.NewParser(jwt.WithJSONNumber())}
}

// Decode returns the payload of token.
func (t JWTTools) Decode(token string) (map[string]any, error) {
	parser := t.parser
	if parser == nil {
		parser = jwt.NewParser(jwt.WithJSONNumber())
	}
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, &TokenFormatError{Reason: "cannot decode token", Err: err}
	}
	return claims, nil
}

// DecodeAndValidate decodes token and strictly parses its payload against shape.
func (t JWTTools) DecodeAndValidate(token string, shape schema.Shape) (any, error) {
	claims, err := t.Decode(token)
	if err != nil {
		return nil, err
	}
	out, err := schema.Parse(shape, claims)
	if err != nil {
		return nil, &TokenFormatError{Reason: "unexpected payload", Err: err}
	}
	return out, nil
}

func (t JWTTools) DecodeAccess(token string) (AccessClaims, error) {
	return decodeClaims[AccessClaims](t, token, AccessClaimsShape())
}

func (t JWTTools) DecodeRefresh(token string) (RefreshClaims, error) {
	return decodeClaims[RefreshClaims](t, token, RefreshClaimsShape())
}

// DecodePair validates both payloads and returns the state to persist.
func (t JWTTools) DecodePair(pair TokenPair) (session.State, error) {
	access, err := t.DecodeAccess(pair.Access)
	if err != nil {
		return session.State{}, err
	}
	refresh, err := t.DecodeRefresh(pair.Refresh)
	if err != nil {
		return session.State{}, err
	}
	return session.State{
		Access:  session.AccessState{Token: pair.Access, Role: access.Role, UserID: access.UserID},
		Refresh: session.RefreshState{Token: pair.Refresh, UserID: refresh.UserID},
	}, nil
}

func decodeClaims[C any](t JWTTools, token string, shape schema.Shape) (C, error) {
	var zero C
	out, err := t.DecodeAndValidate(token, shape)
	if err != nil {
		return zero, err
	}
	claims, err := schema.As[C](out)
	if err != nil {
		return zero, &TokenFormatError{Reason: "unexpected payload", Err: err}
	}
	return claims, nil
}
