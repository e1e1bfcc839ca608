package auth

import (
	"github.com/dealerdesk/dealerdesk.go/pkg/schema"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Credentials are posted to the token endpoint on login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenPair is the response of the token endpoint.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type AccessClaims struct {
	TokenType string `json:"token_type"`
	Role      string `json:"role"`
	UserID    int64  `json:"user_id"`
}

type RefreshClaims struct {
	TokenType string `json:"token_type"`
	UserID    int64  `json:"user_id"`
}

func userID() schema.Number {
	n := schema.Positive()
	n.Coerce = true
	return n
}

func PairShape() schema.Object {
	return schema.Object{Fields: []schema.Field{
		schema.Required("access", schema.String{Format: schema.FormatJWT}),
		schema.Required("refresh", schema.String{Format: schema.FormatJWT}),
	}}
}

// RefreshResponseShape accepts a new access token and, when the server rotates it, a new refresh
// token.
func RefreshResponseShape() schema.Object {
	return schema.Object{Fields: []schema.Field{
		schema.Required("access", schema.String{Format: schema.FormatJWT}),
		schema.Optional("refresh", schema.String{Format: schema.FormatJWT}),
	}}
}

func AccessClaimsShape() schema.Object {
	return schema.Object{Fields: []schema.Field{
		schema.Required("token_type", schema.Literal{Value: TokenTypeAccess}),
		schema.Required("role", schema.String{MinLen: 1}),
		schema.Required("user_id", userID()),
	}}
}

func RefreshClaimsShape() schema.Object {
	return schema.Object{Fields: []schema.Field{
		schema.Required("token_type", schema.Literal{Value: TokenTypeRefresh}),
		schema.Required("user_id", userID()),
	}}
}

// CredentialsShape is checked before anything is sent on login.
func CredentialsShape() schema.Object {
	return schema.Object{Fields: []schema.Field{
		schema.Required("username", schema.String{MinLen: 1}),
		schema.Required("password", schema.String{MinLen: 1}),
	}}
}
