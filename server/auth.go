package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// DefaultUserHeader carries the authenticated user id set by the fronting proxy.
const DefaultUserHeader = "X-User-ID"

// Authenticator resolves the user of a request. An empty id means anonymous.
type Authenticator interface {
	Authenticate(r *http.Request) (userID string, ok bool)
}

// HeaderAuthenticator trusts a user id header. When Token is set the request
// must also carry "Authorization: Bearer <Token>".
type HeaderAuthenticator struct {
	Header string
	Token  string
}

// Authenticate implements Authenticator.
func (a HeaderAuthenticator) Authenticate(r *http.Request) (string, bool) {
	if a.Token != "" && !validBearer(r.Header.Get("Authorization"), a.Token) {
		return "", false
	}
	header := a.Header
	if header == "" {
		header = DefaultUserHeader
	}
	user := strings.TrimSpace(r.Header.Get(header))
	return user, user != ""
}

// validBearer compares in constant time.
func validBearer(authorization, expected string) bool {
	token, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(expected)) == 1
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(r *http.Request) (string, bool)

// Authenticate implements Authenticator.
func (f AuthenticatorFunc) Authenticate(r *http.Request) (string, bool) { return f(r) }
