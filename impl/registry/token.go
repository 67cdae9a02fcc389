package registry

import (
	"sync/atomic"
)

// AuthToken is the token endpoint response. Docker Hub returns the credential in
// both 'token' and 'access_token', other token servers only populate one of them.
type AuthToken struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
	ExpiresIn   int    `json:"expires_in"`
	IssuedAt    string `json:"issued_at"`
}

// Bearer returns the credential to present in the Authorization header.
func (t *AuthToken) Bearer() string {
	if t.AccessToken != "" {
		return t.AccessToken
	}
	return t.Token
}

// tokenHolder is the only mutable state in a Client. Writers swap in a new
// immutable token; readers take the current snapshot once per request, so a swap
// never affects a request that is already being built.
type tokenHolder struct {
	current atomic.Pointer[AuthToken]
}

func (h *tokenHolder) set(token *AuthToken) {
	if token == nil {
		h.current.Store(nil)
		return
	}
	snapshot := *token
	h.current.Store(&snapshot)
}

func (h *tokenHolder) get() *AuthToken {
	return h.current.Load()
}
