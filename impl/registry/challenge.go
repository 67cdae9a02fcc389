package registry

import (
	"context"
	"io"
	"net/http"

	"github.com/docker/distribution/registry/client/auth/challenge"
)

// Challenge is the auth challenge a registry sends with a 401, like:
//
//	Www-Authenticate: Bearer realm="https://auth.docker.io/token",service="registry.docker.io"
//
// Scheme is lower case. Realm is the token endpoint and Service is the value to
// pass to it.
type Challenge struct {
	Scheme  string
	Realm   string
	Service string
	Scope   string
}

// ChallengeFrom gets the challenge from the Www-Authenticate header of a 401
// response. The body is not read. A bearer challenge is preferred if the
// registry offers more than one. Nil is returned if the response is not a 401 or
// has no challenge with a realm.
func ChallengeFrom(resp *http.Response) *Challenge {
	var found *Challenge
	for _, c := range challenge.ResponseChallenges(resp) {
		realm := c.Parameters["realm"]
		if realm == "" {
			continue
		}
		ch := &Challenge{
			Scheme:  c.Scheme,
			Realm:   realm,
			Service: c.Parameters["service"],
			Scope:   c.Parameters["scope"],
		}
		if ch.Scheme == "bearer" {
			return ch
		}
		if found == nil {
			found = ch
		}
	}
	return found
}

// Discover pings the /v2/ endpoint of the registry configured in the passed Config
// and fills in the service and token URL from the auth challenge if the Config
// does not already have them. A registry that answers 200 needs no token and the
// Config is returned unchanged. The challenge is taken from the response header
// whatever the body of the 401 holds.
func Discover(ctx context.Context, cfg Config) (Config, error) {
	if cfg.TokenURL != "" {
		return cfg, nil
	}
	c, err := New(cfg)
	if err != nil {
		return cfg, err
	}
	u := c.cfg.APIURL + "/v2/"
	resp, err := c.get(ctx, u, mediaTypeJSON)
	if err != nil {
		return cfg, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return cfg, nil
	}
	ch := ChallengeFrom(resp)
	if ch == nil || ch.Scheme != "bearer" {
		return cfg, decodeAPIError(resp, u)
	}
	io.Copy(io.Discard, resp.Body)
	cfg.TokenURL = ch.Realm
	if ch.Service != "" {
		cfg.Service = ch.Service
	}
	return cfg, nil
}
