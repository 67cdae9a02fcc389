package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ecarrara/oci-registry-client/impl/digest"
	"github.com/ecarrara/oci-registry-client/impl/manifest"
	"github.com/ecarrara/oci-registry-client/impl/metrics"

	"github.com/google/go-containerregistry/pkg/authn"
	log "github.com/sirupsen/logrus"
)

// DefaultUserAgent is sent with every request unless overridden in the Config
const DefaultUserAgent = "oci-registry-client/1.0"

const mediaTypeJSON = "application/json"

// Config configures a Client for access to one registry. For Docker Hub:
//
//	Service:  registry.docker.io
//	APIURL:   https://registry-1.docker.io
//	TokenURL: https://auth.docker.io/token
type Config struct {
	// Service is passed to the token endpoint in the 'service' query param
	Service string
	// APIURL is the scheme and host of the distribution API, with no trailing /v2
	APIURL string
	// TokenURL is the token endpoint that issues bearer tokens for Service
	TokenURL string
	// UserAgent defaults to DefaultUserAgent
	UserAgent string
	// Auth supplies the credentials presented to the token endpoint. A username
	// and password are sent with basic auth and a registry token is used as the
	// bearer token without asking the token endpoint. Nil or authn.Anonymous
	// requests anonymous tokens.
	Auth authn.Authenticator
	// TLS configures the transport if Transport is nil
	TLS TLSConfig
	// Transport overrides the default transport. Mostly for testing.
	Transport http.RoundTripper
}

// Client fetches tokens, manifests and blobs from one registry. The configuration
// is immutable after New and the only mutable state is the bearer token, so one
// Client can be shared by any number of goroutines.
type Client struct {
	cfg   Config
	http  *http.Client
	token tokenHolder
}

// New returns a Client for the registry described by the passed Config.
func New(cfg Config) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("registry API URL is required")
	}
	cfg.APIURL = strings.TrimSuffix(cfg.APIURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	transport := cfg.Transport
	if transport == nil {
		var err error
		if transport, err = newTransport(cfg.TLS); err != nil {
			return nil, err
		}
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Transport: transport},
	}, nil
}

// SetToken replaces the credential used by all subsequent requests. Passing nil
// clears it. Requests already sent are not affected.
func (c *Client) SetToken(token *AuthToken) {
	c.token.set(token)
}

// Token returns the current token or nil if none is set. The returned value must
// not be modified.
func (c *Client) Token() *AuthToken {
	return c.token.get()
}

// Authenticate gets a bearer token from the token endpoint for the passed scope,
// e.g.: ("repository", "library/alpine", "pull"). The token is returned, not set:
// the caller decides whether to install it with SetToken.
func (c *Client) Authenticate(ctx context.Context, scopeType, resource, action string) (*AuthToken, error) {
	creds := &authn.AuthConfig{}
	if c.cfg.Auth != nil {
		var err error
		if creds, err = c.cfg.Auth.Authorization(); err != nil {
			return nil, fmt.Errorf("unable to get credentials for service %q: %w", c.cfg.Service, err)
		}
	}
	if creds.RegistryToken != "" {
		log.Debugf("using the configured registry token for service %s", c.cfg.Service)
		return &AuthToken{Token: creds.RegistryToken}, nil
	}
	if c.cfg.TokenURL == "" {
		return nil, fmt.Errorf("no token URL configured for service %q", c.cfg.Service)
	}
	u, err := url.Parse(c.cfg.TokenURL)
	if err != nil {
		return nil, fmt.Errorf("invalid token URL %q: %w", c.cfg.TokenURL, err)
	}
	q := u.Query()
	q.Set("service", c.cfg.Service)
	q.Set("scope", fmt.Sprintf("%s:%s:%s", scopeType, resource, action))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	switch {
	case creds.Username != "":
		req.SetBasicAuth(creds.Username, creds.Password)
	case creds.Auth != "":
		req.Header.Set("Authorization", "Basic "+creds.Auth)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", mediaTypeJSON)

	log.Debugf("requesting token for scope %s", q.Get("scope"))
	metrics.IncTokenRequests()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "GET", URL: u.String(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp, u.String())
	}
	token := &AuthToken{}
	if err := json.NewDecoder(resp.Body).Decode(token); err != nil {
		return nil, &DecodeError{URL: u.String(), MediaType: mediaTypeJSON, Err: err}
	}
	return token, nil
}

// Version checks that the registry implements the V2 API. With no token set most
// registries answer with an UNAUTHORIZED APIError.
func (c *Client) Version(ctx context.Context) error {
	u := c.cfg.APIURL + "/v2/"
	resp, err := c.get(ctx, u, mediaTypeJSON)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp, u)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// FetchManifestList gets the manifest list for the passed image and reference
// (a tag or a digest).
func (c *Client) FetchManifestList(ctx context.Context, image, reference string) (*manifest.ManifestList, error) {
	ml := &manifest.ManifestList{}
	u := fmt.Sprintf("%s/v2/%s/manifests/%s", c.cfg.APIURL, image, reference)
	if err := c.getJSON(ctx, u, manifest.MediaTypeManifestListV2, ml); err != nil {
		return nil, err
	}
	return ml, nil
}

// FetchManifest gets the image manifest for the passed image and reference (a tag
// or a digest).
func (c *Client) FetchManifest(ctx context.Context, image, reference string) (*manifest.Manifest, error) {
	m := &manifest.Manifest{}
	u := fmt.Sprintf("%s/v2/%s/manifests/%s", c.cfg.APIURL, image, reference)
	if err := c.getJSON(ctx, u, manifest.MediaTypeManifestV2, m); err != nil {
		return nil, err
	}
	return m, nil
}

// FetchImageConfig gets the image configuration blob referenced by the 'config'
// part of an image manifest.
func (c *Client) FetchImageConfig(ctx context.Context, image string, dgst digest.Digest) (*manifest.ImageConfig, error) {
	cfg := &manifest.ImageConfig{}
	u := fmt.Sprintf("%s/v2/%s/blobs/%s", c.cfg.APIURL, image, dgst)
	if err := c.getJSON(ctx, u, manifest.MediaTypeImageConfig, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenBlob requests the blob identified by the passed digest. On success the
// response body is handed to the caller unread inside the returned BlobHandle and
// the caller must close it. On failure the error body is read and decoded before
// returning.
func (c *Client) OpenBlob(ctx context.Context, image string, dgst digest.Digest) (*BlobHandle, error) {
	u := fmt.Sprintf("%s/v2/%s/blobs/%s", c.cfg.APIURL, image, dgst)
	resp, err := c.get(ctx, u, "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp, u)
	}
	metrics.IncBlobPulls()
	log.Debugf("opened blob %s content-length=%d", dgst.Short(), resp.ContentLength)
	return newBlobHandle(resp, dgst, u), nil
}

// getJSON gets the passed URL and decodes a 200 response into 'target'
func (c *Client) getJSON(ctx context.Context, u string, accept string, target interface{}) error {
	resp, err := c.get(ctx, u, accept)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp, u)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return &DecodeError{URL: u, MediaType: accept, Err: err}
	}
	metrics.IncManifestPulls(accept)
	return nil
}

// get issues a GET with the bearer token if one is set. The token snapshot is
// read exactly once, while the request is being built.
func (c *Client) get(ctx context.Context, u string, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if token := c.token.get(); token != nil {
		req.Header.Set("Authorization", "Bearer "+token.Bearer())
	}
	log.Debugf("GET %s", u)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "GET", URL: u, Err: err}
	}
	return resp, nil
}

// decodeAPIError reads the body of a non-200 response fully and decodes the
// error list. A body that is not an error list is a TransportError since nothing
// meaningful about the registry's answer can be reported.
func decodeAPIError(resp *http.Response, u string) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "read error response", URL: u, Err: err}
	}
	var errs errorList
	if err := json.Unmarshal(body, &errs); err != nil {
		return &TransportError{
			Op:  "decode error response",
			URL: u,
			Err: fmt.Errorf("status %d: %w", resp.StatusCode, err),
		}
	}
	for _, info := range errs.Errors {
		metrics.IncApiErrors(info.Code)
	}
	apiErr := &APIError{StatusCode: resp.StatusCode, URL: u, Errors: errs.Errors}
	apiErr.Challenge = ChallengeFrom(resp)
	return apiErr
}
