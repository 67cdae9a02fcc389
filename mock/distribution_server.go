package mock

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ecarrara/oci-registry-client/impl/digest"
	"github.com/ecarrara/oci-registry-client/impl/globals"
	"github.com/ecarrara/oci-registry-client/impl/manifest"

	"github.com/labstack/echo/v4"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Values the mock server expects and issues
const (
	Service  = "registry.mock.io"
	Token    = "FROBOZZ"
	User     = "frobozz"
	Password = "xyzzy"
)

// SchemeType specifies http or https
type SchemeType string

const (
	HTTP  SchemeType = "http"
	HTTPS SchemeType = "https"
)

// AuthType specifies what the mock server requires of the client
type AuthType string

const (
	// NONE serves everything anonymously
	NONE AuthType = "no auth"
	// BEARER requires the bearer token on every /v2 request. The token endpoint
	// issues tokens anonymously.
	BEARER AuthType = "bearer auth"
	// BASIC is like BEARER except the token endpoint also requires basic auth
	BASIC AuthType = "basic auth"
)

// MockParams supports different configurations for the mock OCI Distribution
// Server
type MockParams struct {
	Auth      AuthType
	Scheme    SchemeType
	TlsConfig *tls.Config
	// DelayMs supports simulating slow links
	DelayMs int
	// ChunkSize, if non-zero, streams blobs in chunks of this size with a flush
	// after every chunk
	ChunkSize int
	// OmitContentLength streams blobs with chunked transfer encoding
	OmitContentLength bool
	// StrictAccept answers MANIFEST_UNKNOWN for a manifest whose media type is not
	// in the Accept header, as distribution does for a list-only Accept
	StrictAccept bool
}

// NewMockParams returns a 'MockParams' instance from the passed args.
func NewMockParams(auth AuthType, scheme SchemeType) MockParams {
	return MockParams{
		Auth:   auth,
		Scheme: scheme,
	}
}

// RecordedRequest is what the server saw of one request
type RecordedRequest struct {
	Method        string
	Path          string
	Query         string
	Accept        string
	Authorization string
}

type stored struct {
	mediaType string
	body      []byte
}

// Registry is the in-memory content of the mock server
type Registry struct {
	params    MockParams
	mu        sync.Mutex
	manifests map[string]stored
	blobs     map[digest.Digest][]byte
	failAt    map[digest.Digest]int
	stallAt   map[digest.Digest]int
	blobGets  map[digest.Digest]int
	requests  []RecordedRequest
	stop      chan struct{}
	stopOnce  sync.Once
}

type errorEntry struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail"`
}

type errorBody struct {
	Errors []errorEntry `json:"errors"`
}

// NewRegistry returns an empty Registry configured by the passed params
func NewRegistry(params MockParams) *Registry {
	if params.Auth == "" {
		params.Auth = NONE
	}
	if params.Scheme == "" {
		params.Scheme = HTTP
	}
	return &Registry{
		params:    params,
		manifests: make(map[string]stored),
		blobs:     make(map[digest.Digest][]byte),
		failAt:    make(map[digest.Digest]int),
		stallAt:   make(map[digest.Digest]int),
		blobGets:  make(map[digest.Digest]int),
		stop:      make(chan struct{}),
	}
}

// Server runs the mock OCI distribution server with a new empty Registry. It
// returns a ref to the server and the registry so the caller can add content.
func Server(params MockParams) (*httptest.Server, *Registry) {
	reg := NewRegistry(params)
	server := httptest.NewUnstartedServer(reg.Handler())
	if reg.params.Scheme == HTTPS {
		server.TLS = params.TlsConfig
		server.StartTLS()
	} else {
		server.Start()
	}
	return server, reg
}

// TokenURL is the token endpoint of the passed mock server
func TokenURL(server *httptest.Server) string {
	return server.URL + "/token"
}

// Handler returns the echo router serving the receiver
func (r *Registry) Handler() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(globals.GetEchoLoggingFunc())
	e.Use(r.record)
	e.GET("/token", r.token)
	e.GET("/v2/", r.version)
	e.GET("/v2/*", r.content)
	return e
}

// Release unblocks any stalled blob responses
func (r *Registry) Release() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// AddManifest serves the passed body with the passed media type for the image
// under both the passed reference and the body's digest. The digest is returned.
func (r *Registry) AddManifest(image, reference, mediaType string, body []byte) digest.Digest {
	d := digest.FromBytes(body)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifests[image+"@"+d.String()] = stored{mediaType: mediaType, body: body}
	if reference != "" {
		r.manifests[image+"@"+reference] = stored{mediaType: mediaType, body: body}
	}
	return d
}

// AddBlob serves the passed content under its sha256 digest for every image
func (r *Registry) AddBlob(content []byte) digest.Digest {
	d := digest.FromBytes(content)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[d] = content
	return d
}

// AddImage builds and serves an image manifest under the passed tag, a config
// blob, and one blob per passed layer. Layers may repeat. The manifest is
// returned along with its digest.
func (r *Registry) AddImage(image, tag string, layers ...[]byte) (manifest.Manifest, digest.Digest) {
	cfg := ocispec.Image{
		Platform: ocispec.Platform{Architecture: "amd64", OS: "linux"},
		Config: ocispec.ImageConfig{
			Env: []string{"PATH=/usr/local/bin:/usr/bin:/bin"},
			Cmd: []string{"/hello"},
		},
		RootFS: ocispec.RootFS{Type: "layers"},
	}
	cfgBytes, err := json.Marshal(cfg)
	if err != nil {
		panic(err)
	}
	m := manifest.Manifest{
		SchemaVersion: 2,
		MediaType:     manifest.MediaTypeManifestV2,
		Config: manifest.Descriptor{
			MediaType: manifest.MediaTypeImageConfig,
			Size:      int64(len(cfgBytes)),
			Digest:    r.AddBlob(cfgBytes),
		},
	}
	for _, layer := range layers {
		m.Layers = append(m.Layers, manifest.Layer{
			MediaType: manifest.MediaTypeLayer,
			Size:      int64(len(layer)),
			Digest:    r.AddBlob(layer),
		})
	}
	return m, r.AddImageManifest(image, tag, m)
}

// AddImageManifest serves the passed manifest as-is under the passed tag and its
// digest.
func (r *Registry) AddImageManifest(image, tag string, m manifest.Manifest) digest.Digest {
	body, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return r.AddManifest(image, tag, manifest.MediaTypeManifestV2, body)
}

// AddManifestList serves a manifest list with the passed items under the passed
// tag and its digest.
func (r *Registry) AddManifestList(image, tag string, items ...manifest.ManifestItem) digest.Digest {
	body, err := json.Marshal(manifest.ManifestList{
		SchemaVersion: 2,
		MediaType:     manifest.MediaTypeManifestListV2,
		Manifests:     items,
	})
	if err != nil {
		panic(err)
	}
	return r.AddManifest(image, tag, manifest.MediaTypeManifestListV2, body)
}

// FailBlob makes the server drop the connection after sending 'after' bytes of
// the blob with the passed digest.
func (r *Registry) FailBlob(d digest.Digest, after int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failAt[d] = after
}

// StallBlob makes the server stop sending after 'after' bytes of the blob with the
// passed digest, and hold the connection open until the client goes away or
// Release is called.
func (r *Registry) StallBlob(d digest.Digest, after int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stallAt[d] = after
}

// Requests returns a copy of every request seen so far
func (r *Registry) Requests() []RecordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedRequest(nil), r.requests...)
}

// BlobGets returns the number of GETs seen for the blob with the passed digest
func (r *Registry) BlobGets(d digest.Digest) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blobGets[d]
}

// record is middleware that records each request and applies the configured delay
func (r *Registry) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		r.mu.Lock()
		r.requests = append(r.requests, RecordedRequest{
			Method:        req.Method,
			Path:          req.URL.Path,
			Query:         req.URL.RawQuery,
			Accept:        req.Header.Get("Accept"),
			Authorization: req.Header.Get("Authorization"),
		})
		r.mu.Unlock()
		if r.params.DelayMs != 0 {
			time.Sleep(time.Duration(r.params.DelayMs) * time.Millisecond)
		}
		return next(c)
	}
}

func (r *Registry) token(c echo.Context) error {
	if r.params.Auth == BASIC {
		user, pass, ok := c.Request().BasicAuth()
		if !ok || user != User || pass != Password {
			return c.JSON(http.StatusUnauthorized, errBody("UNAUTHORIZED", "incorrect username or password"))
		}
	}
	if c.QueryParam("service") != Service {
		return c.JSON(http.StatusBadRequest, errBody("DENIED", "unknown service"))
	}
	if c.QueryParam("scope") == "" {
		return c.JSON(http.StatusBadRequest, errBody("DENIED", "scope is required"))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"token":        Token,
		"access_token": Token,
		"expires_in":   300,
		"issued_at":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Registry) version(c echo.Context) error {
	if !r.authorized(c) {
		return r.unauthorized(c)
	}
	return c.JSON(http.StatusOK, map[string]string{})
}

// content dispatches /v2/<name>/manifests/<reference> and /v2/<name>/blobs/<digest>.
// The name can contain slashes so the router can't split it.
func (r *Registry) content(c echo.Context) error {
	if !r.authorized(c) {
		return r.unauthorized(c)
	}
	p := c.Param("*")
	if i := strings.LastIndex(p, "/manifests/"); i > 0 {
		return r.manifest(c, p[:i], p[i+len("/manifests/"):])
	}
	if i := strings.LastIndex(p, "/blobs/"); i > 0 {
		return r.blob(c, p[i+len("/blobs/"):])
	}
	return c.JSON(http.StatusNotFound, errBody("NAME_UNKNOWN", "repository name not known to registry"))
}

func (r *Registry) manifest(c echo.Context, image, reference string) error {
	r.mu.Lock()
	m, found := r.manifests[image+"@"+reference]
	r.mu.Unlock()
	if !found {
		return c.JSON(http.StatusNotFound, errBody("MANIFEST_UNKNOWN", "manifest unknown"))
	}
	if r.params.StrictAccept && !strings.Contains(c.Request().Header.Get("Accept"), m.mediaType) {
		return c.JSON(http.StatusNotFound, errBody("MANIFEST_UNKNOWN", "OCI manifest found, but accept header does not support OCI manifests"))
	}
	c.Response().Header().Set("Docker-Content-Digest", digest.FromBytes(m.body).String())
	c.Response().Header().Set("Docker-Distribution-Api-Version", "registry/2.0")
	return c.Blob(http.StatusOK, m.mediaType, m.body)
}

func (r *Registry) blob(c echo.Context, ref string) error {
	d, err := digest.Parse(ref)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("DIGEST_INVALID", "provided digest did not match uploaded content"))
	}
	r.mu.Lock()
	content, found := r.blobs[d]
	failAt, failing := r.failAt[d]
	stallAt, stalling := r.stallAt[d]
	r.blobGets[d]++
	r.mu.Unlock()
	if !found {
		return c.JSON(http.StatusNotFound, errBody("BLOB_UNKNOWN", "blob unknown to registry"))
	}

	resp := c.Response()
	resp.Header().Set("Content-Type", "application/octet-stream")
	resp.Header().Set("Docker-Content-Digest", d.String())
	if !r.params.OmitContentLength {
		resp.Header().Set("Content-Length", strconv.Itoa(len(content)))
	}
	resp.WriteHeader(http.StatusOK)

	chunk := r.params.ChunkSize
	if chunk <= 0 {
		chunk = len(content)
	}
	written := 0
	for {
		if failing && written >= failAt {
			panic(http.ErrAbortHandler)
		}
		if stalling && written >= stallAt {
			resp.Flush()
			select {
			case <-c.Request().Context().Done():
			case <-r.stop:
			}
			return nil
		}
		if written >= len(content) {
			break
		}
		n := min(chunk, len(content)-written)
		if failing {
			n = min(n, failAt-written)
		}
		if stalling {
			n = min(n, stallAt-written)
		}
		if _, err := resp.Write(content[written : written+n]); err != nil {
			return err
		}
		resp.Flush()
		written += n
	}
	return nil
}

func (r *Registry) authorized(c echo.Context) bool {
	if r.params.Auth == NONE {
		return true
	}
	return c.Request().Header.Get("Authorization") == "Bearer "+Token
}

func (r *Registry) unauthorized(c echo.Context) error {
	realm := fmt.Sprintf(`Bearer realm="%s://%s/token",service="%s"`, r.params.Scheme, c.Request().Host, Service)
	c.Response().Header().Set("Www-Authenticate", realm)
	return c.JSON(http.StatusUnauthorized, errBody("UNAUTHORIZED", "authentication required"))
}

func errBody(code, message string) errorBody {
	return errorBody{Errors: []errorEntry{{Code: code, Message: message}}}
}
