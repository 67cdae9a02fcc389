// Package pull ties the registry client and the download orchestrator together
// into the workflow of pulling one image: authenticate, resolve the image
// manifest for a platform, get the image config, and download the layers.
package pull

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecarrara/oci-registry-client/impl/download"
	"github.com/ecarrara/oci-registry-client/impl/manifest"
	"github.com/ecarrara/oci-registry-client/impl/pullrequest"
	"github.com/ecarrara/oci-registry-client/impl/registry"

	log "github.com/sirupsen/logrus"
)

// Puller pulls one image. The registry client is exposed for callers that need
// more than the workflow methods.
type Puller struct {
	Client  *registry.Client
	Request pullrequest.PullRequest
	cfg     registry.Config
}

// Options configures the layer download
type Options struct {
	Sinks       download.SinkFactory
	Verify      bool
	Policy      download.FailurePolicy
	Concurrency int
	ChunkSize   int
}

// Resolved is an image manifest and, if it was selected from a manifest list,
// the list item it was selected by.
type Resolved struct {
	Manifest *manifest.Manifest
	Item     *manifest.ManifestItem
}

// New returns a Puller for the passed pull request. If the passed config has no
// token URL it is discovered from the registry's auth challenge.
func New(ctx context.Context, pr pullrequest.PullRequest, cfg registry.Config) (*Puller, error) {
	cfg, err := registry.Discover(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client, err := registry.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Puller{Client: client, Request: pr, cfg: cfg}, nil
}

// Authenticate gets a pull token for the repository and installs it in the client.
// Registries that did not challenge for a token are left anonymous.
func (p *Puller) Authenticate(ctx context.Context) error {
	if p.cfg.TokenURL == "" {
		log.Debugf("no token endpoint for %s, pulling anonymously", p.Request.Remote)
		return nil
	}
	token, err := p.Client.Authenticate(ctx, "repository", p.Request.Repository, "pull")
	if err != nil {
		return err
	}
	p.Client.SetToken(token)
	return nil
}

// List gets the manifest list for the image. It is an error if the reference is
// to a single-platform image.
func (p *Puller) List(ctx context.Context) (*manifest.ManifestList, error) {
	ml, err := p.Client.FetchManifestList(ctx, p.Request.Repository, p.Request.Reference)
	if err != nil {
		return nil, err
	}
	if !manifest.IsList(ml.MediaType) {
		return nil, &NotAListError{Image: p.Request.Url(), MediaType: ml.MediaType}
	}
	return ml, nil
}

// NotAListError is returned by List for a single-platform image
type NotAListError struct {
	Image     string
	MediaType string
}

func (e *NotAListError) Error() string {
	return fmt.Sprintf("image %s is not a manifest list: media type %s", e.Image, e.MediaType)
}

// Resolve gets the image manifest for the passed platform. It first tries the
// manifest list. If the reference is to a single-platform image the image
// manifest is fetched directly and the platform is not checked. Some registries
// answer a list request for a single-platform image with MANIFEST_UNKNOWN so that
// also gets the direct fetch, which fails the same way if the reference really
// is unknown.
func (p *Puller) Resolve(ctx context.Context, platform manifest.Platform) (Resolved, error) {
	ml, err := p.List(ctx)
	var notList *NotAListError
	var decodeErr *registry.DecodeError
	var apiErr *registry.APIError
	switch {
	case err == nil:
		item, err := ml.Select(platform.OS, platform.Architecture, platform.Variant)
		if err != nil {
			return Resolved{}, err
		}
		log.Debugf("selected %s manifest %s from list", item.Platform, item.Digest.Short())
		m, err := p.fetchManifest(ctx, item.Digest.String())
		if err != nil {
			return Resolved{}, err
		}
		return Resolved{Manifest: m, Item: &item}, nil
	case errors.As(err, &notList), errors.As(err, &decodeErr),
		errors.As(err, &apiErr) && apiErr.HasCode("MANIFEST_UNKNOWN"):
		log.Debugf("%s is not a manifest list, fetching the image manifest", p.Request.Url())
		m, err := p.fetchManifest(ctx, p.Request.Reference)
		if err != nil {
			return Resolved{}, err
		}
		return Resolved{Manifest: m}, nil
	}
	return Resolved{}, err
}

func (p *Puller) fetchManifest(ctx context.Context, reference string) (*manifest.Manifest, error) {
	m, err := p.Client.FetchManifest(ctx, p.Request.Repository, reference)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Config gets the image configuration for the passed manifest
func (p *Puller) Config(ctx context.Context, m *manifest.Manifest) (*manifest.ImageConfig, error) {
	return p.Client.FetchImageConfig(ctx, p.Request.Repository, m.Config.Digest)
}

// Layers downloads the unique layers of the passed manifest. The table and error
// are as returned by download.Orchestrator.Run.
func (p *Puller) Layers(ctx context.Context, m *manifest.Manifest, opts Options, obs download.Observer) (download.Table, error) {
	o := download.Orchestrator{
		Fetcher:     p.Client,
		Image:       p.Request.Repository,
		Sinks:       opts.Sinks,
		Verify:      opts.Verify,
		Policy:      opts.Policy,
		Concurrency: opts.Concurrency,
		ChunkSize:   opts.ChunkSize,
	}
	return o.Run(ctx, m.Layers, obs)
}
