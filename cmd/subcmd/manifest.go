package subcmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ecarrara/oci-registry-client/impl/manifest"
)

type manifestDoc struct {
	Image    string                `json:"image"`
	Platform string                `json:"platform,omitempty"`
	Manifest *manifest.Manifest    `json:"manifest"`
	Config   *manifest.ImageConfig `json:"config"`
}

// Manifest writes the image manifest for the configured platform and the image
// config it references to the passed writer as JSON.
func Manifest(ctx context.Context, image string, out io.Writer) error {
	p, err := newPuller(ctx, image)
	if err != nil {
		return err
	}
	resolved, err := p.Resolve(ctx, platform())
	if err != nil {
		return err
	}
	cfg, err := p.Config(ctx, resolved.Manifest)
	if err != nil {
		return err
	}
	doc := manifestDoc{Image: p.Request.Url(), Manifest: resolved.Manifest, Config: cfg}
	if resolved.Item != nil {
		doc.Image = p.Request.UrlWithDigest(resolved.Item.Digest.String())
		doc.Platform = resolved.Item.Platform.String()
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}
