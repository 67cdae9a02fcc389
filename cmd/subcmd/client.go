// Package subcmd has the sub-commands of the client. Each reads its settings
// from the global configuration and writes its output to the passed writer.
package subcmd

import (
	"context"

	"github.com/ecarrara/oci-registry-client/impl/config"
	"github.com/ecarrara/oci-registry-client/impl/globals"
	"github.com/ecarrara/oci-registry-client/impl/manifest"
	"github.com/ecarrara/oci-registry-client/impl/pull"
	"github.com/ecarrara/oci-registry-client/impl/pullrequest"
)

// newPuller parses the passed image reference, configures a client for its
// registry, and authenticates for pull.
func newPuller(ctx context.Context, image string) (*pull.Puller, error) {
	pr, err := pullrequest.Parse(image, config.GetDefaultRegistry())
	if err != nil {
		return nil, err
	}
	cfg, err := config.ConfigFor(pr.Remote, pr.ApiUrl())
	if err != nil {
		return nil, err
	}
	cfg.UserAgent = globals.ProgramName + "/" + globals.Version
	p, err := pull.New(ctx, pr, cfg)
	if err != nil {
		return nil, err
	}
	if err := p.Authenticate(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func platform() manifest.Platform {
	return manifest.Platform{OS: config.GetOs(), Architecture: config.GetArch(), Variant: config.GetVariant()}
}
