package subcmd

import (
	"context"
	"fmt"
	"io"

	"github.com/ecarrara/oci-registry-client/impl/config"
	"github.com/ecarrara/oci-registry-client/impl/download"
	"github.com/ecarrara/oci-registry-client/impl/metrics"
	"github.com/ecarrara/oci-registry-client/impl/progress"
	"github.com/ecarrara/oci-registry-client/impl/pull"

	"github.com/labstack/gommon/bytes"
	log "github.com/sirupsen/logrus"
)

// Pull downloads the unique layers of the image for the configured platform into
// the configured output directory. Progress is drawn on the passed writer unless
// the quiet option is set, and the summary line is always written to it.
func Pull(ctx context.Context, image string, out io.Writer) error {
	pc := config.GetPullConfig()
	metrics.InitMetrics(int(config.GetMetricsPort()))
	p, err := newPuller(ctx, image)
	if err != nil {
		return err
	}
	resolved, err := p.Resolve(ctx, platform())
	if err != nil {
		return err
	}
	if resolved.Item != nil {
		log.Infof("pulling %s for %s", p.Request.Url(), resolved.Item.Platform)
	}

	opts := pull.Options{
		Sinks:       download.FileSinks(pc.OutDir),
		Verify:      !pc.SkipVerify,
		Policy:      download.ContinueOnError,
		Concurrency: int(pc.Concurrency),
		ChunkSize:   int(pc.ChunkSize),
	}
	if pc.FailFast {
		opts.Policy = download.AbortOnError
	}
	var obs download.Observer = progress.NewLog()
	if !pc.Quiet {
		obs = progress.Multi{obs, progress.NewTerminal(out)}
	}

	table, err := p.Layers(ctx, resolved.Manifest, opts, obs)
	if err != nil {
		return fmt.Errorf("pull of %s failed with %d of %d layers complete: %w",
			p.Request.Url(), table.Count(download.Completed), len(table), err)
	}
	_, err = fmt.Fprintf(out, "pulled %d layers (%s) of %s to %s\n",
		len(table), bytes.Format(table.Downloaded()), p.Request.Url(), pc.OutDir)
	return err
}
