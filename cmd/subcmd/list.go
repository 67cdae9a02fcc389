package subcmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/labstack/gommon/bytes"
)

// List writes one line for each image in the manifest list of the passed image
func List(ctx context.Context, image string, out io.Writer) error {
	p, err := newPuller(ctx, image)
	if err != nil {
		return err
	}
	ml, err := p.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tDIGEST\tSIZE")
	for _, m := range ml.Manifests {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Platform, m.Digest, bytes.Format(m.Size))
	}
	return w.Flush()
}
