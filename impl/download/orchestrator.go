package download

import (
	"context"
	"errors"
	"io"

	"github.com/ecarrara/oci-registry-client/impl/blob"
	"github.com/ecarrara/oci-registry-client/impl/digest"
	"github.com/ecarrara/oci-registry-client/impl/manifest"
	"github.com/ecarrara/oci-registry-client/impl/metrics"
	"github.com/ecarrara/oci-registry-client/impl/registry"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Fetcher opens blob streams. *registry.Client is the production implementation
// and is shared by all the tasks of a Run.
type Fetcher interface {
	OpenBlob(ctx context.Context, image string, dgst digest.Digest) (*registry.BlobHandle, error)
}

// FailurePolicy decides what happens to the other tasks when one fails
type FailurePolicy int

const (
	// ContinueOnError lets the other tasks run to completion
	ContinueOnError FailurePolicy = iota
	// AbortOnError cancels the other tasks on the first failure
	AbortOnError
)

func (p FailurePolicy) String() string {
	if p == AbortOnError {
		return "abort"
	}
	return "continue"
}

// Orchestrator downloads the unique layers of one image
type Orchestrator struct {
	Fetcher Fetcher
	// Image is the repository the layers are pulled from, e.g. 'library/alpine'
	Image string
	// Sinks creates the output for each task. Nil means Discard.
	Sinks SinkFactory
	// Verify hashes every blob and fails the task on a digest mismatch
	Verify bool
	Policy FailurePolicy
	// Concurrency caps the number of tasks running at once. Zero is unlimited.
	Concurrency int
	// ChunkSize is passed to the blob reader. Zero uses the reader's default.
	ChunkSize int
}

// Run downloads one copy of every unique layer and returns the final progress
// table. The passed observer, if not nil, gets a snapshot after every event.
//
// The returned error is ctx.Err() if the passed context was cancelled. Otherwise
// it aggregates the errors of all the failed tasks, and is nil only if every
// entry in the table is Completed. A manifest with conflicting layer sizes fails
// before anything is fetched.
func (o *Orchestrator) Run(ctx context.Context, layers []manifest.Layer, obs Observer) (Table, error) {
	tasks, err := Plan(layers)
	if err != nil {
		return nil, err
	}
	table := newTable(tasks)
	if len(tasks) == 0 {
		return table, nil
	}
	sinks := o.Sinks
	if sinks == nil {
		sinks = Discard
	}
	log.Debugf("downloading %d unique blobs of %d layers from %s with policy %s", len(tasks), len(layers), o.Image, o.Policy)

	events := make(chan Event, len(tasks))
	consumed := make(chan error)
	go func() {
		var failures error
		for ev := range events {
			before := table[ev.Index].State
			table.apply(ev)
			if s := table[ev.Index]; s.State == Failed && before != Failed {
				failures = multierr.Append(failures, s.Err)
			}
			if obs != nil {
				obs.Update(table.snapshot())
			}
		}
		consumed <- failures
	}()

	g, gctx := errgroup.WithContext(ctx)
	if o.Concurrency > 0 {
		g.SetLimit(o.Concurrency)
	}
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			return o.fetch(gctx, task, sinks, events)
		})
	}
	g.Wait()
	close(events)
	failures := <-consumed
	if err := ctx.Err(); err != nil {
		return table, err
	}
	return table, failures
}

// fetch runs one task. Every path out of here sends exactly one terminal event. An
// error is returned only for a failure under AbortOnError, which makes errgroup
// cancel the context of the sibling tasks.
func (o *Orchestrator) fetch(ctx context.Context, task Task, sinks SinkFactory, events chan<- Event) error {
	ev := Event{Index: task.Index, Digest: task.Digest}
	end := func(err error) error {
		if ctx.Err() != nil {
			ev.Kind, ev.Err = EventCancelled, ctx.Err()
			log.Debugf("blob %s cancelled after %d bytes", task.Digest.Short(), ev.Downloaded)
			events <- ev
			return nil
		}
		ev.Kind, ev.Err = EventFailed, err
		metrics.IncLayersFailed(failureReason(err))
		log.Warnf("blob %s failed: %s", task.Digest.Short(), err)
		events <- ev
		if o.Policy == AbortOnError {
			return err
		}
		return nil
	}
	if ctx.Err() != nil {
		return end(ctx.Err())
	}

	h, err := o.Fetcher.OpenBlob(ctx, o.Image, task.Digest)
	if err != nil {
		return end(err)
	}
	opts := []blob.Option{blob.WithChunkSize(o.ChunkSize)}
	if o.Verify {
		opts = append(opts, blob.WithVerification())
	}
	r, err := blob.NewReader(h, opts...)
	if err != nil {
		h.Close()
		return end(err)
	}
	defer r.Close()
	if n, ok := h.ContentLength(); ok {
		ev.Total, ev.TotalKnown = n, true
	}
	sink, err := sinks(task)
	if err != nil {
		return end(err)
	}
	ev.Kind = EventProgress
	events <- ev

	for {
		chunk, err := r.NextChunk()
		if err == io.EOF {
			break
		}
		if err != nil {
			sink.Abort()
			return end(err)
		}
		if _, err := sink.Write(chunk); err != nil {
			sink.Abort()
			return end(err)
		}
		ev.Downloaded = r.BytesRead()
		metrics.AddBlobBytes(float64(len(chunk)))
		events <- ev
		if ctx.Err() != nil {
			sink.Abort()
			return end(ctx.Err())
		}
	}
	if ev.TotalKnown && ev.Downloaded != ev.Total {
		sink.Abort()
		return end(&ShortReadError{Digest: task.Digest, Downloaded: ev.Downloaded, Total: ev.Total})
	}
	if o.Verify {
		if err := r.Verify(); err != nil {
			sink.Abort()
			return end(err)
		}
	}
	if err := sink.Commit(); err != nil {
		return end(err)
	}
	metrics.IncLayersCompleted()
	log.Debugf("blob %s complete: %d bytes", task.Digest.Short(), ev.Downloaded)
	ev.Kind = EventDone
	events <- ev
	return nil
}

// failureReason is the label for the layers failed metric
func failureReason(err error) string {
	var (
		apiErr       *registry.APIError
		transportErr *registry.TransportError
		verifyErr    *blob.VerificationError
		shortErr     *ShortReadError
	)
	switch {
	case errors.As(err, &apiErr):
		return "api"
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &verifyErr):
		return "verification"
	case errors.As(err, &shortErr):
		return "short_read"
	}
	return "other"
}
