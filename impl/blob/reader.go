// Package blob reads a blob response body incrementally, in chunks, optionally
// folding every chunk into a running hash so the content can be checked against
// the digest it was requested by.
package blob

import (
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/ecarrara/oci-registry-client/impl/digest"
	"github.com/ecarrara/oci-registry-client/impl/registry"
)

// DefaultChunkSize is the largest chunk NextChunk returns unless overridden with
// WithChunkSize
const DefaultChunkSize = 32 * 1024

// VerificationError means the content read does not hash to the digest the blob
// was requested by.
type VerificationError struct {
	Expected digest.Digest
	Actual   digest.Digest
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("digest mismatch: expected %s, computed %s", e.Expected, e.Actual)
}

// Option configures a Reader
type Option func(*Reader)

// WithVerification hashes the content as it is read, using the algorithm of the
// blob handle's digest.
func WithVerification() Option {
	return func(r *Reader) {
		r.verify = true
	}
}

// WithChunkSize sets the size of the read buffer, which bounds the size of every
// chunk. Values less than one are ignored.
func WithChunkSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.chunkSize = n
		}
	}
}

// Reader pulls a blob body one chunk at a time. Memory use is bounded by the chunk
// size regardless of the blob size. A Reader is not safe for concurrent use.
type Reader struct {
	handle    *registry.BlobHandle
	chunkSize int
	verify    bool
	hasher    hash.Hash
	buf       []byte
	read      int64
	eof       bool
	err       error
}

// NewReader returns a Reader over the body of the passed handle. An error is
// returned only if verification is requested and the digest algorithm is not
// supported.
func NewReader(h *registry.BlobHandle, opts ...Option) (*Reader, error) {
	r := &Reader{
		handle:    h,
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.verify {
		hasher, err := h.Digest.Hasher()
		if err != nil {
			return nil, err
		}
		r.hasher = hasher
	}
	r.buf = make([]byte, r.chunkSize)
	return r, nil
}

// NextChunk performs one read of the body and returns what it got. It returns
// io.EOF when the body is exhausted, and a *registry.TransportError if the read
// fails. When verification is enabled the chunk has already been hashed when it
// is returned. The returned slice is only valid until the next call.
func (r *Reader) NextChunk() ([]byte, error) {
	if r.eof {
		return nil, io.EOF
	}
	if r.err != nil {
		return nil, r.err
	}
	for {
		n, err := r.handle.Body.Read(r.buf)
		if n > 0 {
			chunk := r.buf[:n]
			if r.hasher != nil {
				r.hasher.Write(chunk)
			}
			r.read += int64(n)
			r.setErr(err)
			return chunk, nil
		}
		if err != nil {
			r.setErr(err)
			if r.eof {
				return nil, io.EOF
			}
			return nil, r.err
		}
	}
}

// setErr records the error that ended a read so the next call returns it
func (r *Reader) setErr(err error) {
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		r.eof = true
	default:
		r.err = &registry.TransportError{Op: "read blob", URL: r.handle.URL, Err: err}
	}
}

// BytesRead returns the number of body bytes returned so far
func (r *Reader) BytesRead() int64 {
	return r.read
}

// FinalizeDigest returns the digest of everything read. It panics unless the
// reader was created with verification and the body has been read to the end.
func (r *Reader) FinalizeDigest() digest.Digest {
	if r.hasher == nil {
		panic("blob: FinalizeDigest called on a reader without verification")
	}
	if !r.eof {
		panic("blob: FinalizeDigest called before end of stream")
	}
	return digest.FromRunningHash(r.handle.Digest.Algorithm, r.hasher.Sum(nil))
}

// Verify compares the finalized digest with the digest the blob was requested by.
// The same preconditions as FinalizeDigest apply.
func (r *Reader) Verify() error {
	actual := r.FinalizeDigest()
	if actual != r.handle.Digest {
		return &VerificationError{Expected: r.handle.Digest, Actual: actual}
	}
	return nil
}

// Close closes the underlying body. It may be called at any time, for example to
// abandon a download.
func (r *Reader) Close() error {
	return r.handle.Close()
}
