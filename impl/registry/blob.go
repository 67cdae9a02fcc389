package registry

import (
	"io"
	"net/http"

	"github.com/ecarrara/oci-registry-client/impl/digest"
)

// BlobHandle is an open blob response. The body has not been read. The content
// length and type are optional because registries (or the proxies in front of
// them) do not always send them.
type BlobHandle struct {
	Body   io.ReadCloser
	Digest digest.Digest
	URL    string

	contentLength int64
	contentType   string
}

func newBlobHandle(resp *http.Response, dgst digest.Digest, u string) *BlobHandle {
	return &BlobHandle{
		Body:          resp.Body,
		Digest:        dgst,
		URL:           u,
		contentLength: resp.ContentLength,
		contentType:   resp.Header.Get("Content-Type"),
	}
}

// NewBlobHandle wraps an arbitrary body as a BlobHandle. A negative
// contentLength means the length is unknown, an empty contentType means the type
// is unknown.
func NewBlobHandle(body io.ReadCloser, dgst digest.Digest, contentLength int64, contentType string) *BlobHandle {
	return &BlobHandle{
		Body:          body,
		Digest:        dgst,
		contentLength: contentLength,
		contentType:   contentType,
	}
}

// ContentLength returns the blob length and true, or false if the response had no
// Content-Length header.
func (h *BlobHandle) ContentLength() (int64, bool) {
	return h.contentLength, h.contentLength >= 0
}

// ContentType returns the Content-Type header and true, or false if absent.
func (h *BlobHandle) ContentType() (string, bool) {
	return h.contentType, h.contentType != ""
}

// Close releases the underlying HTTP resources
func (h *BlobHandle) Close() error {
	return h.Body.Close()
}
