// Package mock runs an in-memory, pull-only OCI distribution server for tests. It
// serves a token endpoint, manifests, manifest lists and blobs that a test adds to
// it, and can be configured to require bearer auth, stream blobs in fixed-size
// chunks, omit Content-Length, stall, or drop the connection part way through a
// blob. Every request is recorded so tests can check the headers the client sent.
package mock
