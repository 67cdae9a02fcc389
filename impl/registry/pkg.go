// Package registry is a client for the pull side of the Docker Registry HTTP V2 /
// OCI distribution protocol. It gets bearer tokens from a token endpoint, fetches
// manifests, manifest lists and image configs, and opens blob streams. It never
// retries: every failure is returned to the caller as one of TransportError,
// APIError or DecodeError.
//
// See https://docs.docker.com/registry/spec/api/ and
// https://github.com/opencontainers/distribution-spec/blob/main/spec.md
package registry
