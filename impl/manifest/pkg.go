// Package manifest has the documents a registry serves for an image: the image
// manifest, which references a config blob and an ordered list of layer blobs, and
// the manifest list (or "fat manifest") which indexes per-platform image manifests
// by digest. See https://docs.docker.com/registry/spec/manifest-v2-2/ for the
// schema.
package manifest
