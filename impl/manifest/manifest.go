package manifest

import (
	"fmt"

	"github.com/ecarrara/oci-registry-client/impl/digest"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Docker media types. The OCI equivalents come from the image-spec module.
const (
	MediaTypeManifestV2     = "application/vnd.docker.distribution.manifest.v2+json"
	MediaTypeManifestListV2 = "application/vnd.docker.distribution.manifest.list.v2+json"
	MediaTypeImageConfig    = "application/vnd.docker.container.image.v1+json"
	MediaTypeLayer          = "application/vnd.docker.image.rootfs.diff.tar.gzip"
	MediaTypeForeignLayer   = "application/vnd.docker.image.rootfs.foreign.diff.tar.gzip"

	MediaTypeOCIManifest = ocispec.MediaTypeImageManifest
	MediaTypeOCIIndex    = ocispec.MediaTypeImageIndex
	MediaTypeOCIConfig   = ocispec.MediaTypeImageConfig
	MediaTypeOCILayer    = ocispec.MediaTypeImageLayerGzip
)

// ImageConfig is the container image configuration referenced by the 'config'
// part of a Manifest. The Docker and OCI config schemas are compatible for
// everything this client reads.
type ImageConfig = ocispec.Image

// Descriptor corresponds to the 'config' part of a Manifest
type Descriptor struct {
	MediaType string        `json:"mediaType"`
	Size      int64         `json:"size"`
	Digest    digest.Digest `json:"digest"`
}

// Layer is one element of the 'layers' list in a Manifest. It references a blob
// by digest.
type Layer struct {
	MediaType string        `json:"mediaType"`
	Size      int64         `json:"size"`
	Digest    digest.Digest `json:"digest"`
}

// Manifest provides a configuration and a set of layers for a container image.
// The order of the layers is significant and is preserved as received.
type Manifest struct {
	SchemaVersion int        `json:"schemaVersion"`
	MediaType     string     `json:"mediaType"`
	Config        Descriptor `json:"config"`
	Layers        []Layer    `json:"layers"`
}

// ValidationError is returned when a manifest decodes but is internally
// inconsistent.
type ValidationError struct {
	Digest digest.Digest
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid manifest: layer %s: %s", e.Digest, e.Reason)
}

// Validate checks the layers of the receiver. Layer sizes must not be negative
// and layers that share a digest must declare the same size: since they refer to
// the same content there is no way to decide which of two sizes is right.
func (m *Manifest) Validate() error {
	sizes := make(map[digest.Digest]int64, len(m.Layers))
	for _, layer := range m.Layers {
		if layer.Size < 0 {
			return &ValidationError{Digest: layer.Digest, Reason: fmt.Sprintf("negative size %d", layer.Size)}
		}
		if size, seen := sizes[layer.Digest]; seen && size != layer.Size {
			return &ValidationError{
				Digest: layer.Digest,
				Reason: fmt.Sprintf("declared with conflicting sizes %d and %d", size, layer.Size),
			}
		}
		sizes[layer.Digest] = layer.Size
	}
	return nil
}

// TotalSize sums the sizes of the unique layers of the receiver.
func (m *Manifest) TotalSize() int64 {
	seen := make(map[digest.Digest]bool, len(m.Layers))
	var total int64
	for _, layer := range m.Layers {
		if !seen[layer.Digest] {
			seen[layer.Digest] = true
			total += layer.Size
		}
	}
	return total
}
