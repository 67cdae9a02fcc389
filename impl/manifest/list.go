package manifest

import (
	"fmt"

	"github.com/ecarrara/oci-registry-client/impl/digest"
)

// Platform describes the platform which the image in a ManifestItem runs on.
type Platform struct {
	Architecture string   `json:"architecture"`
	OS           string   `json:"os"`
	OSVersion    string   `json:"os.version,omitempty"`
	OSFeatures   []string `json:"os.features,omitempty"`
	Variant      string   `json:"variant,omitempty"`
	Features     []string `json:"features,omitempty"`
}

func (p Platform) String() string {
	if p.Variant != "" {
		return p.OS + "/" + p.Architecture + "/" + p.Variant
	}
	return p.OS + "/" + p.Architecture
}

// ManifestItem is one manifest in the 'manifests' list of a ManifestList
type ManifestItem struct {
	MediaType string        `json:"mediaType"`
	Size      int64         `json:"size"`
	Digest    digest.Digest `json:"digest"`
	Platform  Platform      `json:"platform"`
}

// ManifestList is the "fat manifest" which points to specific image manifests
// for one or more platforms.
type ManifestList struct {
	SchemaVersion int            `json:"schemaVersion"`
	MediaType     string         `json:"mediaType"`
	Manifests     []ManifestItem `json:"manifests"`
}

// Select finds the manifest in the receiver matching the passed os and
// architecture. If variant is non-empty it must also match. The first match
// wins, as registries list the preferred manifest first.
func (ml *ManifestList) Select(os, arch, variant string) (ManifestItem, error) {
	for _, m := range ml.Manifests {
		if m.Platform.OS != os || m.Platform.Architecture != arch {
			continue
		}
		if variant != "" && m.Platform.Variant != variant {
			continue
		}
		return m, nil
	}
	want := Platform{OS: os, Architecture: arch, Variant: variant}
	return ManifestItem{}, fmt.Errorf("no manifest found matching platform %s", want)
}

// IsList returns true if the passed media type is a manifest list or an OCI index
func IsList(mediaType string) bool {
	return mediaType == MediaTypeManifestListV2 || mediaType == MediaTypeOCIIndex
}
