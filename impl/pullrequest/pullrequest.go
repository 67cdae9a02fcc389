package pullrequest

import (
	"fmt"

	"github.com/google/go-containerregistry/pkg/name"
)

// PullType allows to differentiate a pull by tag vs. digest.
type PullType int

const (
	ByTag PullType = iota
	ByDigest
)

// PullRequest has the individual components of an image pull. If initialized with
// 'quay.io/argoproj/argocd:v2.11.11' then the struct members are like so:
//
//	PullType   = ByTag
//	Remote     = quay.io
//	Repository = argoproj/argocd
//	Reference  = v2.11.11
//	Scheme     = https
type PullRequest struct {
	PullType PullType
	// Remote is the registry host (and port, if any)
	Remote string
	// Repository is the image name within the registry. Docker Hub official images
	// get the 'library/' prefix, so 'alpine' becomes 'library/alpine'.
	Repository string
	// Reference is the tag or digest
	Reference string
	// Scheme is 'http' for local registries (localhost, 127.0.0.1, *.local) and
	// 'https' for everything else
	Scheme string
}

// Parse parses an image reference like 'alpine', 'docker.io/library/alpine:3.20',
// or 'quay.io/argoproj/argocd@sha256:...' into a PullRequest. The passed default
// registry is used if the reference does not begin with a registry host. If it is
// empty, Docker Hub is the default. A missing tag is 'latest'.
func Parse(image string, defaultRegistry string) (PullRequest, error) {
	var opts []name.Option
	if defaultRegistry != "" {
		opts = append(opts, name.WithDefaultRegistry(defaultRegistry))
	}
	ref, err := name.ParseReference(image, opts...)
	if err != nil {
		return PullRequest{}, fmt.Errorf("unable to parse image reference %q: %w", image, err)
	}
	pr := PullRequest{
		PullType:   ByTag,
		Remote:     ref.Context().RegistryStr(),
		Repository: ref.Context().RepositoryStr(),
		Reference:  ref.Identifier(),
		Scheme:     ref.Context().Scheme(),
	}
	if _, ok := ref.(name.Digest); ok {
		pr.PullType = ByDigest
	}
	return pr, nil
}

// Url formats the instance as an image reference like 'quay.io/appzygy/ociregistry:n.n.n'
func (pr *PullRequest) Url() string {
	separator := ":"
	if pr.PullType == ByDigest {
		separator = "@"
	}
	return fmt.Sprintf("%s/%s%s%s", pr.Remote, pr.Repository, separator, pr.Reference)
}

// UrlWithDigest is like Url except it overrides the ref in the receiver with the passed digest
func (pr *PullRequest) UrlWithDigest(digest string) string {
	return fmt.Sprintf("%s/%s@%s", pr.Remote, pr.Repository, digest)
}

// ApiUrl is the base URL of the distribution API of the remote, e.g.
// 'https://quay.io'
func (pr *PullRequest) ApiUrl() string {
	return pr.Scheme + "://" + pr.Remote
}
