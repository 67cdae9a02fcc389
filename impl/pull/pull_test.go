package pull

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ecarrara/oci-registry-client/impl/download"
	"github.com/ecarrara/oci-registry-client/impl/manifest"
	"github.com/ecarrara/oci-registry-client/impl/pullrequest"
	"github.com/ecarrara/oci-registry-client/impl/registry"
	"github.com/ecarrara/oci-registry-client/mock"
)

// multiArch serves library/hello as a manifest list with an amd64 and an arm64
// image, and library/single as a plain image manifest
func multiArch(t *testing.T, auth mock.AuthType) (*httptest.Server, *mock.Registry) {
	server, reg := mock.Server(mock.NewMockParams(auth, mock.HTTP))
	amd64, amd64Digest := reg.AddImage("library/hello", "", []byte("amd64 base"), []byte("amd64 app"))
	arm64, arm64Digest := reg.AddImage("library/hello", "", []byte("arm64 base"), []byte("arm64 app"), []byte("arm64 base"))
	reg.AddManifestList("library/hello", "latest",
		manifest.ManifestItem{
			MediaType: manifest.MediaTypeManifestV2,
			Digest:    amd64Digest,
			Size:      amd64.TotalSize(),
			Platform:  manifest.Platform{OS: "linux", Architecture: "amd64"},
		},
		manifest.ManifestItem{
			MediaType: manifest.MediaTypeManifestV2,
			Digest:    arm64Digest,
			Size:      arm64.TotalSize(),
			Platform:  manifest.Platform{OS: "linux", Architecture: "arm64", Variant: "v8"},
		},
	)
	reg.AddImage("library/single", "v1", []byte("single layer"))
	return server, reg
}

func newPuller(t *testing.T, server *httptest.Server, image string) *Puller {
	host := strings.TrimPrefix(server.URL, "http://")
	pr, err := pullrequest.Parse(host+"/"+image, "")
	if err != nil {
		t.Fatal(err)
	}
	if pr.ApiUrl() != server.URL {
		t.Fatalf("unexpected api url %s", pr.ApiUrl())
	}
	p, err := New(context.Background(), pr, registry.Config{Service: pr.Remote, APIURL: pr.ApiUrl()})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPullMultiArch(t *testing.T) {
	server, reg := multiArch(t, mock.BEARER)
	defer server.Close()
	p := newPuller(t, server, "library/hello:latest")
	ctx := context.Background()

	if _, err := p.Resolve(ctx, manifest.Platform{OS: "linux", Architecture: "arm64"}); err == nil {
		t.Fatal("expected failure without a token")
	}
	if err := p.Authenticate(ctx); err != nil {
		t.Fatal(err)
	}
	resolved, err := p.Resolve(ctx, manifest.Platform{OS: "linux", Architecture: "arm64", Variant: "v8"})
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Item == nil || resolved.Item.Platform.Architecture != "arm64" || len(resolved.Manifest.Layers) != 3 {
		t.Fatalf("unexpected resolution %+v", resolved)
	}
	cfg, err := p.Config(ctx, resolved.Manifest)
	if err != nil || cfg.OS != "linux" {
		t.Fatalf("unexpected config %+v %v", cfg, err)
	}

	dir := t.TempDir()
	table, err := p.Layers(ctx, resolved.Manifest, Options{Sinks: download.FileSinks(dir), Verify: true, Concurrency: 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(table) != 2 || !table.Completed() {
		t.Fatalf("unexpected table %+v", table)
	}
	for _, layer := range resolved.Manifest.Layers {
		content, err := os.ReadFile(filepath.Join(dir, "sha256-"+layer.Digest.Hash))
		if err != nil || !strings.HasPrefix(string(content), "arm64") {
			t.Fatalf("missing layer %s: %v", layer.Digest, err)
		}
		if reg.BlobGets(layer.Digest) != 1 {
			t.Fatalf("layer %s fetched %d times", layer.Digest, reg.BlobGets(layer.Digest))
		}
	}

	if _, err := p.Resolve(ctx, manifest.Platform{OS: "windows", Architecture: "amd64"}); err == nil {
		t.Fatal("expected no match for windows")
	}
}

func TestPullSingleManifest(t *testing.T) {
	server, _ := multiArch(t, mock.NONE)
	defer server.Close()
	p := newPuller(t, server, "library/single:v1")
	ctx := context.Background()
	if err := p.Authenticate(ctx); err != nil {
		t.Fatal(err)
	}
	var notList *NotAListError
	if _, err := p.List(ctx); !errors.As(err, &notList) {
		t.Fatalf("expected NotAListError, got %v", err)
	}
	resolved, err := p.Resolve(ctx, manifest.Platform{OS: "linux", Architecture: "s390x"})
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Item != nil || len(resolved.Manifest.Layers) != 1 {
		t.Fatalf("unexpected resolution %+v", resolved)
	}
	table, err := p.Layers(ctx, resolved.Manifest, Options{}, nil)
	if err != nil || !table.Completed() {
		t.Fatalf("unexpected result %+v %v", table, err)
	}
}

// A registry that refuses the list Accept for a single-platform image still
// resolves, with one list request and one image manifest request
func TestPullStrictAccept(t *testing.T) {
	params := mock.NewMockParams(mock.NONE, mock.HTTP)
	params.StrictAccept = true
	server, reg := mock.Server(params)
	defer server.Close()
	reg.AddImage("library/single", "v1", []byte("single layer"))
	p := newPuller(t, server, "library/single:v1")

	resolved, err := p.Resolve(context.Background(), manifest.Platform{OS: "linux", Architecture: "amd64"})
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Item != nil || len(resolved.Manifest.Layers) != 1 {
		t.Fatalf("unexpected resolution %+v", resolved)
	}
	manifestGets := 0
	for _, req := range reg.Requests() {
		if strings.Contains(req.Path, "/manifests/") {
			manifestGets++
		}
	}
	if manifestGets != 2 {
		t.Fatalf("expected 2 manifest requests, got %d", manifestGets)
	}
}

func TestPullUnknownTag(t *testing.T) {
	server, _ := multiArch(t, mock.NONE)
	defer server.Close()
	p := newPuller(t, server, "library/hello:nope")
	_, err := p.Resolve(context.Background(), manifest.Platform{OS: "linux", Architecture: "amd64"})
	var apiErr *registry.APIError
	if !errors.As(err, &apiErr) || !apiErr.HasCode("MANIFEST_UNKNOWN") {
		t.Fatalf("expected MANIFEST_UNKNOWN, got %v", err)
	}
}
