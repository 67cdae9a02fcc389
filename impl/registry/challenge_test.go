package registry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ecarrara/oci-registry-client/mock"
)

func TestChallengeFrom(t *testing.T) {
	tests := []struct {
		status   int
		headers  []string
		expected *Challenge
	}{
		{
			http.StatusUnauthorized,
			[]string{`Bearer realm="https://auth.docker.io/token",service="registry.docker.io"`},
			&Challenge{Scheme: "bearer", Realm: "https://auth.docker.io/token", Service: "registry.docker.io"},
		},
		{
			http.StatusUnauthorized,
			[]string{`Bearer realm="https://ghcr.io/token", service="ghcr.io", scope="repository:user/image:pull,push"`},
			&Challenge{Scheme: "bearer", Realm: "https://ghcr.io/token", Service: "ghcr.io", Scope: "repository:user/image:pull,push"},
		},
		{http.StatusUnauthorized, []string{`Basic realm="registry"`}, &Challenge{Scheme: "basic", Realm: "registry"}},
		{
			http.StatusUnauthorized,
			[]string{`Basic realm="registry"`, `Bearer realm="https://r.io/token"`},
			&Challenge{Scheme: "bearer", Realm: "https://r.io/token"},
		},
		{http.StatusUnauthorized, nil, nil},
		{http.StatusUnauthorized, []string{"Bearer"}, nil},
		{http.StatusUnauthorized, []string{"Bearer realm"}, nil},
		{http.StatusForbidden, []string{`Bearer realm="https://r.io/token"`}, nil},
	}
	for _, test := range tests {
		resp := &http.Response{StatusCode: test.status, Header: http.Header{}}
		for _, h := range test.headers {
			resp.Header.Add("Www-Authenticate", h)
		}
		c := ChallengeFrom(resp)
		if (c == nil) != (test.expected == nil) || (c != nil && *c != *test.expected) {
			t.Fatalf("%q: expected %+v, got %+v", test.headers, test.expected, c)
		}
	}
}

// A 401 whose body is empty or not an error list still yields its challenge
func TestDiscoverIgnoresBody(t *testing.T) {
	for _, body := range []string{"", "<html>unauthorized</html>"} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Www-Authenticate", `Bearer realm="https://auth.example/token",service="example"`)
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, body)
		}))
		cfg, err := Discover(context.Background(), Config{APIURL: server.URL})
		server.Close()
		if err != nil {
			t.Fatalf("body %q: %v", body, err)
		}
		if cfg.TokenURL != "https://auth.example/token" || cfg.Service != "example" {
			t.Fatalf("body %q: unexpected discovered config %+v", body, cfg)
		}
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()
	if _, err := Discover(context.Background(), Config{APIURL: server.URL}); err == nil {
		t.Fatal("expected an error for a 401 with no challenge")
	}
}

func TestDiscover(t *testing.T) {
	server, reg := mock.Server(mock.NewMockParams(mock.BEARER, mock.HTTP))
	defer server.Close()
	reg.AddImage("x", "latest", []byte("a"))

	cfg, err := Discover(context.Background(), Config{APIURL: server.URL, Service: "wrong"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TokenURL != mock.TokenURL(server) || cfg.Service != mock.Service {
		t.Fatalf("unexpected discovered config %+v", cfg)
	}
	c, _ := New(cfg)
	token, err := c.Authenticate(context.Background(), "repository", "x", "pull")
	if err != nil {
		t.Fatal(err)
	}
	c.SetToken(token)
	if _, err := c.FetchManifest(context.Background(), "x", "latest"); err != nil {
		t.Fatal(err)
	}

	open, _ := mock.Server(mock.NewMockParams(mock.NONE, mock.HTTP))
	defer open.Close()
	cfg, err = Discover(context.Background(), Config{APIURL: open.URL})
	if err != nil || cfg.TokenURL != "" {
		t.Fatalf("anonymous registry must need no token: %+v %v", cfg, err)
	}
}
