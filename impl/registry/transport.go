package registry

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"

	"github.com/google/go-containerregistry/pkg/v1/remote"
)

// TLSConfig holds TLS configuration for registry access. All file values are
// paths to PEM files.
type TLSConfig struct {
	CA                 string `yaml:"ca"`
	Cert               string `yaml:"cert"`
	Key                string `yaml:"key"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
}

// newTransport clones the go-containerregistry default transport (which has sane
// timeouts and proxy support) and applies the passed TLS configuration to it.
func newTransport(cfg TLSConfig) (http.RoundTripper, error) {
	transport := remote.DefaultTransport.(*http.Transport).Clone()
	if cfg == (TLSConfig{}) {
		return transport, nil
	}
	var cp *x509.CertPool
	if cfg.CA != "" {
		caCert, err := os.ReadFile(cfg.CA)
		if err != nil {
			return nil, fmt.Errorf("unable to load CA from file %s: %w", cfg.CA, err)
		}
		cp = x509.NewCertPool()
		if !cp.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates found in CA file %s", cfg.CA)
		}
	}
	var clientCerts []tls.Certificate
	if cfg.Cert != "" || cfg.Key != "" {
		cert, err := tls.LoadX509KeyPair(cfg.Cert, cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("unable to load client cert and/or key from files: cert: %s, key: %s: %w", cfg.Cert, cfg.Key, err)
		}
		clientCerts = []tls.Certificate{cert}
	}
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		RootCAs:            cp,
		Certificates:       clientCerts,
	}
	return transport, nil
}
