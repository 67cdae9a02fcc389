package mock

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// CertSetup has a throwaway CA and a server certificate signed by it, so that the
// mock registry can serve HTTPS and the client can be configured to trust it.
type CertSetup struct {
	// CaPEM is the CA certificate in PEM form
	CaPEM *bytes.Buffer
	// ServerCert is the server certificate
	ServerCert tls.Certificate
}

// CaToFile serializes the CA certificate in the receiver to a file named 'fileName'
// in the passed 'dir' and returns the full path.
func (cs CertSetup) CaToFile(dir, fileName string) (string, error) {
	p := filepath.Join(dir, fileName)
	return p, os.WriteFile(p, cs.CaPEM.Bytes(), 0644)
}

// TlsConfig returns a server TLS configuration presenting the server cert
func (cs CertSetup) TlsConfig() *tls.Config {
	return &tls.Config{Certificates: []tls.Certificate{cs.ServerCert}}
}

// NewCertSetup was adapted from https://gist.github.com/shaneutt/5e1995295cff6721c89a71d13a71c251
// It returns a fully-populated 'CertSetup' struct, or an error.
func NewCertSetup() (CertSetup, error) {
	ca := newX509("root", true)
	caPrivKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return CertSetup{}, err
	}
	caBytes, err := x509.CreateCertificate(rand.Reader, &ca, &ca, &caPrivKey.PublicKey, caPrivKey)
	if err != nil {
		return CertSetup{}, err
	}
	caPEM := new(bytes.Buffer)
	pem.Encode(caPEM, &pem.Block{Type: "CERTIFICATE", Bytes: caBytes})

	server := newX509("server", false)
	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return CertSetup{}, err
	}
	certBytes, err := x509.CreateCertificate(rand.Reader, &server, &ca, &pk.PublicKey, caPrivKey)
	if err != nil {
		return CertSetup{}, err
	}
	certPEM := new(bytes.Buffer)
	pem.Encode(certPEM, &pem.Block{Type: "CERTIFICATE", Bytes: certBytes})
	keyPEM := new(bytes.Buffer)
	pem.Encode(keyPEM, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(pk)})
	cert, err := tls.X509KeyPair(certPEM.Bytes(), keyPEM.Bytes())
	if err != nil {
		return CertSetup{}, err
	}
	return CertSetup{CaPEM: caPEM, ServerCert: cert}, nil
}

// newX509 returns a new x509 cert with the passed common name valid for the
// loopback addresses. If isCA is true then a CA cert is generated.
func newX509(cn string, isCA bool) x509.Certificate {
	keyUsage := x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment
	serial := int64(2020)
	if isCA {
		keyUsage |= x509.KeyUsageCertSign
		serial = 2019
	}
	return x509.Certificate{
		SerialNumber:          big.NewInt(serial),
		Subject:               pkix.Name{CommonName: cn},
		IsCA:                  isCA,
		BasicConstraintsValid: true,
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().AddDate(10, 0, 0),
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		KeyUsage:              keyUsage,
	}
}
