// Package certs loads the TLS key pair for the encrypted listener and can
// generate a self-signed pair for local testing.
package certs

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"
)

// Info summarizes the leaf certificate of a loaded key pair.
type Info struct {
	Subject  string    `json:"subject"`
	Issuer   string    `json:"issuer"`
	DNSNames []string  `json:"dns_names,omitempty"`
	NotAfter time.Time `json:"not_after"`
}

// Expired reports whether the certificate is outside its validity window at t.
func (i Info) Expired(t time.Time) bool {
	return t.After(i.NotAfter)
}

// Load reads a PEM certificate and private key and returns a server TLS config
// serving that pair, along with a summary of the leaf certificate.
func Load(certFile, keyFile string) (*tls.Config, *Info, error) {
	pair, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading key pair %s, %s: %w", certFile, keyFile, err)
	}

	leaf := pair.Leaf
	if leaf == nil {
		leaf, err = x509.ParseCertificate(pair.Certificate[0])
		if err != nil {
			return nil, nil, fmt.Errorf("parsing certificate %s: %w", certFile, err)
		}
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS12,
	}
	return cfg, describe(leaf), nil
}

func describe(cert *x509.Certificate) *Info {
	return &Info{
		Subject:  cert.Subject.String(),
		Issuer:   cert.Issuer.String(),
		DNSNames: cert.DNSNames,
		NotAfter: cert.NotAfter,
	}
}

// VersionName returns a human-readable TLS version string.
func VersionName(version uint16) string {
	switch version {
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return "TLS"
	}
}
