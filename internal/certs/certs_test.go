package certs

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteFilesAndLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")

	if err := WriteFiles(certFile, keyFile, false, Options{Hosts: []string{"fixtures.test", "127.0.0.1"}}); err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}

	cfg, info, err := Load(certFile, keyFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Fatalf("expected 1 certificate, got %d", len(cfg.Certificates))
	}
	if len(info.DNSNames) != 1 || info.DNSNames[0] != "fixtures.test" {
		t.Errorf("DNSNames = %v, want [fixtures.test]", info.DNSNames)
	}
	if info.Expired(time.Now()) {
		t.Errorf("fresh certificate reported expired, not_after %v", info.NotAfter)
	}

	keyStat, err := os.Stat(keyFile)
	if err != nil {
		t.Fatal(err)
	}
	if perm := keyStat.Mode().Perm(); perm != 0600 {
		t.Errorf("key file mode = %o, want 600", perm)
	}
}

func TestWriteFilesRefusesOverwrite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")

	if err := os.WriteFile(certFile, []byte("keep me"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := WriteFiles(certFile, keyFile, false, Options{}); err == nil {
		t.Fatal("expected error when cert exists")
	}
	data, _ := os.ReadFile(certFile)
	if string(data) != "keep me" {
		t.Errorf("existing cert was modified: %q", data)
	}

	if err := WriteFiles(certFile, keyFile, true, Options{}); err != nil {
		t.Fatalf("WriteFiles with overwrite: %v", err)
	}
	if _, _, err := Load(certFile, keyFile); err != nil {
		t.Errorf("Load after overwrite: %v", err)
	}
}

func TestLoadMissingFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")

	if _, _, err := Load(certFile, keyFile); err == nil {
		t.Fatal("expected error for missing cert and key")
	}

	if err := WriteFiles(certFile, keyFile, false, Options{}); err != nil {
		t.Fatal(err)
	}
	os.Remove(keyFile)
	if _, _, err := Load(certFile, keyFile); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestLoadMismatchedPair(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	if err := WriteFiles(a+".cert", a+".key", false, Options{}); err != nil {
		t.Fatal(err)
	}
	if err := WriteFiles(b+".cert", b+".key", false, Options{}); err != nil {
		t.Fatal(err)
	}

	if _, _, err := Load(a+".cert", b+".key"); err == nil {
		t.Fatal("expected error for mismatched cert and key")
	}
}

func TestGenerateHostsAndValidity(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	certPEM, _, err := Generate(Options{
		ValidFor: 48 * time.Hour,
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	cert := parsePEM(t, certPEM)
	if len(cert.DNSNames) != 1 || cert.DNSNames[0] != "localhost" {
		t.Errorf("DNSNames = %v, want [localhost]", cert.DNSNames)
	}
	if len(cert.IPAddresses) != 2 {
		t.Errorf("expected 2 IP SANs, got %v", cert.IPAddresses)
	}
	if got := cert.NotAfter.Sub(cert.NotBefore); got != 48*time.Hour {
		t.Errorf("validity = %v, want 48h", got)
	}
	if !cert.NotBefore.Before(now) {
		t.Errorf("NotBefore %v not before %v", cert.NotBefore, now)
	}
}

func TestVersionName(t *testing.T) {
	t.Parallel()
	if got := VersionName(0x0304); got != "TLS 1.3" {
		t.Errorf("VersionName(0x0304) = %q, want %q", got, "TLS 1.3")
	}
	if got := VersionName(0); got != "TLS" {
		t.Errorf("VersionName(0) = %q, want %q", got, "TLS")
	}
}

func parsePEM(t *testing.T, data []byte) *x509.Certificate {
	t.Helper()
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		t.Fatal("no CERTIFICATE block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatal(err)
	}
	return cert
}
