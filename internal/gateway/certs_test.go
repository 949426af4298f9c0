package gateway

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateSelfSignedProducesValidLeaf(t *testing.T) {
	certPEM, keyPEM, err := generateSelfSigned()
	if err != nil {
		t.Fatalf("generateSelfSigned: %v", err)
	}

	block, _ := pem.Decode(certPEM)
	if block == nil {
		t.Fatal("expected a decodable PEM cert block")
	}
	leaf, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}
	if leaf.Subject.CommonName != certCommonName {
		t.Errorf("CommonName = %q, want %q", leaf.Subject.CommonName, certCommonName)
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		t.Fatal("expected a decodable PEM key block")
	}
}

func TestLoadOrGenerateCertCachesOnDisk(t *testing.T) {
	dir := t.TempDir()

	cert1, err := loadOrGenerateCert(dir)
	if err != nil {
		t.Fatalf("loadOrGenerateCert: %v", err)
	}

	paths := defaultCertPaths(dir)
	if !fileExists(paths.cert) || !fileExists(paths.key) {
		t.Fatal("expected cert and key to be persisted under configDir")
	}

	cert2, err := loadOrGenerateCert(dir)
	if err != nil {
		t.Fatalf("second loadOrGenerateCert: %v", err)
	}
	if string(cert1.Certificate[0]) != string(cert2.Certificate[0]) {
		t.Error("expected the second call to reuse the cached certificate instead of minting a new one")
	}
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func TestDefaultCertPathsUnderConfigDir(t *testing.T) {
	paths := defaultCertPaths("/etc/webdav")
	if paths.cert != filepath.Join("/etc/webdav", "cert") {
		t.Errorf("cert path = %q", paths.cert)
	}
	if paths.key != filepath.Join("/etc/webdav", "privateKey") {
		t.Errorf("key path = %q", paths.key)
	}
}
