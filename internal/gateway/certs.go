// Package gateway assembles the HTTP(S) listener around the dav router
// (spec §5, §6), generalizing the teacher's internal/server.Server
// Start/Shutdown lifecycle.
package gateway

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"time"
)

// certCommonName is the hostname spec §6 self-signed certs are issued for.
const certCommonName = "local.webdav.filen.io"

// certValidity and certRegenAfter mirror spec §6: a cert is valid for one
// year and regenerated once it is 360 days old, so a long-lived server
// never serves an expired leaf.
const (
	certValidity   = 365 * 24 * time.Hour
	certRegenAfter = 360 * 24 * time.Hour
)

// certPaths are grounded on the teacher's platform-config layout
// (os.UserConfigDir()/@filen/webdav); no third-party certificate-generation
// library appears anywhere in the example pack, so this stays on
// crypto/tls + crypto/x509 (documented in DESIGN.md as a stdlib exception).
type certPaths struct {
	cert string
	key  string
}

func defaultCertPaths(configDir string) certPaths {
	return certPaths{
		cert: filepath.Join(configDir, "cert"),
		key:  filepath.Join(configDir, "privateKey"),
	}
}

// loadOrGenerateCert returns a tls.Certificate for configDir, reusing a
// cached pair when it exists and is younger than certRegenAfter, and
// otherwise minting a fresh self-signed RSA-2048/SHA-256 certificate
// (spec §6 "HTTPS").
func loadOrGenerateCert(configDir string) (tls.Certificate, error) {
	paths := defaultCertPaths(configDir)

	if cert, ok := tryLoadCached(paths); ok {
		return cert, nil
	}

	certPEM, keyPEM, err := generateSelfSigned()
	if err != nil {
		return tls.Certificate{}, err
	}

	if err := os.MkdirAll(configDir, 0o700); err == nil {
		_ = os.WriteFile(paths.cert, certPEM, 0o600)
		_ = os.WriteFile(paths.key, keyPEM, 0o600)
	}

	return tls.X509KeyPair(certPEM, keyPEM)
}

func tryLoadCached(paths certPaths) (tls.Certificate, bool) {
	certPEM, err := os.ReadFile(paths.cert)
	if err != nil {
		return tls.Certificate{}, false
	}
	keyPEM, err := os.ReadFile(paths.key)
	if err != nil {
		return tls.Certificate{}, false
	}

	block, _ := pem.Decode(certPEM)
	if block == nil {
		return tls.Certificate{}, false
	}
	leaf, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return tls.Certificate{}, false
	}
	if time.Since(leaf.NotBefore) > certRegenAfter {
		return tls.Certificate{}, false
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, false
	}
	return cert, true
}

func generateSelfSigned() (certPEM, keyPEM []byte, err error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, err
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: certCommonName},
		DNSNames:     []string{certCommonName, "localhost"},
		NotBefore:    now,
		NotAfter:     now.Add(certValidity),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return nil, nil, err
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})
	return certPEM, keyPEM, nil
}
