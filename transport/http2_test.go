package transport

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
)

// writeTestKeyPair generates a self-signed cert/key pair under dir and
// returns the cert and key file paths, for use as both the client
// certificate and the CA since Build only cares that the files parse.
func writeTestKeyPair(t *testing.T, dir, prefix string) (certPath, keyPath string) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "transport-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)

	certPath = filepath.Join(dir, prefix+"-cert.pem")
	keyPath = filepath.Join(dir, prefix+"-key.pem")
	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certPath, keyPath
}

func TestBuildRequiresAllThreePaths(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeTestKeyPair(t, dir, "client")

	_, err := Build(Config{KeyPath: keyPath, CAPath: certPath})
	assert.ErrorContains(t, err, "certPath")

	_, err = Build(Config{CertPath: certPath, CAPath: certPath})
	assert.ErrorContains(t, err, "keyPath")

	_, err = Build(Config{CertPath: certPath, KeyPath: keyPath})
	assert.ErrorContains(t, err, "caPath")
}

func TestBuildUsesCAPathAsConfiguredWithoutOverride(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeTestKeyPair(t, dir, "client")
	// A distinct CA file at a caller-chosen path; Build must read exactly
	// this file rather than silently preferring some other well-known path.
	caPath, _ := writeTestKeyPair(t, dir, "ca")

	client, err := Build(Config{CertPath: certPath, KeyPath: keyPath, CAPath: caPath})
	require.NoError(t, err)
	require.NotNil(t, client)

	transport, ok := client.Transport.(*http2.Transport)
	require.True(t, ok)
	require.NotNil(t, transport.TLSClientConfig)
	assert.NotNil(t, transport.TLSClientConfig.RootCAs, "RootCAs must be populated from the configured CAPath")
}

func TestBuildFailsOnUnreadableCAPath(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeTestKeyPair(t, dir, "client")

	_, err := Build(Config{CertPath: certPath, KeyPath: keyPath, CAPath: filepath.Join(dir, "does-not-exist.pem")})
	assert.ErrorContains(t, err, "CA certificate")
}

func TestBuildDefaultsKeepAlivesDisabled(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeTestKeyPair(t, dir, "client")

	client, err := Build(Config{CertPath: certPath, KeyPath: keyPath, CAPath: certPath})
	require.NoError(t, err)
	transport := client.Transport.(*http2.Transport)
	assert.True(t, transport.DisableKeepAlives)
}

func TestBuildHonorsExplicitKeepAlivesOverride(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeTestKeyPair(t, dir, "client")
	enabled := false

	client, err := Build(Config{CertPath: certPath, KeyPath: keyPath, CAPath: certPath, DisableKeepAlives: &enabled})
	require.NoError(t, err)
	transport := client.Transport.(*http2.Transport)
	assert.False(t, transport.DisableKeepAlives)
}
