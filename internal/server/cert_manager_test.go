package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"resumeforge/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSelfSigned writes a self-signed certificate and key into dir and returns their paths
func writeSelfSigned(t *testing.T, dir string, serial int64) (certFile, keyFile string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(serial),
		Subject:               pkix.Name{CommonName: "localhost"},
		DNSNames:              []string{"localhost"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(48 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IsCA:                  true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile = filepath.Join(dir, "server.crt")
	keyFile = filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}

func currentSerial(t *testing.T, cm *CertificateManager) int64 {
	t.Helper()
	cert, err := cm.GetCertificate(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	require.NotNil(t, cert.Leaf)
	return cert.Leaf.SerialNumber.Int64()
}

func TestCertificateManagerLoadsAndReports(t *testing.T) {
	certFile, keyFile := writeSelfSigned(t, t.TempDir(), 1)

	cm, err := NewCertificateManager(config.TLSConfig{Mode: "server", CertFile: certFile, KeyFile: keyFile}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), currentSerial(t, cm))

	status := cm.Status()
	assert.Equal(t, true, status["healthy"])
	assert.Equal(t, false, status["auto_reload"])
	assert.NotContains(t, status, "last_reload_time")
}

func TestCertificateManagerRejectsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := NewCertificateManager(config.TLSConfig{
		Mode:     "server",
		CertFile: filepath.Join(dir, "missing.crt"),
		KeyFile:  filepath.Join(dir, "missing.key"),
	}, nil, nil)
	assert.Error(t, err)
}

func TestCertificateManagerMutualRequiresCA(t *testing.T) {
	certFile, keyFile := writeSelfSigned(t, t.TempDir(), 1)

	_, err := NewCertificateManager(config.TLSConfig{Mode: "mutual", CertFile: certFile, KeyFile: keyFile}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CA certificate is required")

	cm, err := NewCertificateManager(config.TLSConfig{
		Mode: "mutual", CertFile: certFile, KeyFile: keyFile, CAFile: certFile,
	}, nil, nil)
	require.NoError(t, err)

	base := &tls.Config{ClientAuth: tls.RequireAndVerifyClientCert}
	perClient, err := cm.GetConfigForClient(base)(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	assert.NotNil(t, perClient.ClientCAs)
	assert.Nil(t, perClient.GetConfigForClient)
}

func TestCertificateManagerReloadKeepsOldCertOnFailure(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, 1)

	cm, err := NewCertificateManager(config.TLSConfig{Mode: "server", CertFile: certFile, KeyFile: keyFile}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(keyFile, []byte("not a key"), 0o600))
	assert.Error(t, cm.Reload())
	assert.Equal(t, int64(1), currentSerial(t, cm))

	status := cm.Status()
	assert.Equal(t, 1, status["reload_failure_count"])
	assert.Equal(t, false, status["last_reload_success"])
	assert.Contains(t, status, "last_reload_error")

	writeSelfSigned(t, dir, 2)
	require.NoError(t, cm.Reload())
	assert.Equal(t, int64(2), currentSerial(t, cm))

	status = cm.Status()
	assert.Equal(t, 1, status["reload_success_count"])
	assert.Equal(t, true, status["last_reload_success"])
	assert.NotContains(t, status, "last_reload_error")
}

func TestCertificateManagerReloadsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, 1)

	cm, err := NewCertificateManager(config.TLSConfig{
		Mode:       "server",
		CertFile:   certFile,
		KeyFile:    keyFile,
		AutoReload: config.AutoReloadConfig{Enabled: true, DebounceDelay: 50 * time.Millisecond},
	}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, cm.Start())
	t.Cleanup(func() { _ = cm.Stop() })

	assert.Equal(t, true, cm.Status()["auto_reload"])

	writeSelfSigned(t, dir, 2)
	assert.Eventually(t, func() bool {
		cert, err := cm.GetCertificate(&tls.ClientHelloInfo{})
		return err == nil && cert.Leaf.SerialNumber.Int64() == 2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestCertWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "server.crt")
	require.NoError(t, os.WriteFile(watched, []byte("v0"), 0o600))

	calls := make(chan struct{}, 10)
	cw := NewCertWatcher([]string{watched, ""}, 100*time.Millisecond, func() { calls <- struct{}{} }, nil)
	require.NoError(t, cw.Start())
	t.Cleanup(func() { _ = cw.Stop() })
	assert.Error(t, cw.Start())

	// Files outside the watched set are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600))

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(watched, []byte{byte('a' + i)}, 0o600))
	}

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a change notification")
	}
	select {
	case <-calls:
		t.Fatal("burst should produce a single notification")
	case <-time.After(300 * time.Millisecond):
	}

	require.NoError(t, cw.Stop())
	assert.False(t, cw.IsRunning())
	assert.NoError(t, cw.Stop())
}
