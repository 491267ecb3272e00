package transport

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
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
)

func writeSelfSignedCert(t *testing.T, dir string) (certPath, keyPath string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "ven-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)

	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")

	certOut, err := os.Create(certPath)
	require.NoError(t, err)
	require.NoError(t, pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: der}))
	require.NoError(t, certOut.Close())

	keyOut, err := os.Create(keyPath)
	require.NoError(t, err)
	require.NoError(t, pem.Encode(keyOut, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)}))
	require.NoError(t, keyOut.Close())

	return certPath, keyPath
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
}

func TestLoadClientCertificate_RejectsPassphrase(t *testing.T) {
	_, err := loadClientCertificate("cert.pem", "key.pem", "secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encrypted private keys are not supported")
}

func TestLoadClientCertificate_MissingFileReturnsError(t *testing.T) {
	_, err := loadClientCertificate("/nonexistent/cert.pem", "/nonexistent/key.pem", "")
	require.Error(t, err)
}

func TestBuildTLSConfig_LoadsCertAndCA(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeSelfSignedCert(t, dir)

	tlsCfg, err := buildTLSConfig(Config{
		CertPath:      certPath,
		KeyPath:       keyPath,
		CAFile:        certPath,
		CheckHostname: true,
	})
	require.NoError(t, err)
	require.Len(t, tlsCfg.Certificates, 1)
	assert.False(t, tlsCfg.InsecureSkipVerify)
}

func TestBuildTLSConfig_CheckHostnameFalseSetsInsecureSkipVerify(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeSelfSignedCert(t, dir)

	tlsCfg, err := buildTLSConfig(Config{
		CertPath:      certPath,
		KeyPath:       keyPath,
		CheckHostname: false,
	})
	require.NoError(t, err)
	assert.True(t, tlsCfg.InsecureSkipVerify)
}

func TestBuildTLSConfig_MissingCAFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeSelfSignedCert(t, dir)

	_, err := buildTLSConfig(Config{
		CertPath: certPath,
		KeyPath:  keyPath,
		CAFile:   "/nonexistent/ca.pem",
	})
	require.Error(t, err)
}

func TestNew_WithoutCertPathSkipsTLS(t *testing.T) {
	tp, err := New(Config{})
	require.NoError(t, err)
	require.NotNil(t, tp)
}

func TestNew_WithCertPathConfiguresTLS(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeSelfSignedCert(t, dir)

	tp, err := New(Config{CertPath: certPath, KeyPath: keyPath, CAFile: certPath, CheckHostname: true})
	require.NoError(t, err)
	require.NotNil(t, tp)
}

func TestPost_BlocksPrivateAddressesBySSRFProtection(t *testing.T) {
	tp, err := New(Config{})
	require.NoError(t, err)

	_, _, err = tp.Post(context.Background(), "http://127.0.0.1:1/OpenADR2/Simple/2.0b", []byte("x"))
	require.Error(t, err)
}
