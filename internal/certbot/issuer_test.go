package certbot

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gondar-software/domain-manager/internal/system"
)

func writeCertificate(t *testing.T, dir, name string, dnsNames []string, notAfter time.Time) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: dnsNames[0]},
		DNSNames:     dnsNames,
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	live := filepath.Join(dir, "live", name)
	require.NoError(t, os.MkdirAll(live, 0755))
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	require.NoError(t, os.WriteFile(filepath.Join(live, "fullchain.pem"), data, 0644))
}

func newTestIssuer(t *testing.T, policy ReissuePolicy) (*Issuer, *system.RecordingRunner, string) {
	t.Helper()
	dir := t.TempDir()
	runner := system.NewRecordingRunner()
	issuer := NewIssuer(Config{
		LetsEncryptDir: dir,
		Email:          "ops@example.com",
		Policy:         policy,
		RenewBefore:    30 * 24 * time.Hour,
	}, runner)
	return issuer, runner, dir
}

func TestIssueRunsCertbot(t *testing.T) {
	issuer, runner, _ := newTestIssuer(t, ReissueIfMissing)

	require.NoError(t, issuer.Issue(context.Background(), "blog.example.com"))
	require.Len(t, runner.Calls, 2)
	assert.Equal(t, "fuser -k 80/tcp", runner.Calls[0])
	assert.Equal(t, "certbot certonly --standalone -d blog.example.com -d www.blog.example.com "+
		"--non-interactive --agree-tos --expand --force-renewal --email ops@example.com", runner.Calls[1])
}

func TestIssueIgnoresFuserFailure(t *testing.T) {
	issuer, runner, _ := newTestIssuer(t, ReissueIfMissing)
	runner.On("fuser", nil, errors.New("exit 1"))

	require.NoError(t, issuer.Issue(context.Background(), "blog.example.com"))
	assert.True(t, runner.Called("certbot certonly"))
}

func TestIssueFailure(t *testing.T) {
	issuer, runner, _ := newTestIssuer(t, ReissueIfMissing)
	runner.On("certbot certonly", nil, errors.New("too many requests"))

	err := issuer.Issue(context.Background(), "blog.example.com")
	require.ErrorIs(t, err, ErrCertbotFailed)
	assert.Contains(t, err.Error(), "too many requests")
}

func TestReissuePolicies(t *testing.T) {
	name := "blog.example.com"
	both := []string{name, "www." + name}
	farFuture := time.Now().Add(90 * 24 * time.Hour)

	tests := []struct {
		name     string
		policy   ReissuePolicy
		setup    func(t *testing.T, dir string)
		wantCall bool
	}{
		{"missing cert is issued", ReissueIfMissing, func(*testing.T, string) {}, true},
		{"if-missing trusts expired cert", ReissueIfMissing, func(t *testing.T, dir string) {
			writeCertificate(t, dir, name, both, time.Now().Add(-time.Hour))
		}, false},
		{"if-expiring keeps valid cert", ReissueIfExpiring, func(t *testing.T, dir string) {
			writeCertificate(t, dir, name, both, farFuture)
		}, false},
		{"if-expiring renews soon-expiring cert", ReissueIfExpiring, func(t *testing.T, dir string) {
			writeCertificate(t, dir, name, both, time.Now().Add(24*time.Hour))
		}, true},
		{"if-expiring renews wrong-SAN cert", ReissueIfExpiring, func(t *testing.T, dir string) {
			writeCertificate(t, dir, name, []string{name}, farFuture)
		}, true},
		{"if-expiring renews garbage", ReissueIfExpiring, func(t *testing.T, dir string) {
			live := filepath.Join(dir, "live", name)
			require.NoError(t, os.MkdirAll(live, 0755))
			require.NoError(t, os.WriteFile(filepath.Join(live, "fullchain.pem"), []byte("junk"), 0644))
		}, true},
		{"always reissues", ReissueAlways, func(t *testing.T, dir string) {
			writeCertificate(t, dir, name, both, farFuture)
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuer, runner, dir := newTestIssuer(t, tt.policy)
			tt.setup(t, dir)

			require.NoError(t, issuer.Issue(context.Background(), name))
			assert.Equal(t, tt.wantCall, runner.Called("certbot certonly"))
		})
	}
}

func TestRevokeWithoutMaterialIsNoOp(t *testing.T) {
	issuer, runner, _ := newTestIssuer(t, ReissueIfMissing)

	require.NoError(t, issuer.Revoke(context.Background(), "ghost.example.com"))
	assert.Empty(t, runner.Calls)
}

func TestRevokeFallsBackToRemovingFiles(t *testing.T) {
	issuer, runner, dir := newTestIssuer(t, ReissueIfMissing)
	writeCertificate(t, dir, "blog.example.com", []string{"blog.example.com"}, time.Now().Add(time.Hour))
	runner.On("certbot delete", nil, errors.New("no such cert"))

	require.NoError(t, issuer.Revoke(context.Background(), "blog.example.com"))
	require.Len(t, runner.Calls, 2)
	assert.Equal(t, "certbot delete --cert-name blog.example.com --non-interactive", runner.Calls[0])
	assert.True(t, strings.HasPrefix(runner.Calls[1], "rm -rf "+filepath.Join(dir, "live", "blog.example.com")))
}

func TestRevokeReportsDoubleFailure(t *testing.T) {
	issuer, runner, dir := newTestIssuer(t, ReissueIfMissing)
	writeCertificate(t, dir, "blog.example.com", []string{"blog.example.com"}, time.Now().Add(time.Hour))
	runner.On("certbot delete", nil, errors.New("no such cert"))
	runner.On("rm", nil, errors.New("permission denied"))

	assert.ErrorIs(t, issuer.Revoke(context.Background(), "blog.example.com"), ErrCertbotFailed)
}
