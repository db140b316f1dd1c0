package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gondar-software/domain-manager/internal/models"
	"github.com/gondar-software/domain-manager/internal/nginx"
)

type fakeDNS struct {
	mu        sync.Mutex
	added     []string
	removed   []string
	addErr    error
	removeErr error
	addHook   func()
}

func (f *fakeDNS) AddRecords(_ context.Context, fqdn string) error {
	if f.addHook != nil {
		f.addHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, fqdn)
	return f.addErr
}

func (f *fakeDNS) RemoveRecords(_ context.Context, fqdn string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, fqdn)
	return f.removeErr
}

type fakeIssuer struct {
	mu        sync.Mutex
	issued    []string
	revoked   []string
	issueErr  error
	revokeErr error
}

func (f *fakeIssuer) Issue(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued = append(f.issued, name)
	return f.issueErr
}

func (f *fakeIssuer) Revoke(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, name)
	return f.revokeErr
}

// removeFailingStore wraps a real store and fails every Remove.
type removeFailingStore struct {
	ConfigStore
	removeErr error
}

func (s *removeFailingStore) Remove(context.Context, string) (bool, error) {
	return false, s.removeErr
}

func newTestStore(t *testing.T) *nginx.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nginx.conf")
	require.NoError(t, os.WriteFile(path, []byte(nginx.DefaultConfig), 0o644))
	return nginx.NewStore(nginx.StoreConfig{Path: path, Codec: nginx.NewCodec("/etc/letsencrypt")})
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, subject, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, subject+": "+message)
	return nil
}

func startProvisioner(t *testing.T, p *Provisioner) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func newTestProvisioner(t *testing.T, dns DNSManager, certs CertificateIssuer, store ConfigStore, notifier Notifier) *Provisioner {
	t.Helper()
	p := NewProvisioner(ProvisionerConfig{
		RootDomain:       "example.com",
		OperationTimeout: 5 * time.Second,
	}, dns, certs, store, notifier)
	startProvisioner(t, p)
	return p
}

var blogHosts = []models.Host{
	{Type: models.HostTypeDefault, Path: "/", Target: "http://127.0.0.1:3000"},
	{Type: models.HostTypeWebSocket, Path: "/ws", Target: "http://127.0.0.1:3001"},
}

func TestProvisionerAdd(t *testing.T) {
	dns, certs, store := &fakeDNS{}, &fakeIssuer{}, newTestStore(t)
	p := newTestProvisioner(t, dns, certs, store, nil)

	op, err := p.Add(context.Background(), "blog", blogHosts)
	require.NoError(t, err)

	assert.Equal(t, "blog.example.com", op.Domain)
	assert.Equal(t, StateCommitted, op.State)
	assert.True(t, op.Visited(StateDNSDone))
	assert.True(t, op.Visited(StateCertDone))
	assert.True(t, op.Visited(StateConfigDone))
	assert.NotEmpty(t, op.ID)
	assert.False(t, op.FinishedAt.IsZero())

	assert.Equal(t, []string{"blog.example.com"}, dns.added)
	assert.Equal(t, []string{"blog.example.com"}, certs.issued)

	d, err := p.Get(context.Background(), "blog")
	require.NoError(t, err)
	assert.Equal(t, blogHosts, d.Hosts)

	summary, err := p.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalDomains)
	assert.Contains(t, summary.Domains, "blog.example.com")
}

func TestProvisionerAddValidation(t *testing.T) {
	p := newTestProvisioner(t, &fakeDNS{}, &fakeIssuer{}, newTestStore(t), nil)

	tests := []struct {
		name  string
		dname string
		hosts []models.Host
	}{
		{"empty name", "", blogHosts},
		{"bad label", "bad_label!", blogHosts},
		{"www label", "www", blogHosts},
		{"www prefixed", "www.shop", blogHosts},
		{"www prefixed fqdn", "www.shop.example.com", blogHosts},
		{"no hosts", "blog", nil},
		{"reserved path", "blog", []models.Host{{Type: models.HostTypeDefault, Path: "/a;b", Target: "http://127.0.0.1:1"}}},
		{"ftp target", "blog", []models.Host{{Type: models.HostTypeDefault, Path: "/", Target: "ftp://127.0.0.1"}}},
		{"duplicate path", "blog", []models.Host{
			{Type: models.HostTypeDefault, Path: "/", Target: "http://127.0.0.1:1"},
			{Type: models.HostTypeDefault, Path: "/", Target: "http://127.0.0.1:2"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Add(context.Background(), tt.dname, tt.hosts)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestProvisionerAddRollsBackOnDNSFailure(t *testing.T) {
	dns := &fakeDNS{addErr: errors.New("provider rejected record")}
	certs := &fakeIssuer{}
	store := newTestStore(t)
	p := newTestProvisioner(t, dns, certs, store, nil)

	op, err := p.Add(context.Background(), "blog", blogHosts)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvisionFailed)
	assert.NotErrorIs(t, err, ErrManualIntervention)

	assert.Equal(t, StateRolledBack, op.State)
	assert.False(t, op.Visited(StateDNSDone))
	assert.True(t, op.Visited(StateRollingBack))
	require.NotEmpty(t, op.History)
	assert.Equal(t, StateIdle, op.History[0].From)
	assert.Equal(t, StateRollingBack, op.History[0].To)

	assert.Empty(t, certs.issued)
	assert.Equal(t, []string{"blog.example.com"}, dns.removed)
	assert.Equal(t, []string{"blog.example.com"}, certs.revoked)

	var steps []string
	for _, s := range op.Steps {
		steps = append(steps, s.Name)
	}
	assert.Equal(t, []string{"dns", "dns-remove", "certificate-remove", "config-remove"}, steps)

	text, err := store.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, nginx.DefaultConfig, text)
}

func TestProvisionerAddRollsBackOnCertificateFailure(t *testing.T) {
	dns := &fakeDNS{}
	certs := &fakeIssuer{issueErr: errors.New("challenge failed")}
	store := newTestStore(t)
	p := newTestProvisioner(t, dns, certs, store, nil)

	op, err := p.Add(context.Background(), "blog", blogHosts)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvisionFailed)
	assert.NotErrorIs(t, err, ErrManualIntervention)

	assert.Equal(t, StateRolledBack, op.State)
	assert.True(t, op.Visited(StateDNSDone))
	assert.False(t, op.Visited(StateCertDone))
	assert.True(t, op.Visited(StateRollingBack))

	assert.Equal(t, []string{"blog.example.com"}, dns.removed)
	assert.Equal(t, []string{"blog.example.com"}, certs.revoked)

	domains, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, domains)
}

func TestProvisionerAddRollsBackOnConfigFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nginx.conf")
	// no insertion marker, so the config step fails
	require.NoError(t, os.WriteFile(path, []byte("http {\n}\n"), 0o644))
	store := nginx.NewStore(nginx.StoreConfig{Path: path})

	dns, certs := &fakeDNS{}, &fakeIssuer{}
	p := newTestProvisioner(t, dns, certs, store, nil)

	op, err := p.Add(context.Background(), "blog", blogHosts)
	require.Error(t, err)
	assert.ErrorIs(t, err, nginx.ErrMarkerNotFound)
	assert.Equal(t, StateRolledBack, op.State)
	assert.True(t, op.Visited(StateCertDone))
	assert.Len(t, dns.removed, 1)
	assert.Len(t, certs.revoked, 1)
}

func TestProvisionerManualIntervention(t *testing.T) {
	dns := &fakeDNS{removeErr: errors.New("provider down")}
	certs := &fakeIssuer{issueErr: errors.New("challenge failed")}
	notifier := &recordingNotifier{}
	p := newTestProvisioner(t, dns, certs, newTestStore(t), notifier)

	op, err := p.Add(context.Background(), "blog", blogHosts)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrManualIntervention)
	assert.Equal(t, StateFailed, op.State)
	assert.Contains(t, op.Error, "provider down")
	assert.Contains(t, op.Error, "challenge failed")

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "blog.example.com")
}

func TestProvisionerRemove(t *testing.T) {
	dns, certs, store := &fakeDNS{}, &fakeIssuer{}, newTestStore(t)
	p := newTestProvisioner(t, dns, certs, store, nil)

	_, err := p.Add(context.Background(), "blog", blogHosts)
	require.NoError(t, err)

	op, err := p.Remove(context.Background(), "blog.example.com")
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, op.State)
	assert.Equal(t, []string{"blog.example.com"}, dns.removed)
	assert.Equal(t, []string{"blog.example.com"}, certs.revoked)

	_, err = p.Get(context.Background(), "blog")
	assert.ErrorIs(t, err, ErrNotFound)

	text, err := store.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, nginx.DefaultConfig, text)
}

func TestProvisionerRemoveReportsIncompleteTeardown(t *testing.T) {
	dns := &fakeDNS{removeErr: errors.New("provider down")}
	notifier := &recordingNotifier{}
	p := newTestProvisioner(t, dns, &fakeIssuer{}, newTestStore(t), notifier)

	op, err := p.Remove(context.Background(), "blog")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvisionFailed)
	assert.Equal(t, StateFailed, op.State)
	assert.Empty(t, notifier.messages)
}

func TestProvisionerCertificateRemovalIsBestEffort(t *testing.T) {
	certs := &fakeIssuer{revokeErr: errors.New("certbot missing")}
	p := newTestProvisioner(t, &fakeDNS{}, certs, newTestStore(t), nil)

	op, err := p.Remove(context.Background(), "blog")
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, op.State)

	var sawRevoke bool
	for _, s := range op.Steps {
		if s.Name == "certificate-remove" {
			sawRevoke = true
			assert.Equal(t, "certbot missing", s.Error)
		}
	}
	assert.True(t, sawRevoke)
}

func TestProvisionerUpdateReplacesLocations(t *testing.T) {
	dns, certs, store := &fakeDNS{}, &fakeIssuer{}, newTestStore(t)
	p := newTestProvisioner(t, dns, certs, store, nil)

	_, err := p.Add(context.Background(), "blog", blogHosts)
	require.NoError(t, err)

	replacement := []models.Host{{Type: models.HostTypeDefault, Path: "/api", Target: "http://127.0.0.1:9000"}}
	op, err := p.Update(context.Background(), "blog", replacement)
	require.NoError(t, err)
	assert.Equal(t, OperationUpdate, op.Kind)
	assert.Equal(t, StateCommitted, op.State)

	d, err := p.Get(context.Background(), "blog")
	require.NoError(t, err)
	assert.Equal(t, replacement, d.Hosts)

	text, err := store.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(text, "server_name blog.example.com www.blog.example.com;\n\n"))
	assert.NotContains(t, text, "127.0.0.1:3000")
}

func TestProvisionerUpdateRemovesOnFailure(t *testing.T) {
	dns, certs, store := &fakeDNS{}, &fakeIssuer{}, newTestStore(t)
	p := newTestProvisioner(t, dns, certs, store, nil)

	_, err := p.Add(context.Background(), "blog", blogHosts)
	require.NoError(t, err)

	certs.mu.Lock()
	certs.issueErr = errors.New("rate limited")
	certs.mu.Unlock()

	op, err := p.Update(context.Background(), "blog", blogHosts[:1])
	require.Error(t, err)
	assert.Equal(t, StateRolledBack, op.State)

	_, err = p.Get(context.Background(), "blog")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProvisionerReAddReplacesExisting(t *testing.T) {
	store := newTestStore(t)
	p := newTestProvisioner(t, &fakeDNS{}, &fakeIssuer{}, store, nil)

	_, err := p.Add(context.Background(), "blog", blogHosts)
	require.NoError(t, err)
	_, err = p.Add(context.Background(), "blog", blogHosts[:1])
	require.NoError(t, err)

	domains, err := p.List(context.Background())
	require.NoError(t, err)
	require.Len(t, domains, 1)
	assert.Len(t, domains[0].Hosts, 1)
}

func TestProvisionerSerializesOperations(t *testing.T) {
	var running, peak int32
	dns := &fakeDNS{addHook: func() {
		n := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&running, -1)
	}}
	p := newTestProvisioner(t, dns, &fakeIssuer{}, newTestStore(t), nil)

	names := []string{"a", "b", "c", "d", "e"}
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_, err := p.Add(context.Background(), name, blogHosts)
			assert.NoError(t, err)
		}(name)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))

	domains, err := p.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, domains, len(names))
}

func TestProvisionerConfigRemoveFailureDuringRollback(t *testing.T) {
	store := &removeFailingStore{ConfigStore: newTestStore(t), removeErr: nginx.ErrApplyFailed}
	certs := &fakeIssuer{issueErr: errors.New("challenge failed")}
	p := newTestProvisioner(t, &fakeDNS{}, certs, store, nil)

	op, err := p.Add(context.Background(), "blog", blogHosts)
	assert.ErrorIs(t, err, ErrManualIntervention)
	assert.ErrorIs(t, err, nginx.ErrApplyFailed)
	assert.Equal(t, StateFailed, op.State)
}

func TestProvisionerStopped(t *testing.T) {
	p := NewProvisioner(ProvisionerConfig{RootDomain: "example.com"}, &fakeDNS{}, &fakeIssuer{}, newTestStore(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)

	// the queue has room, but nothing will ever read it
	_, err := p.Add(context.Background(), "blog", blogHosts)
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestProvisionerCallerCancellation(t *testing.T) {
	p := NewProvisioner(ProvisionerConfig{RootDomain: "example.com"}, &fakeDNS{}, &fakeIssuer{}, newTestStore(t), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	for i := 0; i < cap(p.jobs); i++ {
		p.jobs <- &job{}
	}
	_, err := p.Add(ctx, "blog", blogHosts)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
