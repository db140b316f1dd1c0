package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gondar-software/domain-manager/internal/models"
)

type staticDomains []models.Domain

func (s staticDomains) List(context.Context) ([]models.Domain, error) { return s, nil }

type fakeResolver struct {
	mu       sync.Mutex
	ip       string
	resolved map[string]string
}

func (f *fakeResolver) PublicAddress(context.Context) (string, error) { return f.ip, nil }

func (f *fakeResolver) Resolves(_ context.Context, fqdn, ip string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	got, ok := f.resolved[fqdn]
	if !ok {
		return false, errors.New("no such host")
	}
	return got == ip, nil
}

type countingNotifier struct {
	messages []string
}

func (n *countingNotifier) Notify(_ context.Context, _, message string) error {
	n.messages = append(n.messages, message)
	return nil
}

func TestVerifyDomains(t *testing.T) {
	domains := staticDomains{{Name: "a.example.com"}, {Name: "b.example.com"}}
	resolver := &fakeResolver{ip: "203.0.113.7", resolved: map[string]string{
		"a.example.com":     "203.0.113.7",
		"www.a.example.com": "203.0.113.7",
		"b.example.com":     "198.51.100.1",
	}}
	notifier := &countingNotifier{}
	dm := NewDNSMonitor(domains, resolver, notifier, time.Minute)

	drifted, err := dm.VerifyDomains(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b.example.com", "www.b.example.com"}, drifted)
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "www.b.example.com")

	// same drift again: no second notification
	_, err = dm.VerifyDomains(context.Background())
	require.NoError(t, err)
	assert.Len(t, notifier.messages, 1)

	resolver.mu.Lock()
	resolver.resolved["b.example.com"] = "203.0.113.7"
	resolver.resolved["www.b.example.com"] = "203.0.113.7"
	resolver.mu.Unlock()

	drifted, err = dm.VerifyDomains(context.Background())
	require.NoError(t, err)
	assert.Empty(t, drifted)
}

func TestDNSMonitorDisabled(t *testing.T) {
	dm := NewDNSMonitor(staticDomains{}, &fakeResolver{}, nil, 0)
	dm.Start()
	dm.Stop()

	drifted, err := dm.VerifyDomains(context.Background())
	require.NoError(t, err)
	assert.Empty(t, drifted)
}

func TestDNSMonitorStartStop(t *testing.T) {
	dm := NewDNSMonitor(staticDomains{}, &fakeResolver{}, nil, 10*time.Millisecond)
	dm.Start()
	time.Sleep(25 * time.Millisecond)
	dm.Stop()
}
