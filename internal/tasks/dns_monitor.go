package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gondar-software/domain-manager/internal/logging"
	"github.com/gondar-software/domain-manager/internal/models"
	"github.com/gondar-software/domain-manager/internal/service"
)

// DomainLister lists hosted domains
type DomainLister interface {
	List(ctx context.Context) ([]models.Domain, error)
}

// ResolutionChecker compares public DNS with this host's address
type ResolutionChecker interface {
	PublicAddress(ctx context.Context) (string, error)
	Resolves(ctx context.Context, fqdn, ip string) (bool, error)
}

// DNSMonitor periodically checks that every hosted domain still resolves to
// this host on public resolvers
type DNSMonitor struct {
	domains  DomainLister
	dns      ResolutionChecker
	notifier service.Notifier
	interval time.Duration
	logger   *logging.Logger

	mu      sync.Mutex
	drifted map[string]bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewDNSMonitor creates a new DNS monitor task. A zero interval disables it.
func NewDNSMonitor(domains DomainLister, dns ResolutionChecker, notifier service.Notifier, interval time.Duration) *DNSMonitor {
	if notifier == nil {
		notifier = service.NopNotifier{}
	}
	return &DNSMonitor{
		domains:  domains,
		dns:      dns,
		notifier: notifier,
		interval: interval,
		logger:   logging.GetGlobalLogger(),
		drifted:  make(map[string]bool),
		done:     make(chan struct{}),
	}
}

// Start begins the DNS monitor task in the background
func (dm *DNSMonitor) Start() {
	if dm.interval <= 0 {
		dm.logger.Info("DNSMonitor: DNS_MONITOR_INTERVAL not set, skipping background DNS verification")
		return
	}
	dm.wg.Add(1)
	go dm.runPeriodically()
}

// Stop gracefully stops the DNS monitor task
func (dm *DNSMonitor) Stop() {
	if dm.interval <= 0 {
		return
	}
	close(dm.done)
	dm.wg.Wait()
}

// runPeriodically runs the verification task at regular intervals
func (dm *DNSMonitor) runPeriodically() {
	defer dm.wg.Done()

	dm.logger.Info("Starting DNS monitor task (every %s)", dm.interval)

	ticker := time.NewTicker(dm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), dm.interval)
			if _, err := dm.VerifyDomains(ctx); err != nil {
				dm.logger.Error("Periodic DNS verification failed: %v", err)
			}
			cancel()
		case <-dm.done:
			dm.logger.Info("DNS monitor task stopped")
			return
		}
	}
}

// VerifyDomains checks every hosted name and its www alias. It returns the
// names that do not resolve to this host, and notifies once per name when
// it starts drifting.
func (dm *DNSMonitor) VerifyDomains(ctx context.Context) ([]string, error) {
	domains, err := dm.domains.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	if len(domains) == 0 {
		return nil, nil
	}

	ip, err := dm.dns.PublicAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to determine public address: %w", err)
	}

	var drifted []string
	current := make(map[string]bool)
	for _, d := range domains {
		for _, name := range []string{d.Name, "www." + d.Name} {
			ok, err := dm.dns.Resolves(ctx, name, ip)
			if ok {
				continue
			}
			if err != nil {
				dm.logger.Warn("DNS drift: %s does not resolve: %v", name, err)
			} else {
				dm.logger.Warn("DNS drift: %s does not resolve to %s", name, ip)
			}
			drifted = append(drifted, name)
			current[name] = true
		}
	}

	dm.mu.Lock()
	var fresh []string
	for name := range current {
		if !dm.drifted[name] {
			fresh = append(fresh, name)
		}
	}
	for name := range dm.drifted {
		if !current[name] {
			dm.logger.Info("DNS drift resolved: %s resolves to %s again", name, ip)
		}
	}
	dm.drifted = current
	dm.mu.Unlock()

	if len(fresh) > 0 {
		sort.Strings(fresh)
		msg := fmt.Sprintf("No longer resolving to %s:\n%s", ip, strings.Join(fresh, "\n"))
		if err := dm.notifier.Notify(ctx, "domain-manager: DNS drift", msg); err != nil {
			dm.logger.Error("Failed to send DNS drift notification: %v", err)
		}
	}

	return drifted, nil
}
