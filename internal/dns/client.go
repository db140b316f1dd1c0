package dns

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gondar-software/domain-manager/internal/logging"
	"github.com/gondar-software/domain-manager/internal/utils"
)

// Client maintains the A record and the www CNAME for hosted names.
type Client struct {
	provider           Provider
	resolver           AddressResolver
	propagationTimeout time.Duration
	pollInterval       time.Duration
	lookup             func(ctx context.Context, host string) ([]string, error)
	logger             *logging.Logger
}

type ClientConfig struct {
	Provider Provider
	Resolver AddressResolver
	// PropagationTimeout bounds the wait for public resolvers to return the
	// new address after an add. Zero skips the wait.
	PropagationTimeout time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	return &Client{
		provider:           cfg.Provider,
		resolver:           cfg.Resolver,
		propagationTimeout: cfg.PropagationTimeout,
		pollInterval:       5 * time.Second,
		lookup:             utils.LookupHostGlobal,
		logger:             logging.GetGlobalLogger(),
	}
}

// Records returns the records that point fqdn and www.fqdn at ip.
func Records(fqdn, ip string) (zone string, records []Record, err error) {
	sub, zone, err := utils.SplitDomain(fqdn)
	if err != nil {
		return "", nil, err
	}
	aName, wwwName := "@", "www"
	if sub != "" {
		aName, wwwName = sub, "www."+sub
	}
	return zone, []Record{
		{Type: "A", Name: aName, Data: ip},
		{Type: "CNAME", Name: wwwName, Data: fqdn + "."},
	}, nil
}

// PublicAddress returns the address new records point at.
func (c *Client) PublicAddress(ctx context.Context) (string, error) {
	return c.resolver.PublicAddress(ctx)
}

// AddRecords points fqdn and www.fqdn at this host.
func (c *Client) AddRecords(ctx context.Context, fqdn string) error {
	ip, err := c.resolver.PublicAddress(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve public address: %w", err)
	}

	zone, records, err := Records(fqdn, ip)
	if err != nil {
		return err
	}
	if err := c.provider.UpsertRecords(ctx, zone, records); err != nil {
		return err
	}
	c.logger.Info("DNS records for %s point at %s", fqdn, ip)

	if c.propagationTimeout > 0 {
		if err := c.waitForPropagation(ctx, fqdn, ip); err != nil {
			return err
		}
	}
	return nil
}

// RemoveRecords deletes both records. Records that are already gone are fine.
func (c *Client) RemoveRecords(ctx context.Context, fqdn string) error {
	zone, records, err := Records(fqdn, "")
	if err != nil {
		return err
	}

	var errs []error
	for _, r := range records {
		if err := c.provider.DeleteRecord(ctx, zone, r.Type, r.Name); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	c.logger.Info("DNS records for %s removed", fqdn)
	return nil
}

// Resolves reports whether public resolvers return ip for fqdn.
func (c *Client) Resolves(ctx context.Context, fqdn, ip string) (bool, error) {
	ips, err := c.lookup(ctx, fqdn)
	if err != nil {
		return false, err
	}
	return slices.Contains(ips, ip), nil
}

func (c *Client) waitForPropagation(ctx context.Context, fqdn, ip string) error {
	ctx, cancel := context.WithTimeout(ctx, c.propagationTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := c.Resolves(ctx, fqdn, ip)
		if ok {
			return nil
		}
		c.logger.Debug("Waiting for %s to resolve to %s: %v", fqdn, ip, err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s did not resolve to %s within %s", fqdn, ip, c.propagationTimeout)
		case <-ticker.C:
		}
	}
}
