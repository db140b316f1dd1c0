package utils

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gondar-software/domain-manager/internal/logging"
)

// PublicResolvers are queried directly to observe global propagation.
var PublicResolvers = []string{
	"8.8.8.8:53", // Google
	"1.1.1.1:53", // Cloudflare
}

// LookupHostGlobal resolves domain against public resolvers instead of the
// local system resolver. The first resolver that answers wins.
func LookupHostGlobal(ctx context.Context, domain string) ([]string, error) {
	logger := logging.GetGlobalLogger()

	var lastErr error
	for _, resolverAddr := range PublicResolvers {
		addr := resolverAddr
		resolver := &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
				d := net.Dialer{Timeout: 2 * time.Second}
				return d.DialContext(ctx, "udp", addr)
			},
		}

		lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		ips, err := resolver.LookupHost(lookupCtx, domain)
		cancel()

		if err == nil {
			logger.Debug("Resolved %s using %s: %v", domain, addr, ips)
			return ips, nil
		}

		logger.Debug("Failed to resolve %s using %s: %v", domain, addr, err)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("failed to resolve domain %s using public resolvers: %w", domain, lastErr)
}
