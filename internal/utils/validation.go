package utils

import (
	"regexp"
	"strings"
)

// DomainRegex matches a dotted hostname whose last label is alphabetic, so IP
// addresses and single-label names like localhost are rejected.
var DomainRegex = regexp.MustCompile(`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

var labelRegex = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// IsValidDomain checks if the provided string is a valid domain name
func IsValidDomain(domain string) bool {
	if len(domain) > 253 {
		return false
	}
	return DomainRegex.MatchString(domain)
}

// IsValidSubdomain accepts one or more lower-case labels, such as "blog" or
// "api.v2", that can be prefixed to a root domain.
func IsValidSubdomain(name string) bool {
	if name == "" || len(name) > 253 {
		return false
	}
	for _, label := range strings.Split(name, ".") {
		if !labelRegex.MatchString(label) {
			return false
		}
	}
	return true
}

// IsReservedAlias reports whether name's first label is "www". Every hosted
// name also serves www.<name>, so such a name would collide with an alias.
// The root domain itself is exempt.
func IsReservedAlias(name, root string) bool {
	if root != "" && name == root {
		return false
	}
	return name == "www" || strings.HasPrefix(name, "www.")
}
