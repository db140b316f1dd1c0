package utils

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var ErrInvalidDomain = errors.New("invalid domain name")

// QualifyDomain turns a bare subdomain into a name under root. Names that
// already end in root are kept. An empty root requires a fully qualified name.
func QualifyDomain(name, root string) (string, error) {
	name = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
	root = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(root)), ".")
	if name == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDomain)
	}

	fqdn := name
	if root != "" && name != root && !strings.HasSuffix(name, "."+root) {
		fqdn = name + "." + root
	}
	if !IsValidDomain(fqdn) {
		return "", fmt.Errorf("%w: %s", ErrInvalidDomain, fqdn)
	}
	return fqdn, nil
}

// SplitDomain separates fqdn into the label part and its registrable zone,
// using the public suffix list: "blog.example.co.uk" is ("blog",
// "example.co.uk"). The apex yields an empty subdomain.
func SplitDomain(fqdn string) (subdomain, zone string, err error) {
	fqdn = strings.TrimSuffix(strings.ToLower(fqdn), ".")
	zone, err = publicsuffix.EffectiveTLDPlusOne(fqdn)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %v", ErrInvalidDomain, fqdn, err)
	}
	if fqdn == zone {
		return "", zone, nil
	}
	return strings.TrimSuffix(fqdn, "."+zone), zone, nil
}
