package sanitization

import (
	"strings"

	"github.com/gondar-software/domain-manager/internal/api/dto/v1/domain"
	"github.com/gondar-software/domain-manager/internal/models"
)

// SanitizeDomainName lower-cases the name and strips a scheme, a trailing
// slash or dot, and surrounding whitespace
func SanitizeDomainName(input string) string {
	name := strings.TrimSpace(input)
	if _, rest, found := strings.Cut(name, "://"); found {
		name = rest
	}
	name = strings.TrimRight(name, "/")
	return models.NormalizeName(name)
}

// SanitizeHosts trims every field and lower-cases the type
func SanitizeHosts(hosts []domain.HostRequest) {
	for i := range hosts {
		hosts[i].Type = strings.ToLower(strings.TrimSpace(hosts[i].Type))
		hosts[i].Path = strings.TrimSpace(hosts[i].Path)
		hosts[i].Host = strings.TrimSpace(hosts[i].Host)
	}
}
