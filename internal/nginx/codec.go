package nginx

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/gondar-software/domain-manager/internal/logging"
	"github.com/gondar-software/domain-manager/internal/models"
)

const (
	// InsertMarker is the line before which new domain blocks are spliced.
	InsertMarker = "# Add Servers Here"

	beginMarker = "# domain-manager: begin "
	endMarker   = "# domain-manager: end "

	DefaultLetsEncryptDir = "/etc/letsencrypt"
)

var (
	ErrMarkerNotFound = errors.New("insertion marker not found in configuration")
	ErrMalformedBlock = errors.New("malformed server block")
)

// Codec renders domains as nginx server blocks and recovers them from a
// full configuration file.
type Codec struct {
	letsEncryptDir string
	logger         *logging.Logger
}

func NewCodec(letsEncryptDir string) *Codec {
	if letsEncryptDir == "" {
		letsEncryptDir = DefaultLetsEncryptDir
	}
	return &Codec{
		letsEncryptDir: letsEncryptDir,
		logger:         logging.GetGlobalLogger(),
	}
}

// Render produces the block for d: a begin marker, an HTTP to HTTPS redirect
// server, the HTTPS server with one location per host, and an end marker.
// The first line carries no indentation so the block can be placed at the
// insertion marker's column.
func (c *Codec) Render(d models.Domain) string {
	name := d.Name
	live := path.Join(c.letsEncryptDir, "live", name)

	var b strings.Builder
	b.WriteString(beginMarker + name + "\n")

	b.WriteString("    server {\n")
	b.WriteString("        listen 80;\n")
	b.WriteString("        listen [::]:80;\n")
	fmt.Fprintf(&b, "        server_name %s www.%s;\n", name, name)
	fmt.Fprintf(&b, "        return 301 https://%s$request_uri;\n", name)
	b.WriteString("    }\n\n")

	b.WriteString("    server {\n")
	b.WriteString("        listen 443 ssl http2;\n")
	b.WriteString("        listen [::]:443 ssl http2;\n\n")
	fmt.Fprintf(&b, "        server_name %s www.%s;\n\n", name, name)
	fmt.Fprintf(&b, "        if ($host = www.%s) {\n", name)
	fmt.Fprintf(&b, "            return 301 https://%s$request_uri;\n", name)
	b.WriteString("        }\n\n")
	b.WriteString("        client_max_body_size 512M;\n\n")
	fmt.Fprintf(&b, "        ssl_certificate %s;\n", path.Join(live, "fullchain.pem"))
	fmt.Fprintf(&b, "        ssl_certificate_key %s;\n", path.Join(live, "privkey.pem"))
	fmt.Fprintf(&b, "        include %s;\n", path.Join(c.letsEncryptDir, "options-ssl-nginx.conf"))
	fmt.Fprintf(&b, "        ssl_dhparam %s;\n", path.Join(c.letsEncryptDir, "ssl-dhparams.pem"))

	for _, h := range d.Hosts {
		b.WriteString("\n")
		fmt.Fprintf(&b, "        location %s {\n", h.Path)
		fmt.Fprintf(&b, "            proxy_pass %s;\n", h.Target)
		if h.Type == models.HostTypeWebSocket {
			b.WriteString("            proxy_http_version 1.1;\n")
			b.WriteString("            proxy_set_header Upgrade $http_upgrade;\n")
			b.WriteString("            proxy_set_header Connection \"Upgrade\";\n")
		}
		b.WriteString("            proxy_set_header Host $host;\n")
		b.WriteString("            proxy_set_header X-Real-IP $remote_addr;\n")
		b.WriteString("            proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;\n")
		b.WriteString("            proxy_set_header X-Forwarded-Proto $scheme;\n")
		b.WriteString("        }\n")
	}

	b.WriteString("    }\n")
	b.WriteString("    " + endMarker + name + "\n")
	return b.String()
}

// Insert splices the rendered block for d in front of the insertion marker,
// keeping the marker on its own line at its original indentation.
func (c *Codec) Insert(text string, d models.Domain) (string, error) {
	idx := strings.Index(text, InsertMarker)
	if idx < 0 {
		return "", ErrMarkerNotFound
	}
	lineStart := strings.LastIndexByte(text[:idx], '\n') + 1
	indent := text[lineStart:idx]
	if strings.TrimLeft(indent, " \t") != "" {
		indent = ""
	}
	return text[:idx] + c.Render(d) + "\n" + indent + text[idx:], nil
}

// Parse returns every domain hosted in text. Malformed server blocks are
// logged and skipped.
func (c *Codec) Parse(text string) []models.Domain {
	domains, issues := c.ParseWithIssues(text)
	for _, issue := range issues {
		c.logger.Warn("Skipping server block: %v", issue)
	}
	return domains
}

// ParseWithIssues is Parse that returns the skipped-block problems instead
// of logging them.
func (c *Codec) ParseWithIssues(text string) ([]models.Domain, []error) {
	dirs, issues := parseDirectives(text)

	var domains []models.Domain
	seen := make(map[string]bool)
	for _, server := range collectServers(dirs) {
		d, ok, err := domainFromServer(server)
		if err != nil {
			issues = append(issues, err)
			continue
		}
		if !ok {
			continue
		}
		if seen[d.Name] {
			issues = append(issues, fmt.Errorf("line %d: %w: %s is already defined", server.Line, ErrMalformedBlock, d.Name))
			continue
		}
		seen[d.Name] = true
		domains = append(domains, d)
	}
	return domains, issues
}

// collectServers finds server blocks at any depth outside another server.
func collectServers(dirs []*Directive) []*Directive {
	var out []*Directive
	for _, d := range dirs {
		if !d.HasBlock {
			continue
		}
		if d.Name == "server" {
			out = append(out, d)
			continue
		}
		out = append(out, collectServers(d.Block)...)
	}
	return out
}

// domainFromServer returns ok=false with no error for blocks that are simply
// not hosted domains (catch-alls, plain HTTP redirects).
func domainFromServer(server *Directive) (models.Domain, bool, error) {
	if isCatchAll(server) || !isHTTPS(server) {
		return models.Domain{}, false, nil
	}
	if server.Unterminated {
		return models.Domain{}, false, fmt.Errorf("line %d: %w: unbalanced braces", server.Line, ErrMalformedBlock)
	}

	name := primaryName(server)
	if name == "" {
		return models.Domain{}, false, fmt.Errorf("line %d: %w: no server_name", server.Line, ErrMalformedBlock)
	}

	var hosts []models.Host
	for _, loc := range collectLocations(server.Block) {
		if h, ok := hostFromLocation(loc); ok {
			hosts = append(hosts, h)
		}
	}
	if len(hosts) == 0 {
		return models.Domain{}, false, fmt.Errorf("line %d: %w: %s has no location with proxy_pass", server.Line, ErrMalformedBlock, name)
	}

	return models.Domain{Name: models.NormalizeName(name), Hosts: hosts}, true, nil
}

func isCatchAll(server *Directive) bool {
	for _, listen := range server.Children("listen") {
		for _, arg := range listen.Args {
			if arg == "default_server" || arg == "default" {
				return true
			}
		}
	}
	for _, sn := range server.Children("server_name") {
		for _, arg := range sn.Args {
			if arg == "_" || strings.Contains(arg, "*") || strings.HasPrefix(arg, "~") {
				return true
			}
		}
	}
	return false
}

func isHTTPS(server *Directive) bool {
	for _, listen := range server.Children("listen") {
		for _, arg := range listen.Args {
			if arg == "ssl" || arg == "443" || strings.HasSuffix(arg, ":443") {
				return true
			}
		}
	}
	return false
}

// primaryName picks the name whose www alias is also listed, then the first
// name without a www prefix, then the first name.
func primaryName(server *Directive) string {
	var names []string
	for _, sn := range server.Children("server_name") {
		for _, a := range sn.Args {
			names = append(names, models.NormalizeName(a))
		}
	}
	listed := make(map[string]bool, len(names))
	for _, n := range names {
		listed[n] = true
	}
	for _, n := range names {
		if listed["www."+n] {
			return n
		}
	}
	for _, n := range names {
		if !strings.HasPrefix(n, "www.") {
			return n
		}
	}
	if len(names) > 0 {
		return names[0]
	}
	return ""
}

func collectLocations(dirs []*Directive) []*Directive {
	var out []*Directive
	for _, d := range dirs {
		if d.Name == "location" && d.HasBlock {
			out = append(out, d)
			out = append(out, collectLocations(d.Block)...)
		}
	}
	return out
}

func hostFromLocation(loc *Directive) (models.Host, bool) {
	if len(loc.Args) == 0 {
		return models.Host{}, false
	}
	pass := loc.Child("proxy_pass")
	if pass == nil || len(pass.Args) == 0 {
		return models.Host{}, false
	}

	hostType := models.HostTypeDefault
	for _, h := range loc.Children("proxy_set_header") {
		if len(h.Args) >= 2 && strings.EqualFold(h.Args[0], "Upgrade") && h.Args[1] == "$http_upgrade" {
			hostType = models.HostTypeWebSocket
			break
		}
	}

	return models.Host{
		Type:   hostType,
		Path:   strings.Join(loc.Args, " "),
		Target: pass.Args[0],
	}, true
}

// RemoveBlock deletes the block for name. Marker-delimited blocks are cut
// between their markers; blocks without markers are found by scanning for
// server blocks whose primary name is name. The text is returned unchanged
// when nothing matches.
func (c *Codec) RemoveBlock(text, name string) (string, bool) {
	if out, ok := removeMarked(text, name); ok {
		return out, true
	}
	return removeServersNamed(text, name)
}

func removeMarked(text, name string) (string, bool) {
	begin := beginMarker + name + "\n"
	start := strings.Index(text, begin)
	if start < 0 {
		return text, false
	}

	end := endMarker + name + "\n"
	rel := strings.Index(text[start:], end)
	if rel < 0 {
		// end marker lost: drop the begin line and fall back to scanning
		cut := text[:start] + text[start+len(begin):]
		if out, ok := removeServersNamed(cut, name); ok {
			return out, true
		}
		return cut, true
	}

	stop := start + rel + len(end)
	if stop < len(text) && text[stop] == '\n' {
		stop++
	}
	for stop < len(text) && (text[stop] == ' ' || text[stop] == '\t') {
		stop++
	}
	return text[:start] + text[stop:], true
}

type span struct{ start, end int }

func removeServersNamed(text, name string) (string, bool) {
	dirs, _ := parseDirectives(text)

	var spans []span
	for _, server := range collectServers(dirs) {
		if isCatchAll(server) || server.Unterminated {
			continue
		}
		if models.NormalizeName(primaryName(server)) != name {
			continue
		}
		spans = append(spans, lineSpan(text, server.Start, server.End))
	}
	if len(spans) == 0 {
		return text, false
	}

	// a "# name configuration" comment directly above the first block goes too
	if first := spans[0].start; first > 0 {
		prevEnd := first - 1
		prevStart := strings.LastIndexByte(text[:prevEnd], '\n') + 1
		if strings.TrimSpace(text[prevStart:prevEnd]) == "# "+name+" configuration" {
			spans[0].start = prevStart
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start > spans[j].start })
	for _, s := range spans {
		text = text[:s.start] + text[s.end:]
	}
	return text, true
}

// lineSpan widens [start, end) to whole lines when the block sits alone on
// them, and swallows one blank line that follows.
func lineSpan(text string, start, end int) span {
	lineStart := strings.LastIndexByte(text[:start], '\n') + 1
	if strings.TrimSpace(text[lineStart:start]) == "" {
		start = lineStart
	}
	if nl := strings.IndexByte(text[end:], '\n'); nl >= 0 && strings.TrimSpace(text[end:end+nl]) == "" {
		end += nl + 1
		if nl2 := strings.IndexByte(text[end:], '\n'); nl2 >= 0 && strings.TrimSpace(text[end:end+nl2]) == "" {
			end += nl2 + 1
		}
	}
	return span{start, end}
}
