package version

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/gondar-software/domain-manager/internal/version.Version=v1.2.0 \
//	  -X github.com/gondar-software/domain-manager/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ) \
//	  -X github.com/gondar-software/domain-manager/internal/version.GitCommit=$(git rev-parse HEAD)"
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// BuildInfo contains comprehensive build information
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Compiler  string `json:"compiler"`
}

// ServerVersionInfo is what the API reports at /api/v1/version
type ServerVersionInfo struct {
	ServerVersion   string `json:"server_version"`
	BuildTime       string `json:"build_time"`
	GitCommit       string `json:"git_commit"`
	GoVersion       string `json:"go_version"`
	Platform        string `json:"platform"`
	ClientVersion   string `json:"client_version,omitempty"`
	UpdateAvailable bool   `json:"update_available"`
}

// GetServerVersionInfo describes this build to a client running clientVersion.
func GetServerVersionInfo(clientVersion string) ServerVersionInfo {
	info := GetBuildInfo()
	return ServerVersionInfo{
		ServerVersion:   info.Version,
		BuildTime:       info.BuildTime,
		GitCommit:       info.GitCommit,
		GoVersion:       info.GoVersion,
		Platform:        info.Platform,
		ClientVersion:   clientVersion,
		UpdateAvailable: clientVersion != "" && IsUpdateAvailable(clientVersion, info.Version),
	}
}

// GetBuildInfo returns complete build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Compiler:  runtime.Compiler,
	}
}

// GetVersionString returns a formatted version string
func GetVersionString() string {
	if BuildTime == "unknown" {
		return Version
	}

	buildTime, err := time.Parse(time.RFC3339, BuildTime)
	if err != nil {
		return Version
	}

	return Version + " (built " + buildTime.Format("2006-01-02 15:04:05 UTC") + ")"
}

// Info returns a formatted version info string for CLI output
func Info() string {
	buildInfo := GetBuildInfo()
	if buildInfo.BuildTime == "unknown" {
		return fmt.Sprintf("%s (development build)", buildInfo.Version)
	}

	buildTime, err := time.Parse(time.RFC3339, buildInfo.BuildTime)
	if err != nil {
		return fmt.Sprintf("%s (built %s)", buildInfo.Version, buildInfo.BuildTime)
	}

	commit := buildInfo.GitCommit
	if len(commit) > 8 {
		commit = commit[:8]
	}
	return fmt.Sprintf("%s (built %s, commit %s)",
		buildInfo.Version,
		buildTime.Format("2006-01-02 15:04:05 UTC"),
		commit)
}

// CheckServerVersion asks a domain-manager API for its version.
func CheckServerVersion(ctx context.Context, serverURL string) (*ServerVersionInfo, error) {
	versionURL := strings.TrimRight(serverURL, "/") + "/api/v1/version?client_version=" + url.QueryEscape(Version)

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, versionURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to check server version: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var envelope struct {
		Data ServerVersionInfo `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse version response: %w", err)
	}

	return &envelope.Data, nil
}

// CompareVersions compares two semantic version strings.
// Returns -1 if v1 < v2, 0 if equal, 1 if v1 > v2. "dev" and "unknown" sort
// before any release, and a pre-release sorts before its release.
func CompareVersions(v1, v2 string) int {
	v1 = strings.TrimPrefix(v1, "v")
	v2 = strings.TrimPrefix(v2, "v")

	if v1 == v2 {
		return 0
	}
	if v1 == "dev" || v1 == "unknown" {
		return -1
	}
	if v2 == "dev" || v2 == "unknown" {
		return 1
	}

	core1, pre1, _ := strings.Cut(v1, "-")
	core2, pre2, _ := strings.Cut(v2, "-")

	parts1 := strings.Split(core1, ".")
	parts2 := strings.Split(core2, ".")
	for i := 0; i < max(len(parts1), len(parts2)); i++ {
		var n1, n2 int
		if i < len(parts1) {
			n1 = parseVersionPart(parts1[i])
		}
		if i < len(parts2) {
			n2 = parseVersionPart(parts2[i])
		}
		if n1 != n2 {
			return cmp.Compare(n1, n2)
		}
	}

	switch {
	case pre1 == pre2:
		return 0
	case pre1 == "":
		return 1
	case pre2 == "":
		return -1
	}
	return comparePrerelease(pre1, pre2)
}

// comparePrerelease orders dot-separated identifiers, numerically when both
// are numbers.
func comparePrerelease(a, b string) int {
	ids1 := strings.Split(a, ".")
	ids2 := strings.Split(b, ".")
	for i := 0; i < min(len(ids1), len(ids2)); i++ {
		n1, err1 := strconv.Atoi(ids1[i])
		n2, err2 := strconv.Atoi(ids2[i])
		var c int
		if err1 == nil && err2 == nil {
			c = cmp.Compare(n1, n2)
		} else {
			c = strings.Compare(ids1[i], ids2[i])
		}
		if c != 0 {
			return c
		}
	}
	return cmp.Compare(len(ids1), len(ids2))
}

// parseVersionPart reads the leading digits of a version component.
func parseVersionPart(part string) int {
	i := 0
	for i < len(part) && part[i] >= '0' && part[i] <= '9' {
		i++
	}
	num, err := strconv.Atoi(part[:i])
	if err != nil {
		return 0
	}
	return num
}

// IsUpdateAvailable checks if an update is available
func IsUpdateAvailable(clientVersion, serverVersion string) bool {
	return CompareVersions(clientVersion, serverVersion) < 0
}
