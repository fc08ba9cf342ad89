package httpx

import (
	"regexp"
	"strings"
)

// Services behind a reverse proxy reject calls made against the wrong mount
// point with a diagnostic naming where they actually live. The phrase is the
// one Jellyfin and Jellyseerr emit.
var basePathHint = regexp.MustCompile(`Expected path to start with['":\s]+(/[A-Za-z0-9._~/-]*)`)

// DiscoverBasePath scans a rejection body for the service's self-reported
// base path. Returns "" when the body carries no hint.
func DiscoverBasePath(body []byte) string {
	m := basePathHint.FindSubmatch(body)
	if m == nil {
		return ""
	}
	p := strings.TrimRight(string(m[1]), "/")
	if p == "" || p == "/" {
		return ""
	}
	return p
}

// JoinBase splices a discovered base path between the configured URL and the
// request path.
func JoinBase(baseURL, discovered, path string) string {
	return strings.TrimRight(baseURL, "/") + discovered + path
}
