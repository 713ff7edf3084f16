package ingress

import (
	"net"
	"net/url"
	"strings"

	"github.com/ternarybob/privascan/internal/common"
)

// ValidateURL canonicalizes a raw user-supplied URL. Inputs without a scheme
// get https:// prepended before parsing. Raw IP literals are refused here
// regardless of what the SSRF guard would decide.
func ValidateURL(raw string) (string, error) {
	if raw == "" {
		return "", common.NewScanError(common.ErrURLMissing, "no url provided")
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", common.NewScanError(common.ErrURLEmpty, "url is empty")
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", common.NewScanError(common.ErrURLMalformed, err.Error())
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", common.NewScanError(common.ErrURLInvalidProtocol, "protocol "+parsed.Scheme+" is not permitted")
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return "", common.NewScanError(common.ErrURLInvalidHostname, "url has no hostname")
	}

	if ip := net.ParseIP(strings.Trim(hostname, "[]")); ip != nil {
		return "", common.NewScanError(common.ErrURLRawIP, "raw IP literals are not supported: "+hostname)
	}

	if !strings.Contains(hostname, ".") {
		return "", common.NewScanError(common.ErrURLNoTLD, "hostname has no TLD: "+hostname)
	}

	// Lowercase host, elide default ports. Path, query and fragment pass
	// through as parsed.
	parsed.Scheme = scheme
	host := strings.ToLower(parsed.Host)
	if scheme == "https" {
		host = strings.TrimSuffix(host, ":443")
	} else {
		host = strings.TrimSuffix(host, ":80")
	}
	parsed.Host = host

	return parsed.String(), nil
}

// HostnameOf extracts the hostname from a canonical URL. Canonical URLs
// always parse; a zero value is returned otherwise.
func HostnameOf(canonical string) string {
	parsed, err := url.Parse(canonical)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
