package common

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode identifies a rejection or failure class surfaced to API clients.
// Codes are stable; human-readable messages are mapped at the HTTP boundary.
type ErrorCode string

const (
	// Input errors (400)
	ErrURLMissing         ErrorCode = "URL_MISSING"
	ErrURLEmpty           ErrorCode = "URL_EMPTY"
	ErrURLMalformed       ErrorCode = "URL_MALFORMED"
	ErrURLInvalidProtocol ErrorCode = "URL_INVALID_PROTOCOL"
	ErrURLInvalidHostname ErrorCode = "URL_INVALID_HOSTNAME"
	ErrURLNoTLD           ErrorCode = "URL_NO_TLD"
	ErrURLRawIP           ErrorCode = "URL_RAW_IP"

	// Resolution errors (400)
	ErrDNSFailed  ErrorCode = "DNS_FAILED"
	ErrDNSTimeout ErrorCode = "DNS_TIMEOUT"

	// Policy errors (400)
	ErrSSRFBlockedHostname ErrorCode = "SSRF_BLOCKED_HOSTNAME"
	ErrSSRFBlockedPattern  ErrorCode = "SSRF_BLOCKED_PATTERN"
	ErrSSRFPrivateIP       ErrorCode = "SSRF_PRIVATE_IP"

	// Runtime errors (500 or persisted on FAILED jobs)
	ErrUnreachable   ErrorCode = "UNREACHABLE"
	ErrEnqueueFailed ErrorCode = "ENQUEUE_FAILED"
)

// ScanError carries a stable error code plus detail for logging.
type ScanError struct {
	Code   ErrorCode
	Detail string
}

func (e *ScanError) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// NewScanError creates a ScanError with the given code and detail.
func NewScanError(code ErrorCode, detail string) *ScanError {
	return &ScanError{Code: code, Detail: detail}
}

// AsScanError unwraps a ScanError from an error chain.
func AsScanError(err error) (*ScanError, bool) {
	var se *ScanError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ClientMessage maps an error code to the human-readable message returned to
// clients. Raw error detail is never exposed.
func ClientMessage(code ErrorCode) string {
	switch code {
	case ErrURLNoTLD:
		return "That doesn't look like a real domain. Please enter a full website address like example.com"
	case ErrURLMissing, ErrURLEmpty:
		return "Please provide a URL to analyze"
	case ErrURLMalformed, ErrURLInvalidProtocol, ErrURLInvalidHostname:
		return "The URL appears to be malformed. Please check it and try again"
	case ErrURLRawIP:
		return "Scanning IP addresses directly is not supported. Please use a domain name"
	case ErrDNSFailed, ErrDNSTimeout:
		return "We couldn't resolve that domain. Please check the address and try again"
	case ErrSSRFBlockedHostname, ErrSSRFBlockedPattern, ErrSSRFPrivateIP:
		return "Scanning private or internal network addresses is not permitted"
	case ErrUnreachable:
		return "The site could not be reached. It may be down or blocking automated access"
	default:
		return "An unexpected error occurred. Please try again later"
	}
}

// TruncateError bounds an error message for persistence (1000 chars).
func TruncateError(msg string) string {
	const limit = 1000
	if len(msg) <= limit {
		return msg
	}
	return msg[:limit]
}

// IsSSRFCode reports whether a code belongs to the SSRF policy family.
func IsSSRFCode(code ErrorCode) bool {
	return strings.HasPrefix(string(code), "SSRF_")
}
