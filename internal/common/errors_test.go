package common

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestScanError_Error(t *testing.T) {
	err := NewScanError(ErrURLNoTLD, "hostname has no dot")
	if err.Error() != "URL_NO_TLD: hostname has no dot" {
		t.Errorf("Error() = %q", err.Error())
	}

	bare := NewScanError(ErrDNSFailed, "")
	if bare.Error() != "DNS_FAILED" {
		t.Errorf("Error() without detail = %q", bare.Error())
	}
}

func TestAsScanError_Unwraps(t *testing.T) {
	inner := NewScanError(ErrSSRFPrivateIP, "10.0.0.5")
	wrapped := fmt.Errorf("admission: %w", inner)

	se, ok := AsScanError(wrapped)
	if !ok || se.Code != ErrSSRFPrivateIP {
		t.Errorf("AsScanError(wrapped) = %+v, %v", se, ok)
	}

	if _, ok := AsScanError(errors.New("plain")); ok {
		t.Error("plain error treated as ScanError")
	}
}

func TestClientMessage_NeverExposesDetail(t *testing.T) {
	codes := []ErrorCode{
		ErrURLMissing, ErrURLEmpty, ErrURLMalformed, ErrURLInvalidProtocol,
		ErrURLInvalidHostname, ErrURLNoTLD, ErrURLRawIP,
		ErrDNSFailed, ErrDNSTimeout,
		ErrSSRFBlockedHostname, ErrSSRFBlockedPattern, ErrSSRFPrivateIP,
		ErrUnreachable, ErrEnqueueFailed,
	}
	for _, code := range codes {
		msg := ClientMessage(code)
		if msg == "" {
			t.Errorf("no client message for %s", code)
		}
		if strings.Contains(msg, string(code)) {
			t.Errorf("client message for %s leaks the raw code: %q", code, msg)
		}
	}

	if ClientMessage(ErrorCode("SOMETHING_NEW")) == "" {
		t.Error("unknown code should fall back to a generic message")
	}
}

func TestClientMessage_SSRFFamilyShared(t *testing.T) {
	a := ClientMessage(ErrSSRFBlockedHostname)
	b := ClientMessage(ErrSSRFPrivateIP)
	if a != b {
		t.Error("SSRF rejections should read identically to avoid probing")
	}
}

func TestTruncateError(t *testing.T) {
	short := "boom"
	if got := TruncateError(short); got != short {
		t.Errorf("short message altered: %q", got)
	}

	long := strings.Repeat("x", 1500)
	if got := TruncateError(long); len(got) != 1000 {
		t.Errorf("truncated to %d chars, want 1000", len(got))
	}
}

func TestIsSSRFCode(t *testing.T) {
	if !IsSSRFCode(ErrSSRFBlockedPattern) {
		t.Error("SSRF_BLOCKED_PATTERN not in the SSRF family")
	}
	if IsSSRFCode(ErrURLRawIP) {
		t.Error("URL_RAW_IP wrongly in the SSRF family")
	}
}
