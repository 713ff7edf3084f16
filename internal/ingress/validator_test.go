package ingress

import (
	"testing"

	"github.com/ternarybob/privascan/internal/common"
)

func TestValidateURL_Canonicalization(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare domain gets https", "example.com", "https://example.com"},
		{"existing scheme kept", "http://example.com/page", "http://example.com/page"},
		{"host lowercased", "HTTPS://EXAMPLE.COM/Path", "https://example.com/Path"},
		{"default https port elided", "https://example.com:443/", "https://example.com/"},
		{"default http port elided", "http://example.com:80", "http://example.com"},
		{"non-default port kept", "https://example.com:8443", "https://example.com:8443"},
		{"query preserved", "example.com/search?q=privacy", "https://example.com/search?q=privacy"},
		{"whitespace trimmed", "  example.com  ", "https://example.com"},
		{"dotted but unresolvable accepted", "example.invalid", "https://example.invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateURL(tt.input)
			if err != nil {
				t.Fatalf("ValidateURL(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ValidateURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateURL_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  common.ErrorCode
	}{
		{"missing", "", common.ErrURLMissing},
		{"whitespace only", "   ", common.ErrURLEmpty},
		{"no TLD", "ksgdsgfksdgfksdfg", common.ErrURLNoTLD},
		{"no TLD with scheme", "https://localhost", common.ErrURLNoTLD},
		{"raw IPv4", "http://127.0.0.1/", common.ErrURLRawIP},
		{"raw IPv4 bare", "8.8.8.8", common.ErrURLRawIP},
		{"raw IPv6", "http://[::1]/", common.ErrURLRawIP},
		{"ftp scheme", "ftp://example.com", common.ErrURLInvalidProtocol},
		{"javascript scheme", "javascript://alert(1)", common.ErrURLInvalidProtocol},
		{"no hostname", "https://", common.ErrURLInvalidHostname},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateURL(tt.input)
			if err == nil {
				t.Fatalf("ValidateURL(%q) succeeded, expected %s", tt.input, tt.code)
			}
			scanErr, ok := common.AsScanError(err)
			if !ok {
				t.Fatalf("ValidateURL(%q) returned non-ScanError: %v", tt.input, err)
			}
			if scanErr.Code != tt.code {
				t.Errorf("ValidateURL(%q) code = %s, want %s", tt.input, scanErr.Code, tt.code)
			}
		})
	}
}

func TestHostnameOf(t *testing.T) {
	if got := HostnameOf("https://example.com/page?q=1"); got != "example.com" {
		t.Errorf("HostnameOf = %q, want example.com", got)
	}
	if got := HostnameOf("https://example.com:8443"); got != "example.com" {
		t.Errorf("HostnameOf with port = %q, want example.com", got)
	}
}
