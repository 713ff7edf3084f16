package ingress

import (
	"net"
	"testing"

	"github.com/ternarybob/privascan/internal/common"
)

func TestCheckSSRF_BlockedHostnames(t *testing.T) {
	for _, hostname := range []string{"localhost", "LOCALHOST", "metadata.google.internal", "169.254.169.254"} {
		if err := CheckSSRF(hostname, net.ParseIP("93.184.216.34")); err == nil {
			t.Errorf("CheckSSRF(%q) allowed a reserved hostname", hostname)
		}
	}
}

func TestCheckSSRF_BlockedSuffixes(t *testing.T) {
	for _, hostname := range []string{"db.internal", "printer.local", "fileserver.corp", "nas.lan", "wiki.intranet"} {
		err := CheckSSRF(hostname, net.ParseIP("93.184.216.34"))
		if err == nil {
			t.Fatalf("CheckSSRF(%q) allowed a private-zone suffix", hostname)
		}
		scanErr, _ := common.AsScanError(err)
		if scanErr.Code != common.ErrSSRFBlockedPattern {
			t.Errorf("CheckSSRF(%q) code = %s, want SSRF_BLOCKED_PATTERN", hostname, scanErr.Code)
		}
	}
}

func TestCheckSSRF_PrivateRanges(t *testing.T) {
	// The check runs against the resolved address, so a public-looking
	// hostname resolving into a private range is still refused.
	blocked := []string{
		"127.0.0.1",
		"10.1.2.3",
		"192.168.1.1",
		"172.16.0.1",
		"172.31.255.254",
		"169.254.1.1",
		"100.64.0.1", // CGNAT
		"0.0.0.0",
		"::1",
		"fc00::1",
		"fe80::1",
	}
	for _, addr := range blocked {
		err := CheckSSRF("rebind.example.com", net.ParseIP(addr))
		if err == nil {
			t.Fatalf("CheckSSRF allowed private address %s", addr)
		}
		scanErr, _ := common.AsScanError(err)
		if scanErr.Code != common.ErrSSRFPrivateIP {
			t.Errorf("CheckSSRF(%s) code = %s, want SSRF_PRIVATE_IP", addr, scanErr.Code)
		}
	}
}

func TestCheckSSRF_PublicAllowed(t *testing.T) {
	public := []string{"93.184.216.34", "8.8.8.8", "172.32.0.1", "100.128.0.1", "2606:2800:220:1:248:1893:25c8:1946"}
	for _, addr := range public {
		if err := CheckSSRF("example.com", net.ParseIP(addr)); err != nil {
			t.Errorf("CheckSSRF blocked public address %s: %v", addr, err)
		}
	}
}
