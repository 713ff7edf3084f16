package ingress

import (
	"net"
	"strings"

	"github.com/ternarybob/privascan/internal/common"
)

// Hostnames refused outright before any address check.
var blockedHostnames = map[string]struct{}{
	"localhost":                {},
	"0.0.0.0":                  {},
	"metadata.google.internal": {},
	"169.254.169.254":          {},
}

// Private-zone suffixes that never resolve to scannable targets.
var blockedSuffixes = []string{
	".local",
	".internal",
	".corp",
	".lan",
	".intranet",
}

// Address ranges the crawler must never reach. Checks run against the
// resolved address rather than the textual input, which closes the DNS
// rebinding hole by construction.
var blockedNetworks = mustParseCIDRs(
	"127.0.0.0/8",
	"10.0.0.0/8",
	"192.168.0.0/16",
	"172.16.0.0/12",
	"169.254.0.0/16",
	"100.64.0.0/10", // CGNAT
	"0.0.0.0/8",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, network, err := net.ParseCIDR(c)
		if err != nil {
			panic("invalid CIDR " + c + ": " + err.Error())
		}
		nets = append(nets, network)
	}
	return nets
}

// CheckSSRFHostname rejects reserved hostnames and private-zone suffixes.
// It needs no resolved address, so admission runs it before DNS and reserved
// names are refused with the policy error even when they do not resolve.
func CheckSSRFHostname(hostname string) error {
	lower := strings.ToLower(hostname)

	if _, blocked := blockedHostnames[lower]; blocked {
		return common.NewScanError(common.ErrSSRFBlockedHostname, "hostname "+hostname+" is reserved")
	}

	for _, suffix := range blockedSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return common.NewScanError(common.ErrSSRFBlockedPattern, "hostname "+hostname+" matches private zone "+suffix)
		}
	}

	return nil
}

// CheckSSRF rejects hostnames and resolved addresses that would let a crawl
// reach internal infrastructure.
func CheckSSRF(hostname string, addr net.IP) error {
	if err := CheckSSRFHostname(hostname); err != nil {
		return err
	}

	for _, network := range blockedNetworks {
		if network.Contains(addr) {
			return common.NewScanError(common.ErrSSRFPrivateIP, hostname+" resolved to private address "+addr.String())
		}
	}

	return nil
}
