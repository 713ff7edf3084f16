package ingress

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/ternarybob/privascan/internal/common"
)

const dnsTimeout = 5 * time.Second

// HostResolver resolves a hostname to one address. Referenced by interface
// so admission can be exercised without live DNS.
type HostResolver interface {
	Resolve(ctx context.Context, hostname string) (net.IP, error)
}

// Resolver performs time-bounded DNS resolution ahead of any downstream
// resource allocation.
type Resolver struct {
	resolver *net.Resolver
	timeout  time.Duration
}

// NewResolver creates a resolver using the system DNS configuration.
func NewResolver() *Resolver {
	return &Resolver{
		resolver: net.DefaultResolver,
		timeout:  dnsTimeout,
	}
}

// Resolve returns one address for the hostname. Both address families are
// accepted; when the resolver returns several addresses the first is picked
// so the choice is deterministic across retries.
func (r *Resolver) Resolve(ctx context.Context, hostname string) (net.IP, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addrs, err := r.resolver.LookupIPAddr(ctx, hostname)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, common.NewScanError(common.ErrDNSTimeout, "resolution of "+hostname+" exceeded deadline")
		}
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsTimeout {
			return nil, common.NewScanError(common.ErrDNSTimeout, dnsErr.Error())
		}
		return nil, common.NewScanError(common.ErrDNSFailed, err.Error())
	}

	if len(addrs) == 0 {
		return nil, common.NewScanError(common.ErrDNSFailed, "no addresses returned for "+hostname)
	}

	return addrs[0].IP, nil
}
