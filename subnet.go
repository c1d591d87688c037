package netlab

//
// Link subnet allocation
//

import (
	"fmt"
	"net/netip"

	"go4.org/netipx"
)

// DefaultSubnet is the default window from which we carve link subnets.
const DefaultSubnet = "10.0.0.0/16"

// DefaultLinkPrefixLen is the default prefix length of a link subnet.
const DefaultLinkPrefixLen = 30

// SubnetAllocator hands out consecutive point-to-point link subnets from
// a window. The zero value is invalid; use [NewSubnetAllocator].
type SubnetAllocator struct {
	window netip.Prefix
	bits   int
	next   netip.Addr
}

// NewSubnetAllocator creates a [SubnetAllocator] carving subnets with the
// given prefix length (30 or 31) out of window (e.g., "10.0.0.0/24").
func NewSubnetAllocator(window string, bits int) (*SubnetAllocator, error) {
	prefix, err := netip.ParsePrefix(window)
	if err != nil {
		return nil, fmt.Errorf("%w: subnet %q: %w", ErrConfig, window, err)
	}
	prefix = prefix.Masked()
	if !prefix.Addr().Is4() {
		return nil, fmt.Errorf("%w: subnet %q is not IPv4", ErrConfig, window)
	}
	if bits != 30 && bits != 31 {
		return nil, fmt.Errorf("%w: link prefix length must be 30 or 31, got %d", ErrConfig, bits)
	}
	if prefix.Bits() > bits {
		return nil, fmt.Errorf("%w: subnet %q is smaller than a /%d", ErrConfig, window, bits)
	}
	sa := &SubnetAllocator{
		window: prefix,
		bits:   bits,
		next:   prefix.Addr(),
	}
	return sa, nil
}

// Window returns the whole window in CIDR notation.
func (sa *SubnetAllocator) Window() string {
	return sa.window.String()
}

// Next returns the next link subnet or [ErrSubnetExhausted].
func (sa *SubnetAllocator) Next() (netip.Prefix, error) {
	if !sa.next.IsValid() || !sa.window.Contains(sa.next) {
		return netip.Prefix{}, fmt.Errorf("%w: %s", ErrSubnetExhausted, sa.window)
	}
	subnet := netip.PrefixFrom(sa.next, sa.bits)
	// note: Next returns the zero Addr after 255.255.255.255, which
	// makes the validity check above fail on the following call
	sa.next = netipx.PrefixLastIP(subnet).Next()
	return subnet, nil
}

// linkEndpoints returns the two usable addresses of a link subnet.
func linkEndpoints(subnet netip.Prefix) (netip.Addr, netip.Addr) {
	first := subnet.Addr()
	if subnet.Bits() < 31 {
		first = first.Next() // skip the network address
	}
	return first, first.Next()
}
