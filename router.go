package netlab

//
// Routing strategies
//

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
)

// NetworkView is the read-only view of a realized network that the
// [Realizer] passes to a [RoutingStrategy]. A strategy MUST NOT retain
// the view (or anything obtained from it) after the call returns, since
// the realizer rebuilds hosts and links on every reset.
type NetworkView interface {
	// Hosts returns the hosts ordered by node index.
	Hosts() []Host

	// NumHosts returns the number of hosts.
	NumHosts() int

	// Adjacency returns the adjacency matrix.
	Adjacency() Matrix

	// LinkTable returns the current [LinkIPTable].
	LinkTable() LinkIPTable

	// HostAddress returns the address that identifies the host with the
	// given index, i.e., the address of its first link interface, or an
	// invalid address when the host has no links.
	HostAddress(index int) netip.Addr

	// Interfaces returns the link interfaces of the host with the given
	// index in link creation order.
	Interfaces(index int) []HostInterface

	// Exec runs a command on a host on behalf of the given setup stage. A
	// failure is logged and recorded as a [SetupDegradation]; the returned
	// error allows the caller to react but MAY be ignored.
	Exec(host Host, stage, command string) (string, error)

	// Logger returns the logger to use.
	Logger() Logger
}

// HostInterface is a link interface of a realized host.
type HostInterface struct {
	// Name is the interface name.
	Name string

	// Peer is the index of the host on the other side of the link.
	Peer int

	// Prefix is the interface address with the link prefix length.
	Prefix netip.Prefix
}

// RoutingStrategy installs and removes the forwarding rules of a network.
//
// The set of strategies is closed: [StaticChainRouting], [StaticBFSRouting]
// and [DaemonRouting].
type RoutingStrategy interface {
	// Name returns the strategy name.
	Name() string

	// SetupRoutes installs routes. A non-nil error means the routes are
	// not usable and the network must not be used.
	SetupRoutes(ctx context.Context, view NetworkView) error

	// TeardownRoutes removes what SetupRoutes installed.
	TeardownRoutes(ctx context.Context, view NetworkView) error

	// sealed prevents implementations outside this package.
	sealed()
}

// Names of the routing strategies accepted by [ParseRoutingStrategy].
const (
	RoutingStaticChain = "static_chain"
	RoutingStaticBFS   = "static_bfs"
	RoutingDaemon      = "ospf"
)

// ParseRoutingStrategy returns the [RoutingStrategy] with the given name. An
// empty name selects [StaticBFSRouting], which works with any topology. The
// dc argument configures [DaemonRouting] and is ignored otherwise. Unknown
// names and malformed daemon templates are [ErrConfig] errors.
func ParseRoutingStrategy(name string, dc *DaemonConfig) (RoutingStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", RoutingStaticBFS, "bfs":
		return &StaticBFSRouting{}, nil
	case RoutingStaticChain, "chain":
		return &StaticChainRouting{}, nil
	case RoutingDaemon, "daemon":
		return NewDaemonRouting(dc)
	default:
		return nil, fmt.Errorf("%w: unknown routing strategy %q", ErrConfig, name)
	}
}

// staticRoute is a host route installed by a static strategy.
type staticRoute struct {
	// host is the index of the host where we install the route.
	host int

	// dst is the destination host address.
	dst netip.Addr

	// gw is the next-hop gateway address.
	gw netip.Addr
}

// addCommand returns the command installing the route.
func (sr *staticRoute) addCommand() string {
	return fmt.Sprintf("ip route replace %s/32 via %s", sr.dst, sr.gw)
}

// delCommand returns the command removing the route.
func (sr *staticRoute) delCommand() string {
	return fmt.Sprintf("ip route del %s/32 via %s", sr.dst, sr.gw)
}

// installStaticRoutes installs routes using view.Exec. Command failures are
// degradations and do not cause failures.
func installStaticRoutes(view NetworkView, routes []staticRoute) {
	hosts := view.Hosts()
	for idx := range routes {
		r := &routes[idx]
		view.Logger().Debugf("netlab: %s: route add %s/32 via %s", hosts[r.host].Name(), r.dst, r.gw)
		_, _ = view.Exec(hosts[r.host], "routing", r.addCommand())
	}
}

// removeStaticRoutes is the dual of installStaticRoutes.
func removeStaticRoutes(view NetworkView, routes []staticRoute) {
	hosts := view.Hosts()
	for idx := range routes {
		r := &routes[idx]
		_, _ = view.Exec(hosts[r.host], "teardown", r.delCommand())
	}
}
