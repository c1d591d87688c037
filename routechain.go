package netlab

//
// Static chain routing
//

import (
	"context"
	"fmt"
	"net/netip"
)

// StaticChainRouting installs static host routes assuming that the hosts
// form a chain in node index order (h0 - h1 - ... - hN-1).
//
// For each pair (src, dst) with dst at least two hops after src, we add to
// src a route towards the dst interface facing dst-1 via the src+1 interface
// facing src, and the symmetric route on dst. Using this strategy with a
// non-chain topology yields incomplete routes: we do not check for that,
// so only use it for chains. The zero value is ready to use.
type StaticChainRouting struct{}

var _ RoutingStrategy = &StaticChainRouting{}

// Name implements RoutingStrategy
func (*StaticChainRouting) Name() string {
	return RoutingStaticChain
}

func (*StaticChainRouting) sealed() {}

// routes computes the routes to install.
func (*StaticChainRouting) routes(view NetworkView) ([]staticRoute, error) {
	hosts, table := view.Hosts(), view.LinkTable()
	var (
		out []staticRoute
		err error
	)
	// lookup returns the address of b facing a and remembers the first miss
	lookup := func(a, b int) netip.Addr {
		addr, lerr := table.MustLookup(hosts[a], hosts[b])
		if lerr != nil && err == nil {
			err = fmt.Errorf("chain routing: %w", lerr)
		}
		return addr
	}
	for src := 0; src < len(hosts); src++ {
		for dst := src + 2; dst < len(hosts); dst++ {
			out = append(out, staticRoute{
				host: src,
				dst:  lookup(dst-1, dst),
				gw:   lookup(src, src+1),
			}, staticRoute{
				host: dst,
				dst:  lookup(src+1, src),
				gw:   lookup(dst, dst-1),
			})
			if err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// SetupRoutes implements RoutingStrategy
func (scr *StaticChainRouting) SetupRoutes(ctx context.Context, view NetworkView) error {
	routes, err := scr.routes(view)
	if err != nil {
		return err
	}
	installStaticRoutes(view, routes)
	view.Logger().Infof("netlab: chain routing: %d routes on %d hosts", len(routes), view.NumHosts())
	return nil
}

// TeardownRoutes implements RoutingStrategy
func (scr *StaticChainRouting) TeardownRoutes(ctx context.Context, view NetworkView) error {
	routes, err := scr.routes(view)
	if err != nil {
		return err
	}
	removeStaticRoutes(view, routes)
	return nil
}
