package netlab

//
// Static shortest-path routing
//

import (
	"context"
	"fmt"
)

// ShortestPath returns the shortest path from src to dst in the graph
// described by adj, or nil when dst is unreachable. We consider a link to
// exist when adj[i][j] or adj[j][i] is nonzero and we explore neighbors in
// ascending index order, so the result is deterministic.
func ShortestPath(adj Matrix, src, dst int) []int {
	n := adj.Dim()
	if src < 0 || src >= n || dst < 0 || dst >= n {
		return nil
	}
	parent := make([]int, n)
	for i := range parent {
		parent[i] = -1
	}
	parent[src] = src
	queue := []int{src}
	for len(queue) > 0 && parent[dst] < 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := 0; next < n; next++ {
			if parent[next] < 0 && adj.Linked(cur, next) {
				parent[next] = cur
				queue = append(queue, next)
			}
		}
	}
	if parent[dst] < 0 {
		return nil
	}
	var path []int
	for cur := dst; cur != src; cur = parent[cur] {
		path = append(path, cur)
	}
	path = append(path, src)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// StaticBFSRouting installs a static host route for every pair of hosts
// along the shortest path between them. It works with any topology and
// it is the default strategy. The zero value is ready to use.
type StaticBFSRouting struct{}

var _ RoutingStrategy = &StaticBFSRouting{}

// Name implements RoutingStrategy
func (*StaticBFSRouting) Name() string {
	return RoutingStaticBFS
}

func (*StaticBFSRouting) sealed() {}

// routes computes the routes to install.
func (*StaticBFSRouting) routes(view NetworkView) ([]staticRoute, error) {
	hosts, table, adj := view.Hosts(), view.LinkTable(), view.Adjacency()
	logger := view.Logger()

	var out []staticRoute
	for src := range hosts {
		for dst := range hosts {
			if src == dst {
				continue
			}
			path := ShortestPath(adj, src, dst)
			if path == nil {
				logger.Warnf("netlab: bfs routing: no path from %s to %s", hosts[src].Name(), hosts[dst].Name())
				continue
			}
			dstAddr := view.HostAddress(dst)
			if !dstAddr.IsValid() {
				logger.Warnf("netlab: bfs routing: %s has no address", hosts[dst].Name())
				continue
			}
			gw, err := table.MustLookup(hosts[src], hosts[path[1]])
			if err != nil {
				return nil, fmt.Errorf("bfs routing: %w", err)
			}
			if gw == dstAddr {
				continue // directly connected
			}
			out = append(out, staticRoute{host: src, dst: dstAddr, gw: gw})
		}
	}
	return out, nil
}

// SetupRoutes implements RoutingStrategy
func (sbr *StaticBFSRouting) SetupRoutes(ctx context.Context, view NetworkView) error {
	routes, err := sbr.routes(view)
	if err != nil {
		return err
	}
	installStaticRoutes(view, routes)
	view.Logger().Infof("netlab: bfs routing: %d routes on %d hosts", len(routes), view.NumHosts())
	return nil
}

// TeardownRoutes implements RoutingStrategy
func (sbr *StaticBFSRouting) TeardownRoutes(ctx context.Context, view NetworkView) error {
	routes, err := sbr.routes(view)
	if err != nil {
		return err
	}
	removeStaticRoutes(view, routes)
	return nil
}
