// Package netlab realizes emulated network topologies on top of Linux
// network namespaces, traffic control and a routing strategy.
//
// A topology is a [MatrixSet]: an adjacency matrix plus four matrices
// describing the bandwidth, packet loss, latency and jitter of each
// direction of each link. You usually do not write matrices by hand.
// Instead, you describe a [TopologyConfig] naming a [Family] (linear,
// mesh, star, tree or butterfly), the number of nodes and a list of
// [LinkAttribute], and you call [GenerateMatrixSets]. When an attribute
// is stepped, the result contains one [MatrixSet] per combination of
// values, which you can walk using a [TopologyIterator]. Precomputed
// sets may also be loaded from JSON using [LoadMatrixFile].
//
// A [Realizer] turns a [MatrixSet] into a running network. It provisions
// one [Host] per node using a [Backend], creates a point-to-point link per
// adjacency edge with addresses carved out of a [SubnetAllocator], installs
// the shaping rules computed by [EgressCommands] and [IngressCommands] and
// finally invokes a [RoutingStrategy]:
//
// - [StaticChainRouting] for chains in node index order;
//
// - [StaticBFSRouting] for any topology, using shortest paths;
//
// - [DaemonRouting] running a link-state routing daemon on every host.
//
// Host commands that fail are collected as [SetupDegradation] and do not
// stop the realization, while routing failures do. Use [Realizer.Reload]
// to move a running network to the next [MatrixSet] without recreating
// the hosts that both topologies share.
//
// The [NamespaceBackend] creates namespaces and veth pairs on a machine
// that is either the local one ([ExecHost]) or a remote one ([SSHHost]).
//
// The netlab command in cmd/netlab drives all of the above from a YAML
// configuration file.
package netlab
