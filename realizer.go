package netlab

//
// Network realization
//

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
)

// RealizerState is the lifecycle state of a [Realizer].
type RealizerState int

const (
	// StateUnbuilt means that Build has not been called yet.
	StateUnbuilt RealizerState = iota

	// StateProvisioned means that hosts and links exist but routing
	// setup did not succeed, so the network is not usable.
	StateProvisioned

	// StateRouted means that the network is ready but not started.
	StateRouted

	// StateStarted means that the network is ready and started.
	StateStarted

	// StateStopped means that the network has been torn down.
	StateStopped
)

// String implements fmt.Stringer
func (s RealizerState) String() string {
	switch s {
	case StateUnbuilt:
		return "unbuilt"
	case StateProvisioned:
		return "provisioned"
	case StateRouted:
		return "routed"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("RealizerState(%d)", int(s))
	}
}

// RealizerConfig contains config for [NewRealizer].
type RealizerConfig struct {
	// Backend is the MANDATORY provisioning backend.
	Backend Backend

	// Logger is the MANDATORY logger.
	Logger Logger

	// Metrics contains OPTIONAL metrics.
	Metrics *Metrics

	// Subnet is the OPTIONAL window from which we carve link
	// subnets (default: [DefaultSubnet]).
	Subnet string

	// LinkPrefixLen is the OPTIONAL link subnet prefix length
	// (default: [DefaultLinkPrefixLen]).
	LinkPrefixLen int
}

// Realizer turns a [MatrixSet] into an emulated network: it provisions hosts
// using a [Backend], creates links, installs traffic shaping and invokes a
// [RoutingStrategy]. Failed host commands are [SetupDegradation]s, while
// routing failures cause the operation to fail.
//
// A Realizer is not goroutine safe. Use one Realizer per goroutine (e.g., one
// per routing strategy under test) with distinct node prefixes.
type Realizer struct {
	backend Backend
	bits    int
	logger  Logger
	metrics *Metrics
	subnet  string

	degradations []SetupDegradation
	hosts        []Host
	index        map[string]int
	intfs        [][]HostInterface
	links        []*realizedLink
	ms           *MatrixSet
	nodeConfig   NodeConfig
	started      bool
	state        RealizerState
	strategy     RoutingStrategy
	table        LinkIPTable
}

// NewRealizer creates a new [Realizer] in [StateUnbuilt].
func NewRealizer(config *RealizerConfig) (*Realizer, error) {
	if config == nil || config.Backend == nil || config.Logger == nil {
		return nil, fmt.Errorf("%w: realizer needs a backend and a logger", ErrConfig)
	}
	subnet := config.Subnet
	if subnet == "" {
		subnet = DefaultSubnet
	}
	bits := config.LinkPrefixLen
	if bits == 0 {
		bits = DefaultLinkPrefixLen
	}
	// make sure we fail early on a broken window
	if _, err := NewSubnetAllocator(subnet, bits); err != nil {
		return nil, err
	}
	r := &Realizer{
		backend: config.Backend,
		bits:    bits,
		logger:  config.Logger,
		metrics: config.Metrics,
		subnet:  subnet,
		index:   map[string]int{},
		state:   StateUnbuilt,
		table:   LinkIPTable{},
	}
	return r, nil
}

// State returns the current [RealizerState].
func (r *Realizer) State() RealizerState {
	if r.state == StateRouted && r.started {
		return StateStarted
	}
	return r.state
}

// Build provisions ms.NumNodes() hosts named after the node prefix, creates
// the links with their shaping rules and sets up routing using strategy.
//
// Build fails with [ErrTopologyIntegrity] before touching any host when the
// set is malformed, and with [ErrRoutingSetup] when the strategy fails, in
// which case hosts and links stay provisioned and a subsequent [Realizer.Reload]
// or [Realizer.Stop] is possible.
func (r *Realizer) Build(ctx context.Context, nc *NodeConfig, ms *MatrixSet, strategy RoutingStrategy) error {
	err := r.build(ctx, nc, ms, strategy)
	r.metrics.recordBuild(err)
	return err
}

func (r *Realizer) build(ctx context.Context, nc *NodeConfig, ms *MatrixSet, strategy RoutingStrategy) error {
	if r.state != StateUnbuilt && r.state != StateStopped {
		return fmt.Errorf("%w: cannot build when %s", ErrInvalidState, r.State())
	}
	if err := ms.Validate(); err != nil {
		return err
	}
	if ms.NumNodes() < 1 {
		return fmt.Errorf("%w: topology %q has no nodes", ErrTopologyIntegrity, ms.Name)
	}
	if strategy == nil {
		return fmt.Errorf("%w: missing routing strategy", ErrConfig)
	}

	r.nodeConfig = NodeConfig{}
	if nc != nil {
		r.nodeConfig = *nc
	}
	r.ms = ms.Clone()
	r.strategy = strategy
	r.degradations = nil
	r.started = false
	r.hosts = nil
	r.index = map[string]int{}

	r.logger.Infof("netlab: building %q with %d hosts and %s routing",
		ms.Name, ms.NumNodes(), strategy.Name())
	if err := r.addHosts(0, ms.NumNodes()); err != nil {
		r.removeHosts(0)
		return err
	}
	r.state = StateProvisioned
	return r.setupNetwork(ctx)
}

// addHosts provisions the hosts with index in [from, to).
func (r *Realizer) addHosts(from, to int) error {
	for idx := from; idx < to; idx++ {
		spec := &NodeSpec{
			Name:         fmt.Sprintf("%s%d", r.nodeConfig.prefix(), idx),
			Image:        r.nodeConfig.Image,
			Volumes:      r.nodeConfig.Volumes,
			Capabilities: r.nodeConfig.Capabilities,
			Ports:        r.nodeConfig.Ports,
		}
		r.logger.Debugf("netlab: add node %s", spec.Name)
		host, err := r.backend.AddNode(spec)
		if err != nil {
			return fmt.Errorf("netlab: cannot provision %s: %w", spec.Name, err)
		}
		r.hosts = append(r.hosts, host)
		r.index[spec.Name] = idx
	}
	return nil
}

// removeHosts deprovisions the hosts with index >= from.
func (r *Realizer) removeHosts(from int) {
	for idx := len(r.hosts) - 1; idx >= from; idx-- {
		name := r.hosts[idx].Name()
		r.logger.Debugf("netlab: remove node %s", name)
		if err := r.backend.RemoveNode(name); err != nil {
			r.degrade("deprovision", name, "remove node", err)
		}
		delete(r.index, name)
	}
	r.hosts = r.hosts[:from]
}

// setupNetwork creates links, shaping, forwarding and routes for the
// current hosts and matrix set. The link table is rebuilt from scratch.
func (r *Realizer) setupNetwork(ctx context.Context) error {
	alloc, err := NewSubnetAllocator(r.subnet, r.bits)
	if err != nil {
		return err
	}
	r.table = LinkIPTable{}
	r.links = nil
	r.intfs = make([][]HostInterface, len(r.hosts))

	for _, edge := range r.ms.Edges() {
		subnet, err := alloc.Next()
		if err != nil {
			return err
		}
		r.addLink(edge[0], edge[1], subnet)
	}
	for _, host := range r.hosts {
		_, _ = r.exec(host, "forwarding", ForwardingCommand)
	}
	r.metrics.setSize(len(r.hosts), len(r.links))
	if summary, err := r.ms.Summary(); err == nil {
		r.logger.Infof("netlab: %q: %s", r.ms.Name, summary)
	}

	if err := r.strategy.SetupRoutes(ctx, &realizerView{r}); err != nil {
		r.metrics.recordRoutingFailure(r.strategy.Name())
		r.logger.Warnf("netlab: %s routing failed: %s", r.strategy.Name(), err.Error())
		r.state = StateProvisioned
		if !errors.Is(err, ErrRoutingSetup) {
			err = fmt.Errorf("%w: %w", ErrRoutingSetup, err)
		}
		return err
	}
	r.state = StateRouted
	r.logger.Infof("netlab: %q ready: %d hosts, %d links, %d degradations",
		r.ms.Name, len(r.hosts), len(r.links), len(r.degradations))
	return nil
}

// addLink creates the link between nodes a < b using the given subnet and
// installs the shaping rules of both directions.
func (r *Realizer) addLink(a, b int, subnet netip.Prefix) {
	ha, hb := r.hosts[a], r.hosts[b]
	addrA, addrB := linkEndpoints(subnet)
	ka, kb := len(r.intfs[a]), len(r.intfs[b])
	pa := &LinkParams{
		Interface: interfaceName(ha.Name(), ka),
		Address:   netip.PrefixFrom(addrA, subnet.Bits()).String(),
	}
	pb := &LinkParams{
		Interface: interfaceName(hb.Name(), kb),
		Address:   netip.PrefixFrom(addrB, subnet.Bits()).String(),
	}
	r.logger.Debugf("netlab: add link %s (%s) <-> %s (%s)", pa.Interface, pa.Address, pb.Interface, pb.Address)
	handle, err := r.backend.AddLink(ha, hb, pa, pb)
	if err != nil {
		r.degrade("link", ha.Name(), fmt.Sprintf("add link %s <-> %s", pa.Interface, pb.Interface), err)
		return
	}

	link := &realizedLink{
		a:      a,
		b:      b,
		handle: handle,
		addrA:  pa.Address,
		addrB:  pb.Address,
		ifbA:   ifbName(ka),
		ifbB:   ifbName(kb),
	}
	r.links = append(r.links, link)
	r.table[LinkKey{From: ha.Name(), To: hb.Name()}] = addrB
	r.table[LinkKey{From: hb.Name(), To: ha.Name()}] = addrA
	r.intfs[a] = append(r.intfs[a], HostInterface{
		Name:   handle.Intf1,
		Peer:   b,
		Prefix: netip.PrefixFrom(addrA, subnet.Bits()),
	})
	r.intfs[b] = append(r.intfs[b], HostInterface{
		Name:   handle.Intf2,
		Peer:   a,
		Prefix: netip.PrefixFrom(addrB, subnet.Bits()),
	})

	// a -> b: egress on a, ingress on b
	r.shape(ha, handle.Intf1, hb, handle.Intf2, link.ifbB, ShapeOf(r.ms, a, b))

	// b -> a: egress on b, ingress on a
	r.shape(hb, handle.Intf2, ha, handle.Intf1, link.ifbA, ShapeOf(r.ms, b, a))
}

// shape installs the rules of the direction from src to dst.
func (r *Realizer) shape(src Host, srcIntf string, dst Host, dstIntf, dstIFB string, shape LinkShape) {
	r.logger.Debugf("netlab: shape %s -> %s: %s", srcIntf, dstIntf, shape)
	for _, command := range EgressCommands(srcIntf, shape.Bandwidth) {
		_, _ = r.exec(src, "shaping", command)
	}
	for _, command := range IngressCommands(dstIntf, dstIFB, shape) {
		_, _ = r.exec(dst, "shaping", command)
	}
}

// exec runs a setup command on a host. A failure becomes a degradation.
func (r *Realizer) exec(host Host, stage, command string) (string, error) {
	r.logger.Debugf("netlab: %s: %s", host.Name(), command)
	output, err := host.Cmd(command)
	r.metrics.recordCommand(stage, err)
	if err != nil {
		r.degrade(stage, host.Name(), command, err)
	}
	return output, err
}

// degrade records a [SetupDegradation].
func (r *Realizer) degrade(stage, host, command string, err error) {
	sd := SetupDegradation{
		Stage:   stage,
		Host:    host,
		Command: command,
		Err:     err,
	}
	r.logger.Warnf("netlab: degraded: %s", sd.String())
	r.degradations = append(r.degradations, sd)
}

// Start activates the network. Calling Start on a started network is a no-op.
func (r *Realizer) Start() error {
	if r.state != StateRouted {
		return fmt.Errorf("%w: cannot start when %s", ErrInvalidState, r.State())
	}
	if r.started {
		return nil
	}
	if err := r.backend.Start(); err != nil {
		return err
	}
	r.started = true
	r.logger.Infof("netlab: %q started", r.ms.Name)
	return nil
}

// Stop removes the routes and deactivates the network, releasing every
// host. Calling Stop on an unbuilt or stopped network is a no-op.
func (r *Realizer) Stop(ctx context.Context) error {
	if r.state == StateUnbuilt || r.state == StateStopped {
		return nil
	}
	if err := r.strategy.TeardownRoutes(ctx, &realizerView{r}); err != nil {
		r.logger.Warnf("netlab: %s route teardown: %s", r.strategy.Name(), err.Error())
	}
	err := r.backend.Stop()
	r.hosts = nil
	r.index = map[string]int{}
	r.intfs = nil
	r.links = nil
	r.table = LinkIPTable{}
	r.started = false
	r.state = StateStopped
	r.metrics.setSize(0, 0)
	r.logger.Infof("netlab: %q stopped", r.ms.Name)
	return err
}

// Reload moves the network to next. When the five matrices equal the
// current ones and the network is routed, Reload does nothing. Otherwise
// it resets links and routes, provisions or deprovisions the trailing
// hosts to match the new node count and rebuilds links, shaping and
// routing from scratch. Existing hosts are reused.
func (r *Realizer) Reload(ctx context.Context, next *MatrixSet) error {
	if r.state != StateProvisioned && r.state != StateRouted {
		return fmt.Errorf("%w: cannot reload when %s", ErrInvalidState, r.State())
	}
	if err := next.Validate(); err != nil {
		return err
	}
	if next.NumNodes() < 1 {
		return fmt.Errorf("%w: topology %q has no nodes", ErrTopologyIntegrity, next.Name)
	}
	if r.state == StateRouted && r.ms.Equal(next) {
		r.logger.Infof("netlab: reload %q: matrices unchanged", next.Name)
		r.ms.Name = next.Name
		r.metrics.recordReload(ReloadNoop)
		return nil
	}

	diff := len(r.hosts) - next.NumNodes()
	r.logger.Infof("netlab: reload %q -> %q (%d -> %d hosts)",
		r.ms.Name, next.Name, len(r.hosts), next.NumNodes())
	r.degradations = nil
	r.reset(ctx)
	r.ms = next.Clone()

	switch {
	case diff < 0:
		r.metrics.recordReload(ReloadExpand)
		if err := r.addHosts(len(r.hosts), next.NumNodes()); err != nil {
			r.state = StateProvisioned
			return err
		}
	case diff > 0:
		r.metrics.recordReload(ReloadShrink)
		r.removeHosts(next.NumNodes())
	default:
		r.metrics.recordReload(ReloadRebuild)
	}
	return r.setupNetwork(ctx)
}

// reset removes routes, links, queueing disciplines and interfaces while
// keeping the hosts. Failures are degradations.
func (r *Realizer) reset(ctx context.Context) {
	if r.state == StateRouted {
		if err := r.strategy.TeardownRoutes(ctx, &realizerView{r}); err != nil {
			r.logger.Warnf("netlab: %s route teardown: %s", r.strategy.Name(), err.Error())
		}
	}
	for _, link := range r.links {
		ha, hb := r.hosts[link.a], r.hosts[link.b]
		if err := r.backend.RemoveLink(ha, hb); err != nil {
			r.degrade("reset", ha.Name(), fmt.Sprintf("remove link %s <-> %s",
				link.handle.Intf1, link.handle.Intf2), err)
		}
	}
	for _, host := range r.hosts {
		if err := host.Cleanup(); err != nil {
			r.degrade("reset", host.Name(), "cleanup", err)
		}
		if err := host.DeleteIntfs(); err != nil {
			r.degrade("reset", host.Name(), "delete interfaces", err)
		}
	}
	r.links = nil
	r.intfs = make([][]HostInterface, len(r.hosts))
	r.table = LinkIPTable{}
	r.state = StateProvisioned
}

// Hosts returns the hosts ordered by node index.
func (r *Realizer) Hosts() []Host {
	return append([]Host{}, r.hosts...)
}

// NumHosts returns the number of hosts.
func (r *Realizer) NumHosts() int {
	return len(r.hosts)
}

// HostIndex returns the node index of the host with the given name.
func (r *Realizer) HostIndex(name string) (int, bool) {
	idx, found := r.index[name]
	return idx, found
}

// HostIPRange returns the window from which we carve link subnets.
func (r *Realizer) HostIPRange() string {
	prefix := netip.MustParsePrefix(r.subnet)
	return prefix.Masked().String()
}

// LinkTable returns a copy of the current [LinkIPTable].
func (r *Realizer) LinkTable() LinkIPTable {
	return r.table.Clone()
}

// RoutingStrategy returns the strategy passed to Build.
func (r *Realizer) RoutingStrategy() RoutingStrategy {
	return r.strategy
}

// MatrixSet returns a copy of the current matrix set or nil.
func (r *Realizer) MatrixSet() *MatrixSet {
	if r.ms == nil {
		return nil
	}
	return r.ms.Clone()
}

// Degradations returns the degradations of the last Build or Reload.
func (r *Realizer) Degradations() []SetupDegradation {
	return append([]SetupDegradation{}, r.degradations...)
}

// Description returns the [Describe] string of the current matrix set.
func (r *Realizer) Description() string {
	return Describe(r.ms)
}

// realizerView implements [NetworkView] on top of a [Realizer].
type realizerView struct {
	r *Realizer
}

var _ NetworkView = &realizerView{}

// Hosts implements NetworkView
func (v *realizerView) Hosts() []Host {
	return v.r.Hosts()
}

// NumHosts implements NetworkView
func (v *realizerView) NumHosts() int {
	return v.r.NumHosts()
}

// Adjacency implements NetworkView
func (v *realizerView) Adjacency() Matrix {
	return v.r.ms.Adjacency.Clone()
}

// LinkTable implements NetworkView
func (v *realizerView) LinkTable() LinkIPTable {
	return v.r.LinkTable()
}

// HostAddress implements NetworkView
func (v *realizerView) HostAddress(index int) netip.Addr {
	if index < 0 || index >= len(v.r.intfs) || len(v.r.intfs[index]) <= 0 {
		return netip.Addr{}
	}
	return v.r.intfs[index][0].Prefix.Addr()
}

// Interfaces implements NetworkView
func (v *realizerView) Interfaces(index int) []HostInterface {
	if index < 0 || index >= len(v.r.intfs) {
		return nil
	}
	return append([]HostInterface{}, v.r.intfs[index]...)
}

// Exec implements NetworkView
func (v *realizerView) Exec(host Host, stage, command string) (string, error) {
	return v.r.exec(host, stage, command)
}

// Logger implements NetworkView
func (v *realizerView) Logger() Logger {
	return v.r.logger
}
