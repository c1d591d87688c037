package netlab

//
// Network namespaces backend
//

import (
	"errors"
	"fmt"
	"net/netip"
	"sort"
	"strings"
)

// NamespaceBackend is a [Backend] creating a network namespace per node
// and a veth pair per link on a machine [Host]. The container-specific
// [NodeSpec] fields are ignored.
type NamespaceBackend struct {
	links   map[[2]string]*LinkHandle
	logger  Logger
	machine Host
	nodes   map[string]*NamespaceHost
	started bool
}

var _ Backend = &NamespaceBackend{}

// NewNamespaceBackend creates a new [NamespaceBackend].
func NewNamespaceBackend(machine Host, logger Logger) *NamespaceBackend {
	return &NamespaceBackend{
		links:   map[[2]string]*LinkHandle{},
		logger:  logger,
		machine: machine,
		nodes:   map[string]*NamespaceHost{},
	}
}

// AddNode implements Backend
func (nb *NamespaceBackend) AddNode(spec *NodeSpec) (Host, error) {
	if spec == nil || spec.Name == "" {
		return nil, fmt.Errorf("%w: node without name", ErrConfig)
	}
	if _, found := nb.nodes[spec.Name]; found {
		return nil, fmt.Errorf("%w: duplicate node %s", ErrConfig, spec.Name)
	}
	if _, err := nb.machine.Cmd("ip netns add " + spec.Name); err != nil {
		return nil, err
	}
	nh := &NamespaceHost{
		intfs:   map[string]bool{},
		logger:  nb.logger,
		machine: nb.machine,
		name:    spec.Name,
	}
	if _, err := nh.Cmd("ip link set lo up"); err != nil {
		_, _ = nb.machine.Cmd("ip netns del " + spec.Name)
		return nil, err
	}
	nb.nodes[spec.Name] = nh
	return nh, nil
}

// node returns the [NamespaceHost] corresponding to host.
func (nb *NamespaceBackend) node(host Host) (*NamespaceHost, error) {
	nh, found := nb.nodes[host.Name()]
	if !found {
		return nil, fmt.Errorf("%w: unknown node %s", ErrConfig, host.Name())
	}
	return nh, nil
}

// linkKey returns the key of the link between a and b.
func linkKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

// AddLink implements Backend
func (nb *NamespaceBackend) AddLink(a, b Host, pa, pb *LinkParams) (*LinkHandle, error) {
	na, err := nb.node(a)
	if err != nil {
		return nil, err
	}
	nbb, err := nb.node(b)
	if err != nil {
		return nil, err
	}
	key := linkKey(na.name, nbb.name)
	if _, found := nb.links[key]; found {
		return nil, fmt.Errorf("%w: duplicate link %s <-> %s", ErrConfig, na.name, nbb.name)
	}
	veth := fmt.Sprintf("ip link add %s netns %s type veth peer name %s netns %s",
		pa.Interface, na.name, pb.Interface, nbb.name)
	if _, err := nb.machine.Cmd(veth); err != nil {
		return nil, err
	}
	handle := &LinkHandle{Intf1: pa.Interface, Intf2: pb.Interface}
	nb.links[key] = handle
	na.intfs[pa.Interface] = true
	nbb.intfs[pb.Interface] = true
	if err := nb.configure(na, pa); err != nil {
		return handle, err
	}
	if err := nb.configure(nbb, pb); err != nil {
		return handle, err
	}
	return handle, nil
}

// configure assigns the address and brings the interface up.
func (nb *NamespaceBackend) configure(nh *NamespaceHost, params *LinkParams) error {
	prefix, err := netip.ParsePrefix(params.Address)
	if err != nil {
		return fmt.Errorf("%w: address %q: %w", ErrConfig, params.Address, err)
	}
	commands := []string{
		fmt.Sprintf("ip addr add %s dev %s", params.Address, params.Interface),
		fmt.Sprintf("ip link set %s up", params.Interface),
	}
	for _, command := range commands {
		if _, err := nh.Cmd(command); err != nil {
			return err
		}
	}
	if nh.address == "" {
		nh.address = prefix.Addr().String()
	}
	return nil
}

// RemoveLink implements Backend
func (nb *NamespaceBackend) RemoveLink(a, b Host) error {
	key := linkKey(a.Name(), b.Name())
	handle, found := nb.links[key]
	if !found {
		return fmt.Errorf("%w: (%s, %s)", ErrLinkTableMiss, a.Name(), b.Name())
	}
	delete(nb.links, key)
	na, err := nb.node(a)
	if err != nil {
		return err
	}
	nbb, err := nb.node(b)
	if err != nil {
		return err
	}
	intfA, intfB := handle.Intf1, handle.Intf2
	if _, ok := na.intfs[intfA]; !ok {
		intfA, intfB = intfB, intfA
	}
	delete(na.intfs, intfA)
	delete(nbb.intfs, intfB)
	// deleting one end of a veth pair deletes the other end as well
	_, err = na.Cmd("ip link del " + intfA)
	if len(na.intfs) <= 0 {
		na.address = ""
	}
	if len(nbb.intfs) <= 0 {
		nbb.address = ""
	}
	return err
}

// RemoveNode implements Backend
func (nb *NamespaceBackend) RemoveNode(name string) error {
	if _, found := nb.nodes[name]; !found {
		return fmt.Errorf("%w: unknown node %s", ErrConfig, name)
	}
	for key := range nb.links {
		if key[0] == name || key[1] == name {
			delete(nb.links, key)
		}
	}
	delete(nb.nodes, name)
	_, err := nb.machine.Cmd("ip netns del " + name)
	return err
}

// Start implements Backend
func (nb *NamespaceBackend) Start() error {
	if nb.started {
		return nil
	}
	nb.started = true
	nb.logger.Infof("netlab: namespaces: %s", strings.Join(nb.names(), " "))
	return nil
}

// Stop implements Backend
func (nb *NamespaceBackend) Stop() error {
	var errs []error
	for _, name := range nb.names() {
		if err := nb.RemoveNode(name); err != nil {
			errs = append(errs, err)
		}
	}
	nb.started = false
	return errors.Join(errs...)
}

// names returns the sorted node names.
func (nb *NamespaceBackend) names() []string {
	var names []string
	for name := range nb.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
