// Package fakenet contains a recording [netlab.Backend] for tests.
package fakenet

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"sort"
	"strings"
	"sync"

	"github.com/bassosimone/netlab"
)

// ErrInjected is the error returned by injected failures.
var ErrInjected = errors.New("fakenet: injected failure")

// Backend is a [netlab.Backend] that records the operations and the host
// commands without touching the operating system. The zero value is
// invalid; use [New].
type Backend struct {
	// FailCommand OPTIONALLY makes the commands for which it returns
	// true fail with [ErrInjected].
	FailCommand func(host, command string) bool

	// Output OPTIONALLY returns the output of a command.
	Output func(host, command string) string

	// FailAddNode OPTIONALLY makes AddNode fail for the given names.
	FailAddNode map[string]bool

	commands []Command
	hosts    map[string]*Host
	links    map[[2]string]*netlab.LinkHandle
	mu       sync.Mutex
	ops      []string
	started  bool
}

// Command is a command run on a host.
type Command struct {
	Host    string
	Command string
}

// New creates a new [Backend].
func New() *Backend {
	return &Backend{
		hosts: map[string]*Host{},
		links: map[[2]string]*netlab.LinkHandle{},
	}
}

var _ netlab.Backend = &Backend{}

// AddNode implements netlab.Backend
func (b *Backend) AddNode(spec *netlab.NodeSpec) (netlab.Host, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailAddNode[spec.Name] {
		return nil, ErrInjected
	}
	if _, found := b.hosts[spec.Name]; found {
		return nil, fmt.Errorf("fakenet: duplicate node %s", spec.Name)
	}
	host := &Host{backend: b, name: spec.Name, intfs: map[string]bool{}}
	b.hosts[spec.Name] = host
	b.ops = append(b.ops, "add node "+spec.Name)
	return host, nil
}

func pair(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

// AddLink implements netlab.Backend
func (b *Backend) AddLink(ha, hb netlab.Host, pa, pb *netlab.LinkParams) (*netlab.LinkHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := pair(ha.Name(), hb.Name())
	if _, found := b.links[key]; found {
		return nil, fmt.Errorf("fakenet: duplicate link %s <-> %s", ha.Name(), hb.Name())
	}
	fa, fb := b.hosts[ha.Name()], b.hosts[hb.Name()]
	if fa == nil || fb == nil {
		return nil, fmt.Errorf("fakenet: unknown node in %s <-> %s", ha.Name(), hb.Name())
	}
	handle := &netlab.LinkHandle{Intf1: pa.Interface, Intf2: pb.Interface}
	b.links[key] = handle
	fa.addIntf(pa)
	fb.addIntf(pb)
	b.ops = append(b.ops, fmt.Sprintf("add link %s %s %s %s", pa.Interface, pa.Address, pb.Interface, pb.Address))
	return handle, nil
}

// RemoveNode implements netlab.Backend
func (b *Backend) RemoveNode(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, found := b.hosts[name]; !found {
		return fmt.Errorf("fakenet: unknown node %s", name)
	}
	delete(b.hosts, name)
	b.ops = append(b.ops, "remove node "+name)
	return nil
}

// RemoveLink implements netlab.Backend
func (b *Backend) RemoveLink(ha, hb netlab.Host) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := pair(ha.Name(), hb.Name())
	handle, found := b.links[key]
	if !found {
		return fmt.Errorf("fakenet: unknown link %s <-> %s", ha.Name(), hb.Name())
	}
	delete(b.links, key)
	for _, name := range key {
		if host := b.hosts[name]; host != nil {
			delete(host.intfs, handle.Intf1)
			delete(host.intfs, handle.Intf2)
		}
	}
	b.ops = append(b.ops, fmt.Sprintf("remove link %s %s", handle.Intf1, handle.Intf2))
	return nil
}

// Start implements netlab.Backend
func (b *Backend) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = true
	b.ops = append(b.ops, "start")
	return nil
}

// Stop implements netlab.Backend
func (b *Backend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = false
	b.hosts = map[string]*Host{}
	b.links = map[[2]string]*netlab.LinkHandle{}
	b.ops = append(b.ops, "stop")
	return nil
}

// Started returns whether the backend is started.
func (b *Backend) Started() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started
}

// Commands returns a copy of all the commands run so far.
func (b *Backend) Commands() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Command{}, b.commands...)
}

// CommandsOf returns the commands run on the given host.
func (b *Backend) CommandsOf(host string) []string {
	var out []string
	for _, c := range b.Commands() {
		if c.Host == host {
			out = append(out, c.Command)
		}
	}
	return out
}

// Ops returns a copy of the backend operations run so far.
func (b *Backend) Ops() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.ops...)
}

// NodeNames returns the sorted names of the provisioned nodes.
func (b *Backend) NodeNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var names []string
	for name := range b.hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NumLinks returns the number of links.
func (b *Backend) NumLinks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.links)
}

// Host is the [netlab.Host] created by [Backend].
type Host struct {
	address string
	backend *Backend
	intfs   map[string]bool
	name    string
}

var _ netlab.Host = &Host{}

func (h *Host) addIntf(params *netlab.LinkParams) {
	h.intfs[params.Interface] = true
	if h.address == "" {
		if prefix, err := netip.ParsePrefix(params.Address); err == nil {
			h.address = prefix.Addr().String()
		}
	}
}

// Name implements netlab.Host
func (h *Host) Name() string {
	return h.name
}

// IP implements netlab.Host
func (h *Host) IP() string {
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	return h.address
}

// Cmd implements netlab.Host
func (h *Host) Cmd(command string) (string, error) {
	b := h.backend
	b.mu.Lock()
	b.commands = append(b.commands, Command{Host: h.name, Command: command})
	fail, output := b.FailCommand, b.Output
	b.mu.Unlock()
	if fail != nil && fail(h.name, command) {
		return "", fmt.Errorf("%s: %w", command, ErrInjected)
	}
	if output != nil {
		return output(h.name, command), nil
	}
	return "", nil
}

// CmdPrint implements netlab.Host
func (h *Host) CmdPrint(command string) (string, error) {
	return h.Cmd(command)
}

// Popen implements netlab.Host
func (h *Host) Popen(command string) (io.ReadCloser, error) {
	output, err := h.Cmd(command)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(output)), nil
}

// DeleteIntfs implements netlab.Host
func (h *Host) DeleteIntfs() error {
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	h.intfs = map[string]bool{}
	h.address = ""
	return nil
}

// Cleanup implements netlab.Host
func (h *Host) Cleanup() error {
	return nil
}
