// Package topology contains helper code to realize topologies in commands.
package topology

import (
	"context"
	"fmt"

	"github.com/bassosimone/netlab"
	"github.com/bassosimone/netlab/cmd/internal/config"
	"github.com/bassosimone/netlab/cmd/internal/optional"
)

// Closer allows to release the machine on which we realize topologies.
type Closer interface {
	Close() error
}

// nopCloser is the [Closer] of the local machine.
type nopCloser struct{}

// Close implements Closer
func (nopCloser) Close() error {
	return nil
}

// Machine returns the [netlab.Host] on top of which we create namespaces:
// the local machine or, when ssh is not empty, a remote one.
func Machine(
	ctx context.Context,
	logger netlab.Logger,
	ssh optional.Value[*config.SSHConfig],
) (netlab.Host, Closer, error) {
	if ssh.Empty() {
		return &netlab.ExecHost{Context: ctx, Logger: logger}, nopCloser{}, nil
	}
	sc := ssh.Unwrap()
	host, err := netlab.DialSSH(ctx, &netlab.SSHConfig{
		Address:  sc.Address,
		User:     sc.User,
		Password: sc.Password,
		KeyFile:  sc.KeyFile,
		HostKey:  sc.HostKey,
		Timeout:  sc.Timeout,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("ssh %s: %w", sc.Address, err)
	}
	return host, host, nil
}

// SSH returns the SSH configuration as an optional value.
func SSH(cfg *config.Config) optional.Value[*config.SSHConfig] {
	if cfg.Network.SSH.Address == "" {
		return optional.None[*config.SSHConfig]()
	}
	return optional.Some(&cfg.Network.SSH)
}

// Options contains the per-realizer settings that may differ from the
// configuration when we run several realizers concurrently.
type Options struct {
	// Prefix is the node name prefix.
	Prefix string

	// Subnet is the link subnets window.
	Subnet string

	// Strategy is the routing strategy name.
	Strategy string
}

// DefaultOptions returns the [Options] found in the configuration.
func DefaultOptions(cfg *config.Config) *Options {
	return &Options{
		Prefix:   cfg.Network.NodePrefix,
		Subnet:   cfg.Network.Subnet,
		Strategy: cfg.Routing.Strategy,
	}
}

// Network is a realizer with its node config and routing strategy.
type Network struct {
	NodeConfig *netlab.NodeConfig
	Realizer   *netlab.Realizer
	Strategy   netlab.RoutingStrategy
}

// New creates a [Network] realizing topologies with backend.
func New(
	cfg *config.Config,
	opts *Options,
	backend netlab.Backend,
	logger netlab.Logger,
	metrics *netlab.Metrics,
) (*Network, error) {
	strategy, err := netlab.ParseRoutingStrategy(opts.Strategy, cfg.DaemonConfig())
	if err != nil {
		return nil, err
	}
	realizer, err := netlab.NewRealizer(&netlab.RealizerConfig{
		Backend:       backend,
		Logger:        logger,
		Metrics:       metrics,
		Subnet:        opts.Subnet,
		LinkPrefixLen: cfg.Network.LinkPrefixLen,
	})
	if err != nil {
		return nil, err
	}
	nc := cfg.NodeConfig()
	nc.Prefix = opts.Prefix
	network := &Network{
		NodeConfig: nc,
		Realizer:   realizer,
		Strategy:   strategy,
	}
	return network, nil
}

// Build builds the first topology of the iterator.
func (n *Network) Build(ctx context.Context, iter *netlab.TopologyIterator) error {
	ms, err := iter.Next()
	if err != nil {
		return err
	}
	return n.Realizer.Build(ctx, n.NodeConfig, ms, n.Strategy)
}
