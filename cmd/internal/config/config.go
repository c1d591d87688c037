// Package config loads the configuration of the netlab commands using koanf.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bassosimone/netlab"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the whole configuration.
type Config struct {
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Network  NetworkConfig  `koanf:"network"`
	Routing  RoutingConfig  `koanf:"routing"`
	Limits   LimitsConfig   `koanf:"limits"`
	Topology TopologyConfig `koanf:"topology"`
}

// LogConfig configures apex/log.
type LogConfig struct {
	// Level is one of debug, info, warn, error, fatal.
	Level string `koanf:"level"`

	// Format is one of cli, text, json.
	Format string `koanf:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address; empty disables the endpoint.
	Addr string `koanf:"addr"`

	Path string `koanf:"path"`
}

// NetworkConfig configures hosts, links and the backend.
type NetworkConfig struct {
	NodePrefix    string    `koanf:"node_prefix"`
	Subnet        string    `koanf:"subnet"`
	LinkPrefixLen int       `koanf:"link_prefix_len"`
	Backend       string    `koanf:"backend"`
	Image         string    `koanf:"image"`
	SSH           SSHConfig `koanf:"ssh"`
}

// SSHConfig configures the remote machine hosting the namespaces. An
// empty address means the local machine.
type SSHConfig struct {
	Address  string        `koanf:"address"`
	User     string        `koanf:"user"`
	Password string        `koanf:"password"`
	KeyFile  string        `koanf:"key_file"`
	HostKey  string        `koanf:"host_key"`
	Timeout  time.Duration `koanf:"timeout"`
}

// RoutingConfig selects and configures the routing strategy.
type RoutingConfig struct {
	Strategy       string        `koanf:"strategy"`
	ConfigTemplate string        `koanf:"config_template"`
	Command        string        `koanf:"command"`
	WorkDir        string        `koanf:"work_dir"`
	PollInterval   time.Duration `koanf:"poll_interval"`
	BaseTimeout    time.Duration `koanf:"base_timeout"`
	PerHostTimeout time.Duration `koanf:"per_host_timeout"`
}

// LimitsConfig contains the clamping limits.
type LimitsConfig struct {
	MaxBandwidth float64 `koanf:"max_bandwidth"`
	MaxLatency   float64 `koanf:"max_latency"`
	MaxJitter    float64 `koanf:"max_jitter"`
	MaxLoss      float64 `koanf:"max_loss"`
}

// TopologyConfig describes the topology family.
type TopologyConfig struct {
	Name       string            `koanf:"name"`
	Nodes      int               `koanf:"nodes"`
	Family     string            `koanf:"family"`
	MatrixFile string            `koanf:"matrix_file"`
	Attributes []AttributeConfig `koanf:"attributes"`
}

// AttributeConfig describes a link attribute.
type AttributeConfig struct {
	Name      string    `koanf:"name"`
	InitValue []float64 `koanf:"init_value"`
	StepLen   float64   `koanf:"step_len"`
	StepNum   int       `koanf:"step_num"`
}

// BackendNamespaces is the only backend implemented so far.
const BackendNamespaces = "netns"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	limits := netlab.DefaultLimits()
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "cli",
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
		Network: NetworkConfig{
			NodePrefix:    netlab.DefaultNodePrefix,
			Subnet:        netlab.DefaultSubnet,
			LinkPrefixLen: netlab.DefaultLinkPrefixLen,
			Backend:       BackendNamespaces,
			SSH: SSHConfig{
				Timeout: 10 * time.Second,
			},
		},
		Routing: RoutingConfig{
			Strategy:       netlab.RoutingStaticBFS,
			PollInterval:   time.Second,
			BaseTimeout:    10 * time.Second,
			PerHostTimeout: 2 * time.Second,
		},
		Limits: LimitsConfig{
			MaxBandwidth: limits.MaxBandwidth,
			MaxLatency:   limits.MaxLatency,
			MaxJitter:    limits.MaxJitter,
			MaxLoss:      limits.MaxLoss,
		},
		Topology: TopologyConfig{
			Family: string(netlab.FamilyLinear),
		},
	}
}

// envPrefix is the prefix of the environment variables overriding the
// configuration, e.g., NETLAB_LOG_LEVEL.
const envPrefix = "NETLAB_"

// Load reads the YAML file at path on top of [DefaultConfig], applies the
// environment overrides and validates the result.
//
// Environment variables map to the keys of the top-level sections:
//
//	NETLAB_LOG_LEVEL            -> log.level
//	NETLAB_METRICS_ADDR         -> metrics.addr
//	NETLAB_NETWORK_NODE_PREFIX  -> network.node_prefix
//	NETLAB_ROUTING_STRATEGY     -> routing.strategy
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k, DefaultConfig()); err != nil {
		return nil, fmt.Errorf("%w: load defaults: %w", netlab.ErrConfig, err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", netlab.ErrConfig, path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("%w: load env overrides: %w", netlab.ErrConfig, err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %w", netlab.ErrConfig, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", netlab.ErrConfig, path, err)
	}
	return cfg, nil
}

// envKeyMapper maps NETLAB_NETWORK_NODE_PREFIX to network.node_prefix: the
// first underscore separates the section from the key.
func envKeyMapper(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// loadDefaults sets the defaults as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"log.level":                defaults.Log.Level,
		"log.format":               defaults.Log.Format,
		"metrics.path":             defaults.Metrics.Path,
		"network.node_prefix":      defaults.Network.NodePrefix,
		"network.subnet":           defaults.Network.Subnet,
		"network.link_prefix_len":  defaults.Network.LinkPrefixLen,
		"network.backend":          defaults.Network.Backend,
		"network.ssh.timeout":      defaults.Network.SSH.Timeout.String(),
		"routing.strategy":         defaults.Routing.Strategy,
		"routing.poll_interval":    defaults.Routing.PollInterval.String(),
		"routing.base_timeout":     defaults.Routing.BaseTimeout.String(),
		"routing.per_host_timeout": defaults.Routing.PerHostTimeout.String(),
		"limits.max_bandwidth":     defaults.Limits.MaxBandwidth,
		"limits.max_latency":       defaults.Limits.MaxLatency,
		"limits.max_jitter":        defaults.Limits.MaxJitter,
		"limits.max_loss":          defaults.Limits.MaxLoss,
		"topology.family":          defaults.Topology.Family,
	}
	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}
	return nil
}

// Validation errors.
var (
	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("log.level must be debug, info, warn, error or fatal")

	// ErrInvalidLogFormat indicates an unknown log format.
	ErrInvalidLogFormat = errors.New("log.format must be cli, text or json")

	// ErrInvalidBackend indicates an unknown backend.
	ErrInvalidBackend = errors.New("network.backend must be netns")

	// ErrEmptyNodePrefix indicates an empty node prefix.
	ErrEmptyNodePrefix = errors.New("network.node_prefix must not be empty")

	// ErrMissingTopology indicates that neither nodes nor a matrix file are set.
	ErrMissingTopology = errors.New("topology needs nodes or matrix_file")

	// ErrInvalidTimeout indicates a non-positive routing interval or timeout.
	ErrInvalidTimeout = errors.New("routing intervals and timeouts must be > 0")
)

// Validate checks the configuration for logical errors.
func Validate(cfg *Config) error {
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.Log.Level)
	}

	switch cfg.Log.Format {
	case "cli", "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, cfg.Log.Format)
	}

	if cfg.Network.Backend != BackendNamespaces {
		return fmt.Errorf("%w: %q", ErrInvalidBackend, cfg.Network.Backend)
	}

	if cfg.Network.NodePrefix == "" {
		return ErrEmptyNodePrefix
	}

	if _, err := netlab.NewSubnetAllocator(cfg.Network.Subnet, cfg.Network.LinkPrefixLen); err != nil {
		return err
	}

	if _, err := netlab.ParseRoutingStrategy(cfg.Routing.Strategy, cfg.DaemonConfig()); err != nil {
		return err
	}

	// the --strategy flag may select the daemon even when not configured
	if _, err := netlab.NewDaemonRouting(cfg.DaemonConfig()); err != nil {
		return err
	}

	if cfg.Routing.PollInterval <= 0 || cfg.Routing.BaseTimeout <= 0 || cfg.Routing.PerHostTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if cfg.Topology.MatrixFile == "" {
		if cfg.Topology.Nodes < 1 {
			return ErrMissingTopology
		}
		if _, err := netlab.ParseFamily(cfg.Topology.Family); err != nil {
			return err
		}
	}
	return nil
}

// TopologyConfig returns the [netlab.TopologyConfig].
func (c *Config) TopologyConfig() *netlab.TopologyConfig {
	tc := &netlab.TopologyConfig{
		Name:       c.Topology.Name,
		Nodes:      c.Topology.Nodes,
		Family:     netlab.Family(strings.ToLower(c.Topology.Family)),
		MatrixFile: c.Topology.MatrixFile,
	}
	for _, ac := range c.Topology.Attributes {
		tc.Attributes = append(tc.Attributes, netlab.LinkAttribute{
			Name:      ac.Name,
			InitValue: ac.InitValue,
			StepLen:   ac.StepLen,
			StepNum:   ac.StepNum,
		})
	}
	return tc
}

// ClampLimits returns the [netlab.Limits].
func (c *Config) ClampLimits() netlab.Limits {
	return netlab.Limits{
		MaxBandwidth: c.Limits.MaxBandwidth,
		MaxLatency:   c.Limits.MaxLatency,
		MaxJitter:    c.Limits.MaxJitter,
		MaxLoss:      c.Limits.MaxLoss,
	}
}

// DaemonConfig returns the [netlab.DaemonConfig].
func (c *Config) DaemonConfig() *netlab.DaemonConfig {
	return &netlab.DaemonConfig{
		ConfigTemplate: c.Routing.ConfigTemplate,
		Command:        c.Routing.Command,
		WorkDir:        c.Routing.WorkDir,
		PollInterval:   c.Routing.PollInterval,
		BaseTimeout:    c.Routing.BaseTimeout,
		PerHostTimeout: c.Routing.PerHostTimeout,
	}
}

// NodeConfig returns the [netlab.NodeConfig].
func (c *Config) NodeConfig() *netlab.NodeConfig {
	return &netlab.NodeConfig{
		Prefix: c.Network.NodePrefix,
		Image:  c.Network.Image,
	}
}
