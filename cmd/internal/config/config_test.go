package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bassosimone/netlab"
	"github.com/google/go-cmp/cmp"
)

// writeConfig writes a YAML configuration file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "netlab.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("file values are layered on top of defaults", func(t *testing.T) {
		path := writeConfig(t, `
log:
  level: debug
routing:
  strategy: ospf
  poll_interval: 250ms
topology:
  name: chain
  nodes: 3
  attributes:
    - name: latency
      init_value: [5]
      step_len: 10
      step_num: 3
    - name: bandwidth_forward
      init_value: [100, 50, 20]
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Log.Level != "debug" || cfg.Log.Format != "cli" {
			t.Fatal("unexpected log config", cfg.Log)
		}
		if cfg.Routing.Strategy != netlab.RoutingDaemon || cfg.Routing.PollInterval != 250*time.Millisecond {
			t.Fatal("unexpected routing config", cfg.Routing)
		}
		if cfg.Routing.BaseTimeout != 10*time.Second {
			t.Fatal("expected the default base timeout", cfg.Routing.BaseTimeout)
		}
		if cfg.Network.Subnet != netlab.DefaultSubnet || cfg.Network.NodePrefix != "h" {
			t.Fatal("unexpected network config", cfg.Network)
		}

		expect := &netlab.TopologyConfig{
			Name:   "chain",
			Nodes:  3,
			Family: netlab.FamilyLinear,
			Attributes: []netlab.LinkAttribute{{
				Name:      netlab.AttributeLatency,
				InitValue: []float64{5},
				StepLen:   10,
				StepNum:   3,
			}, {
				Name:      netlab.AttributeBandwidthForward,
				InitValue: []float64{100, 50, 20},
			}},
		}
		if diff := cmp.Diff(expect, cfg.TopologyConfig()); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff(netlab.DefaultLimits(), cfg.ClampLimits()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("environment variables override the file", func(t *testing.T) {
		path := writeConfig(t, "topology:\n  nodes: 2\nnetwork:\n  node_prefix: n\n")
		t.Setenv("NETLAB_ROUTING_STRATEGY", "static_chain")
		t.Setenv("NETLAB_NETWORK_NODE_PREFIX", "x")
		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Routing.Strategy != netlab.RoutingStaticChain || cfg.NodeConfig().Prefix != "x" {
			t.Fatal("unexpected overrides", cfg.Routing.Strategy, cfg.Network.NodePrefix)
		}
	})

	t.Run("matrix files do not need nodes", func(t *testing.T) {
		path := writeConfig(t, "topology:\n  matrix_file: /nonexistent/matrix.json\n")
		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.TopologyConfig().MatrixFile != "/nonexistent/matrix.json" {
			t.Fatal("unexpected matrix file")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml")); !errors.Is(err, netlab.ErrConfig) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("validation errors", func(t *testing.T) {
		cases := []struct {
			name    string
			content string
			expect  error
		}{{
			name:    "log level",
			content: "log:\n  level: chatty\ntopology:\n  nodes: 2\n",
			expect:  ErrInvalidLogLevel,
		}, {
			name:    "log format",
			content: "log:\n  format: xml\ntopology:\n  nodes: 2\n",
			expect:  ErrInvalidLogFormat,
		}, {
			name:    "backend",
			content: "network:\n  backend: docker\ntopology:\n  nodes: 2\n",
			expect:  ErrInvalidBackend,
		}, {
			name:    "subnet",
			content: "network:\n  subnet: 10.0.0.0/31\ntopology:\n  nodes: 2\n",
			expect:  netlab.ErrConfig,
		}, {
			name:    "strategy",
			content: "routing:\n  strategy: rip\ntopology:\n  nodes: 2\n",
			expect:  netlab.ErrConfig,
		}, {
			name:    "daemon config template",
			content: "routing:\n  strategy: ospf\n  config_template: \"router id {{.RouterID\"\ntopology:\n  nodes: 2\n",
			expect:  netlab.ErrConfig,
		}, {
			name:    "daemon command with another strategy",
			content: "routing:\n  strategy: static_bfs\n  command: \"bird -c {{.ConfigPath\"\ntopology:\n  nodes: 2\n",
			expect:  netlab.ErrConfig,
		}, {
			name:    "timeout",
			content: "routing:\n  base_timeout: 0s\ntopology:\n  nodes: 2\n",
			expect:  ErrInvalidTimeout,
		}, {
			name:    "missing topology",
			content: "log:\n  level: info\n",
			expect:  ErrMissingTopology,
		}, {
			name:    "family",
			content: "topology:\n  nodes: 2\n  family: ring\n",
			expect:  netlab.ErrUnsupportedFamily,
		}}
		for _, tt := range cases {
			t.Run(tt.name, func(t *testing.T) {
				_, err := Load(writeConfig(t, tt.content))
				if !errors.Is(err, netlab.ErrConfig) || !errors.Is(err, tt.expect) {
					t.Fatal("unexpected error", err)
				}
			})
		}
	})
}

func TestConfigConverters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Routing.WorkDir = "/run/netlab"
	dc := cfg.DaemonConfig()
	if dc.WorkDir != "/run/netlab" || dc.PerHostTimeout != 2*time.Second {
		t.Fatal("unexpected daemon config", dc)
	}
	if cfg.NodeConfig().Prefix != netlab.DefaultNodePrefix {
		t.Fatal("unexpected node prefix")
	}
	if err := Validate(cfg); !errors.Is(err, ErrMissingTopology) {
		t.Fatal("unexpected error", err)
	}
}
