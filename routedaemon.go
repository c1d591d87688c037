package netlab

//
// Routing using a link-state routing daemon
//

import (
	"context"
	"fmt"
	"path"
	"strings"
	"text/template"
	"time"
)

// DefaultDaemonConfigTemplate is the default per-host daemon configuration: a
// BIRD 2 OSPFv2 router with one point-to-point stanza per link interface.
const DefaultDaemonConfigTemplate = `router id {{.RouterID}};
protocol device {
}
protocol direct {
	ipv4;
{{- range .Interfaces}}
	interface "{{.Name}}";
{{- end}}
}
protocol kernel {
	ipv4 {
		export all;
	};
}
protocol ospf v2 {
	ipv4 {
		import all;
		export all;
	};
	area 0 {
{{- range .Interfaces}}
		interface "{{.Name}}" {
			type ptp;
			hello 1;
			dead 4;
		};
{{- end}}
	};
}
`

// DefaultDaemonCommand is the default command launching the daemon.
const DefaultDaemonCommand = "bird -c {{.ConfigPath}} -s {{.SocketPath}} -P {{.PIDPath}}"

// DaemonConfig configures [DaemonRouting]. The zero value uses defaults.
type DaemonConfig struct {
	// ConfigTemplate is the OPTIONAL text/template of the daemon
	// configuration, executed with a [DaemonHostInfo].
	ConfigTemplate string

	// Command is the OPTIONAL text/template of the command launching the
	// daemon, executed with a [DaemonHostInfo].
	Command string

	// WorkDir is the OPTIONAL directory for configs, sockets and pid files.
	WorkDir string

	// PollInterval is the OPTIONAL interval between convergence checks.
	PollInterval time.Duration

	// BaseTimeout is the OPTIONAL minimum convergence timeout.
	BaseTimeout time.Duration

	// PerHostTimeout is the OPTIONAL extra timeout for each host.
	PerHostTimeout time.Duration
}

// DaemonInterface is a link interface listed in the daemon configuration.
type DaemonInterface struct {
	// Name is the interface name.
	Name string

	// Address is the interface address in CIDR notation.
	Address string
}

// DaemonHostInfo is the data available to the [DaemonConfig] templates.
type DaemonHostInfo struct {
	// Name is the host name.
	Name string

	// RouterID is the router identifier (the host address).
	RouterID string

	// Interfaces contains the host link interfaces.
	Interfaces []DaemonInterface

	// ConfigPath is the path of the configuration file.
	ConfigPath string

	// SocketPath is the path of the control socket.
	SocketPath string

	// PIDPath is the path of the pid file.
	PIDPath string
}

// DaemonRouting runs a routing daemon on every host and waits for the
// routing tables to converge. Use [NewDaemonRouting] to construct.
type DaemonRouting struct {
	config  *template.Template
	command *template.Template
	dc      DaemonConfig
}

var _ RoutingStrategy = &DaemonRouting{}

// NewDaemonRouting creates a new [DaemonRouting]. The templates are parsed
// eagerly and a malformed template is an [ErrConfig] error.
func NewDaemonRouting(dc *DaemonConfig) (*DaemonRouting, error) {
	var cfg DaemonConfig
	if dc != nil {
		cfg = *dc
	}
	if cfg.ConfigTemplate == "" {
		cfg.ConfigTemplate = DefaultDaemonConfigTemplate
	}
	if cfg.Command == "" {
		cfg.Command = DefaultDaemonCommand
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "/tmp"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BaseTimeout <= 0 {
		cfg.BaseTimeout = 10 * time.Second
	}
	if cfg.PerHostTimeout <= 0 {
		cfg.PerHostTimeout = 2 * time.Second
	}
	config, err := template.New("config").Parse(cfg.ConfigTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: daemon config template: %w", ErrConfig, err)
	}
	command, err := template.New("command").Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: daemon command template: %w", ErrConfig, err)
	}
	return &DaemonRouting{config: config, command: command, dc: cfg}, nil
}

// Name implements RoutingStrategy
func (*DaemonRouting) Name() string {
	return RoutingDaemon
}

func (*DaemonRouting) sealed() {}

// hostInfo builds the template data for the host with the given index.
func (dr *DaemonRouting) hostInfo(view NetworkView, index int) *DaemonHostInfo {
	host := view.Hosts()[index]
	base := path.Join(dr.dc.WorkDir, "netlab-"+host.Name())
	info := &DaemonHostInfo{
		Name:       host.Name(),
		ConfigPath: base + ".conf",
		SocketPath: base + ".ctl",
		PIDPath:    base + ".pid",
	}
	if addr := view.HostAddress(index); addr.IsValid() {
		info.RouterID = addr.String()
	}
	for _, intf := range view.Interfaces(index) {
		info.Interfaces = append(info.Interfaces, DaemonInterface{
			Name:    intf.Name,
			Address: intf.Prefix.String(),
		})
	}
	return info
}

// render executes a template into a string.
func render(t *template.Template, info *DaemonHostInfo) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, info); err != nil {
		return "", err
	}
	return b.String(), nil
}

// timeout returns the convergence timeout for the given number of hosts.
func (dr *DaemonRouting) timeout(numHosts int) time.Duration {
	return dr.dc.BaseTimeout + time.Duration(numHosts)*dr.dc.PerHostTimeout
}

// SetupRoutes implements RoutingStrategy
func (dr *DaemonRouting) SetupRoutes(ctx context.Context, view NetworkView) error {
	hosts := view.Hosts()
	for index, host := range hosts {
		info := dr.hostInfo(view, index)
		config, err := render(dr.config, info)
		if err != nil {
			return fmt.Errorf("daemon routing: %s: config template: %w", host.Name(), err)
		}
		command, err := render(dr.command, info)
		if err != nil {
			return fmt.Errorf("daemon routing: %s: command template: %w", host.Name(), err)
		}
		write := fmt.Sprintf("cat > %s <<'NETLAB_EOF'\n%sNETLAB_EOF", info.ConfigPath, config)
		_, _ = view.Exec(host, "routing", write)
		_, _ = view.Exec(host, "routing", command)
	}
	if len(hosts) < 2 {
		return nil
	}
	return dr.waitConvergence(ctx, view)
}

// expectedRoute returns the route we expect the last host to learn: the
// subnet of the first link interface of the first host.
func (dr *DaemonRouting) expectedRoute(view NetworkView) (string, bool) {
	intfs := view.Interfaces(0)
	if len(intfs) <= 0 {
		return "", false
	}
	return intfs[0].Prefix.Masked().String(), true
}

// waitConvergence polls the routing table of the last host until it
// contains the expected route or the timeout expires.
func (dr *DaemonRouting) waitConvergence(ctx context.Context, view NetworkView) error {
	hosts := view.Hosts()
	last := hosts[len(hosts)-1]
	expect, ok := dr.expectedRoute(view)
	if !ok {
		return fmt.Errorf("%w: daemon routing: %s has no links", ErrRoutingSetup, hosts[0].Name())
	}

	timeout := dr.timeout(len(hosts))
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(dr.dc.PollInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		output, err := last.Cmd("ip route show")
		if err == nil && hasRoute(output, expect) {
			view.Logger().Infof("netlab: daemon routing: %s learned %s after %d attempt(s)",
				last.Name(), expect, attempt)
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: daemon routing: %s did not learn %s within %s",
				ErrRoutingSetup, last.Name(), expect, timeout)
		case <-ticker.C:
		}
	}
}

// hasRoute returns whether the output of `ip route show` contains a
// route whose destination is exactly dst.
func hasRoute(output, dst string) bool {
	for _, line := range strings.Split(output, "\n") {
		if fields := strings.Fields(line); len(fields) > 0 && fields[0] == dst {
			return true
		}
	}
	return false
}

// TeardownRoutes implements RoutingStrategy
func (dr *DaemonRouting) TeardownRoutes(ctx context.Context, view NetworkView) error {
	for index, host := range view.Hosts() {
		info := dr.hostInfo(view, index)
		kill := fmt.Sprintf("kill $(cat %s); rm -f %s %s %s",
			info.PIDPath, info.PIDPath, info.ConfigPath, info.SocketPath)
		_, _ = view.Exec(host, "teardown", kill)
	}
	return nil
}
