package main

import (
	"context"
	"fmt"
	"io"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
	"github.com/bassosimone/netlab"
	"github.com/bassosimone/netlab/cmd/internal/config"
	"github.com/bassosimone/netlab/cmd/internal/topology"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// backendFactory creates the backend on which a realizer runs.
type backendFactory func(ctx context.Context, cfg *config.Config, logger netlab.Logger) (netlab.Backend, topology.Closer, error)

// app contains the dependencies shared by the commands.
type app struct {
	// newBackend creates a backend.
	newBackend backendFactory

	// registry is the Prometheus registry.
	registry *prometheus.Registry

	// stderr receives the logs.
	stderr io.Writer

	// stdout receives the command output.
	stdout io.Writer
}

// newApp creates the [app] used in production.
func newApp(stdout, stderr io.Writer) *app {
	return &app{
		newBackend: namespaceBackend,
		registry:   prometheus.NewRegistry(),
		stderr:     stderr,
		stdout:     stdout,
	}
}

// namespaceBackend creates a [netlab.NamespaceBackend] on the local or
// remote machine selected by the configuration.
func namespaceBackend(ctx context.Context, cfg *config.Config, logger netlab.Logger) (netlab.Backend, topology.Closer, error) {
	machine, closer, err := topology.Machine(ctx, logger, topology.SSH(cfg))
	if err != nil {
		return nil, nil, err
	}
	return netlab.NewNamespaceBackend(machine, logger), closer, nil
}

// newRootCmd creates the root command.
func newRootCmd(a *app) *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "netlab",
		Short:         "Realize emulated network topologies",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "netlab.yaml", "path of the YAML config")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		if err := a.setupLogging(cfg.Log); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	root.AddCommand(newShowCmd(a, load))
	root.AddCommand(newUpCmd(a, load))
	root.AddCommand(newSweepCmd(a, load))
	return root
}

// configLoader loads the configuration and configures logging.
type configLoader func() (*config.Config, error)

// setupLogging configures apex/log.
func (a *app) setupLogging(lc config.LogConfig) error {
	level, err := log.ParseLevel(lc.Level)
	if err != nil {
		return fmt.Errorf("%w: %w", netlab.ErrConfig, err)
	}
	switch lc.Format {
	case "json":
		log.SetHandler(json.New(a.stderr))
	case "text":
		log.SetHandler(text.New(a.stderr))
	default:
		log.SetHandler(cli.New(a.stderr))
	}
	log.SetLevel(level)
	return nil
}

// iterator creates a fresh topology iterator from the configuration.
func iterator(cfg *config.Config) (*netlab.TopologyIterator, error) {
	return netlab.NewTopologyIteratorFromConfig(cfg.TopologyConfig(), cfg.ClampLimits(), log.Log)
}
