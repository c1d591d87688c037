package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/bassosimone/netlab"
	"github.com/bassosimone/netlab/cmd/internal/config"
	"github.com/bassosimone/netlab/cmd/internal/optional"
	"github.com/bassosimone/netlab/cmd/internal/topology"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// newUpCmd creates the command building the first topology and keeping
// it up until interrupted or until the duration expires.
func newUpCmd(a *app, load configLoader) *cobra.Command {
	var (
		duration    time.Duration
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Build the first topology and keep it running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			cfg.Metrics.Addr = nonEmpty(metricsAddr).UnwrapOr(cfg.Metrics.Addr)
			metrics := netlab.NewMetrics(a.registry)
			return a.withMetricsServer(cmd.Context(), cfg.Metrics, func(ctx context.Context) error {
				return a.up(ctx, cfg, metrics, duration)
			})
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this duration (0: wait for a signal)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

// nonEmpty returns an optional that is empty for the empty string.
func nonEmpty(s string) optional.Value[string] {
	if s == "" {
		return optional.None[string]()
	}
	return optional.Some(s)
}

// up builds, starts and eventually stops the network.
func (a *app) up(ctx context.Context, cfg *config.Config, metrics *netlab.Metrics, duration time.Duration) error {
	backend, closer, err := a.newBackend(context.WithoutCancel(ctx), cfg, log.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	network, err := topology.New(cfg, topology.DefaultOptions(cfg), backend, log.Log, metrics)
	if err != nil {
		return err
	}
	iter, err := iterator(cfg)
	if err != nil {
		return err
	}

	realizer := network.Realizer
	defer func() {
		if err := realizer.Stop(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Warn("netlab: stop")
		}
	}()
	if err := network.Build(ctx, iter); err != nil {
		return err
	}
	if err := realizer.Start(); err != nil {
		return err
	}
	a.printNetwork(realizer)

	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}
	<-ctx.Done()
	return nil
}

// printNetwork prints the hosts, the link table and the description.
func (a *app) printNetwork(realizer *netlab.Realizer) {
	fmt.Fprintf(a.stdout, "hosts (%s):", realizer.HostIPRange())
	for _, host := range realizer.Hosts() {
		fmt.Fprintf(a.stdout, " %s=%s", host.Name(), host.IP())
	}
	fmt.Fprintln(a.stdout)
	table := realizer.LinkTable()
	for _, key := range table.Keys() {
		fmt.Fprintf(a.stdout, "%s -> %s: %s\n", key.From, key.To, table[key])
	}
	if desc := realizer.Description(); desc != "" {
		fmt.Fprintln(a.stdout, desc)
	}
	for _, sd := range realizer.Degradations() {
		fmt.Fprintf(a.stdout, "degraded: %s\n", sd.String())
	}
}

// withMetricsServer runs fx while serving the metrics, if configured.
func (a *app) withMetricsServer(ctx context.Context, mc config.MetricsConfig, fx func(ctx context.Context) error) error {
	if mc.Addr == "" {
		return fx(ctx)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := newMetricsServer(mc, a.registry)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("netlab: metrics on http://%s%s", mc.Addr, mc.Path)
		return listenAndServe(gctx, srv, mc.Addr)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		defer cancel()
		return fx(gctx)
	})

	return g.Wait()
}

// newMetricsServer creates the HTTP server for the Prometheus endpoint.
func newMetricsServer(mc config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(mc.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              mc.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// listenAndServe serves HTTP requests until the server is shut down.
func listenAndServe(ctx context.Context, srv *http.Server, addr string) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		if ctx.Err() != nil {
			return nil // fx returned before we could listen
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}
