package main

import (
	"context"
	"fmt"
	"math/bits"
	"net/netip"
	"time"

	"github.com/apex/log"
	"github.com/bassosimone/netlab"
	"github.com/bassosimone/netlab/cmd/internal/config"
	"github.com/bassosimone/netlab/cmd/internal/topology"
	"github.com/spf13/cobra"
	"go4.org/netipx"
	"golang.org/x/sync/errgroup"
)

// maxStrategies is the maximum number of concurrent sweeps, since each
// sweep gets a distinct letter appended to the node prefix.
const maxStrategies = 26

// sweepResult is the outcome of sweeping a routing strategy.
type sweepResult struct {
	strategy     string
	topologies   int
	degradations int
}

// newSweepCmd creates the command walking through all the topologies of a
// compound configuration, once per routing strategy.
func newSweepCmd(a *app, load configLoader) *cobra.Command {
	var (
		hold       time.Duration
		strategies []string
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Build and reload through every topology of the config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if len(strategies) <= 0 {
				strategies = []string{cfg.Routing.Strategy}
			}
			metrics := netlab.NewMetrics(a.registry)
			return a.withMetricsServer(cmd.Context(), cfg.Metrics, func(ctx context.Context) error {
				return a.sweepAll(ctx, cfg, metrics, strategies, hold)
			})
		},
	}
	cmd.Flags().DurationVar(&hold, "hold", 10*time.Second, "how long to keep each topology up")
	cmd.Flags().StringSliceVar(&strategies, "strategy", nil, "routing strategies to compare (default: from config)")
	return cmd
}

// sweepAll runs a sweep for each strategy concurrently.
func (a *app) sweepAll(
	ctx context.Context,
	cfg *config.Config,
	metrics *netlab.Metrics,
	strategies []string,
	hold time.Duration,
) error {
	if len(strategies) > maxStrategies {
		return fmt.Errorf("%w: at most %d strategies", netlab.ErrConfig, maxStrategies)
	}
	windows, err := splitWindow(cfg.Network.Subnet, cfg.Network.LinkPrefixLen, len(strategies))
	if err != nil {
		return err
	}
	results := make([]sweepResult, len(strategies))
	g, gctx := errgroup.WithContext(ctx)
	for idx, name := range strategies {
		opts := &topology.Options{
			Prefix:   cfg.Network.NodePrefix,
			Subnet:   windows[idx],
			Strategy: name,
		}
		if len(strategies) > 1 {
			opts.Prefix = fmt.Sprintf("%s%c", cfg.Network.NodePrefix, 'a'+idx)
		}
		g.Go(func() error {
			result, err := a.sweep(gctx, cfg, opts, metrics, hold)
			results[idx] = result
			return err
		})
	}
	err = g.Wait()
	for _, r := range results {
		fmt.Fprintf(a.stdout, "%s: %d topologies, %d degradations\n", r.strategy, r.topologies, r.degradations)
	}
	return err
}

// sweep builds the first topology and reloads through the others.
func (a *app) sweep(
	ctx context.Context,
	cfg *config.Config,
	opts *topology.Options,
	metrics *netlab.Metrics,
	hold time.Duration,
) (sweepResult, error) {
	result := sweepResult{strategy: opts.Strategy}
	logger := log.WithField("strategy", opts.Strategy)

	backend, closer, err := a.newBackend(context.WithoutCancel(ctx), cfg, logger)
	if err != nil {
		return result, err
	}
	defer closer.Close()

	network, err := topology.New(cfg, opts, backend, logger, metrics)
	if err != nil {
		return result, err
	}
	iter, err := iterator(cfg)
	if err != nil {
		return result, err
	}

	realizer := network.Realizer
	defer func() {
		if err := realizer.Stop(context.WithoutCancel(ctx)); err != nil {
			logger.WithError(err).Warn("netlab: stop")
		}
	}()
	if err := network.Build(ctx, iter); err != nil {
		return result, fmt.Errorf("%s: %w", opts.Strategy, err)
	}
	if err := realizer.Start(); err != nil {
		return result, err
	}

	for {
		result.topologies++
		result.degradations += len(realizer.Degradations())
		logger.Infof("netlab: topology %d/%d: %s", iter.Index(), iter.Len(), realizer.MatrixSet().Name)
		if !holdOn(ctx, hold) || !iter.HasNext() {
			return result, nil
		}
		ms, err := iter.Next()
		if err != nil {
			return result, err
		}
		if err := realizer.Reload(ctx, ms); err != nil {
			return result, fmt.Errorf("%s: %w", opts.Strategy, err)
		}
	}
}

// holdOn waits for d and returns false if the context is done first.
func holdOn(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// splitWindow splits window into n equally sized windows, each of which
// must still fit at least one link subnet.
func splitWindow(window string, linkBits, n int) ([]string, error) {
	prefix, err := netip.ParsePrefix(window)
	if err != nil {
		return nil, fmt.Errorf("%w: subnet %q: %w", netlab.ErrConfig, window, err)
	}
	prefix = prefix.Masked()
	extra := bits.Len(uint(n - 1))
	if prefix.Bits()+extra > linkBits {
		return nil, fmt.Errorf("%w: subnet %q is too small for %d windows", netlab.ErrConfig, window, n)
	}
	out := make([]string, 0, n)
	next := netip.PrefixFrom(prefix.Addr(), prefix.Bits()+extra)
	for len(out) < n {
		out = append(out, next.String())
		next = netip.PrefixFrom(netipx.PrefixLastIP(next).Next(), next.Bits())
	}
	return out, nil
}
