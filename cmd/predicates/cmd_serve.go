package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"digital.vasic.predicates/pkg/logging"
	"digital.vasic.predicates/pkg/metrics"
	"digital.vasic.predicates/pkg/monitor"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr          string
		statsInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live evaluation monitor",
		Long: `Starts an HTTP server exposing:

  /ws          WebSocket: send {"id","predicate","value"} to evaluate;
               every evaluation is broadcast to all clients
  /stats       evaluation statistics
  /predicates  registered predicates
  /health      liveness probe`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = a.cfg.MonitorAddr
			}
			return a.serve(cmd.Context(), addr, statsInterval)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (env PREDICATES_MONITOR_ADDR)")
	cmd.Flags().DurationVar(&statsInterval, "stats-interval", time.Minute,
		"how often to log statistics; 0 disables")
	return cmd
}

func (a *app) serve(
	parent context.Context,
	addr string,
	statsInterval time.Duration,
) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := a.registry()
	if err != nil {
		return err
	}

	server := monitor.NewServer(monitor.ServerConfig{
		Addr:     addr,
		Registry: reg,
		Logger:   a.logger,
		Metrics:  metrics.NewInMemoryMetrics(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	if statsInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(statsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					s := server.Collector().Stats()
					a.logger.Info("monitor stats",
						logging.IntField("total", s.Total),
						logging.IntField("passed", s.Passed),
						logging.IntField("failed", s.Failed),
						logging.IntField("misses", s.Misses),
						logging.IntField("clients", server.ClientCount()),
					)
				}
			}
		})
	}

	return g.Wait()
}
