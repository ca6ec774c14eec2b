package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	srv "github.com/mohammad-safakhou/narrator/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func serveCMD(cfgPath *string) *cobra.Command {
	var addr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := []srv.Option{srv.WithLogger(newLogger("[HTTP] "))}
			if a.cfg.Telemetry.Enabled {
				opts = append(opts, srv.WithMetrics(prometheus.DefaultGatherer))
			}
			if a.cfg.Scheduler.Enabled {
				sched, err := srv.NewScheduler(a.jobs(), srv.WithSchedulerLogger(newLogger("[SCHED] ")))
				if err != nil {
					return err
				}
				opts = append(opts, srv.WithScheduler(sched))
			}

			if addr == "" {
				addr = a.cfg.Server.Address
			}
			return srv.New(a.narration, a.listing, opts...).Run(ctx, addr)
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.address)")
	return serve
}

func (a *app) jobs() []srv.Job {
	return []srv.Job{
		{
			Name: "listing-refresh",
			Spec: a.cfg.Scheduler.ListingCron,
			Run: func(ctx context.Context) error {
				_, err := a.listing.Refresh(ctx)
				return err
			},
		},
		{
			Name: "narration-cleanup",
			Spec: a.cfg.Scheduler.CleanupCron,
			Run: func(ctx context.Context) error {
				_, err := a.narration.Cleanup(ctx, a.cfg.Cache.NarrationHorizon)
				return err
			},
		},
	}
}
