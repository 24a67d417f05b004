package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/xraph/forge"

	"github.com/xraph/granary/extension"
	"github.com/xraph/granary/store"
)

func newServeCmd(opts *options) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the granary HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := opts.serveStore(ctx, logger)
			if err != nil {
				return err
			}

			extOpts := []extension.ExtOption{
				extension.WithConfig(cfg.Granary),
				extension.WithLogger(logger),
			}
			if st != nil {
				extOpts = append(extOpts, extension.WithStore(st))
			}
			if cfg.MetricsAddr != "" {
				registry := prometheus.NewRegistry()
				extOpts = append(extOpts, extension.WithMetricsRegistry(registry))
				srv := &http.Server{
					Addr:              cfg.MetricsAddr,
					Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					logger.Info("metrics listening", "addr", cfg.MetricsAddr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("metrics server failed", "error", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			app := forge.New(
				forge.WithExtensions(extension.New(extOpts...)),
			)
			return app.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address for the Prometheus metrics endpoint (disabled when empty)")
	return cmd
}

// serveStore returns the seeded memory store when a seed file is configured.
// It returns nil otherwise so the extension builds the store named by
// granary.driver. Seeding requires the memory driver.
func (o *options) serveStore(ctx context.Context, logger *slog.Logger) (store.Store, error) {
	if o.cfg.Seed == "" {
		return nil, nil
	}
	if d := o.cfg.Granary.Driver; d != "" && d != extension.DriverMemory {
		return nil, fmt.Errorf("seed %s: requires the %s driver, configured driver is %s", o.cfg.Seed, extension.DriverMemory, d)
	}
	st, res, err := o.seededStore(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("seed loaded",
		"path", o.cfg.Seed,
		"tenant", o.cfg.Tenant,
		"roles", res.Roles,
		"groups", res.Groups,
		"assignments", res.Assignments,
	)
	return st, nil
}
