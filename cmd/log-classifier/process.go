package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/neville-freeman/log-classifier/internal/config"
	"github.com/neville-freeman/log-classifier/internal/logging"
	"github.com/neville-freeman/log-classifier/internal/metrics"
	"github.com/neville-freeman/log-classifier/internal/pipeline"
)

// buildPipeline wires ticketing, engine and output from cfg.
func buildPipeline(cmd *cobra.Command, cfg config.Config, m *metrics.Metrics) (*pipeline.Pipeline, error) {
	if err := errors.Join(cfg.Validate(), cfg.ValidateTicketing()); err != nil {
		return nil, err
	}
	tk, err := buildTicketing(cfg.Ticketing)
	if err != nil {
		return nil, err
	}
	eng, err := buildEngine(cfg, m)
	if err != nil {
		return nil, err
	}
	out, err := buildOutput(cfg.Output, cmd.OutOrStdout())
	if err != nil {
		return nil, err
	}
	p, err := pipeline.New(tk, eng, out,
		pipeline.WithConcurrency(cfg.Pipeline.Concurrency),
		pipeline.WithMemory(cfg.Pipeline.Memory),
		pipeline.WithMetrics(m),
		pipeline.WithLogger(logging.New("pipeline")),
	)
	if err != nil {
		out.Close()
		return nil, err
	}
	return p, nil
}

func newProcessCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Run one pass over pending tickets",
		Long: `Fetch every pending ticket, diagnose its log archives, and post the
result back. Exits non-zero if any ticket could not be processed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, err := buildPipeline(cmd, a.cfg, nil)
			if err != nil {
				return err
			}
			defer p.Close()

			sum, err := p.RunOnce(ctx)
			fmt.Fprintf(cmd.ErrOrStderr(), "tickets: %d resolved: %d skipped: %d failed: %d\n",
				sum.Tickets, sum.Resolved, sum.Skipped, sum.Failed)
			return err
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll for pending tickets until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("interval") {
				cfg.Pipeline.PollInterval = interval
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			log := logging.New("watch")

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m := metrics.New(reg)

			p, err := buildPipeline(cmd, cfg, m)
			if err != nil {
				return err
			}
			defer p.Close()

			if cfg.Metrics.Addr != "" {
				srv := newMetricsServer(cfg.Metrics.Addr, reg)
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error("metrics server failed", "error", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				log.Info("serving metrics", "addr", cfg.Metrics.Addr)
			}

			log.Info("watching for tickets", "provider", cfg.Ticketing.Provider, "interval", cfg.Pipeline.PollInterval)
			err = p.Watch(ctx, cfg.Pipeline.PollInterval)
			if errors.Is(err, context.Canceled) {
				log.Info("shutting down")
				return nil
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "time between passes (default from config)")
	return cmd
}

func newMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
