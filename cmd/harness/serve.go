package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/decision-harness/internal/codec"
	"github.com/danielpatrickdp/decision-harness/internal/metrics"
)

// #region serve-cmd

type serveOptions struct {
	policy      policyFlags
	source      logSource
	grpcAddr    string
	metricsAddr string
}

func (a *app) newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve decisions over gRPC with Prometheus metrics",
		Long: `Serve decisions from a policy over gRPC (harness.v1.DecisionService) and expose
Prometheus metrics over HTTP. Stops on SIGINT or SIGTERM.

Examples:
  harness serve --log log.json
  harness serve --policy fixed --action WAIT --grpc-addr :50061`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd, opts)
		},
	}
	opts.policy.register(cmd, policyFixed)
	opts.source.register(cmd)
	cmd.Flags().StringVar(&opts.grpcAddr, "grpc-addr", "", "gRPC listen address (defaults to server.grpc_addr)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Metrics listen address (defaults to server.metrics_addr; empty disables)")
	return cmd
}

func (a *app) serve(cmd *cobra.Command, opts *serveOptions) error {
	grpcAddr := opts.grpcAddr
	if grpcAddr == "" {
		grpcAddr = a.cfg.Server.GRPCAddr
	}
	metricsAddr := opts.metricsAddr
	if !cmd.Flags().Changed("metrics-addr") {
		metricsAddr = a.cfg.Server.MetricsAddr
	}

	p, err := servingPolicy(cmd, &opts.policy, &opts.source)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", grpcAddr, err)
	}
	gs := grpc.NewServer()
	codec.RegisterDecisionServiceServer(gs, codec.NewServer(p,
		codec.WithServerLogger(a.logger),
		codec.WithServerMetrics(m),
	))

	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		a.logger.Info("grpc listening", "addr", lis.Addr().String())
		return gs.Serve(lis)
	})

	var httpSrv *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		httpSrv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			a.logger.Info("metrics listening", "addr", metricsAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("shutting down")
		gs.GracefulStop()
		if httpSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// #endregion serve-cmd
