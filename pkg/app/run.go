package app

import (
	"context"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/rhysemmas/now-playing/pkg/badge"
	"github.com/rhysemmas/now-playing/pkg/config"
	"github.com/rhysemmas/now-playing/pkg/http"
	"github.com/rhysemmas/now-playing/pkg/metrics"
	"github.com/rhysemmas/now-playing/pkg/spotify"
)

const shutdownTimeout = 10 * time.Second

// Run wires the badge server from cfg and serves until ctx is cancelled, a shutdown
// signal arrives or a server fails
func Run(ctx context.Context, logger *zap.SugaredLogger, cfg config.Config) error {
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stopCh)

	routes, adminRoutes, err := Build(logger, cfg)
	if err != nil {
		return err
	}

	errorCh := make(chan error, 2)
	shutdowns := []func(context.Context){
		http.NewServer(cfg.Address, routes, logger).Start(errorCh),
	}
	if cfg.MetricsAddress != "" {
		shutdowns = append(shutdowns, http.NewServer(cfg.MetricsAddress, adminRoutes, logger).Start(errorCh))
	}

	var runErr error
	select {
	case signal := <-stopCh:
		logger.Infow("shutdown signal received", "signal", signal)
	case <-ctx.Done():
		logger.Infow("context done, shutting down")
	case err := <-errorCh:
		logger.Warnw("fatal error, stopping", "error", err)
		runErr = fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, shutdown := range shutdowns {
		shutdown(shutdownCtx)
	}

	return runErr
}

// Build creates the badge routes and the admin routes that serve status and metrics
func Build(logger *zap.SugaredLogger, cfg config.Config) (nethttp.Handler, nethttp.Handler, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	idle, err := badge.NewIdleImageProvider(cfg.IdlePolicy, cfg.IdleOffsetHours)
	if err != nil {
		return nil, nil, err
	}
	logger.Infow("idle image policy", "policy", cfg.IdlePolicy, "utc_offset_hours", cfg.IdleOffsetHours)

	client := spotify.NewClient(cfg, logger, m)
	renderer := badge.NewRenderer(client, idle, logger, m)

	return http.NewRoutes(logger, client, renderer), http.NewAdminRoutes(m.Handler()), nil
}
