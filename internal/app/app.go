// Package app wires the compute stack for fx.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/fxnlabs/compute-channel/internal/channel"
	"github.com/fxnlabs/compute-channel/internal/compute"
	"github.com/fxnlabs/compute-channel/internal/config"
	"github.com/fxnlabs/compute-channel/internal/gpu"
	"github.com/fxnlabs/compute-channel/internal/logger"
	"github.com/fxnlabs/compute-channel/internal/matmul"
	"github.com/fxnlabs/compute-channel/internal/metrics"
	"github.com/fxnlabs/compute-channel/internal/mma"
	"github.com/fxnlabs/compute-channel/internal/tune"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the channel and everything it depends on. The caller
// supplies a *config.Config.
var Module = fx.Module("compute",
	fx.Provide(
		NewLogger,
		NewRegistry,
		NewMetrics,
		NewTuneConfig,
		NewArchitecture,
		NewServer,
		NewChannel,
		matmul.NewLauncher,
	),
	fx.Invoke(RegisterMetricsEndpoint),
)

func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(cfg.Logger)
}

func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func NewMetrics(cfg *config.Config, reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg, cfg.Metrics.Namespace)
}

func NewTuneConfig(cfg *config.Config) tune.Config {
	return cfg.Tune()
}

func NewArchitecture(cfg *config.Config) mma.Architecture {
	return mma.Architecture{Version: cfg.Server.Architecture}
}

func NewServer(cfg *config.Config, log *zap.Logger, m *metrics.Metrics) (compute.Server, error) {
	return gpu.NewServer(cfg.Server, log, m)
}

// NewChannel starts the worker for server. It is shut down, after the queue
// has drained, when the application stops.
func NewChannel(lc fx.Lifecycle, cfg *config.Config, server compute.Server, log *zap.Logger, m *metrics.Metrics) *channel.Channel {
	ch := channel.New(server, cfg.Channel, log, m)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := ch.Shutdown(ctx); err != nil {
				log.Error("Compute channel did not drain in time", zap.Error(err))
				return err
			}
			return nil
		},
	})
	return ch
}

// RegisterMetricsEndpoint serves reg on cfg.Metrics.ListenAddress when set.
func RegisterMetricsEndpoint(lc fx.Lifecycle, cfg *config.Config, reg *prometheus.Registry, log *zap.Logger) {
	if cfg.Metrics.ListenAddress == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", cfg.Metrics.ListenAddress)
			if err != nil {
				return err
			}
			log.Info("Serving metrics", zap.String("address", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("Metrics server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
