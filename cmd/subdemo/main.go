// Command subdemo runs a standalone subscriber bus, logging a periodic
// status line and serving Prometheus/expvar metrics until interrupted.
package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nathanplt/pub-sub-system/bus"
	"github.com/nathanplt/pub-sub-system/internal/config"
	"github.com/nathanplt/pub-sub-system/internal/log"
	"github.com/nathanplt/pub-sub-system/internal/promexport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var msgHandled = expvar.NewInt("subdemo_messages_handled_total")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New("PUBSUB")

	cmd := &cobra.Command{
		Use:   "subdemo",
		Short: "Run a subscriber bus against a running publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubDemo(v)
		},
	}

	flags := cmd.Flags()
	flags.String("sub", "tcp://127.0.0.1:5556", "address the subscriber dials")
	flags.Int("workers", 4, "worker pool size")
	flags.StringSlice("topics", nil, "topic prefixes to subscribe to (empty = everything)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("metrics-addr", ":9557", "listen address for /metrics and /debug/vars")
	flags.Duration("status-interval", 5*time.Second, "how often to log a status line")

	_ = v.BindPFlags(flags)
	return cmd
}

func runSubDemo(v *viper.Viper) error {
	shared := config.LoadShared(v)
	log.Configure(log.Config{Level: shared.LogLevel})
	logger := log.WithComponent("subdemo")

	cfg := bus.DefaultBusConfig()
	cfg.SubConnectAddr = v.GetString("sub")
	cfg.WorkerThreads = v.GetInt("workers")

	handler := func(msg bus.Message) {
		msgHandled.Add(1)
	}

	sb := bus.NewSubscriberBus(cfg, v.GetStringSlice("topics"), handler)
	if err := sb.Start(); err != nil {
		return fmt.Errorf("starting subscriber bus: %w", err)
	}
	defer sb.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	exporter := promexport.New("subscriber", sb.Metrics, time.Second, reg)
	go exporter.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsAddr := v.GetString("metrics-addr")
	go func() {
		logger.Info().Str("addr", metricsAddr).Msg("metrics server listening")
		if err := http.ListenAndServe(metricsAddr, mux); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	statusInterval := v.GetDuration("status-interval")
	statusTicker := time.NewTicker(statusInterval)
	defer statusTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-statusTicker.C:
			logger.Info().Msg(bus.FormatStats(sb.Metrics()))
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
			logger.Info().Msg(bus.FormatStats(sb.Metrics()))
			return nil
		}
	}
}
