// Command pubdemo runs a standalone publisher bus, optionally firing a
// load of synthetic messages across a pool of producer goroutines, and
// serves Prometheus/expvar metrics until interrupted.
package main

import (
	"context"
	"encoding/binary"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
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

var msgProduced = expvar.NewInt("pubdemo_messages_produced_total")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New("PUBSUB")

	cmd := &cobra.Command{
		Use:   "pubdemo",
		Short: "Run a publisher bus and optionally generate load",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPubDemo(v)
		},
	}

	flags := cmd.Flags()
	flags.String("pub", "tcp://*:5556", "address the publisher binds for subscribers")
	flags.Int("producers", 4, "number of concurrent producer goroutines")
	flags.Int("messages", 0, "messages each producer sends before exiting (0 = send none and run until interrupted)")
	flags.StringSlice("topics", []string{"demo.topic"}, "topics producers publish to, round-robin")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("metrics-addr", ":9556", "listen address for /metrics and /debug/vars")

	_ = v.BindPFlags(flags)
	return cmd
}

func runPubDemo(v *viper.Viper) error {
	shared := config.LoadShared(v)
	log.Configure(log.Config{Level: shared.LogLevel})
	logger := log.WithComponent("pubdemo")

	cfg := bus.DefaultBusConfig()
	cfg.PubBindAddr = v.GetString("pub")

	pb := bus.NewPublisherBus(cfg)
	if err := pb.Start(); err != nil {
		return fmt.Errorf("starting publisher bus: %w", err)
	}
	defer pb.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	exporter := promexport.New("publisher", pb.Metrics, time.Second, reg)
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

	topics := v.GetStringSlice("topics")
	producers := v.GetInt("producers")
	messagesPerProducer := v.GetInt("messages")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	if messagesPerProducer > 0 {
		go func() {
			runProducers(pb, topics, producers, messagesPerProducer)
			close(done)
		}()
	}

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
	case <-done:
		logger.Info().Msg("load generation complete, shutting down")
	}

	logger.Info().Int64("produced", msgProduced.Value()).Msg("shutdown complete")
	return nil
}

// runProducers fans producer goroutines across topics. Each goroutine
// registers exactly one Producer and reuses it for every message it
// sends — a fresh Producer per message would scatter that goroutine's
// sends across unrelated PUSH pipes and break per-producer ordering.
// Every message carries an embedded send timestamp so a subscriber demo
// can compute latency.
func runProducers(pb *bus.PublisherBus, topics []string, producers, messagesPerProducer int) {
	if len(topics) == 0 {
		topics = []string{"demo.topic"}
	}

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			producer := pb.Producer()
			topic := topics[id%len(topics)]
			payload := make([]byte, 8)
			for j := 0; j < messagesPerProducer; j++ {
				binary.LittleEndian.PutUint64(payload, uint64(time.Now().UnixNano()))
				producer.Produce(bus.Message{Topic: topic, Payload: payload})
				msgProduced.Add(1)
			}
		}(i)
	}
	wg.Wait()
}
