package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/defistate/defistate-pool-go/cmd/poolsim/config"
	"github.com/defistate/defistate-pool-go/cmd/poolsim/scenario"
	"github.com/defistate/defistate-pool-go/events"
	"github.com/defistate/defistate-pool-go/ledger/memory"
	"github.com/defistate/defistate-pool-go/pool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultEventBufferSize = 256
)

func main() {
	close := func() {
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		close()
	}
	level, _ := cfg.Level()
	rootLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	// Create a context that cancels when the OS sends an interrupt (Ctrl+C) or termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var server *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				rootLogger.Error("Metrics server stopped", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
		rootLogger.Info("Serving metrics", "addr", cfg.MetricsAddr)
	}

	eventLogger := rootLogger.With("component", "events")
	stream := events.NewStream(eventLogger, DefaultEventBufferSize)
	consumed := make(chan struct{})
	go func() {
		defer func() { consumed <- struct{}{} }()
		sink := scenario.NewEventSink(eventLogger, cfg.Kinds()...)
		for e := range stream.Events() {
			sink.Emit(e)
		}
	}()

	recorder := events.NewRecorder()
	ledger := memory.New()
	p, err := pool.New(&pool.Config{
		Token:    cfg.TokenAddress(),
		Address:  cfg.PoolAddress(),
		Ledger:   ledger,
		Sink:     events.Multi(stream, recorder),
		Logger:   rootLogger.With("component", "pool"),
		Registry: registry,
		Params:   cfg.Params(),
	})
	if err != nil {
		rootLogger.Error("Failed to initialize pool", "error", err)
		close()
	}
	rootLogger.Info("Pool created",
		"address", p.Address().Hex(),
		"token", p.Token().Hex(),
		"fee_rate", p.Params().FeeRate.Format(),
		"bootstrap_multiplier", p.Params().BootstrapMultiplier,
	)

	runner := scenario.New(cfg, p, ledger, rootLogger.With("component", "scenario"))
	if err := runner.Fund(); err != nil {
		rootLogger.Error("Failed to fund accounts", "error", err)
		close()
	}
	report, err := runner.Run(ctx)
	stream.Close()
	<-consumed
	if err != nil {
		rootLogger.Error("Scenario aborted", "error", err)
		close()
	}

	rootLogger.Info("Scenario finished",
		"steps", len(report.Results),
		"rejected", report.Failed,
		"base_reserve", report.Final.BaseReserve.Format(),
		"token_reserve", report.Final.TokenReserve.Format(),
		"total_shares", report.Final.TotalShares.Format(),
		"events", recorder.Len(),
		"dropped_events", stream.Dropped(),
	)
	for _, h := range report.Holders {
		rootLogger.Info("Liquidity position",
			"holder", h.Address.Hex(),
			"shares", h.Shares.Format(),
			"base_claim", h.BaseClaim.Format(),
			"token_claim", h.TokenClaim.Format(),
		)
	}

	if server == nil {
		return
	}
	// keep /metrics up until interrupted
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		rootLogger.Error("Failed to shut down metrics server", "error", err)
	}
}

func loadConfig() (*config.Config, error) {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file.")
	flag.Parse()
	log.Printf("Loading configuration from: %s", *configPath)
	return config.LoadConfig(*configPath)
}
