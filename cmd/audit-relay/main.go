// Package main provides the audit relay entry point. It consumes clinical
// events from Redpanda and writes one structured audit line per event.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ayushhealth/go-ayush/internal/config"
	"github.com/ayushhealth/go-ayush/internal/events"
	"github.com/ayushhealth/go-ayush/internal/infrastructure/redpanda"
	"github.com/ayushhealth/go-ayush/internal/observability/logging"
	"github.com/ayushhealth/go-ayush/internal/observability/metrics"
	"github.com/ayushhealth/go-ayush/internal/observability/tracing"
)

const serviceName = "audit-relay"

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if !cfg.EventsEnabled() {
		logger.Fatal("KAFKA_BROKERS is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.Init(ctx, tracing.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Env,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SampleRate:   cfg.OTelSampleRate,
	})
	if err != nil {
		logger.Fatal("tracing init failed", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	consumerCfg := redpanda.DefaultConsumerConfig(cfg.KafkaBrokers, cfg.AuditGroupID,
		redpanda.TopicPatientEvents, redpanda.TopicConditionEvents)

	consumer, err := redpanda.NewConsumer(consumerCfg, events.AuditHandler(m, logger), logger)
	if err != nil {
		logger.Fatal("consumer creation failed", zap.Error(err))
	}
	consumer.Start()

	logger.Info("audit relay started",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("group", cfg.AuditGroupID),
		zap.String("metrics", cfg.MetricsAddr))

	<-ctx.Done()
	logger.Info("shutting down")

	if err := consumer.Stop(); err != nil {
		logger.Error("consumer stop failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	_ = tp.Shutdown(shutdownCtx)

	stats := consumer.Stats()
	logger.Info("audit relay stopped",
		zap.Int64("messages", stats.MessagesRead),
		zap.Int64("errors", stats.ErrorCount))
}
