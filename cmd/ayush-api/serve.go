package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayushhealth/go-ayush/internal/api"
	"github.com/ayushhealth/go-ayush/internal/api/middleware"
	"github.com/ayushhealth/go-ayush/internal/catalog"
	"github.com/ayushhealth/go-ayush/internal/config"
	"github.com/ayushhealth/go-ayush/internal/domain/clinical"
	"github.com/ayushhealth/go-ayush/internal/events"
	"github.com/ayushhealth/go-ayush/internal/fhir/mapper"
	"github.com/ayushhealth/go-ayush/internal/infrastructure/redpanda"
	"github.com/ayushhealth/go-ayush/internal/observability/logging"
	"github.com/ayushhealth/go-ayush/internal/observability/metrics"
	"github.com/ayushhealth/go-ayush/internal/observability/tracing"
	"github.com/ayushhealth/go-ayush/pkg/idempotency"
)

func serveCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func loadConfig(envFile string) (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServer(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	tp, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.OTelSampleRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return err
	}
	logger.Info("disease catalog loaded",
		zap.Int("diseases", cat.Len()),
		zap.String("file", cfg.CatalogFile))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	var (
		publisher events.Publisher
		producer  *redpanda.Producer
	)
	if cfg.EventsEnabled() {
		producer, err = redpanda.NewProducer(redpanda.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err != nil {
			return err
		}
		publisher = producer
		logger.Info("publishing clinical events to Redpanda", zap.Strings("brokers", cfg.KafkaBrokers))
	} else {
		publisher = events.NewLogPublisher(logger)
		logger.Info("no Kafka brokers configured, clinical events go to the log")
	}

	dispatchCfg := events.DefaultConfig()
	dispatchCfg.Workers = cfg.EventWorkers
	dispatchCfg.QueueSize = cfg.EventQueueSize
	dispatcher, err := events.NewDispatcher(dispatchCfg, publisher, m, logger)
	if err != nil {
		return err
	}
	dispatcher.Start()

	store := clinical.NewMemoryStore(cat,
		clinical.WithEventSink(dispatcher),
		clinical.WithCorrelation(middleware.GetRequestID),
		clinical.WithLogger(logger),
	)

	inboxCfg := idempotency.DefaultConfig()
	inboxCfg.TTL = cfg.IdempotencyTTL
	inbox := idempotency.NewInbox(inboxCfg, logger)
	inbox.StartCleanup()

	router := api.NewRouter(api.Deps{
		ServiceName:  serviceName,
		Version:      version,
		Dev:          cfg.IsDev(),
		CORSOrigins:  cfg.CORSOrigins,
		RateLimitRPS: cfg.RateLimitRPS,
		Catalog:      cat,
		Store:        store,
		Mapper:       mapper.New(),
		Inbox:        inbox,
		Metrics:      m,
		Gatherer:     reg,
		Events:       dispatcher,
		Logger:       logger,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	base := fmt.Sprintf("http://localhost:%d", cfg.Port)
	logger.Info("AYUSH Healthcare API server started",
		zap.Int("port", cfg.Port),
		zap.String("health", base+"/api/health"),
		zap.String("api", base+"/api"),
		zap.String("env", cfg.Env),
		zap.Bool("tracing", tp.Enabled()))

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
	case serveErr = <-errCh:
		logger.Error("server error", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", zap.Error(err))
	}
	inbox.Stop()
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		logger.Warn("event dispatcher did not drain", zap.Error(err))
	}
	if producer != nil {
		if err := producer.Flush(shutdownCtx); err != nil {
			logger.Warn("producer flush failed", zap.Error(err))
		}
		_ = producer.Close()
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown failed", zap.Error(err))
	}

	logger.Info("server stopped")
	return serveErr
}
