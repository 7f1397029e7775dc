package app

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
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/orders/internal/health"
	"github.com/vladislavdragonenkov/orders/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
	"github.com/vladislavdragonenkov/orders/internal/tracing"
	httpapi "github.com/vladislavdragonenkov/orders/internal/transport/http"
	"github.com/vladislavdragonenkov/orders/internal/version"
)

const serviceName = "orders"

// Run поднимает HTTP API, сервер метрик и, если задан адрес, gRPC health.
// Блокируется до отмены ctx или падения одного из серверов.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Exporter:       cfg.TraceExporter,
		Endpoint:       cfg.OTLPEndpoint,
		SampleRatio:    cfg.TraceSampleRatio,
		ServiceName:    serviceName,
		ServiceVersion: version.GetVersion(),
	}, log.WithField("component", "tracing"))
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.WithError(err).Warn("failed to flush traces")
		}
	}()

	registry := newRegistry()

	deps, err := initRuntimeDependencies(ctx, cfg, log.WithField("component", "storage"), registry)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	// Kafka необязательна: без брокеров события не публикуются.
	producer := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(producer, logger)
	var publisher domain.OrderEventPublisher = domain.NoopPublisher{}
	if producer != nil {
		publisher = kafka.NewOrderPublisher(producer, cfg.KafkaTopic)
	}

	tracer := otel.Tracer(tracing.TracerName)
	svc := orders.NewService(deps.repo,
		orders.WithLogger(log.WithField("component", "orders")),
		orders.WithPublisher(publisher),
		orders.WithPublishTimeout(cfg.KafkaPublishTimeout),
		orders.WithMetrics(metrics.NewRepositoryMetrics(registry)),
		orders.WithTracer(tracer),
	)

	router := httpapi.NewRouter(svc, httpapi.RouterOptions{
		Logger:      log.WithField("component", "http"),
		Metrics:     metrics.NewHTTPMetrics(registry),
		Tracer:      tracer,
		CORSOrigins: cfg.CORSOrigins,
	})

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler, registry)

	lis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		return fmt.Errorf("listen http %s: %w", cfg.HTTPAddr, err)
	}
	apiSrv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("HTTP API слушает %s", lis.Addr())
		if err := apiSrv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http api: %w", err)
		}
	}()

	var grpcHealth *grpcHealthServer
	if cfg.GRPCHealthAddr != "" {
		grpcHealth, err = newGRPCHealthServer(cfg.GRPCHealthAddr, registry, logger)
		if err != nil {
			shutdownServers(apiSrv, nil, metricsSrv, cfg.ShutdownTimeout, logger)
			return err
		}
		go func() {
			if err := grpcHealth.serve(); err != nil {
				errCh <- fmt.Errorf("grpc health: %w", err)
			}
		}()
		go grpcHealth.watch(ctx, healthHandler, cfg.HealthInterval)
	}

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		shutdownServers(apiSrv, grpcHealth, metricsSrv, cfg.ShutdownTimeout, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownServers(apiSrv, grpcHealth, metricsSrv, cfg.ShutdownTimeout, logger)
		return err
	}
}

// newRegistry создаёт реестр метрик процесса вместо глобального,
// чтобы несколько запусков в одном процессе не конфликтовали.
func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// shutdownServers дожидается завершения активных запросов API, затем
// останавливает gRPC health и сервер метрик.
func shutdownServers(apiSrv *http.Server, grpcHealth *grpcHealthServer, metricsSrv *http.Server, timeout time.Duration, logger *log.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := apiSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("api shutdown with error")
		_ = apiSrv.Close()
	}
	if grpcHealth != nil {
		grpcHealth.stop(timeout)
	}
	shutdownHTTP(metricsSrv, logger)
}

// startMetricsServer запускает HTTP-обработчики /metrics и health-проб.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler, gatherer prometheus.Gatherer) *http.Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
