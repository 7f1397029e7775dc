package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthcheck "github.com/vladislavdragonenkov/orders/internal/health"
)

// grpcHealthService — имя сервиса, под которым публикуется статус хранилища.
const grpcHealthService = "orders"

// grpcHealthServer отдаёт стандартный grpc.health.v1 для оркестраторов,
// которые умеют только gRPC-пробы.
type grpcHealthServer struct {
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
	logger   *log.Entry
}

func newGRPCHealthServer(addr string, registerer prometheus.Registerer, logger *log.Entry) (*grpcHealthServer, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen grpc health %s: %w", addr, err)
	}

	grpcMetrics := promgrpc.NewServerMetrics()
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if err := registerer.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(grpcMetrics.StreamServerInterceptor()),
	)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(grpcHealthService, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, hs)
	reflection.Register(server)
	grpcMetrics.InitializeMetrics(server)

	return &grpcHealthServer{
		server:   server,
		health:   hs,
		listener: lis,
		logger:   logger,
	}, nil
}

func (g *grpcHealthServer) addr() string {
	return g.listener.Addr().String()
}

// serve блокируется до остановки сервера.
func (g *grpcHealthServer) serve() error {
	g.logger.Infof("gRPC health слушает %s", g.addr())
	err := g.server.Serve(g.listener)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// watch периодически переносит результат HTTP-проверок в статус gRPC health.
func (g *grpcHealthServer) watch(ctx context.Context, checks *healthcheck.Handler, interval time.Duration) {
	g.sync(ctx, checks)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sync(ctx, checks)
		}
	}
}

func (g *grpcHealthServer) sync(ctx context.Context, checks *healthcheck.Handler) {
	status := healthpb.HealthCheckResponse_SERVING
	if _, overall := checks.Evaluate(ctx); overall == healthcheck.StatusUnhealthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus(grpcHealthService, status)
}

// stop пытается остановиться мягко и обрывает соединения по истечении timeout.
func (g *grpcHealthServer) stop(timeout time.Duration) {
	g.health.Shutdown()

	stoppedCh := make(chan struct{})
	go func() {
		g.server.GracefulStop()
		close(stoppedCh)
	}()
	select {
	case <-stoppedCh:
	case <-time.After(timeout):
		g.logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		g.server.Stop()
	}
}
