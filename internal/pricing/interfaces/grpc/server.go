package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/wyfcoding/structuredpricing/pkg/config"
	"github.com/wyfcoding/structuredpricing/pkg/middleware"
)

// PricingServiceName 健康检查中的服务名
const PricingServiceName = "structuredpricing.pricing.v1.PricingService"

// Server gRPC 服务：健康检查与反射，统一挂载日志与 panic 恢复拦截器
type Server struct {
	*grpc.Server
	health *health.Server
}

// NewServer 创建 gRPC 服务
func NewServer(cfg config.GRPCConfig) *Server {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			middleware.GRPCRecoveryInterceptor(),
			middleware.GRPCLoggingInterceptor(),
		),
	}
	if cfg.MaxConcurrentStreams > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(uint32(cfg.MaxConcurrentStreams)))
	}

	s := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(PricingServiceName, healthpb.HealthCheckResponse_SERVING)
	return &Server{Server: s, health: hs}
}

// Shutdown 先将健康状态置为 NOT_SERVING，再优雅停止
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.GracefulStop()
}
