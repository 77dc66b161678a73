// Package observability provides gRPC interceptors for metrics and logging.
package observability

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"live-caption-service/internal/observability/logging"
	"live-caption-service/internal/observability/metrics"
)

// UnaryServerInterceptor records every unary call and logs the ones that fail.
// Successful calls are visible through the RPC counter only.
func UnaryServerInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		code := status.Code(err)
		m.RecordRPC(info.FullMethod, code.String())
		if code != codes.OK {
			logCall(info.FullMethod, code, start).Err(err).Msg("gRPC call failed")
		}
		return resp, err
	}
}

// StreamServerInterceptor records and logs the end of every stream.
// Health Watch streams are the only streaming calls the service exposes.
func StreamServerInterceptor(m *metrics.Metrics) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()

		err := handler(srv, ss)

		code := status.Code(err)
		m.RecordRPC(info.FullMethod, code.String())
		logCall(info.FullMethod, code, start).Err(err).Msg("gRPC stream ended")
		return err
	}
}

// rpcName splits "/pkg.Service/Method" and reports whether it targets the health service.
func rpcName(fullMethod string) (service, method string, healthCheck bool) {
	service, method, _ = strings.Cut(strings.TrimPrefix(fullMethod, "/"), "/")
	return service, method, service == grpc_health_v1.Health_ServiceDesc.ServiceName
}

// callLevel keeps routine health traffic at debug and raises failures to warn.
func callLevel(code codes.Code, healthCheck bool) zerolog.Level {
	switch {
	case code != codes.OK && code != codes.Canceled:
		return zerolog.WarnLevel
	case healthCheck:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

func logCall(fullMethod string, code codes.Code, start time.Time) *zerolog.Event {
	service, method, healthCheck := rpcName(fullMethod)
	l := logging.WithComponent("grpc")
	return l.WithLevel(callLevel(code, healthCheck)).
		Str("rpcService", service).
		Str("rpcMethod", method).
		Bool("healthCheck", healthCheck).
		Str("code", code.String()).
		Dur("duration", time.Since(start))
}
