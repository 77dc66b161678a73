package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"live-caption-service/internal/observability/metrics"
)

func TestReadyz(t *testing.T) {
	tests := []struct {
		name  string
		ready ReadyFunc
		want  int
	}{
		{"nil func", nil, http.StatusOK},
		{"ready", func() bool { return true }, http.StatusOK},
		{"not ready", func() bool { return false }, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newMux(tt.ready).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	mux := newMux(nil)
	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestUnaryServerInterceptor_PassesThrough(t *testing.T) {
	icpt := UnaryServerInterceptor(metrics.DefaultMetrics)
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	resp, err := icpt(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "resp", nil
	})
	if err != nil || resp != "resp" {
		t.Fatalf("got (%v, %v), want (resp, nil)", resp, err)
	}

	want := status.Error(codes.NotFound, "unknown service")
	_, err = icpt(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, want
	})
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
}

func TestStreamServerInterceptor_PassesThrough(t *testing.T) {
	icpt := StreamServerInterceptor(metrics.DefaultMetrics)
	info := &grpc.StreamServerInfo{FullMethod: "/grpc.health.v1.Health/Watch", IsServerStream: true}

	called := false
	err := icpt(nil, nil, info, func(srv interface{}, ss grpc.ServerStream) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Errorf("called = %v, err = %v", called, err)
	}
}

func TestRPCName_TagsHealthChecks(t *testing.T) {
	tests := []struct {
		fullMethod  string
		service     string
		method      string
		healthCheck bool
	}{
		{"/grpc.health.v1.Health/Check", "grpc.health.v1.Health", "Check", true},
		{"/grpc.health.v1.Health/Watch", "grpc.health.v1.Health", "Watch", true},
		{"/grpc.reflection.v1.ServerReflection/ServerReflectionInfo", "grpc.reflection.v1.ServerReflection", "ServerReflectionInfo", false},
		{"/live.caption.CaptionService/Snapshot", "live.caption.CaptionService", "Snapshot", false},
	}
	for _, tt := range tests {
		t.Run(tt.fullMethod, func(t *testing.T) {
			service, method, health := rpcName(tt.fullMethod)
			if service != tt.service || method != tt.method || health != tt.healthCheck {
				t.Errorf("rpcName = (%q, %q, %v), want (%q, %q, %v)",
					service, method, health, tt.service, tt.method, tt.healthCheck)
			}
		})
	}
}

func TestCallLevel(t *testing.T) {
	tests := []struct {
		name        string
		code        codes.Code
		healthCheck bool
		want        zerolog.Level
	}{
		{"health ok", codes.OK, true, zerolog.DebugLevel},
		{"health cancelled", codes.Canceled, true, zerolog.DebugLevel},
		{"health failure", codes.NotFound, true, zerolog.WarnLevel},
		{"reflection ok", codes.OK, false, zerolog.InfoLevel},
		{"reflection failure", codes.Unavailable, false, zerolog.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := callLevel(tt.code, tt.healthCheck); got != tt.want {
				t.Errorf("callLevel(%s, %v) = %s, want %s", tt.code, tt.healthCheck, got, tt.want)
			}
		})
	}
}
