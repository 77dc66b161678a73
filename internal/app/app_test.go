package app

import (
	"testing"

	"github.com/rs/zerolog"

	"live-caption-service/internal/config"
)

func TestNew_AppliesLogLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	cfg := &config.Config{Observability: config.ObservabilityConfig{LogLevel: "warn", LogFormat: "json", Env: "prod"}}
	New(cfg)

	if got := zerolog.GlobalLevel(); got != zerolog.WarnLevel {
		t.Errorf("global level = %v, want warn", got)
	}
}

func TestReadiness(t *testing.T) {
	a := New(&config.Config{})
	if a.Ready() {
		t.Fatal("new application should not be ready")
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	a.SetReady(true)
	if !a.Ready() {
		t.Fatal("Ready() = false after SetReady(true)")
	}
	a.Shutdown()
	if a.Ready() {
		t.Error("Ready() = true after Shutdown")
	}
}
