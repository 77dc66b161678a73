package app

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"live-caption-service/internal/config"
	"live-caption-service/internal/observability/logging"
)

const serviceName = "live-caption-service"

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config

	ready atomic.Bool
}

// New constructs a new Application from the provided configuration.
func New(cfg *config.Config) *Application {
	a := &Application{
		Cfg: cfg,
	}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("method", "New").
		Logger()

	appLogger.Info().Msg("Live caption service application created")
	return a
}

// setupLogger configures the global zerolog logger. ENV=dev forces console output.
func (a *Application) setupLogger() {
	obs := a.Cfg.Observability
	lc := logging.DefaultConfig()
	lc.Level = obs.LogLevel
	lc.Format = obs.LogFormat
	lc.Service = serviceName
	if obs.Env == "dev" {
		lc.Format = "console"
	}
	logging.Init(lc)

	a.Logger = logging.WithComponent("application")

	a.Logger.Info().
		Str("logLevel", zerolog.GlobalLevel().String()).
		Str("logFormat", lc.Format).
		Str("environment", obs.Env).
		Msg("Logger setup completed")
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start() error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	a.StartupTime = time.Now().UTC()
	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Str("sttProvider", a.Cfg.STT.Provider).
		Str("audioSource", a.Cfg.Audio.Source).
		Bool("translation", a.Cfg.TranslationActive()).
		Msg("Live caption service starting")

	return nil
}

// SetReady marks whether a caption session is running.
func (a *Application) SetReady(ready bool) {
	a.ready.Store(ready)
}

// Ready reports whether a caption session is running.
func (a *Application) Ready() bool {
	return a.ready.Load()
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	a.SetReady(false)
	shutdownLogger.Info().
		Dur("uptime", time.Since(a.StartupTime)).
		Msg("Live caption service shutting down")
}
