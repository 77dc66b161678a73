package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	grpcapi "live-caption-service/internal/api/grpc"
	"live-caption-service/internal/app"
	"live-caption-service/internal/bus"
	"live-caption-service/internal/config"
	"live-caption-service/internal/events"
	httpapi "live-caption-service/internal/http"
	"live-caption-service/internal/observability"
	"live-caption-service/internal/observability/metrics"
	"live-caption-service/internal/service/audio"
	"live-caption-service/internal/service/audio/mic"
	"live-caption-service/internal/service/broadcast"
	"live-caption-service/internal/service/reconciler"
	"live-caption-service/internal/service/session"
	"live-caption-service/internal/service/stt"
	"live-caption-service/internal/service/stt/deepgram"
	"live-caption-service/internal/service/stt/google"
	"live-caption-service/internal/service/stt/mock"
	"live-caption-service/internal/service/translate"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load .env")
	}
	cfg := config.Load()

	application := app.New(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Application start failed")
	}
	defer application.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessionID := uuid.NewString()

	// Sinks
	hub := broadcast.NewHub()
	sinks := []reconciler.Sink{hub}

	var publisher *events.Publisher
	if cfg.Kafka.Enabled {
		publisher = events.New(&events.Config{
			Enabled:         true,
			Brokers:         cfg.Kafka.Brokers,
			TopicSnapshot:   cfg.Kafka.TopicSnapshot,
			TopicTranscript: cfg.Kafka.TopicTranscript,
			Principal:       cfg.Kafka.Principal,
			Key:             sessionID,
		})
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}

	var nc *bus.Client
	if cfg.NATS.Enabled {
		var err error
		nc, err = bus.Connect(ctx, bus.Config{
			Servers:        []string{cfg.NATS.URL},
			Subject:        cfg.NATS.Subject,
			Name:           cfg.Service.Principal,
			Token:          cfg.NATS.Token,
			ConnectTimeout: 5 * time.Second,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer nc.Close()
		sinks = append(sinks, nc)
	}

	var translator translate.Translator
	if cfg.TranslationActive() {
		oc := translate.DefaultOpenAIConfig()
		oc.APIKey = cfg.Translation.APIKey
		oc.BaseURL = cfg.Translation.BaseURL
		oc.Model = cfg.Translation.Model
		oc.TargetLanguage = cfg.Translation.TargetLanguage
		translator = translate.NewOpenAI(oc)
	} else {
		log.Warn().Msg("Translation disabled; captions will not be translated")
	}

	rec := reconciler.New(reconciler.Config{
		SplitDelimiters:    cfg.Reconciler.SplitDelimiters,
		Terminal:           cfg.Reconciler.TerminalPunctuation,
		ShortSentenceChars: cfg.Reconciler.ShortSentenceChars,
		TranslationTimeout: cfg.Translation.Timeout,
	}, translator, sinks...)

	// The reconciler outlives the driver so finals flushed by the adapter on close are applied.
	recCtx, recCancel := context.WithCancel(context.Background())
	defer recCancel()
	recDone := make(chan struct{})
	go func() {
		defer close(recDone)
		_ = rec.Run(recCtx)
	}()

	// Servers
	ready := func() bool {
		return application.Ready() && (nc == nil || nc.Healthy())
	}
	obsServer := observability.NewServer(":"+cfg.Observability.MetricsPort, ready)
	obsServer.Start()

	grpcServer := grpcapi.New(metrics.DefaultMetrics)
	go func() {
		if err := grpcServer.ListenAndServe(":" + cfg.Service.GRPCPort); err != nil {
			log.Error().Err(err).Msg("gRPC server stopped")
		}
	}()

	httpServer := &http.Server{
		Addr: cfg.Broadcast.Addr(),
		Handler: httpapi.NewRouter(httpapi.Deps{
			Hub:       hub,
			Snapshots: rec,
			Ready:     ready,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("Subscriber channel listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Subscriber channel server error")
		}
	}()

	// Session
	adapter, err := newAdapter(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.STT.Provider).Msg("Failed to create STT adapter")
	}
	source, err := newSource(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("source", cfg.Audio.Source).Msg("Failed to open audio source")
	}

	driver := session.NewDriver(session.Config{
		ID:     sessionID,
		Format: audio.Format{SampleRateHz: cfg.STT.SampleRateHz, Channels: 1},
	}, adapter, source, rec)
	if publisher != nil {
		driver.SetRecorder(publisher)
	}

	application.SetReady(true)
	grpcServer.SetServing(true)
	if err := driver.Run(ctx); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("Session ended with error")
	}
	application.SetReady(false)
	grpcServer.SetServing(false)

	// Subscribers keep the final captions until the process is stopped.
	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	recCancel()
	<-recDone
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Subscriber channel shutdown")
	}
	grpcServer.GracefulStop()
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Observability server shutdown")
	}
	hub.Close()
}

func newAdapter(ctx context.Context, cfg *config.Config) (stt.Adapter, error) {
	opts := stt.DefaultOptions()
	opts.Model = cfg.STT.Model
	opts.LanguageCode = cfg.STT.LanguageCode
	opts.SampleRateHz = cfg.STT.SampleRateHz
	opts.InterimResults = cfg.STT.InterimResults
	opts.EndpointingMs = cfg.STT.EndpointingMs
	opts.UtteranceEndMs = cfg.STT.UtteranceEndMs

	switch cfg.STT.Provider {
	case "google":
		return google.New(ctx, google.ConfigFromOptions(opts))
	case "mock":
		return mock.New(), nil
	default:
		return deepgram.New(cfg.STT.DeepgramAPIKey, opts), nil
	}
}

func newSource(cfg *config.Config) (audio.Source, error) {
	switch cfg.Audio.Source {
	case "wav":
		return audio.OpenWAV(cfg.Audio.File, cfg.Audio.FrameSamples, cfg.Audio.Realtime)
	case "stdin":
		format := audio.Format{SampleRateHz: cfg.STT.SampleRateHz, Channels: 1}
		return audio.NewReaderSource(os.Stdin, format, cfg.Audio.FrameSamples), nil
	default:
		return mic.Open(mic.Config{
			DeviceIndex:  cfg.Audio.DeviceIndex,
			SampleRateHz: cfg.STT.SampleRateHz,
			FrameSamples: cfg.Audio.FrameSamples,
		})
	}
}
