package http

import (
	"context"
	"embed"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"live-caption-service/internal/models"
	"live-caption-service/internal/service/broadcast"
)

//go:embed static/overlay.html
var static embed.FS

const snapshotTimeout = 2 * time.Second

// SnapshotSource returns the current caption state.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (models.Snapshot, error)
}

// Deps are the components the router exposes.
type Deps struct {
	Hub       *broadcast.Hub
	Snapshots SnapshotSource
	// Ready reports whether a caption session is running. Nil means always ready.
	Ready func() bool
}

// NewRouter constructs the HTTP router for the subscriber channel.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		page, err := static.ReadFile("static/overlay.html")
		if err != nil {
			http.Error(w, "overlay unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	})

	r.Get("/ws", broadcast.Handler(d.Hub))

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if d.Ready != nil && !d.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Get("/snapshot", snapshotHandler(d.Snapshots))
	})

	return r
}

func snapshotHandler(src SnapshotSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
		defer cancel()

		snap, err := src.Snapshot(ctx)
		if err != nil {
			log.Warn().Err(err).Str("requestId", middleware.GetReqID(r.Context())).Msg("Snapshot unavailable")
			http.Error(w, "snapshot unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(snap)
	}
}
