package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"live-caption-service/internal/models"
	"live-caption-service/internal/service/broadcast"
)

type fakeSnapshots struct {
	snap models.Snapshot
	err  error
}

func (f fakeSnapshots) Snapshot(context.Context) (models.Snapshot, error) {
	return f.snap, f.err
}

func serve(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter_Health(t *testing.T) {
	ready := false
	h := NewRouter(Deps{Hub: broadcast.NewHub(), Snapshots: fakeSnapshots{}, Ready: func() bool { return ready }})

	if rec := serve(t, h, "/v1/liveness"); rec.Code != http.StatusOK {
		t.Errorf("liveness = %d, want 200", rec.Code)
	}
	if rec := serve(t, h, "/v1/readiness"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness before start = %d, want 503", rec.Code)
	}
	ready = true
	if rec := serve(t, h, "/v1/readiness"); rec.Code != http.StatusOK {
		t.Errorf("readiness after start = %d, want 200", rec.Code)
	}
}

func TestRouter_Snapshot(t *testing.T) {
	tr := "Cześć."
	snap := models.EmptySnapshot()
	snap.Sentences = []models.SentenceView{{Sentence: "Hi.", Translation: &tr}}
	snap.Interim = []models.SentenceView{{Sentence: "How are"}}

	h := NewRouter(Deps{Hub: broadcast.NewHub(), Snapshots: fakeSnapshots{snap: snap}})
	rec := serve(t, h, "/v1/snapshot")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got models.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Sentences) != 1 || got.Sentences[0].Translation == nil || *got.Sentences[0].Translation != tr {
		t.Errorf("sentences = %+v", got.Sentences)
	}
	if len(got.Interim) != 1 || got.Interim[0].Translation != nil {
		t.Errorf("interim = %+v", got.Interim)
	}
}

func TestRouter_SnapshotUnavailable(t *testing.T) {
	h := NewRouter(Deps{Hub: broadcast.NewHub(), Snapshots: fakeSnapshots{err: errors.New("stopped")}})
	if rec := serve(t, h, "/v1/snapshot"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestRouter_Overlay(t *testing.T) {
	h := NewRouter(Deps{Hub: broadcast.NewHub(), Snapshots: fakeSnapshots{}})
	rec := serve(t, h, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/ws") {
		t.Error("overlay page does not connect to /ws")
	}
}
