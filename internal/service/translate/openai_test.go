package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func sseServer(t *testing.T, deltas []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", d)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func newTestTranslator(url string) *OpenAI {
	cfg := DefaultOpenAIConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = url + "/v1"
	cfg.IdleTimeout = time.Second
	return NewOpenAI(cfg)
}

func TestOpenAI_AccumulatesDeltas(t *testing.T) {
	srv := sseServer(t, []string{" Cześć", ", jak", " się masz? "})
	defer srv.Close()

	got, err := newTestTranslator(srv.URL).Translate(context.Background(), "Hi, how are you?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Cześć, jak się masz?" {
		t.Errorf("got %q", got)
	}
}

func TestOpenAI_EmptyResult(t *testing.T) {
	srv := sseServer(t, []string{"  "})
	defer srv.Close()

	_, err := newTestTranslator(srv.URL).Translate(context.Background(), "Hi")
	if !errors.Is(err, ErrEmptyTranslation) {
		t.Errorf("expected ErrEmptyTranslation, got %v", err)
	}
}

func TestOpenAI_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := newTestTranslator(srv.URL).Translate(context.Background(), "Hi"); err == nil {
		t.Error("expected error from failing backend")
	}
}

func TestOpenAI_SystemPrompt(t *testing.T) {
	cfg := DefaultOpenAIConfig()
	cfg.TargetLanguage = "German"
	o := NewOpenAI(cfg)
	if !strings.Contains(o.SystemPrompt(), "to German.") {
		t.Errorf("unexpected prompt %q", o.SystemPrompt())
	}
}

func TestFunc(t *testing.T) {
	var tr Translator = Func(func(_ context.Context, text string) (string, error) {
		return strings.ToUpper(text), nil
	})
	got, err := tr.Translate(context.Background(), "abc")
	if err != nil || got != "ABC" {
		t.Errorf("got %q, %v", got, err)
	}
}
