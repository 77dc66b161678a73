package sentence

import (
	"sync"
	"testing"
)

// recordingScheduler captures requests instead of running them.
type recordingScheduler struct {
	requests []Request
}

func (r *recordingScheduler) Schedule(req Request) {
	r.requests = append(r.requests, req)
}

func (r *recordingScheduler) last() Request {
	return r.requests[len(r.requests)-1]
}

func TestNew_SchedulesTranslation(t *testing.T) {
	sched := &recordingScheduler{}
	s := New(7, "Hello there.", "", sched)

	if len(sched.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(sched.requests))
	}
	req := sched.requests[0]
	if req.ID != 7 || req.Revision != 1 || req.Text != "Hello there." {
		t.Errorf("unexpected request %+v", req)
	}
	if _, ok := s.Translation(); ok {
		t.Error("expected no translation before the first result")
	}
}

func TestNew_WithSeed(t *testing.T) {
	s := New(1, "Hello", "Cześć...", &recordingScheduler{})

	tr, ok := s.Translation()
	if !ok || tr != "Cześć..." {
		t.Errorf("expected seed translation, got %q (%v)", tr, ok)
	}
}

func TestNew_NilScheduler(t *testing.T) {
	s := New(1, "Hello", "", nil)
	if s.Text() != "Hello" {
		t.Errorf("expected text to be kept, got %q", s.Text())
	}
}

func TestSetText_RetriggersTranslation(t *testing.T) {
	sched := &recordingScheduler{}
	s := New(1, "Hi there", "", sched)
	s.Apply(Result{ID: 1, Revision: 1, Text: " Cześć "})

	s.SetText("Hi there how are you.")

	if len(sched.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(sched.requests))
	}
	if got := sched.last(); got.Revision != 2 || got.Text != "Hi there how are you." {
		t.Errorf("unexpected request %+v", got)
	}
	if tr, _ := s.Translation(); tr != "Cześć..." {
		t.Errorf("expected continuation seed, got %q", tr)
	}
	if s.ID() != 1 {
		t.Errorf("expected stable id, got %d", s.ID())
	}
}

func TestApply_CurrentResult(t *testing.T) {
	s := New(1, "Hello", "", &recordingScheduler{})

	if got := s.Apply(Result{ID: 1, Revision: 1, Text: "  Cześć \n"}); got != Current {
		t.Fatalf("expected Current, got %v", got)
	}
	if tr, ok := s.Translation(); !ok || tr != "Cześć" {
		t.Errorf("expected trimmed translation, got %q", tr)
	}
}

func TestApply_StaleAfterCurrentIsDiscarded(t *testing.T) {
	s := New(1, "T1", "", &recordingScheduler{})
	s.SetText("T2")

	if got := s.Apply(Result{ID: 1, Revision: 2, Text: "tr(T2)"}); got != Current {
		t.Fatalf("expected Current, got %v", got)
	}
	if got := s.Apply(Result{ID: 1, Revision: 1, Text: "tr(T1)"}); got != Discarded {
		t.Fatalf("expected Discarded, got %v", got)
	}
	if tr, _ := s.Translation(); tr != "tr(T2)" {
		t.Errorf("expected tr(T2) to remain, got %q", tr)
	}
}

func TestApply_StaleBeforeCurrentIsMarked(t *testing.T) {
	s := New(1, "T1", "", &recordingScheduler{})
	s.SetText("T2")

	if got := s.Apply(Result{ID: 1, Revision: 1, Text: "tr(T1)"}); got != Stale {
		t.Fatalf("expected Stale, got %v", got)
	}
	if tr, _ := s.Translation(); tr != "tr(T1)..." {
		t.Errorf("expected marked stale translation, got %q", tr)
	}

	if got := s.Apply(Result{ID: 1, Revision: 2, Text: "tr(T2)"}); got != Current {
		t.Fatalf("expected Current, got %v", got)
	}
	if tr, _ := s.Translation(); tr != "tr(T2)" {
		t.Errorf("expected tr(T2), got %q", tr)
	}
}

func TestApply_OlderStaleDoesNotReplaceNewerStale(t *testing.T) {
	s := New(1, "T1", "", &recordingScheduler{})
	s.SetText("T2")
	s.SetText("T3")

	s.Apply(Result{ID: 1, Revision: 2, Text: "tr(T2)"})
	if got := s.Apply(Result{ID: 1, Revision: 1, Text: "tr(T1)"}); got != Discarded {
		t.Fatalf("expected Discarded, got %v", got)
	}
	if tr, _ := s.Translation(); tr != "tr(T2)..." {
		t.Errorf("expected tr(T2)..., got %q", tr)
	}
}

func TestApply_RejectsForeignAndEmptyResults(t *testing.T) {
	s := New(1, "Hello", "", &recordingScheduler{})

	tests := []struct {
		name string
		res  Result
	}{
		{"other sentence", Result{ID: 2, Revision: 1, Text: "x"}},
		{"future revision", Result{ID: 1, Revision: 5, Text: "x"}},
		{"empty text", Result{ID: 1, Revision: 1, Text: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Apply(tt.res); got != Discarded {
				t.Errorf("expected Discarded, got %v", got)
			}
		})
	}
	if _, ok := s.Translation(); ok {
		t.Error("expected no translation")
	}
}

func TestContinue(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"", ""},
		{"Cześć", "Cześć..."},
		{"Cześć...", "Cześć..."},
	}
	for _, tt := range tests {
		if got := Continue(tt.in); got != tt.expected {
			t.Errorf("Continue(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func TestOutcome_String(t *testing.T) {
	if Current.String() != "current" || Stale.String() != "stale" || Discarded.String() != "discarded" {
		t.Error("unexpected outcome names")
	}
}

func TestGenerator_ThreadSafety(t *testing.T) {
	gen := NewGenerator()
	numGoroutines := 50
	perGoroutine := 20

	var wg sync.WaitGroup
	ids := make(chan uint64, numGoroutines*perGoroutine)
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				ids <- gen.Next()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate id %d", id)
		}
		seen[id] = true
	}
	if len(seen) != numGoroutines*perGoroutine {
		t.Errorf("expected %d unique ids, got %d", numGoroutines*perGoroutine, len(seen))
	}
}
