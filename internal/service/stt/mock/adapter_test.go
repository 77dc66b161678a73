package mock

import (
	"context"
	"sync"
	"testing"

	"live-caption-service/internal/models"
)

// testCallback implements stt.Callback for testing
type testCallback struct {
	mu         sync.Mutex
	interims   []string
	finals     []string
	utterances int
	closes     int
}

func (c *testCallback) OnTranscript(ev models.TranscriptEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ev.IsFinal {
		c.finals = append(c.finals, ev.Transcript)
	} else {
		c.interims = append(c.interims, ev.Transcript)
	}
}

func (c *testCallback) OnUtteranceEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.utterances++
}

func (c *testCallback) OnError(error) {}

func (c *testCallback) OnClose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
}

func send(t *testing.T, a *Adapter, frames int) {
	t.Helper()
	for i := 0; i < frames; i++ {
		if err := a.SendAudio(context.Background(), []byte("audio")); err != nil {
			t.Fatalf("SendAudio: %v", err)
		}
	}
}

func TestAdapter_PlaysScriptInOrder(t *testing.T) {
	a := NewScript(Utterance{Interims: []string{"I", "I think"}, Final: "I think so."})
	cb := &testCallback{}
	_ = a.Start(context.Background(), cb)

	send(t, a, 2)
	if len(cb.interims) != 2 || cb.interims[1] != "I think" {
		t.Fatalf("interims = %q", cb.interims)
	}
	if len(cb.finals) != 0 {
		t.Fatalf("final emitted too early: %q", cb.finals)
	}

	send(t, a, 1)
	if len(cb.finals) != 1 || cb.finals[0] != "I think so." {
		t.Errorf("finals = %q", cb.finals)
	}

	send(t, a, 1)
	if cb.utterances != 1 {
		t.Errorf("utterances = %d, want 1", cb.utterances)
	}

	send(t, a, 3)
	if cb.closes != 1 {
		t.Errorf("closes = %d, want 1 after script ends", cb.closes)
	}
}

func TestAdapter_LoopsDefaultScript(t *testing.T) {
	a := New()
	cb := &testCallback{}
	_ = a.Start(context.Background(), cb)

	frames := 0
	for _, utt := range DefaultUtterances {
		frames += len(utt.Interims) + 2
	}
	send(t, a, frames+1)

	if len(cb.finals) != len(DefaultUtterances) {
		t.Errorf("finals = %d, want %d", len(cb.finals), len(DefaultUtterances))
	}
	if len(cb.interims) != countInterims()+1 {
		t.Errorf("interims = %d, expected loop back to first utterance", len(cb.interims))
	}
	if cb.closes != 0 {
		t.Error("looping adapter must not close itself")
	}
}

func countInterims() int {
	n := 0
	for _, utt := range DefaultUtterances {
		n += len(utt.Interims)
	}
	return n
}

func TestAdapter_Close_FinalizesStartedUtterance(t *testing.T) {
	a := NewScript(Utterance{Interims: []string{"Hello", "Hello there"}, Final: "Hello there."})
	cb := &testCallback{}
	_ = a.Start(context.Background(), cb)

	send(t, a, 1)
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(cb.finals) != 1 || cb.finals[0] != "Hello there." {
		t.Errorf("finals = %q", cb.finals)
	}
	if cb.closes != 1 {
		t.Errorf("closes = %d", cb.closes)
	}
}

func TestAdapter_Close_Idempotent(t *testing.T) {
	a := New()
	cb := &testCallback{}
	_ = a.Start(context.Background(), cb)

	_ = a.Close()
	if err := a.Close(); err != nil {
		t.Fatalf("unexpected error on second close: %v", err)
	}
	if cb.closes != 1 || len(cb.finals) != 0 {
		t.Errorf("closes = %d finals = %q", cb.closes, cb.finals)
	}
}

func TestAdapter_SendAudio_AfterClose(t *testing.T) {
	a := New()
	cb := &testCallback{}
	_ = a.Start(context.Background(), cb)
	_ = a.Close()

	send(t, a, 3)
	if len(cb.interims) != 0 {
		t.Errorf("interims after close: %q", cb.interims)
	}
}

func TestAdapter_NoCallbackSet(t *testing.T) {
	a := New()

	if err := a.SendAudio(context.Background(), []byte("audio")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDefaultUtterances(t *testing.T) {
	for i, utt := range DefaultUtterances {
		if len(utt.Interims) == 0 {
			t.Errorf("utterance %d has no interims", i)
		}
		if utt.Final == "" {
			t.Errorf("utterance %d has empty final", i)
		}
	}
}

func TestAdapter_ThreadSafety(t *testing.T) {
	a := New()
	_ = a.Start(context.Background(), &testCallback{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = a.SendAudio(context.Background(), []byte("audio"))
			}
		}()
	}
	wg.Wait()
	_ = a.Close()
}
