// Package sentence holds the mutable sentence unit and its translation bookkeeping.
package sentence

import "strings"

// Marker is appended to a translation that belongs to an earlier version of the text.
const Marker = "..."

// Request asks for a translation of one revision of a sentence.
type Request struct {
	ID       uint64
	Revision uint64
	Text     string
}

// Result carries a translation back to the sentence it was requested for.
type Result struct {
	ID       uint64
	Revision uint64
	Text     string
}

// Scheduler runs translation requests outside the caller.
// Implementations must not call back into the Sentence synchronously.
type Scheduler interface {
	Schedule(req Request)
}

// Outcome describes what Apply did with a translation result.
type Outcome int

const (
	// Discarded means the result was older than what the sentence already shows.
	Discarded Outcome = iota
	// Current means the result matched the live text and replaced the translation.
	Current
	// Stale means the result was for older text and was kept as marked context.
	Stale
)

func (o Outcome) String() string {
	switch o {
	case Current:
		return "current"
	case Stale:
		return "stale"
	default:
		return "discarded"
	}
}

// Sentence is a unit of source text with an optional translation.
// It is not safe for concurrent use; the reconciler goroutine owns every instance.
type Sentence struct {
	id          uint64
	text        string
	translation string
	translated  bool

	revision uint64
	// settled is true once the translation belongs to the current revision.
	settled bool
	// staleFrom is the revision of the stale result currently shown, if any.
	staleFrom uint64

	sched Scheduler
}

// New creates a sentence and schedules its first translation.
// seed is shown until a translation arrives; pass "" for none.
func New(id uint64, text, seed string, sched Scheduler) *Sentence {
	s := &Sentence{
		id:       id,
		text:     text,
		revision: 1,
		sched:    sched,
	}
	if seed != "" {
		s.translation = seed
		s.translated = true
	}
	s.schedule()
	return s
}

func (s *Sentence) ID() uint64 {
	return s.id
}

func (s *Sentence) Text() string {
	return s.text
}

func (s *Sentence) Revision() uint64 {
	return s.revision
}

// Translation returns the current translation and whether there is one.
func (s *Sentence) Translation() (string, bool) {
	return s.translation, s.translated
}

// SetText replaces the text in place and schedules a translation for it.
// The previous translation stays visible as continuation context.
func (s *Sentence) SetText(text string) {
	s.text = text
	s.revision++
	s.settled = false
	s.staleFrom = 0
	if s.translated {
		s.translation = Continue(s.translation)
	}
	s.schedule()
}

// Apply writes a translation result back.
//
// A result for the current revision always wins. A result for an older revision is
// only shown, marked as a continuation, while no current translation has arrived,
// and never replaces a newer stale result.
func (s *Sentence) Apply(res Result) Outcome {
	if res.ID != s.id || res.Revision > s.revision {
		return Discarded
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return Discarded
	}

	if res.Revision == s.revision {
		s.translation = text
		s.translated = true
		s.settled = true
		s.staleFrom = 0
		return Current
	}

	if s.settled || res.Revision <= s.staleFrom {
		return Discarded
	}
	s.translation = Continue(text)
	s.translated = true
	s.staleFrom = res.Revision
	return Stale
}

func (s *Sentence) schedule() {
	if s.sched == nil || s.text == "" {
		return
	}
	s.sched.Schedule(Request{ID: s.id, Revision: s.revision, Text: s.text})
}

// Continue marks a translation as partial. Markers do not stack.
func Continue(translation string) string {
	if translation == "" || strings.HasSuffix(translation, Marker) {
		return translation
	}
	return translation + Marker
}
