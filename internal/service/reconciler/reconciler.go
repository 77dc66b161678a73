// Package reconciler assembles transcript events into a stable sentence list.
//
// A Reconciler is an actor: one goroutine (Run) owns the finalized and interim
// lists and processes, strictly in arrival order, a mailbox of transcript events,
// translation results and snapshot queries. Translations run in their own
// goroutines and report back through the mailbox; snapshots are handed to a
// publisher goroutine that always sends the most recent one.
package reconciler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"live-caption-service/internal/models"
	"live-caption-service/internal/observability/logging"
	"live-caption-service/internal/observability/metrics"
	"live-caption-service/internal/service/segment"
	"live-caption-service/internal/service/sentence"
	"live-caption-service/internal/service/translate"
)

// ErrStopped is returned when the reconciler is no longer running.
var ErrStopped = errors.New("reconciler stopped")

// Sink receives every published snapshot.
type Sink interface {
	Name() string
	Publish(ctx context.Context, snap models.Snapshot) error
}

// Config holds the tunable merge policy.
type Config struct {
	SplitDelimiters string
	// Terminal is the punctuation that closes a finalized sentence.
	Terminal string
	// ShortSentenceChars is the length under which a punctuated sentence is still merged.
	ShortSentenceChars int
	TranslationTimeout time.Duration
	MailboxSize        int
}

// DefaultConfig returns the default merge policy.
func DefaultConfig() Config {
	return Config{
		SplitDelimiters:    segment.DefaultDelimiters,
		Terminal:           segment.DefaultTerminal,
		ShortSentenceChars: 80,
		TranslationTimeout: 15 * time.Second,
		MailboxSize:        64,
	}
}

// Reconciler owns the finalized and interim sentence lists.
type Reconciler struct {
	cfg        Config
	translator translate.Translator
	sinks      []Sink
	sched      sentence.Scheduler
	ids        *sentence.Generator
	log        zerolog.Logger
	metrics    *metrics.Metrics

	finalized []*sentence.Sentence
	interim   []*sentence.Sentence
	live      map[uint64]*sentence.Sentence

	events  chan models.TranscriptEvent
	results chan sentence.Result
	queries chan chan models.Snapshot
	pending chan models.Snapshot

	taskCtx    context.Context
	cancelTask context.CancelFunc
	tasks      sync.WaitGroup
	done       chan struct{}
}

// New creates a reconciler. translator may be nil to disable translation.
func New(cfg Config, translator translate.Translator, sinks ...Sink) *Reconciler {
	def := DefaultConfig()
	if cfg.SplitDelimiters == "" {
		cfg.SplitDelimiters = def.SplitDelimiters
	}
	if cfg.Terminal == "" {
		cfg.Terminal = def.Terminal
	}
	if cfg.TranslationTimeout <= 0 {
		cfg.TranslationTimeout = def.TranslationTimeout
	}
	if cfg.MailboxSize <= 0 {
		cfg.MailboxSize = def.MailboxSize
	}

	taskCtx, cancel := context.WithCancel(context.Background())
	r := &Reconciler{
		cfg:        cfg,
		translator: translator,
		sinks:      sinks,
		ids:        sentence.NewGenerator(),
		log:        logging.WithComponent("reconciler"),
		metrics:    metrics.DefaultMetrics,
		live:       make(map[uint64]*sentence.Sentence),
		events:     make(chan models.TranscriptEvent, cfg.MailboxSize),
		results:    make(chan sentence.Result, cfg.MailboxSize),
		queries:    make(chan chan models.Snapshot),
		pending:    make(chan models.Snapshot, 1),
		taskCtx:    taskCtx,
		cancelTask: cancel,
		done:       make(chan struct{}),
	}
	r.sched = r
	return r
}

// Run processes the mailbox until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	defer close(r.done)

	published := make(chan struct{})
	go func() {
		defer close(published)
		r.publishLoop(ctx)
	}()

	r.log.Info().
		Int("shortSentenceChars", r.cfg.ShortSentenceChars).
		Str("delimiters", r.cfg.SplitDelimiters).
		Bool("translation", r.translator != nil).
		Msg("Reconciler started")

	for {
		select {
		case <-ctx.Done():
			r.cancelTask()
			<-published
			r.tasks.Wait()
			r.log.Info().Int("finalized", len(r.finalized)).Msg("Reconciler stopped")
			return nil
		case ev := <-r.events:
			if r.handle(ev) {
				r.publish()
			}
		case res := <-r.results:
			if r.apply(res) {
				r.publish()
			}
		case reply := <-r.queries:
			reply <- r.snapshot()
		}
	}
}

// Submit queues a transcript event. Events are handled in submission order.
func (r *Reconciler) Submit(ctx context.Context, ev models.TranscriptEvent) error {
	select {
	case <-r.done:
		return ErrStopped
	default:
	}
	select {
	case r.events <- ev:
		return nil
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current state as seen by the reconciler goroutine.
func (r *Reconciler) Snapshot(ctx context.Context) (models.Snapshot, error) {
	reply := make(chan models.Snapshot, 1)
	select {
	case r.queries <- reply:
	case <-r.done:
		return models.Snapshot{}, ErrStopped
	case <-ctx.Done():
		return models.Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return models.Snapshot{}, ctx.Err()
	}
}

// Schedule runs a translation request in the background and mails the result back.
func (r *Reconciler) Schedule(req sentence.Request) {
	if r.translator == nil {
		return
	}
	r.metrics.RecordTranslationRequested()
	r.tasks.Add(1)
	go func() {
		defer r.tasks.Done()

		ctx, cancel := context.WithTimeout(r.taskCtx, r.cfg.TranslationTimeout)
		defer cancel()

		start := time.Now()
		out, err := r.translator.Translate(ctx, req.Text)
		r.metrics.RecordTranslation(err, time.Since(start).Seconds())
		if err != nil {
			if r.taskCtx.Err() == nil {
				r.log.Warn().Err(err).
					Uint64("sentenceId", req.ID).
					Uint64("revision", req.Revision).
					Msg("Translation failed")
			}
			return
		}

		select {
		case r.results <- sentence.Result{ID: req.ID, Revision: req.Revision, Text: out}:
		case <-r.done:
		case <-r.taskCtx.Done():
		}
	}()
}

// handle applies one transcript event. It reports whether the lists changed.
func (r *Reconciler) handle(ev models.TranscriptEvent) bool {
	text := strings.TrimSpace(ev.Transcript)
	if text == "" {
		return false
	}
	r.metrics.RecordTranscript(ev.Kind())

	if ev.IsFinal {
		return r.applyFinal(text)
	}
	return r.applyInterim(text)
}

// applyInterim replaces the interim list with fresh sentences for text.
func (r *Reconciler) applyInterim(text string) bool {
	parts := segment.Split(text, r.cfg.SplitDelimiters)
	prev := r.interim
	if len(parts) == 0 && len(prev) == 0 {
		return false
	}

	next := make([]*sentence.Sentence, 0, len(parts))
	for i, part := range parts {
		next = append(next, r.newSentence(part, interimSeed(prev, i, len(parts), part)))
	}

	r.retire(prev)
	r.interim = next
	r.log.Debug().Int("parts", len(parts)).Str("text", text).Msg("Interim replaced")
	return true
}

// interimSeed picks the translation shown for part i until its own arrives.
// An unchanged part keeps its translation; the tail inherits the previous tail's
// translation as a continuation.
func interimSeed(prev []*sentence.Sentence, i, n int, part string) string {
	if i < len(prev) && prev[i].Text() == part {
		if tr, ok := prev[i].Translation(); ok {
			return tr
		}
	}
	if i == n-1 && len(prev) > 0 {
		if tr, ok := prev[len(prev)-1].Translation(); ok {
			return sentence.Continue(tr)
		}
	}
	return ""
}

// applyFinal clears the interim list and merges or appends each part of text.
func (r *Reconciler) applyFinal(text string) bool {
	changed := len(r.interim) > 0
	r.retire(r.interim)
	r.interim = nil

	parts := segment.Split(text, r.cfg.SplitDelimiters)
	// Only sentences finalized by earlier events are eligible for the short-sentence merge.
	sealed := len(r.finalized)

	for _, part := range parts {
		changed = true
		n := len(r.finalized)
		if n == 0 {
			r.appendFinal(part)
			continue
		}

		last := r.finalized[n-1]
		switch {
		case !segment.EndsWithAny(last.Text(), r.cfg.Terminal):
			r.merge(last, part, "unterminated")
		case n <= sealed && utf8.RuneCountInString(last.Text()) < r.cfg.ShortSentenceChars:
			r.merge(last, part, "short")
		default:
			r.appendFinal(part)
		}
	}
	return changed
}

func (r *Reconciler) appendFinal(part string) {
	s := r.newSentence(part, "")
	r.finalized = append(r.finalized, s)
	r.metrics.RecordSentenceAppended()
	r.log.Debug().Uint64("sentenceId", s.ID()).Str("text", part).Msg("Sentence appended")
}

func (r *Reconciler) merge(last *sentence.Sentence, part, reason string) {
	last.SetText(last.Text() + " " + part)
	r.metrics.RecordSentenceMerged(reason)
	r.log.Debug().
		Uint64("sentenceId", last.ID()).
		Uint64("revision", last.Revision()).
		Str("reason", reason).
		Str("text", last.Text()).
		Msg("Sentence merged")
}

func (r *Reconciler) newSentence(text, seed string) *sentence.Sentence {
	s := sentence.New(r.ids.Next(), text, seed, r.sched)
	r.live[s.ID()] = s
	return s
}

func (r *Reconciler) retire(list []*sentence.Sentence) {
	for _, s := range list {
		delete(r.live, s.ID())
	}
}

// apply routes a translation result to its sentence. It reports whether the view changed.
func (r *Reconciler) apply(res sentence.Result) bool {
	s, ok := r.live[res.ID]
	if !ok {
		r.metrics.RecordTranslationApplied("retired")
		return false
	}
	outcome := s.Apply(res)
	r.metrics.RecordTranslationApplied(outcome.String())
	return outcome != sentence.Discarded
}

func (r *Reconciler) snapshot() models.Snapshot {
	return models.Snapshot{
		Type:      models.SnapshotType,
		Sentences: views(r.finalized),
		Interim:   views(r.interim),
	}
}

func views(list []*sentence.Sentence) []models.SentenceView {
	out := make([]models.SentenceView, 0, len(list))
	for _, s := range list {
		v := models.SentenceView{Sentence: s.Text()}
		if tr, ok := s.Translation(); ok {
			v.Translation = &tr
		}
		out = append(out, v)
	}
	return out
}

// publish replaces any snapshot still waiting for the publisher with the current one.
func (r *Reconciler) publish() {
	snap := r.snapshot()
	select {
	case <-r.pending:
	default:
	}
	r.pending <- snap
}

func (r *Reconciler) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-r.pending:
			for _, sink := range r.sinks {
				if err := sink.Publish(ctx, snap); err != nil {
					r.log.Warn().Err(err).Str("sink", sink.Name()).Msg("Snapshot publish failed")
				}
				r.metrics.RecordSnapshot(sink.Name())
			}
		}
	}
}
