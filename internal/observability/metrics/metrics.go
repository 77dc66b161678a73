// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "live_caption"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionDuration prometheus.Histogram

	// Transcript metrics
	Transcripts        *prometheus.CounterVec
	TranscriptsIgnored *prometheus.CounterVec

	// Sentence metrics
	SentencesAppended prometheus.Counter
	SentencesMerged   *prometheus.CounterVec

	// Translation metrics
	TranslationsRequested prometheus.Counter
	TranslationsApplied   *prometheus.CounterVec
	TranslationErrors     prometheus.Counter
	TranslationLatency    prometheus.Histogram

	// Broadcast metrics
	SnapshotsPublished *prometheus.CounterVec
	Subscribers        prometheus.Gauge
	SubscribersPruned  prometheus.Counter

	// Audio metrics
	AudioBytesSent  prometheus.Counter
	AudioFramesSent prometheus.Counter

	// Sink publish metrics
	SinkPublishTotal   *prometheus.CounterVec
	SinkPublishErrors  *prometheus.CounterVec
	SinkPublishLatency *prometheus.HistogramVec

	// STT metrics
	STTErrors         *prometheus.CounterVec
	STTUtteranceCount prometheus.Counter

	// gRPC metrics
	RPCTotal *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of transcription sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently running transcription sessions",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of transcription sessions in seconds",
			Buckets:   []float64{1, 10, 30, 60, 300, 900, 1800, 3600, 7200},
		}),

		Transcripts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_total",
			Help:      "Total number of transcript events handled",
		}, []string{"kind"}),
		TranscriptsIgnored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_ignored_total",
			Help:      "Total number of transcript events rejected at the boundary",
		}, []string{"reason"}),

		SentencesAppended: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentences_appended_total",
			Help:      "Total number of sentences appended to the finalized list",
		}),
		SentencesMerged: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentences_merged_total",
			Help:      "Total number of final parts merged into the last finalized sentence",
		}, []string{"reason"}),

		TranslationsRequested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_requested_total",
			Help:      "Total number of translation requests issued",
		}),
		TranslationsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_applied_total",
			Help:      "Total number of translation results by outcome",
		}, []string{"outcome"}),
		TranslationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_errors_total",
			Help:      "Total number of failed or timed out translations",
		}),
		TranslationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "translation_latency_seconds",
			Help:      "Translation round trip latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),

		SnapshotsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Total number of snapshots handed to each sink",
		}, []string{"sink"}),
		Subscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Number of connected display subscribers",
		}),
		SubscribersPruned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscribers_pruned_total",
			Help:      "Total number of subscribers removed after a failed send",
		}),

		AudioBytesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_sent_total",
			Help:      "Total audio bytes sent to the transcription session",
		}),
		AudioFramesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_sent_total",
			Help:      "Total audio frames sent to the transcription session",
		}),

		SinkPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_publish_total",
			Help:      "Total number of snapshot messages written to external sinks",
		}, []string{"sink", "target"}),
		SinkPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_publish_errors_total",
			Help:      "Total number of external sink publish errors",
		}, []string{"sink", "target"}),
		SinkPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sink_publish_latency_seconds",
			Help:      "External sink publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"sink"}),

		STTErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of STT errors",
		}, []string{"provider", "error_type"}),
		STTUtteranceCount: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_utterances_total",
			Help:      "Total number of utterance end events",
		}),

		RPCTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_calls_total",
			Help:      "Total number of gRPC calls handled",
		}, []string{"method", "code"}),
	}
}

// RecordSessionStart records a new session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session ending.
func (m *Metrics) RecordSessionEnd(durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordTranscript records a transcript event of the given kind.
func (m *Metrics) RecordTranscript(kind string) {
	m.Transcripts.WithLabelValues(kind).Inc()
}

// RecordTranscriptIgnored records a transcript event dropped at the boundary.
func (m *Metrics) RecordTranscriptIgnored(reason string) {
	m.TranscriptsIgnored.WithLabelValues(reason).Inc()
}

// RecordSentenceAppended records a new finalized sentence.
func (m *Metrics) RecordSentenceAppended() {
	m.SentencesAppended.Inc()
}

// RecordSentenceMerged records a merge into the last finalized sentence.
func (m *Metrics) RecordSentenceMerged(reason string) {
	m.SentencesMerged.WithLabelValues(reason).Inc()
}

// RecordTranslationRequested records a translation request.
func (m *Metrics) RecordTranslationRequested() {
	m.TranslationsRequested.Inc()
}

// RecordTranslation records a finished translation call.
func (m *Metrics) RecordTranslation(err error, latencySeconds float64) {
	m.TranslationLatency.Observe(latencySeconds)
	if err != nil {
		m.TranslationErrors.Inc()
	}
}

// RecordTranslationApplied records what happened to a translation result.
func (m *Metrics) RecordTranslationApplied(outcome string) {
	m.TranslationsApplied.WithLabelValues(outcome).Inc()
}

// RecordSnapshot records a snapshot handed to a sink.
func (m *Metrics) RecordSnapshot(sink string) {
	m.SnapshotsPublished.WithLabelValues(sink).Inc()
}

// SetSubscribers sets the current subscriber count.
func (m *Metrics) SetSubscribers(n int) {
	m.Subscribers.Set(float64(n))
}

// RecordSubscriberPruned records a subscriber removed after a failed send.
func (m *Metrics) RecordSubscriberPruned() {
	m.SubscribersPruned.Inc()
}

// RecordAudioSent records audio bytes and frames sent.
func (m *Metrics) RecordAudioSent(bytes int) {
	m.AudioBytesSent.Add(float64(bytes))
	m.AudioFramesSent.Inc()
}

// RecordSinkPublish records an external sink publish attempt.
func (m *Metrics) RecordSinkPublish(sink, target string, err error, latencySeconds float64) {
	m.SinkPublishTotal.WithLabelValues(sink, target).Inc()
	m.SinkPublishLatency.WithLabelValues(sink).Observe(latencySeconds)
	if err != nil {
		m.SinkPublishErrors.WithLabelValues(sink, target).Inc()
	}
}

// RecordSTTError records an STT error.
func (m *Metrics) RecordSTTError(provider, errorType string) {
	m.STTErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordUtterance records an utterance boundary detection.
func (m *Metrics) RecordUtterance() {
	m.STTUtteranceCount.Inc()
}

// RecordRPC records a handled gRPC call.
func (m *Metrics) RecordRPC(method, code string) {
	m.RPCTotal.WithLabelValues(method, code).Inc()
}
