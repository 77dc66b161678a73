// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned when a provider that needs a key has none.
var ErrMissingAPIKey = errors.New("missing API key")

type Config struct {
	Service       ServiceConfig
	STT           STTConfig
	Audio         AudioConfig
	Translation   TranslationConfig
	Reconciler    ReconcilerConfig
	Broadcast     BroadcastConfig
	Kafka         KafkaConfig
	NATS          NATSConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Principal string
	GRPCPort  string
}

type STTConfig struct {
	Provider       string // deepgram, google or mock
	LanguageCode   string
	Model          string
	SampleRateHz   int
	InterimResults bool
	EndpointingMs  int
	UtteranceEndMs int
	DeepgramAPIKey string
}

type AudioConfig struct {
	Source       string // mic, wav or stdin
	File         string
	DeviceIndex  int
	FrameSamples int
	Realtime     bool
}

type TranslationConfig struct {
	Enabled        bool
	APIKey         string
	BaseURL        string
	Model          string
	TargetLanguage string
	Timeout        time.Duration
}

type ReconcilerConfig struct {
	SplitDelimiters     string
	TerminalPunctuation string
	ShortSentenceChars  int
}

type BroadcastConfig struct {
	Host string
	Port string
}

// Addr is the listen address for the subscriber channel.
func (b BroadcastConfig) Addr() string {
	return net.JoinHostPort(b.Host, b.Port)
}

type KafkaConfig struct {
	Enabled         bool
	Brokers         []string
	TopicSnapshot   string
	TopicTranscript string
	Principal       string
}

type NATSConfig struct {
	Enabled bool
	URL     string
	Subject string
	Token   string
}

type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	Env         string
	MetricsPort string
}

// LoadDotEnv loads a .env file into the environment. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-live-caption")

	return &Config{
		Service: ServiceConfig{
			Principal: principal,
			GRPCPort:  envOrDefault("GRPC_PORT", "50051"),
		},
		STT: STTConfig{
			Provider:       strings.ToLower(envOrDefault("STT_PROVIDER", "deepgram")),
			LanguageCode:   envOrDefault("STT_LANGUAGE_CODE", "en-GB"),
			Model:          envOrDefault("STT_MODEL", "nova-3"),
			SampleRateHz:   envOrDefaultInt("STT_SAMPLE_RATE_HZ", 16000),
			InterimResults: envOrDefaultBool("STT_INTERIM_RESULTS", true),
			EndpointingMs:  envOrDefaultInt("STT_ENDPOINTING_MS", 1500),
			UtteranceEndMs: envOrDefaultInt("STT_UTTERANCE_END_MS", 5000),
			DeepgramAPIKey: apiKey("DEEPGRAM_API_KEY"),
		},
		Audio: AudioConfig{
			Source:       strings.ToLower(envOrDefault("AUDIO_SOURCE", "mic")),
			File:         os.Getenv("AUDIO_FILE"),
			DeviceIndex:  envOrDefaultInt("AUDIO_DEVICE_INDEX", -1),
			FrameSamples: envOrDefaultInt("AUDIO_FRAME_SAMPLES", 8000),
			Realtime:     envOrDefaultBool("AUDIO_REALTIME", true),
		},
		Translation: TranslationConfig{
			Enabled:        envOrDefaultBool("TRANSLATION_ENABLED", true),
			APIKey:         apiKey("OPENAI_API_KEY"),
			BaseURL:        os.Getenv("OPENAI_BASE_URL"),
			Model:          envOrDefault("TRANSLATION_MODEL", "gpt-4o-mini"),
			TargetLanguage: envOrDefault("TRANSLATION_TARGET_LANGUAGE", "Polish"),
			Timeout:        envOrDefaultDuration("TRANSLATION_TIMEOUT", 15*time.Second),
		},
		Reconciler: ReconcilerConfig{
			SplitDelimiters:     envOrDefault("RECONCILER_SPLIT_DELIMITERS", ".?;"),
			TerminalPunctuation: envOrDefault("RECONCILER_TERMINAL_PUNCTUATION", ".?;!:"),
			ShortSentenceChars:  envOrDefaultInt("RECONCILER_SHORT_SENTENCE_CHARS", 80),
		},
		Broadcast: BroadcastConfig{
			Host: envOrDefault("BROADCAST_HOST", "localhost"),
			Port: envOrDefault("BROADCAST_PORT", "8765"),
		},
		Kafka: KafkaConfig{
			Enabled:         envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:         splitList(os.Getenv("KAFKA_BROKERS")),
			TopicSnapshot:   envOrDefault("KAFKA_TOPIC_SNAPSHOT", "captions.snapshot"),
			TopicTranscript: envOrDefault("KAFKA_TOPIC_TRANSCRIPT", "captions.transcript"),
			Principal:       envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		NATS: NATSConfig{
			Enabled: envOrDefaultBool("NATS_ENABLED", false),
			URL:     envOrDefault("NATS_URL", "nats://localhost:4222"),
			Subject: envOrDefault("NATS_SUBJECT", "captions.snapshot"),
			Token:   os.Getenv("NATS_TOKEN"),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			Env:         envOrDefault("ENV", "prod"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
	}
}

// Validate reports configuration that cannot start a session.
func (c *Config) Validate() error {
	switch c.STT.Provider {
	case "deepgram":
		if c.STT.DeepgramAPIKey == "" {
			return fmt.Errorf("%w: DEEPGRAM_API_KEY", ErrMissingAPIKey)
		}
	case "google", "mock":
	default:
		return fmt.Errorf("unknown STT_PROVIDER %q", c.STT.Provider)
	}

	switch c.Audio.Source {
	case "mic", "stdin":
	case "wav":
		if c.Audio.File == "" {
			return errors.New("AUDIO_FILE is required for AUDIO_SOURCE=wav")
		}
	default:
		return fmt.Errorf("unknown AUDIO_SOURCE %q", c.Audio.Source)
	}

	if c.Audio.FrameSamples <= 0 {
		return fmt.Errorf("AUDIO_FRAME_SAMPLES must be positive, got %d", c.Audio.FrameSamples)
	}
	if c.Reconciler.SplitDelimiters == "" {
		return errors.New("RECONCILER_SPLIT_DELIMITERS must not be empty")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}
	return nil
}

// TranslationActive is true when translation is enabled and a key is available.
func (c *Config) TranslationActive() bool {
	return c.Translation.Enabled && c.Translation.APIKey != ""
}

// apiKey reads a key, treating template placeholders as unset.
func apiKey(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if isPlaceholder(v) {
		return ""
	}
	return v
}

func isPlaceholder(v string) bool {
	lower := strings.ToLower(v)
	return strings.HasPrefix(lower, "your_") && strings.HasSuffix(lower, "_here")
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
