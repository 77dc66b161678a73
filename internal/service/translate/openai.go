package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"live-caption-service/internal/observability/logging"
)

// OpenAIConfig holds settings for the OpenAI translator.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TargetLanguage string
	Temperature    float32
	MaxTokens      int
	// IdleTimeout bounds the wait for each streamed delta.
	IdleTimeout time.Duration
}

// DefaultOpenAIConfig returns the translator defaults.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:          openai.GPT4oMini,
		TargetLanguage: "Polish",
		Temperature:    0.6,
		MaxTokens:      200,
		IdleTimeout:    5 * time.Second,
	}
}

// OpenAI translates sentences with streamed chat completions.
type OpenAI struct {
	client *openai.Client
	cfg    OpenAIConfig
	log    zerolog.Logger
}

// NewOpenAI creates an OpenAI translator.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultOpenAIConfig().IdleTimeout
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		log:    logging.WithComponent("translator"),
	}
}

// SystemPrompt returns the instruction sent with every request.
func (o *OpenAI) SystemPrompt() string {
	return fmt.Sprintf(
		"You are a translator. Translate the following English text to %s. Provide only the translation, no explanations.",
		o.cfg.TargetLanguage,
	)
}

// Translate streams a completion for text and returns the accumulated, trimmed result.
func (o *OpenAI) Translate(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: o.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.SystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
		Stream:      true,
	})
	if err != nil {
		return "", fmt.Errorf("openai stream: %w", err)
	}
	defer stream.Close()

	// Cancel the request when no delta arrives within the idle timeout.
	idle := time.AfterFunc(o.cfg.IdleTimeout, cancel)
	defer idle.Stop()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil && !idle.Stop() {
				return "", fmt.Errorf("openai stream: idle for %v: %w", o.cfg.IdleTimeout, context.DeadlineExceeded)
			}
			return "", fmt.Errorf("openai stream: %w", err)
		}
		idle.Reset(o.cfg.IdleTimeout)
		if len(resp.Choices) > 0 {
			sb.WriteString(resp.Choices[0].Delta.Content)
		}
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", ErrEmptyTranslation
	}
	o.log.Debug().Str("source", text).Str("translation", out).Msg("Translated sentence")
	return out, nil
}
