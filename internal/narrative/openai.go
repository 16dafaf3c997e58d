package narrative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"collisio/internal/config"
)

// OpenAIService asks an OpenAI-compatible chat completion endpoint for summaries.
type OpenAIService struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	logger      *slog.Logger
}

// New returns the Service described by cfg. A disabled configuration or a
// missing key yields an Unavailable service, so every section still gets a
// placeholder.
func New(cfg config.NarrativeConfig, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	switch {
	case !cfg.Enabled:
		return Unavailable{Reason: ErrDisabled}
	case cfg.APIKey == "":
		logger.Warn("Narrative API key missing; sections will carry a placeholder")
		return Unavailable{Reason: ErrNoAPIKey}
	}
	return NewOpenAIService(cfg, &http.Client{Timeout: cfg.Timeout}, logger)
}

// NewOpenAIService builds the client directly.
func NewOpenAIService(cfg config.NarrativeConfig, httpClient *http.Client, logger *slog.Logger) *OpenAIService {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAIService{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      logger.With(slog.String("component", "narrative")),
	}
}

// Summarize implements Service.
func (s *OpenAIService) Summarize(ctx context.Context, req Request) Result {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		err = describe(err)
		s.logger.WarnContext(ctx, "Narrative request failed",
			slog.String("title", req.Title),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return Failure(err)
	}

	if len(resp.Choices) == 0 {
		return Failure(ErrEmptyResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Failure(ErrEmptyResponse)
	}

	s.logger.DebugContext(ctx, "Narrative generated",
		slog.String("title", req.Title),
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens),
		slog.Duration("elapsed", time.Since(start)))
	return Result{Text: text}
}

// describe turns client errors into a short message fit for a report.
func describe(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("authentication failed: %w", err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("rate limited: %w", err)
		}
		return fmt.Errorf("API error %d: %w", apiErr.HTTPStatusCode, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}
	return err
}
