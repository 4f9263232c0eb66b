package chapters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/jackzampolin/chaptermark/internal/providers"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Second
	DefaultMaxTokens   = 1024
)

// Labeler asks an LLM for chapter titles and validates the answer.
type Labeler struct {
	Client      providers.LLMClient
	Model       string
	Temperature float64
	MaxTokens   int

	// Strict enables line validation; malformed answers are retried.
	Strict bool

	MaxAttempts uint
	RetryDelay  time.Duration

	Logger *slog.Logger
}

// NewLabeler returns a strict labeler with default retry settings.
func NewLabeler(client providers.LLMClient) *Labeler {
	return &Labeler{
		Client:      client,
		Strict:      true,
		MaxAttempts: DefaultMaxAttempts,
		RetryDelay:  DefaultRetryDelay,
		MaxTokens:   DefaultMaxTokens,
	}
}

// Label sends req to the oracle and returns the chapter artifact.
// In strict mode an answer with more lines than req.Band.Max counts as
// malformed. Malformed answers and transient provider failures are retried up to
// MaxAttempts; empty answers and client errors fail immediately.
func (l *Labeler) Label(ctx context.Context, req Request) (string, error) {
	if l.Client == nil {
		return "", fmt.Errorf("labeler has no LLM client")
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attempts := l.MaxAttempts
	if attempts == 0 {
		attempts = DefaultMaxAttempts
	}

	chatReq := &providers.ChatRequest{
		Messages: []providers.Message{
			providers.SystemMessage(req.System),
			providers.UserMessage(req.User),
		},
		Model:       l.Model,
		Temperature: l.Temperature,
		MaxTokens:   l.MaxTokens,
		RequestID:   uuid.New().String(),
	}

	var artifact string
	err := retry.Do(
		func() error {
			result, err := l.Client.Chat(ctx, chatReq)
			if err != nil {
				return err
			}
			artifact, err = ParseResponse(result.Content, req.Duration, l.Strict)
			if err != nil {
				return err
			}
			if l.Strict && req.Band.Max > 0 {
				if n := strings.Count(artifact, "\n") + 1; n > req.Band.Max {
					return fmt.Errorf("%w: %d chapters, at most %d allowed", ErrMalformedLabelResponse, n, req.Band.Max)
				}
			}
			logger.Debug("labels generated",
				"provider", result.Provider,
				"model", result.ModelUsed,
				"prompt_tokens", result.PromptTokens,
				"completion_tokens", result.CompletionTokens)
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(l.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(shouldRetry),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("label attempt failed", "attempt", n+1, "request_id", chatReq.RequestID, "error", err)
		}),
	)
	if err != nil {
		return "", err
	}
	return artifact, nil
}

func shouldRetry(err error) bool {
	switch {
	case errors.Is(err, ErrMalformedLabelResponse):
		return true
	case errors.Is(err, ErrEmptyLabelResponse):
		return false
	default:
		return providers.IsRetryable(err)
	}
}
