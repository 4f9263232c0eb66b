package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestMockClient(t *testing.T) {
	t.Run("chat", func(t *testing.T) {
		c := NewMockClient()
		c.ResponseText = "hello world"

		result, err := c.Chat(context.Background(), &ChatRequest{
			Model:    "test-model",
			Messages: []Message{UserMessage("test")},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success {
			t.Errorf("Success = false, want true")
		}
		if result.Content != "hello world" {
			t.Errorf("Content = %q, want %q", result.Content, "hello world")
		}
		if c.RequestCount() != 1 {
			t.Errorf("RequestCount = %d, want 1", c.RequestCount())
		}
	})

	t.Run("sequenced responses", func(t *testing.T) {
		c := NewMockClient()
		c.Responses = []string{"first", "second"}

		var got []string
		for i := 0; i < 3; i++ {
			res, err := c.Chat(context.Background(), &ChatRequest{Messages: []Message{UserMessage("x")}})
			if err != nil {
				t.Fatalf("Chat() error = %v", err)
			}
			got = append(got, res.Content)
		}
		want := []string{"first", "second", "second"}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("response %d = %q, want %q", i, got[i], want[i])
			}
		}
		if len(c.Requests()) != 3 {
			t.Errorf("Requests() len = %d, want 3", len(c.Requests()))
		}
	})

	t.Run("should fail", func(t *testing.T) {
		c := NewMockClient()
		c.ShouldFail = true
		c.FailWith = &StatusError{Provider: "mock", StatusCode: 400}

		result, err := c.Chat(context.Background(), &ChatRequest{})
		if err == nil {
			t.Fatal("expected error")
		}
		var se *StatusError
		if !errors.As(err, &se) {
			t.Errorf("error = %v, want *StatusError", err)
		}
		if result.Success {
			t.Error("Success = true on failure")
		}
	})

	t.Run("fail after", func(t *testing.T) {
		c := NewMockClient()
		c.FailAfter = 1

		if _, err := c.Chat(context.Background(), &ChatRequest{}); err != nil {
			t.Fatalf("first Chat() error = %v", err)
		}
		if _, err := c.Chat(context.Background(), &ChatRequest{}); err == nil {
			t.Fatal("second Chat() expected error")
		}
	})

	t.Run("context cancelled", func(t *testing.T) {
		c := NewMockClient()
		c.Latency = time.Second

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := c.Chat(ctx, &ChatRequest{}); !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
	})
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", &RateLimitError{Message: "slow down"}, true},
		{"server error", &StatusError{StatusCode: 502}, true},
		{"client error", &StatusError{StatusCode: 401}, false},
		{"wrapped client error", fmt.Errorf("call: %w", &StatusError{StatusCode: 400}), false},
		{"cancelled", context.Canceled, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), false},
		{"transport", errors.New("connection reset"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := map[string]time.Duration{
		"":    0,
		"3":   3 * time.Second,
		" 10": 10 * time.Second,
		"-1":  0,
		"abc": 0,
	}
	for in, want := range tests {
		if got := parseRetryAfter(in); got != want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}
