package chapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackzampolin/chaptermark/internal/providers"
)

func testRequest() Request {
	return Request{System: "sys", User: "user", Band: Band{3, 5}, Duration: 15}
}

func newTestLabeler(client providers.LLMClient) *Labeler {
	l := NewLabeler(client)
	l.RetryDelay = time.Millisecond
	return l
}

func TestLabeler_Success(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "00:00 Hello\n00:08 Next topic\n00:13 Conclusion"

	got, err := newTestLabeler(mock).Label(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Label() error = %v", err)
	}
	if got != mock.ResponseText {
		t.Errorf("Label() = %q", got)
	}

	reqs := mock.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	if len(reqs[0].Messages) != 2 || reqs[0].Messages[0].Role != "system" || reqs[0].Messages[1].Content != "user" {
		t.Errorf("messages = %+v", reqs[0].Messages)
	}
}

func TestLabeler_RetriesMalformed(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Responses = []string{"Sure! Here are your chapters", "00:00 Hello\n00:08 Next"}

	got, err := newTestLabeler(mock).Label(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Label() error = %v", err)
	}
	if got != "00:00 Hello\n00:08 Next" {
		t.Errorf("Label() = %q", got)
	}
	if mock.RequestCount() != 2 {
		t.Errorf("requests = %d, want 2", mock.RequestCount())
	}
}

func TestLabeler_GivesUpAfterMaxAttempts(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "no timestamps here"

	l := newTestLabeler(mock)
	l.MaxAttempts = 2
	_, err := l.Label(context.Background(), testRequest())
	if !errors.Is(err, ErrMalformedLabelResponse) {
		t.Fatalf("error = %v, want ErrMalformedLabelResponse", err)
	}
	if mock.RequestCount() != 2 {
		t.Errorf("requests = %d, want 2", mock.RequestCount())
	}
}

func TestLabeler_RetriesTooManyChapters(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Responses = []string{
		"00:00 A\n00:02 B\n00:04 C\n00:06 D\n00:08 E\n00:10 F",
		"00:00 A\n00:05 B\n00:10 C",
	}

	got, err := newTestLabeler(mock).Label(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Label() error = %v", err)
	}
	if got != "00:00 A\n00:05 B\n00:10 C" {
		t.Errorf("Label() = %q", got)
	}
	if mock.RequestCount() != 2 {
		t.Errorf("requests = %d, want 2", mock.RequestCount())
	}

	lenient := providers.NewMockClient()
	lenient.ResponseText = "00:00 A\n00:02 B\n00:04 C\n00:06 D\n00:08 E\n00:10 F"
	l := newTestLabeler(lenient)
	l.Strict = false
	if _, err := l.Label(context.Background(), testRequest()); err != nil {
		t.Errorf("lenient Label() error = %v", err)
	}
}

func TestLabeler_EmptyIsNotRetried(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "  "

	_, err := newTestLabeler(mock).Label(context.Background(), testRequest())
	if !errors.Is(err, ErrEmptyLabelResponse) {
		t.Fatalf("error = %v, want ErrEmptyLabelResponse", err)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("requests = %d, want 1", mock.RequestCount())
	}
}

func TestLabeler_ClientErrorIsNotRetried(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ShouldFail = true
	mock.FailWith = &providers.StatusError{Provider: "mock", StatusCode: 401, Message: "bad key"}

	_, err := newTestLabeler(mock).Label(context.Background(), testRequest())
	var se *providers.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("requests = %d, want 1", mock.RequestCount())
	}
}

func TestLabeler_TransientErrorIsRetried(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ShouldFail = true
	mock.FailWith = &providers.StatusError{Provider: "mock", StatusCode: 503}

	_, err := newTestLabeler(mock).Label(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	if mock.RequestCount() != DefaultMaxAttempts {
		t.Errorf("requests = %d, want %d", mock.RequestCount(), DefaultMaxAttempts)
	}
}

func TestLabeler_Lenient(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "Intro at the start, then the deep dive"

	l := newTestLabeler(mock)
	l.Strict = false
	got, err := l.Label(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Label() error = %v", err)
	}
	if got != mock.ResponseText {
		t.Errorf("Label() = %q", got)
	}
}

func TestLabeler_NoClient(t *testing.T) {
	if _, err := (&Labeler{}).Label(context.Background(), testRequest()); err == nil {
		t.Fatal("expected error without client")
	}
}
