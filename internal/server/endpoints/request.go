package endpoints

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/jackzampolin/chaptermark/internal/pipeline"
	"github.com/jackzampolin/chaptermark/internal/segment"
	"github.com/jackzampolin/chaptermark/internal/svcctx"
	"github.com/jackzampolin/chaptermark/internal/transcript"
)

// MaxTranscriptBytes caps request bodies carrying a transcript.
const MaxTranscriptBytes = 32 << 20

// TranscriptRequest is the body shared by job submission and segment preview.
// Transcript is either a JSON segment array or a string holding a caption
// track (or JSON text).
type TranscriptRequest struct {
	Language   string          `json:"language,omitempty" validate:"omitempty,max=35"`
	Format     string          `json:"format,omitempty" validate:"omitempty,oneof=json vtt srt"`
	Transcript json.RawMessage `json:"transcript" validate:"required"`
}

// NewTranscriptRequest wraps a transcript file's contents for upload.
// JSON documents are embedded as-is; caption tracks travel as a string.
func NewTranscriptRequest(data []byte, format transcript.Format, language string) (TranscriptRequest, error) {
	req := TranscriptRequest{Language: language, Format: string(format)}
	if (format == transcript.FormatJSON || format == transcript.FormatAuto) && json.Valid(data) {
		req.Transcript = json.RawMessage(data)
		return req, nil
	}
	raw, err := json.Marshal(string(data))
	if err != nil {
		return req, err
	}
	req.Transcript = raw
	return req, nil
}

// ReadTranscriptRequest loads a transcript file, taking the format from
// its extension unless given.
func ReadTranscriptRequest(path, format, language string) (TranscriptRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TranscriptRequest{}, fmt.Errorf("failed to read transcript: %w", err)
	}
	f := transcript.Format(format)
	if f == transcript.FormatAuto {
		f = pipeline.FormatForPath(path)
	}
	return NewTranscriptRequest(data, f, language)
}

// Input converts the payload to a raw transcript.
func (t TranscriptRequest) Input() (transcript.Input, error) {
	data := []byte(t.Transcript)
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return transcript.Input{}, fmt.Errorf("%w: transcript string: %v", transcript.ErrInvalidInput, err)
		}
		data = []byte(s)
	}
	return transcript.Input{Format: transcript.Format(t.Format), Data: data}, nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// decodeTranscriptRequest reads and validates a TranscriptRequest body.
// On failure it has already written the error response.
func decodeTranscriptRequest(w http.ResponseWriter, r *http.Request) (TranscriptRequest, bool) {
	var req TranscriptRequest
	r.Body = http.MaxBytesReader(w, r.Body, MaxTranscriptBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return req, false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if err := getValidator().Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
			return req, false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	if bytes.Equal(bytes.TrimSpace(req.Transcript), []byte("null")) {
		writeError(w, http.StatusBadRequest, `transcript: failed "required"`)
		return req, false
	}
	return req, true
}

// requestLanguage falls back to the configured default language.
func requestLanguage(r *http.Request, language string) string {
	if language != "" {
		return language
	}
	if cfg := svcctx.ConfigFrom(r.Context()); cfg != nil && cfg.Defaults.Language != "" {
		return cfg.Defaults.Language
	}
	return segment.DefaultLanguage
}
