package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackzampolin/chaptermark/internal/transcript"
)

// Source supplies the transcript for a job.
type Source interface {
	Fetch(ctx context.Context) (transcript.Input, error)
}

// InlineSource is a transcript submitted with the request.
type InlineSource struct {
	Input transcript.Input
}

func (s InlineSource) Fetch(_ context.Context) (transcript.Input, error) {
	if len(s.Input.Data) == 0 {
		return transcript.Input{}, fmt.Errorf("%w: empty transcript payload", transcript.ErrInvalidInput)
	}
	return s.Input, nil
}

// FileSource reads a transcript from disk. The format comes from the
// extension unless set explicitly.
type FileSource struct {
	Path   string
	Format transcript.Format
}

func (s FileSource) Fetch(ctx context.Context) (transcript.Input, error) {
	if err := ctx.Err(); err != nil {
		return transcript.Input{}, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return transcript.Input{}, fmt.Errorf("failed to read transcript: %w", err)
	}
	format := s.Format
	if format == transcript.FormatAuto {
		format = FormatForPath(s.Path)
	}
	return transcript.Input{Format: format, Data: data}, nil
}

// FormatForPath guesses the transcript format from a file extension.
func FormatForPath(path string) transcript.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return transcript.FormatJSON
	case ".vtt":
		return transcript.FormatVTT
	case ".srt":
		return transcript.FormatSRT
	default:
		return transcript.FormatAuto
	}
}
