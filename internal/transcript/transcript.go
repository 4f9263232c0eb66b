// Package transcript defines the time-aligned segment contract shared by every
// transcript source and validates raw inputs against it.
package transcript

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput is returned when a transcript is empty or malformed.
var ErrInvalidInput = errors.New("invalid transcript")

// Segment is one time-stamped unit of transcribed text.
// Start and End are offsets in seconds from the beginning of the media.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Format identifies the encoding of a raw transcript.
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatVTT  Format = "vtt"
	FormatSRT  Format = "srt"
)

// Input is a raw transcript as handed over by a source.
type Input struct {
	Format Format
	Data   []byte
}

// Decode parses and validates a raw transcript.
// All failures wrap ErrInvalidInput.
func Decode(in Input) ([]Segment, error) {
	format := in.Format
	if format == FormatAuto {
		format = Detect(in.Data)
	}

	var (
		segments []Segment
		err      error
	)
	switch format {
	case FormatJSON:
		segments, err = decodeJSON(in.Data)
	case FormatVTT, FormatSRT:
		segments, err = parseCaptions(string(in.Data))
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidInput, format)
	}
	if err != nil {
		return nil, err
	}

	if err := Validate(segments); err != nil {
		return nil, err
	}
	return segments, nil
}

// Detect guesses the format of raw transcript bytes.
func Detect(data []byte) Format {
	trimmed := strings.TrimSpace(strings.TrimPrefix(string(data), "\ufeff"))
	switch {
	case strings.HasPrefix(trimmed, "WEBVTT"):
		return FormatVTT
	case strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{"):
		return FormatJSON
	case strings.Contains(trimmed, "-->"):
		return FormatSRT
	default:
		return FormatJSON
	}
}

// Validate checks the invariants every segment sequence must hold:
// non-empty, non-blank text, 0 <= start <= end, and ascending start times.
func Validate(segments []Segment) error {
	if len(segments) == 0 {
		return fmt.Errorf("%w: no segments", ErrInvalidInput)
	}
	for i, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			return fmt.Errorf("%w: segment %d has empty text", ErrInvalidInput, i)
		}
		if seg.Start < 0 {
			return fmt.Errorf("%w: segment %d starts before zero", ErrInvalidInput, i)
		}
		if seg.End < seg.Start {
			return fmt.Errorf("%w: segment %d ends at %.3f before it starts at %.3f", ErrInvalidInput, i, seg.End, seg.Start)
		}
		if i > 0 && seg.Start < segments[i-1].Start {
			return fmt.Errorf("%w: segment %d is out of order", ErrInvalidInput, i)
		}
	}
	return nil
}

// Duration returns the end time of the last segment.
func Duration(segments []Segment) float64 {
	if len(segments) == 0 {
		return 0
	}
	return segments[len(segments)-1].End
}
