package transcript

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// timingLineRe matches WebVTT and SRT cue timings, with or without hours and
// with either '.' or ',' as the millisecond separator.
var timingLineRe = regexp.MustCompile(`^((?:\d+:)?\d{2}:\d{2}[.,]\d{3})\s*-->\s*((?:\d+:)?\d{2}:\d{2}[.,]\d{3})`)

// htmlTagRe matches inline caption markup such as <c>, <i> and <00:00:01.000>.
var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// parseCaptions converts a WebVTT or SRT caption track into segments.
// Rolling auto-captions repeat the previous cue's text; repeats extend the
// previous segment instead of producing duplicates.
func parseCaptions(raw string) ([]Segment, error) {
	raw = strings.TrimPrefix(raw, "\ufeff")
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	var (
		segments []Segment
		current  *Segment
		text     []string
	)

	flush := func() {
		if current == nil {
			return
		}
		joined := strings.Join(strings.Fields(strings.Join(text, " ")), " ")
		if joined != "" {
			current.Text = joined
			if n := len(segments); n > 0 && segments[n-1].Text == joined {
				if current.End > segments[n-1].End {
					segments[n-1].End = current.End
				}
			} else {
				segments = append(segments, *current)
			}
		}
		current = nil
		text = text[:0]
	}

	for i, line := range lines {
		line = strings.TrimSpace(line)

		if m := timingLineRe.FindStringSubmatch(line); m != nil {
			flush()
			start, err := parseCueTime(m[1])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidInput, i+1, err)
			}
			end, err := parseCueTime(m[2])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidInput, i+1, err)
			}
			current = &Segment{Start: start, End: end}
			continue
		}

		if line == "" {
			flush()
			continue
		}
		if current == nil {
			// Header, metadata or a cue identifier preceding a timing line.
			continue
		}

		if cleaned := strings.TrimSpace(htmlTagRe.ReplaceAllString(line, "")); cleaned != "" {
			text = append(text, cleaned)
		}
	}
	flush()

	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no caption cues found", ErrInvalidInput)
	}
	return segments, nil
}

// parseCueTime parses "HH:MM:SS.mmm" or "MM:SS.mmm" into seconds.
func parseCueTime(value string) (float64, error) {
	value = strings.Replace(value, ",", ".", 1)
	parts := strings.Split(value, ":")

	var hours, minutes int
	var err error
	switch len(parts) {
	case 3:
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("invalid hours in %q", value)
		}
		parts = parts[1:]
	case 2:
	default:
		return 0, fmt.Errorf("invalid cue time %q", value)
	}
	if minutes, err = strconv.Atoi(parts[0]); err != nil {
		return 0, fmt.Errorf("invalid minutes in %q", value)
	}
	seconds, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in %q", value)
	}
	return float64(hours*3600+minutes*60) + seconds, nil
}
