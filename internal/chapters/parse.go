package chapters

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackzampolin/chaptermark/internal/timecode"
)

var (
	// ErrEmptyLabelResponse is returned when the oracle answers with nothing.
	ErrEmptyLabelResponse = errors.New("empty label response")

	// ErrMalformedLabelResponse is returned when strict parsing rejects
	// the oracle's chapter lines.
	ErrMalformedLabelResponse = errors.New("malformed label response")
)

var (
	bulletRe      = regexp.MustCompile(`^(?:[-*•]\s+|\d+[.)]\s+)`)
	chapterLineRe = regexp.MustCompile(`^(\d+:\d{2}(?::\d{2})?)(?:\s*[-–|]\s*|\s+)(\S.*)$`)
)

// ParseResponse turns oracle output into the chapter artifact.
//
// In strict mode every line must read "MM:SS title" ("H:MM:SS" is accepted
// and converted), the first at 00:00,
// with strictly increasing times no later than duration (seconds; zero
// skips the bound). Code fences and list bullets are dropped and lines are
// re-rendered in canonical form. Lenient mode only rejects empty output and
// returns the trimmed text as-is.
func ParseResponse(text string, duration int, strict bool) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyLabelResponse
	}
	if !strict {
		return trimmed, nil
	}

	var out []string
	prev := -1
	for _, raw := range strings.Split(trimmed, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		line = bulletRe.ReplaceAllString(line, "")

		m := chapterLineRe.FindStringSubmatch(line)
		if m == nil {
			return "", fmt.Errorf("%w: line %q is not \"MM:SS title\"", ErrMalformedLabelResponse, line)
		}
		at, err := timecode.ParseClock(m[1])
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedLabelResponse, err)
		}
		title := strings.TrimSpace(m[2])

		switch {
		case prev < 0 && at != 0:
			return "", fmt.Errorf("%w: first chapter starts at %s, not 00:00", ErrMalformedLabelResponse, m[1])
		case prev >= 0 && at <= prev:
			return "", fmt.Errorf("%w: %s does not come after %s", ErrMalformedLabelResponse, m[1], timecode.Format(float64(prev)))
		case duration > 0 && at > duration:
			return "", fmt.Errorf("%w: %s is past the end at %s", ErrMalformedLabelResponse, m[1], timecode.Format(float64(duration)))
		}
		prev = at

		out = append(out, timecode.Format(float64(at))+" "+title)
	}

	if len(out) == 0 {
		return "", ErrEmptyLabelResponse
	}
	return strings.Join(out, "\n"), nil
}
