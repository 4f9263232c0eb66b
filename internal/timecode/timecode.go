// Package timecode formats and parses the "MM:SS" offsets used in chapter lines.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Format renders seconds as zero-padded "MM:SS".
// Fractional seconds are truncated. Minutes are not wrapped into hours,
// so 3661 becomes "61:01". Negative and NaN inputs render as "00:00".
func Format(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	s := int64(seconds)
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

// Parse converts an "MM:SS" offset back into whole seconds.
// Minutes may have any number of digits; seconds must be two digits below 60.
func Parse(value string) (int, error) {
	mm, ss, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok || mm == "" || len(ss) != 2 {
		return 0, fmt.Errorf("invalid timecode %q", value)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil || minutes < 0 {
		return 0, fmt.Errorf("invalid minutes in timecode %q", value)
	}
	secs, err := strconv.Atoi(ss)
	if err != nil || secs < 0 || secs >= 60 {
		return 0, fmt.Errorf("invalid seconds in timecode %q", value)
	}
	return minutes*60 + secs, nil
}

// ParseClock accepts either "MM:SS" or "H:MM:SS" and returns whole seconds.
// In the three-part form minutes must be two digits below 60.
func ParseClock(value string) (int, error) {
	v := strings.TrimSpace(value)
	if strings.Count(v, ":") != 2 {
		return Parse(v)
	}
	hh, rest, _ := strings.Cut(v, ":")
	hours, err := strconv.Atoi(hh)
	if err != nil || hours < 0 || hh == "" {
		return 0, fmt.Errorf("invalid hours in timecode %q", value)
	}
	if len(rest) != 5 {
		return 0, fmt.Errorf("invalid timecode %q", value)
	}
	secs, err := Parse(rest)
	if err != nil || secs >= 3600 {
		return 0, fmt.Errorf("invalid minutes in timecode %q", value)
	}
	return hours*3600 + secs, nil
}
