// Package chapters turns topic groups into a labeling request for the
// oracle and validates the chapter lines it returns.
package chapters

import (
	"math"

	"github.com/jackzampolin/chaptermark/internal/segment"
)

// Band is the inclusive target range for the number of chapters.
type Band struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// bandSteps maps an inclusive duration ceiling in seconds to a band.
var bandSteps = []struct {
	upTo int
	band Band
}{
	{15 * 60, Band{Min: 3, Max: 5}},
	{30 * 60, Band{Min: 5, Max: 8}},
	{60 * 60, Band{Min: 8, Max: 12}},
	{120 * 60, Band{Min: 12, Max: 20}},
}

var longBand = Band{Min: 15, Max: 30}

// BandFor returns the chapter-count band for a total duration in seconds.
func BandFor(durationSeconds int) Band {
	for _, step := range bandSteps {
		if durationSeconds <= step.upTo {
			return step.band
		}
	}
	return longBand
}

// Duration returns the total duration covered by groups, in whole seconds,
// rounded up from the end of the last segment.
func Duration(groups []segment.Group) int {
	if len(groups) == 0 {
		return 0
	}
	end := groups[len(groups)-1].End()
	if end <= 0 || math.IsNaN(end) {
		return 0
	}
	return int(math.Ceil(end))
}
