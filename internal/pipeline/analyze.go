package pipeline

import (
	"sync"

	"github.com/jackzampolin/chaptermark/internal/chapters"
	"github.com/jackzampolin/chaptermark/internal/segment"
	"github.com/jackzampolin/chaptermark/internal/transcript"
)

// Analysis is everything derived from a transcript before the oracle is
// consulted.
type Analysis struct {
	Language string           `json:"language"`
	Segments int              `json:"segments"`
	Duration int              `json:"duration"`
	Band     chapters.Band    `json:"band"`
	Groups   []segment.Group  `json:"groups"`
	Request  chapters.Request `json:"request"`
}

// Analyzer segments transcripts and builds labeling requests.
type Analyzer struct {
	Cues         *segment.Library
	GapThreshold float64

	mu sync.RWMutex
}

// NewAnalyzer returns an analyzer with the builtin cue sets.
func NewAnalyzer() *Analyzer {
	return &Analyzer{Cues: segment.NewLibrary(), GapThreshold: segment.DefaultGapThreshold}
}

// Configure swaps the gap threshold and cue overrides, e.g. after a
// config reload. It is safe to call while jobs are running.
func (a *Analyzer) Configure(gap float64, overrides []*segment.CueSet) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gap > 0 {
		a.GapThreshold = gap
	}
	if a.Cues == nil {
		a.Cues = segment.NewLibrary()
	}
	a.Cues.Replace(overrides)
}

// Analyze groups segments by topic, bounds the group count by the
// duration band and renders the labeling request.
func (a *Analyzer) Analyze(segments []transcript.Segment, language string) (*Analysis, error) {
	a.mu.RLock()
	var cues *segment.CueSet
	if a.Cues != nil {
		cues = a.Cues.Lookup(language)
	}
	seg := &segment.Segmenter{GapThreshold: a.GapThreshold, Cues: cues}
	a.mu.RUnlock()

	groups, err := seg.Segment(segments)
	if err != nil {
		return nil, err
	}

	duration := chapters.Duration(groups)
	band := chapters.BandFor(duration)
	groups = segment.Reduce(groups, band.Max)

	req, err := chapters.BuildRequest(groups, band, duration, language)
	if err != nil {
		return nil, err
	}

	return &Analysis{
		Language: cues.Language(),
		Segments: len(segments),
		Duration: duration,
		Band:     band,
		Groups:   groups,
		Request:  req,
	}, nil
}
