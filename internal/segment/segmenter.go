// Package segment splits a transcript into topic groups and reduces the
// groups to a bounded count.
package segment

import (
	"fmt"

	"github.com/jackzampolin/chaptermark/internal/transcript"
)

// DefaultGapThreshold is the silence, in seconds, that starts a new topic.
const DefaultGapThreshold = 5.0

// Group is a contiguous run of segments judged to belong to one topic.
// Texts and Segments always have the same length, and Start is the start
// of the first segment.
type Group struct {
	Start    float64              `json:"start"`
	Texts    []string             `json:"texts"`
	Segments []transcript.Segment `json:"segments"`
}

func newGroup(seg transcript.Segment) Group {
	return Group{
		Start:    seg.Start,
		Texts:    []string{seg.Text},
		Segments: []transcript.Segment{seg},
	}
}

func (g *Group) add(seg transcript.Segment) {
	g.Texts = append(g.Texts, seg.Text)
	g.Segments = append(g.Segments, seg)
}

// End returns the end time of the group's last segment.
func (g Group) End() float64 {
	if len(g.Segments) == 0 {
		return g.Start
	}
	return g.Segments[len(g.Segments)-1].End
}

// Segmenter groups segments on long silences and lexical transition cues.
type Segmenter struct {
	// GapThreshold is the silence in seconds above which a new group starts.
	// Zero means DefaultGapThreshold.
	GapThreshold float64

	// Cues detects transition phrases. Nil disables cue splitting.
	Cues *CueSet
}

// New returns a segmenter with the default gap and the given cues.
func New(cues *CueSet) *Segmenter {
	return &Segmenter{GapThreshold: DefaultGapThreshold, Cues: cues}
}

// Segment partitions segments into ordered topic groups.
// Every input segment appears in exactly one group, in input order.
func (s *Segmenter) Segment(segments []transcript.Segment) ([]Group, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no segments to group", transcript.ErrInvalidInput)
	}

	gap := s.GapThreshold
	if gap <= 0 {
		gap = DefaultGapThreshold
	}

	groups := make([]Group, 0, 8)
	current := newGroup(segments[0])
	for i := 1; i < len(segments); i++ {
		seg := segments[i]
		silence := seg.Start - segments[i-1].End
		if silence > gap || s.Cues.Match(seg.Text) {
			groups = append(groups, current)
			current = newGroup(seg)
			continue
		}
		current.add(seg)
	}
	groups = append(groups, current)

	return groups, nil
}
