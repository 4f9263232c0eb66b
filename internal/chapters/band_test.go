package chapters

import (
	"testing"

	"github.com/jackzampolin/chaptermark/internal/segment"
	"github.com/jackzampolin/chaptermark/internal/transcript"
)

func TestBandFor(t *testing.T) {
	tests := []struct {
		seconds int
		want    Band
	}{
		{0, Band{3, 5}},
		{900, Band{3, 5}},
		{901, Band{5, 8}},
		{1800, Band{5, 8}},
		{1801, Band{8, 12}},
		{3600, Band{8, 12}},
		{3601, Band{12, 20}},
		{7200, Band{12, 20}},
		{7201, Band{15, 30}},
		{100000, Band{15, 30}},
	}
	for _, tt := range tests {
		if got := BandFor(tt.seconds); got != tt.want {
			t.Errorf("BandFor(%d) = %+v, want %+v", tt.seconds, got, tt.want)
		}
	}
}

func TestDuration(t *testing.T) {
	groups := []segment.Group{
		{Start: 0, Segments: []transcript.Segment{{Text: "a", Start: 0, End: 2}}},
		{Start: 8, Segments: []transcript.Segment{{Text: "b", Start: 8, End: 14.2}}},
	}
	if got := Duration(groups); got != 15 {
		t.Errorf("Duration() = %d, want 15", got)
	}
	if got := Duration(nil); got != 0 {
		t.Errorf("Duration(nil) = %d, want 0", got)
	}
}
