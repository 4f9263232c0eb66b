package chapters

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jackzampolin/chaptermark/internal/segment"
	"github.com/jackzampolin/chaptermark/internal/transcript"
)

func scenarioGroups(t *testing.T) []segment.Group {
	t.Helper()
	cues, _ := segment.BuiltinCueSet("en")
	groups, err := segment.New(cues).Segment([]transcript.Segment{
		{Text: "Hello everyone", Start: 0, End: 2},
		{Text: "Now let's move on to the next topic", Start: 8, End: 12},
		{Text: "In conclusion, thanks", Start: 13, End: 15},
	})
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	return segment.Reduce(groups, 5)
}

func TestBuildDigest_Scenario(t *testing.T) {
	digest := BuildDigest(scenarioGroups(t))
	want := strings.Join([]string{
		"00:00 Hello everyone...",
		"00:08 Now let's move on to the next topic...",
		"00:13 In conclusion, thanks...",
	}, "\n")
	if digest != want {
		t.Errorf("BuildDigest() =\n%s\nwant\n%s", digest, want)
	}
}

func TestBuildDigest_TruncatesByRune(t *testing.T) {
	long := strings.Repeat("가", 150)
	g := segment.Group{Start: 65, Texts: []string{long, "tail"}}

	digest := BuildDigest([]segment.Group{g})
	if !strings.HasPrefix(digest, "01:05 ") {
		t.Fatalf("digest prefix = %q", digest[:6])
	}
	body := strings.TrimSuffix(strings.TrimPrefix(digest, "01:05 "), "...")
	if n := utf8.RuneCountInString(body); n != DigestPreviewRunes {
		t.Errorf("preview runes = %d, want %d", n, DigestPreviewRunes)
	}
	if !utf8.ValidString(digest) {
		t.Error("digest is not valid UTF-8")
	}
}

func TestBuildDigest_JoinsTexts(t *testing.T) {
	g := segment.Group{Start: 0, Texts: []string{"one", "two"}}
	if got := BuildDigest([]segment.Group{g}); got != "00:00 one two..." {
		t.Errorf("BuildDigest() = %q", got)
	}
}

func TestBuildRequest(t *testing.T) {
	groups := scenarioGroups(t)
	req, err := BuildRequest(groups, BandFor(15), 15, "en")
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	if req.System == "" {
		t.Error("System prompt is empty")
	}
	for _, want := range []string{"between 3 and 5", "00:15", "00:08 Now let's move on", "Language of the recording: en"} {
		if !strings.Contains(req.User, want) {
			t.Errorf("user prompt missing %q:\n%s", want, req.User)
		}
	}
	if req.Band != (Band{3, 5}) || req.Duration != 15 {
		t.Errorf("request band/duration = %+v/%d", req.Band, req.Duration)
	}
}
