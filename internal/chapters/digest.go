package chapters

import (
	"strings"

	"github.com/jackzampolin/chaptermark/internal/segment"
	"github.com/jackzampolin/chaptermark/internal/timecode"
)

// DigestPreviewRunes is how much of each group's text the digest keeps.
const DigestPreviewRunes = 100

// BuildDigest renders one "MM:SS preview..." line per group.
func BuildDigest(groups []segment.Group) string {
	lines := make([]string, 0, len(groups))
	for _, g := range groups {
		text := strings.Join(g.Texts, " ")
		if r := []rune(text); len(r) > DigestPreviewRunes {
			text = string(r[:DigestPreviewRunes])
		}
		lines = append(lines, timecode.Format(g.Start)+" "+text+"...")
	}
	return strings.Join(lines, "\n")
}
