package segment

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// CueSet matches topic-transition discourse markers for one language.
type CueSet struct {
	language string
	phrases  []string
	re       *regexp.Regexp
}

const nonWord = `[^\p{L}\p{N}_]`

// DefaultLanguage is the cue language used when none is configured.
const DefaultLanguage = "en"

// builtinCues holds the discourse markers that open a new topic:
// next, by the way, in conclusion, importantly, finally.
var builtinCues = map[string]struct {
	phrases      []string
	wordBoundary bool
}{
	"en": {
		phrases:      []string{"next", "moving on", "by the way", "in conclusion", "to conclude", "importantly", "finally", "lastly"},
		wordBoundary: true,
	},
	"ko": {
		phrases:      []string{"다음으로", "다음은", "그런데", "그나저나", "결론적으로", "결론은", "중요한", "마지막으로"},
		wordBoundary: false,
	},
}

// NewCueSet compiles a case-insensitive matcher for the given phrases.
// With wordBoundary set, phrases only match whole words, which suits
// space-delimited languages; otherwise any substring match counts.
func NewCueSet(language string, phrases []string, wordBoundary bool) (*CueSet, error) {
	cleaned := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return &CueSet{language: language}, nil
	}

	// Longest first so alternation prefers the most specific phrase.
	sorted := append([]string(nil), cleaned...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	quoted := make([]string, len(sorted))
	for i, p := range sorted {
		quoted[i] = regexp.QuoteMeta(p)
	}
	pattern := `(?i)(?:` + strings.Join(quoted, "|") + `)`
	if wordBoundary {
		// RE2's \b is ASCII-only; bound on Unicode letters and digits instead.
		pattern = `(?i)(?:^|` + nonWord + `)(?:` + strings.Join(quoted, "|") + `)(?:$|` + nonWord + `)`
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile cues for %q: %w", language, err)
	}
	return &CueSet{language: language, phrases: cleaned, re: re}, nil
}

// BuiltinCueSet returns the bundled cue set for a language.
func BuiltinCueSet(language string) (*CueSet, bool) {
	def, ok := builtinCues[strings.ToLower(language)]
	if !ok {
		return nil, false
	}
	cs, err := NewCueSet(strings.ToLower(language), def.phrases, def.wordBoundary)
	if err != nil {
		return nil, false
	}
	return cs, true
}

// BuiltinLanguages lists languages with bundled cue sets.
func BuiltinLanguages() []string {
	langs := make([]string, 0, len(builtinCues))
	for lang := range builtinCues {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Language returns the language this cue set was built for.
func (c *CueSet) Language() string {
	if c == nil {
		return ""
	}
	return c.language
}

// Phrases returns a copy of the configured phrases.
func (c *CueSet) Phrases() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.phrases...)
}

// Match reports whether text contains any transition phrase.
// A nil or empty cue set never matches.
func (c *CueSet) Match(text string) bool {
	if c == nil || c.re == nil {
		return false
	}
	return c.re.MatchString(text)
}
