package segment

import (
	"sort"
	"strings"
	"sync"
)

// Library resolves the cue set for a language. It starts with the builtin
// sets and can be swapped wholesale when configuration changes.
type Library struct {
	mu       sync.RWMutex
	sets     map[string]*CueSet
	fallback string
}

// NewLibrary returns a library holding the builtin cue sets.
func NewLibrary() *Library {
	l := &Library{fallback: DefaultLanguage}
	l.Replace(nil)
	return l
}

// Replace resets the library to the builtin sets plus overrides.
// An override replaces the builtin set for the same language.
func (l *Library) Replace(overrides []*CueSet) {
	sets := make(map[string]*CueSet)
	for _, lang := range BuiltinLanguages() {
		if cs, ok := BuiltinCueSet(lang); ok {
			sets[lang] = cs
		}
	}
	for _, cs := range overrides {
		if cs != nil {
			sets[strings.ToLower(cs.Language())] = cs
		}
	}

	l.mu.Lock()
	l.sets = sets
	l.mu.Unlock()
}

// SetFallback changes the language used when a lookup finds nothing.
func (l *Library) SetFallback(language string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fallback = strings.ToLower(language)
}

// Lookup returns the cue set for language, trying the base language of a
// regional tag ("en-US" -> "en") before falling back. A fallback without a
// cue set of its own resolves to DefaultLanguage.
func (l *Library) Lookup(language string) *CueSet {
	l.mu.RLock()
	defer l.mu.RUnlock()

	lang := strings.ToLower(strings.TrimSpace(language))
	if cs, ok := l.sets[lang]; ok {
		return cs
	}
	if base, _, found := strings.Cut(strings.ReplaceAll(lang, "_", "-"), "-"); found {
		if cs, ok := l.sets[base]; ok {
			return cs
		}
	}
	if cs, ok := l.sets[l.fallback]; ok {
		return cs
	}
	return l.sets[DefaultLanguage]
}

// Languages lists the languages with a cue set.
func (l *Library) Languages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	langs := make([]string, 0, len(l.sets))
	for lang := range l.sets {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
