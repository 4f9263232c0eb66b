package segment

import "testing"

func TestBuiltinCueSet_English(t *testing.T) {
	cues, ok := BuiltinCueSet("EN")
	if !ok {
		t.Fatal("expected english cue set")
	}

	matches := []string{
		"Next, we look at storage",
		"By the way, this matters",
		"In conclusion, thanks",
		"Importantly the cache is shared",
		"and FINALLY the results",
		"Now let's move on to the next topic",
	}
	for _, text := range matches {
		if !cues.Match(text) {
			t.Errorf("Match(%q) = false, want true", text)
		}
	}

	misses := []string{
		"Hello everyone",
		"the nextgen platform",
		"finalize the draft",
	}
	for _, text := range misses {
		if cues.Match(text) {
			t.Errorf("Match(%q) = true, want false", text)
		}
	}
}

func TestBuiltinCueSet_Korean(t *testing.T) {
	cues, ok := BuiltinCueSet("ko")
	if !ok {
		t.Fatal("expected korean cue set")
	}
	if !cues.Match("자, 다음으로 넘어가 보겠습니다") {
		t.Error("expected match on 다음으로")
	}
	if !cues.Match("결론적으로 말하자면") {
		t.Error("expected match on 결론적으로")
	}
	if cues.Match("안녕하세요 여러분") {
		t.Error("unexpected match on greeting")
	}
}

func TestBuiltinCueSet_Unknown(t *testing.T) {
	if _, ok := BuiltinCueSet("xx"); ok {
		t.Fatal("expected no cue set for unknown language")
	}
}

func TestNewCueSet_Custom(t *testing.T) {
	cues, err := NewCueSet("de", []string{" als nächstes ", "", "übrigens", "a.b"}, false)
	if err != nil {
		t.Fatalf("NewCueSet() error = %v", err)
	}
	if cues.Language() != "de" {
		t.Errorf("Language() = %q", cues.Language())
	}
	if got := cues.Phrases(); len(got) != 3 {
		t.Errorf("Phrases() = %v, want 3 entries", got)
	}
	if !cues.Match("Als nächstes kommt") {
		t.Error("expected case-insensitive match")
	}
	if cues.Match("axb") {
		t.Error("phrases must be matched literally")
	}
}

func TestNewCueSet_UnicodeWordBoundary(t *testing.T) {
	cues, err := NewCueSet("de", []string{"übrigens", "à propos", "schließlich"}, true)
	if err != nil {
		t.Fatalf("NewCueSet() error = %v", err)
	}

	tests := []struct {
		text string
		want bool
	}{
		{"Übrigens, das ist neu", true},
		{"Et à propos de ça", true},
		{"und schließlich", true},
		{"(übrigens)", true},
		{"hinübrigens", false},
		{"übrigensweise", false},
		{"schließlicher Punkt", false},
	}
	for _, tt := range tests {
		if got := cues.Match(tt.text); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestCueSet_NilAndEmpty(t *testing.T) {
	var nilSet *CueSet
	if nilSet.Match("next") {
		t.Error("nil cue set should never match")
	}
	empty, err := NewCueSet("en", nil, true)
	if err != nil {
		t.Fatalf("NewCueSet() error = %v", err)
	}
	if empty.Match("next") {
		t.Error("empty cue set should never match")
	}
}

func TestBuiltinLanguages(t *testing.T) {
	langs := BuiltinLanguages()
	if len(langs) < 2 || langs[0] != "en" || langs[1] != "ko" {
		t.Errorf("BuiltinLanguages() = %v", langs)
	}
}
