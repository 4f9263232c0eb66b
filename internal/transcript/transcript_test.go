package transcript

import (
	"errors"
	"testing"
)

func TestDecodeJSON(t *testing.T) {
	t.Run("bare array", func(t *testing.T) {
		data := []byte(`[
			{"text": " Hello everyone ", "start": 0, "end": 2},
			{"text": "Now let's move on to the next topic", "start": 8, "end": 12}
		]`)

		got, err := Decode(Input{Data: data})
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		if got[0].Text != "Hello everyone" {
			t.Errorf("text = %q, want trimmed", got[0].Text)
		}
		if got[1].Start != 8 || got[1].End != 12 {
			t.Errorf("segment[1] = %+v", got[1])
		}
	})

	t.Run("wrapped object", func(t *testing.T) {
		data := []byte(`{"language": "en", "segments": [{"text": "hi", "start": 1.5, "end": 2.25}]}`)

		got, err := Decode(Input{Format: FormatJSON, Data: data})
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if len(got) != 1 || got[0].Start != 1.5 {
			t.Fatalf("got %+v", got)
		}
	})
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"empty array":   `[]`,
		"not json":      `[{`,
		"missing end":   `[{"text": "a", "start": 0}]`,
		"blank text":    `[{"text": "   ", "start": 0, "end": 1}]`,
		"negative":      `[{"text": "a", "start": -1, "end": 1}]`,
		"end < start":   `[{"text": "a", "start": 5, "end": 1}]`,
		"out of order":  `[{"text": "a", "start": 5, "end": 6}, {"text": "b", "start": 1, "end": 2}]`,
		"string times":  `[{"text": "a", "start": "0", "end": "1"}]`,
		"wrong wrapper": `{"items": [{"text": "a", "start": 0, "end": 1}]}`,
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(Input{Format: FormatJSON, Data: []byte(data)})
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("Decode() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestDecodeUnsupportedFormat(t *testing.T) {
	_, err := Decode(Input{Format: "xml", Data: []byte("<x/>")})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Validate(nil) = %v, want ErrInvalidInput", err)
	}

	ok := []Segment{
		{Text: "a", Start: 0, End: 1},
		{Text: "b", Start: 0, End: 1},
		{Text: "c", Start: 0.5, End: 3},
	}
	if err := Validate(ok); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		data string
		want Format
	}{
		{"WEBVTT\n\n00:00.000 --> 00:01.000\nhi", FormatVTT},
		{"\ufeffWEBVTT", FormatVTT},
		{"[{}]", FormatJSON},
		{`{"segments": []}`, FormatJSON},
		{"1\n00:00:01,000 --> 00:00:02,000\nhi", FormatSRT},
	}
	for _, tt := range tests {
		if got := Detect([]byte(tt.data)); got != tt.want {
			t.Errorf("Detect(%q) = %q, want %q", tt.data, got, tt.want)
		}
	}
}

func TestDuration(t *testing.T) {
	if got := Duration(nil); got != 0 {
		t.Errorf("Duration(nil) = %v", got)
	}
	segs := []Segment{{Text: "a", Start: 0, End: 2}, {Text: "b", Start: 3, End: 14.2}}
	if got := Duration(segs); got != 14.2 {
		t.Errorf("Duration() = %v, want 14.2", got)
	}
}
