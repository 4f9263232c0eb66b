package transcript

import (
	"errors"
	"testing"
)

func TestParseVTT(t *testing.T) {
	raw := `WEBVTT
Kind: captions
Language: en

1
00:00:00.000 --> 00:00:02.500 align:start position:0%
<c>Hello</c> everyone

2
00:00:02.500 --> 00:00:04.000
Hello everyone

00:00:08.000 --> 00:00:12.000
Now let's move on
to the next topic

NOTE this is a comment

01:00:13.000 --> 01:00:15.000
In conclusion, thanks
`

	got, err := Decode(Input{Data: []byte(raw)})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	want := []Segment{
		{Text: "Hello everyone", Start: 0, End: 4},
		{Text: "Now let's move on to the next topic", Start: 8, End: 12},
		{Text: "In conclusion, thanks", Start: 3613, End: 3615},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("segment[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseSRT(t *testing.T) {
	raw := "1\r\n00:00:01,000 --> 00:00:03,250\r\nFirst line\r\n\r\n2\r\n00:00:04,000 --> 00:00:06,000\r\nSecond <i>line</i>\r\n"

	got, err := Decode(Input{Format: FormatSRT, Data: []byte(raw)})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Start != 1 || got[0].End != 3.25 {
		t.Errorf("segment[0] = %+v", got[0])
	}
	if got[1].Text != "Second line" {
		t.Errorf("segment[1].Text = %q", got[1].Text)
	}
}

func TestParseCaptionsWithoutCues(t *testing.T) {
	_, err := Decode(Input{Format: FormatVTT, Data: []byte("WEBVTT\n\nNOTE nothing here\n")})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}
