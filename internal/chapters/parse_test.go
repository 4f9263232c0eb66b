package chapters

import (
	"errors"
	"testing"
)

func TestParseResponse_Strict(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{
			name: "plain lines",
			in:   "00:00 Introduction\n00:08 Next topic\n00:13 Wrap up\n",
			want: "00:00 Introduction\n00:08 Next topic\n00:13 Wrap up",
		},
		{
			name: "fences bullets and separators",
			in:   "```\n- 00:00 - Introduction\n* 0:08 Next topic\n3. 00:13 | Wrap up\n```",
			want: "00:00 Introduction\n00:08 Next topic\n00:13 Wrap up",
		},
		{name: "empty", in: "   \n", wantErr: ErrEmptyLabelResponse},
		{name: "only fences", in: "```\n```", wantErr: ErrEmptyLabelResponse},
		{name: "missing timestamp", in: "00:00 Intro\nSome prose", wantErr: ErrMalformedLabelResponse},
		{name: "first not zero", in: "00:05 Intro\n00:10 More", wantErr: ErrMalformedLabelResponse},
		{name: "not increasing", in: "00:00 Intro\n00:10 A\n00:10 B", wantErr: ErrMalformedLabelResponse},
		{name: "past duration", in: "00:00 Intro\n00:16 Too late", wantErr: ErrMalformedLabelResponse},
		{name: "bad seconds", in: "00:00 Intro\n00:75 Bad", wantErr: ErrMalformedLabelResponse},
		{name: "glued title", in: "00:00Intro", wantErr: ErrMalformedLabelResponse},
		{name: "three digit seconds", in: "00:00 Intro\n00:100 Bad", wantErr: ErrMalformedLabelResponse},
		{name: "hours past duration", in: "0:00:00 Intro\n0:00:20 Late", wantErr: ErrMalformedLabelResponse},
		{name: "bad hour minutes", in: "0:00:00 Intro\n0:75:00 Bad", wantErr: ErrMalformedLabelResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.in, 15, true)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseResponse_ZeroDurationSkipsBound(t *testing.T) {
	got, err := ParseResponse("00:00 A\n61:01 B", 0, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "00:00 A\n61:01 B" {
		t.Errorf("got %q", got)
	}
}

func TestParseResponse_Lenient(t *testing.T) {
	got, err := ParseResponse("  whatever the oracle said\n", 15, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "whatever the oracle said" {
		t.Errorf("got %q", got)
	}
	if _, err := ParseResponse("", 15, false); !errors.Is(err, ErrEmptyLabelResponse) {
		t.Errorf("error = %v, want ErrEmptyLabelResponse", err)
	}
}

func TestParseResponse_HourTimestamps(t *testing.T) {
	got, err := ParseResponse("0:00:00 Intro\n0:40:00 Middle\n1:05:30 Late topic", 4000, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "00:00 Intro\n40:00 Middle\n65:30 Late topic"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
