package chapters

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"github.com/jackzampolin/chaptermark/internal/segment"
	"github.com/jackzampolin/chaptermark/internal/timecode"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

var userTemplate = template.Must(template.New("user").Parse(userPromptTmpl))

// Request is a rendered labeling request.
type Request struct {
	System   string `json:"system"`
	User     string `json:"user"`
	Digest   string `json:"digest"`
	Band     Band   `json:"band"`
	Duration int    `json:"duration"`
}

// SystemPrompt returns the labeling instructions sent with every request.
func SystemPrompt() string {
	return systemPrompt
}

// BuildRequest renders the prompts for a set of reduced groups.
func BuildRequest(groups []segment.Group, band Band, duration int, language string) (Request, error) {
	digest := BuildDigest(groups)

	var buf bytes.Buffer
	data := struct {
		Digest        string
		Band          Band
		Duration      int
		DurationLabel string
		Language      string
	}{
		Digest:        digest,
		Band:          band,
		Duration:      duration,
		DurationLabel: timecode.Format(float64(duration)),
		Language:      language,
	}
	if err := userTemplate.Execute(&buf, data); err != nil {
		return Request{}, fmt.Errorf("failed to render user prompt: %w", err)
	}

	return Request{
		System:   systemPrompt,
		User:     buf.String(),
		Digest:   digest,
		Band:     band,
		Duration: duration,
	}, nil
}
