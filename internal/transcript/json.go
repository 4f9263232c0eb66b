package transcript

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func segmentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("segments.json", bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("failed to load transcript schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("segments.json")
	})
	return compiledSchema, schemaErr
}

// decodeJSON accepts either a bare array of segments or an object with a
// "segments" array, which is the shape most transcription APIs return.
func decodeJSON(data []byte) ([]Segment, error) {
	schema, err := segmentSchema()
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var segments []Segment
	if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		var wrapped struct {
			Segments []Segment `json:"segments"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		segments = wrapped.Segments
	} else if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	for i := range segments {
		segments[i].Text = strings.TrimSpace(segments[i].Text)
	}
	return segments, nil
}
