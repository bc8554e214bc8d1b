package transcript

import (
	"encoding/json"
	"fmt"
)

// Encode serializes the result into its output artifact: WebVTT text for the
// cue-track shape, indented JSON for the structured shape.
func (r Result) Encode() ([]byte, error) {
	switch {
	case r.Track != nil:
		return []byte(RenderVTT(r.Track)), nil
	case r.Structured != nil:
		data, err := json.MarshalIndent(r.Structured, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode structured transcript: %w", err)
		}
		return append(data, '\n'), nil
	}
	return nil, fmt.Errorf("encode transcript: empty result")
}

// DecodeStructured parses a word/segment JSON payload. Words may be absent
// when the service does not report word granularity.
func DecodeStructured(data []byte) (*Structured, error) {
	var doc Structured
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse structured transcript: %w", err)
	}
	if len(doc.Segments) == 0 && len(doc.Words) == 0 {
		return nil, fmt.Errorf("structured transcript has no segments")
	}
	return &doc, nil
}
