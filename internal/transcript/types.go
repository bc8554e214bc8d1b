// Package transcript defines the transcript data model shared by the
// transcription client, the stitcher, and the output writers. A transcript
// takes one of two shapes: a cue track (WebVTT-style timed captions) or a
// structured document carrying full text plus word and segment timings.
package transcript

import "strings"

// Shape selects the output representation of a transcription.
type Shape string

const (
	// ShapeCueTrack is the subtitle-cue document shape.
	ShapeCueTrack Shape = "cue_track"
	// ShapeStructured is the word/segment JSON document shape.
	ShapeStructured Shape = "structured"
)

// Extension returns the output file extension for the shape.
func (s Shape) Extension() string {
	if s == ShapeCueTrack {
		return ".vtt"
	}
	return ".json"
}

// ParseShape validates a shape selector from config or flags.
func ParseShape(value string) (Shape, bool) {
	switch Shape(strings.ToLower(strings.TrimSpace(value))) {
	case ShapeCueTrack:
		return ShapeCueTrack, true
	case ShapeStructured:
		return ShapeStructured, true
	}
	return "", false
}

// Cue is one timed caption entry. End is always after Start.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

// CueTrack is an ordered sequence of cues plus the document header line.
type CueTrack struct {
	Header string
	Cues   []Cue
}

// Word is a single recognized word with timing.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SegmentEntry is one recognized phrase-level span.
type SegmentEntry struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Structured is the word/segment document shape.
type Structured struct {
	FullText string         `json:"text"`
	Words    []Word         `json:"words"`
	Segments []SegmentEntry `json:"segments"`
}

// Result is the tagged union over the two shapes. Exactly one field is set.
type Result struct {
	Track      *CueTrack
	Structured *Structured
}

// Shape reports which variant the result carries.
func (r Result) Shape() Shape {
	if r.Track != nil {
		return ShapeCueTrack
	}
	return ShapeStructured
}

// Empty reports whether the result carries no recognized content.
func (r Result) Empty() bool {
	switch {
	case r.Track != nil:
		return len(r.Track.Cues) == 0
	case r.Structured != nil:
		return len(r.Structured.Segments) == 0 && len(r.Structured.Words) == 0
	}
	return true
}

// Text returns the recognized text of the result in timeline order. Used to
// seed the next segment's context hint.
func (r Result) Text() string {
	switch {
	case r.Track != nil:
		parts := make([]string, 0, len(r.Track.Cues))
		for _, cue := range r.Track.Cues {
			if text := strings.TrimSpace(cue.Text); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, " ")
	case r.Structured != nil:
		if text := strings.TrimSpace(r.Structured.FullText); text != "" {
			return text
		}
		parts := make([]string, 0, len(r.Structured.Segments))
		for _, seg := range r.Structured.Segments {
			if text := strings.TrimSpace(seg.Text); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// Extension returns the output file extension for the result's shape.
func (r Result) Extension() string {
	return r.Shape().Extension()
}

// TailWords returns the last n whitespace-separated words of text, joined by
// single spaces. Returns text unchanged when it has n words or fewer.
func TailWords(text string, n int) string {
	if n <= 0 {
		return ""
	}
	fields := strings.Fields(text)
	if len(fields) <= n {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[len(fields)-n:], " ")
}
