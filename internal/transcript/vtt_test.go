package transcript

import (
	"math"
	"strings"
	"testing"
)

const sampleVTT = `WEBVTT

00:00:00.000 --> 00:00:04.500
Welcome back to the show.

00:00:04.500 --> 00:00:09.250
Today we are talking about tides.

00:00:09.250 --> 00:00:12.000
Specifically spring tides.
`

func TestParseVTT(t *testing.T) {
	track, err := ParseVTT(sampleVTT)
	if err != nil {
		t.Fatalf("ParseVTT: %v", err)
	}
	if len(track.Cues) != 3 {
		t.Fatalf("expected 3 cues, got %d", len(track.Cues))
	}
	if math.Abs(track.Cues[1].Start-4.5) > 0.001 {
		t.Errorf("cue 1 start = %f, want 4.5", track.Cues[1].Start)
	}
	if track.Cues[2].Text != "Specifically spring tides." {
		t.Errorf("cue 2 text = %q", track.Cues[2].Text)
	}
}

func TestParseVTTSkipsIdentifiersAndSettings(t *testing.T) {
	doc := "WEBVTT\n\nintro\n00:00:01.000 --> 00:00:02.000 align:start\nhello\nworld\n"
	track, err := ParseVTT(doc)
	if err != nil {
		t.Fatalf("ParseVTT: %v", err)
	}
	if len(track.Cues) != 1 {
		t.Fatalf("expected 1 cue, got %d", len(track.Cues))
	}
	if track.Cues[0].Text != "hello\nworld" {
		t.Errorf("text = %q", track.Cues[0].Text)
	}
}

func TestParseVTTRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"not a vtt document",
		"WEBVTT\n\n00:00:05.000 --> 00:00:03.000\nbackwards cue\n",
		"WEBVTT\n\n00:00:xx.000 --> 00:00:03.000\nbad start\n",
		"WEBVTT\n",
	}
	for _, doc := range cases {
		if _, err := ParseVTT(doc); err == nil {
			t.Errorf("ParseVTT(%q) succeeded, want error", doc)
		}
	}
}

func TestRenderVTTRoundTrip(t *testing.T) {
	track, err := ParseVTT(sampleVTT)
	if err != nil {
		t.Fatalf("ParseVTT: %v", err)
	}
	again, err := ParseVTT(RenderVTT(track))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if len(again.Cues) != len(track.Cues) {
		t.Fatalf("cue count changed: %d vs %d", len(again.Cues), len(track.Cues))
	}
	for i := range track.Cues {
		if math.Abs(again.Cues[i].Start-track.Cues[i].Start) > 0.001 ||
			math.Abs(again.Cues[i].End-track.Cues[i].End) > 0.001 ||
			again.Cues[i].Text != track.Cues[i].Text {
			t.Errorf("cue %d changed after round trip", i)
		}
	}
}

func TestResultText(t *testing.T) {
	track, _ := ParseVTT(sampleVTT)
	r := Result{Track: track}
	want := "Welcome back to the show. Today we are talking about tides. Specifically spring tides."
	if got := r.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestTailWords(t *testing.T) {
	if got := TailWords("a b c d e", 3); got != "c d e" {
		t.Errorf("TailWords = %q, want %q", got, "c d e")
	}
	if got := TailWords("a b", 50); got != "a b" {
		t.Errorf("TailWords = %q, want %q", got, "a b")
	}
	if got := TailWords("anything", 0); got != "" {
		t.Errorf("TailWords with n=0 = %q, want empty", got)
	}
}

func TestDecodeStructured(t *testing.T) {
	payload := `{"text":"hello world","words":[{"word":"hello","start":0.1,"end":0.4},{"word":"world","start":0.5,"end":0.9}],"segments":[{"start":0.1,"end":0.9,"text":"hello world"}]}`
	doc, err := DecodeStructured([]byte(payload))
	if err != nil {
		t.Fatalf("DecodeStructured: %v", err)
	}
	if doc.FullText != "hello world" || len(doc.Words) != 2 || len(doc.Segments) != 1 {
		t.Errorf("unexpected document: %+v", doc)
	}
}

func TestDecodeStructuredRejectsEmpty(t *testing.T) {
	if _, err := DecodeStructured([]byte(`{"text":""}`)); err == nil {
		t.Error("expected error for segmentless payload")
	}
	if _, err := DecodeStructured([]byte(`{malformed`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestEncodeShapes(t *testing.T) {
	track, _ := ParseVTT(sampleVTT)
	data, err := (Result{Track: track}).Encode()
	if err != nil {
		t.Fatalf("Encode cue track: %v", err)
	}
	if !strings.HasPrefix(string(data), "WEBVTT") {
		t.Errorf("cue track artifact missing header: %q", string(data[:16]))
	}

	doc := &Structured{FullText: "hi", Segments: []SegmentEntry{{Start: 0, End: 1, Text: "hi"}}}
	data, err = (Result{Structured: doc}).Encode()
	if err != nil {
		t.Fatalf("Encode structured: %v", err)
	}
	if !strings.Contains(string(data), `"text": "hi"`) {
		t.Errorf("structured artifact missing text: %s", data)
	}

	if _, err := (Result{}).Encode(); err == nil {
		t.Error("expected error encoding empty result")
	}
}
