package stitch

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"loom/internal/segment"
	"loom/internal/services"
	"loom/internal/transcript"
)

// syntheticTrack builds a cue track with one cue per 100 seconds of the
// clip, the final cue clipped to the clip length.
func syntheticTrack(index int, length float64) transcript.Result {
	track := &transcript.CueTrack{Header: transcript.VTTHeader}
	for start := 0.0; start < length; start += 100 {
		end := math.Min(start+100, length)
		track.Cues = append(track.Cues, transcript.Cue{
			Start: start,
			End:   end,
			Text:  cueLabel(index, start),
		})
	}
	return transcript.Result{Track: track}
}

func cueLabel(index int, start float64) string {
	return fmt.Sprintf("s%d-%04.0f", index, start)
}

func TestMergeThreeSegmentCueTrack(t *testing.T) {
	plan, err := segment.Plan(1500, 600, 20)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	items := make([]Item, len(plan))
	for i, d := range plan {
		items[i] = Item{Descriptor: d, Result: syntheticTrack(i, d.Length)}
	}

	merged, err := Merge(items, 20)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	cues := merged.Track.Cues
	if len(cues) != 14 {
		t.Fatalf("cue count = %d, want 14", len(cues))
	}
	if cues[0].Start != 0 {
		t.Errorf("first cue starts at %.3f, want 0", cues[0].Start)
	}
	if got := cues[len(cues)-1].End; got != 1500 {
		t.Errorf("last cue ends at %.3f, want 1500", got)
	}
	// The overlap region of every later segment duplicates the prior tail
	// and must not appear twice.
	seen := make(map[string]bool)
	for _, cue := range cues {
		if seen[cue.Text] {
			t.Errorf("cue %q appears twice", cue.Text)
		}
		seen[cue.Text] = true
	}
	if seen[cueLabel(1, 0)] {
		t.Errorf("segment 1 overlap cue was kept")
	}
	if seen[cueLabel(2, 0)] {
		t.Errorf("segment 2 overlap cue was kept")
	}
}

func TestMergeRoundTripReproducesContinuousTrack(t *testing.T) {
	const total, segLen, overlap = 1500.0, 600.0, 20.0

	original := &transcript.CueTrack{Header: transcript.VTTHeader}
	for start := 0.0; start < total; start += 20 {
		original.Cues = append(original.Cues, transcript.Cue{
			Start: start,
			End:   start + 20,
			Text:  cueLabel(0, start),
		})
	}

	plan, err := segment.Plan(total, segLen, overlap)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	items := make([]Item, len(plan))
	for i, d := range plan {
		local := &transcript.CueTrack{Header: transcript.VTTHeader}
		for _, cue := range original.Cues {
			if cue.Start < d.Start || cue.End > d.End() {
				continue
			}
			local.Cues = append(local.Cues, transcript.Cue{
				Start: cue.Start - d.Start,
				End:   cue.End - d.Start,
				Text:  cue.Text,
			})
		}
		items[i] = Item{Descriptor: d, Result: transcript.Result{Track: local}}
	}

	merged, err := Merge(items, overlap)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got, want := len(merged.Track.Cues), len(original.Cues); got != want {
		t.Fatalf("cue count = %d, want %d", got, want)
	}
	for i, cue := range merged.Track.Cues {
		want := original.Cues[i]
		if cue.Start != want.Start || cue.End != want.End || cue.Text != want.Text {
			t.Fatalf("cue %d = %+v, want %+v", i, cue, want)
		}
	}
}

func TestMergeStructuredShiftsAndJoinsText(t *testing.T) {
	plan, err := segment.Plan(1000, 600, 20)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan) != 2 {
		t.Fatalf("plan length = %d, want 2", len(plan))
	}

	first := &transcript.Structured{
		FullText: "alpha beta",
		Segments: []transcript.SegmentEntry{
			{Start: 0, End: 300, Text: "alpha"},
			{Start: 300, End: 600, Text: "beta"},
		},
		Words: []transcript.Word{
			{Text: "alpha", Start: 0, End: 300},
			{Text: "beta", Start: 300, End: 600},
		},
	}
	// Local entries at 0 and 10 fall inside the shared overlap span and
	// duplicate the first segment's tail.
	second := &transcript.Structured{
		FullText: "beta beta gamma delta",
		Segments: []transcript.SegmentEntry{
			{Start: 0, End: 10, Text: "beta"},
			{Start: 10, End: 20, Text: "beta"},
			{Start: 20, End: 220, Text: "gamma"},
			{Start: 220, End: 420, Text: "delta"},
		},
		Words: []transcript.Word{
			{Text: "beta", Start: 0, End: 10},
			{Text: "beta", Start: 10, End: 20},
			{Text: "gamma", Start: 20, End: 220},
			{Text: "delta", Start: 220, End: 420},
		},
	}
	items := []Item{
		{Descriptor: plan[0], Result: transcript.Result{Structured: first}},
		{Descriptor: plan[1], Result: transcript.Result{Structured: second}},
	}

	merged, err := Merge(items, 20)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	doc := merged.Structured
	if len(doc.Segments) != 4 {
		t.Fatalf("segment count = %d, want 4", len(doc.Segments))
	}
	// Segment 1's offset is the measured end of segment 0 minus the overlap,
	// so local 20 lands at global 600 and local 220 at 800.
	if got := doc.Segments[2]; got.Start != 600 || got.End != 800 || got.Text != "gamma" {
		t.Errorf("third segment = %+v, want {600 800 gamma}", got)
	}
	if got := doc.Segments[3].End; got != 1000 {
		t.Errorf("final segment ends at %.3f, want 1000", got)
	}
	if len(doc.Words) != 4 {
		t.Errorf("word count = %d, want 4", len(doc.Words))
	}
	if doc.FullText != "alpha beta gamma delta" {
		t.Errorf("full text = %q", doc.FullText)
	}
}

func TestMergeBoundaryStartIsKept(t *testing.T) {
	plan, err := segment.Plan(1000, 600, 20)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	items := []Item{
		{Descriptor: plan[0], Result: transcript.Result{Track: &transcript.CueTrack{
			Header: transcript.VTTHeader,
			Cues:   []transcript.Cue{{Start: 0, End: 600, Text: "head"}},
		}}},
		// Local start 20 shifts to exactly the discard threshold and must
		// survive; local start 19.999 must not.
		{Descriptor: plan[1], Result: transcript.Result{Track: &transcript.CueTrack{
			Header: transcript.VTTHeader,
			Cues: []transcript.Cue{
				{Start: 19.999, End: 20, Text: "dropped"},
				{Start: 20, End: 420, Text: "kept"},
			},
		}}},
	}

	merged, err := Merge(items, 20)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	cues := merged.Track.Cues
	if len(cues) != 2 {
		t.Fatalf("cue count = %d, want 2", len(cues))
	}
	if cues[1].Text != "kept" || cues[1].Start != 600 {
		t.Errorf("boundary cue = %+v, want kept at 600", cues[1])
	}
}

func TestMergeEmptySegmentAdvancesByNominalLength(t *testing.T) {
	plan, err := segment.Plan(1500, 600, 20)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	items := []Item{
		{Descriptor: plan[0], Result: syntheticTrack(0, plan[0].Length)},
		{Descriptor: plan[1], Result: transcript.Result{Track: &transcript.CueTrack{Header: transcript.VTTHeader}}},
		{Descriptor: plan[2], Result: syntheticTrack(2, plan[2].Length)},
	}

	merged, err := Merge(items, 20)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	cues := merged.Track.Cues
	// 6 from segment 0, none from the silent middle, 3 kept from segment 2
	// shifted by two nominal steps.
	if len(cues) != 9 {
		t.Fatalf("cue count = %d, want 9", len(cues))
	}
	if got := cues[6].Start; got != 1260 {
		t.Errorf("first cue after the silent segment starts at %.3f, want 1260", got)
	}
}

func TestMergeSingleSegmentIsIdentity(t *testing.T) {
	plan, err := segment.Plan(300, 600, 20)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	result := syntheticTrack(0, plan[0].Length)

	merged, err := Merge([]Item{{Descriptor: plan[0], Result: result}}, 20)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got, want := len(merged.Track.Cues), len(result.Track.Cues); got != want {
		t.Fatalf("cue count = %d, want %d", got, want)
	}
	for i, cue := range merged.Track.Cues {
		if cue != result.Track.Cues[i] {
			t.Errorf("cue %d = %+v, want %+v", i, cue, result.Track.Cues[i])
		}
	}
}

func TestMergeInvariantViolations(t *testing.T) {
	descriptor := segment.Descriptor{Index: 0, Start: 0, Length: 600}
	cases := []struct {
		name string
		cues []transcript.Cue
	}{
		{
			name: "non increasing starts",
			cues: []transcript.Cue{
				{Start: 0, End: 100, Text: "one"},
				{Start: 0, End: 50, Text: "two"},
			},
		},
		{
			name: "deep overlap",
			cues: []transcript.Cue{
				{Start: 0, End: 100, Text: "one"},
				{Start: 50, End: 90, Text: "two"},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items := []Item{{
				Descriptor: descriptor,
				Result:     transcript.Result{Track: &transcript.CueTrack{Header: transcript.VTTHeader, Cues: tc.cues}},
			}}
			if _, err := Merge(items, 20); !errors.Is(err, services.ErrStitchInvariant) {
				t.Fatalf("err = %v, want stitch invariant violation", err)
			}
		})
	}
}

func TestMergeRejectsMixedShapes(t *testing.T) {
	items := []Item{
		{Descriptor: segment.Descriptor{Index: 0, Length: 600}, Result: syntheticTrack(0, 600)},
		{Descriptor: segment.Descriptor{Index: 1, Start: 580, Length: 600}, Result: transcript.Result{Structured: &transcript.Structured{}}},
	}
	if _, err := Merge(items, 20); !errors.Is(err, services.ErrStitchInvariant) {
		t.Fatalf("err = %v, want stitch invariant violation", err)
	}
}

func TestMergeRejectsEmptyInput(t *testing.T) {
	if _, err := Merge(nil, 20); !errors.Is(err, services.ErrStitchInvariant) {
		t.Fatalf("err = %v, want stitch invariant violation", err)
	}
}
