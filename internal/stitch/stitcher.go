// Package stitch folds ordered per-segment transcription results into one
// continuous transcript. Consecutive segments intentionally re-cover overlap
// seconds of audio; the stitcher maps each segment's local timestamps onto
// the global timeline, discards items duplicating the previous segment's
// tail, and verifies the merged timeline is monotonic and gap-consistent.
package stitch

import (
	"fmt"
	"strings"

	"loom/internal/segment"
	"loom/internal/services"
	"loom/internal/timecode"
	"loom/internal/transcript"
)

// Item pairs a segment descriptor with the result its clip produced.
type Item struct {
	Descriptor segment.Descriptor
	Result     transcript.Result
}

// invariantTolerance bounds how far two adjacent kept items may overlap in
// time before the merge is considered broken. Service timing jitter sits
// well below this; anything larger indicates a policy or offset bug.
const invariantTolerance = 0.25

// tieEpsilon absorbs float error when a shifted start lands exactly on the
// discard threshold; the boundary is inclusive on the keep side.
const tieEpsilon = 1e-6

// Merge stitches the ordered items into a single transcript of the same
// shape. overlap is the policy overlap the segments were planned with.
//
// The running offset is chained from measured content: segment 0 keeps its
// timestamps as-is; each later segment is shifted so its clip start lands
// where the previous segment's recognized content ended, minus the shared
// overlap span. Items whose shifted start falls inside that overlap span
// duplicate the previous tail and are dropped. Advancing by measured ends
// rather than nominal segment length keeps drift from accumulating when
// recognized speech does not fill the nominal window.
func Merge(items []Item, overlap float64) (transcript.Result, error) {
	if len(items) == 0 {
		return transcript.Result{}, services.Wrap(services.ErrStitchInvariant, "stitch", "merge", "no segment results", nil)
	}
	shape := items[0].Result.Shape()
	for _, item := range items {
		if item.Result.Shape() != shape {
			return transcript.Result{}, services.Wrap(services.ErrStitchInvariant, "stitch", "merge",
				fmt.Sprintf("segment %d shape %s differs from %s", item.Descriptor.Index, item.Result.Shape(), shape), nil)
		}
		if item.Result.Track == nil && item.Result.Structured == nil {
			return transcript.Result{}, services.Wrap(services.ErrStitchInvariant, "stitch", "merge",
				fmt.Sprintf("segment %d carries no transcript document", item.Descriptor.Index), nil)
		}
	}

	var merged transcript.Result
	var err error
	switch shape {
	case transcript.ShapeCueTrack:
		merged, err = mergeCueTracks(items, overlap)
	default:
		merged, err = mergeStructured(items, overlap)
	}
	if err != nil {
		return transcript.Result{}, err
	}
	if err := checkInvariants(merged); err != nil {
		return transcript.Result{}, err
	}
	return merged, nil
}

func mergeCueTracks(items []Item, overlap float64) (transcript.Result, error) {
	out := &transcript.CueTrack{Header: transcript.VTTHeader}
	if items[0].Result.Track != nil && items[0].Result.Track.Header != "" {
		out.Header = items[0].Result.Track.Header
	}

	offset := 0.0
	for i, item := range items {
		track := item.Result.Track
		measured := 0.0
		threshold := offset + overlap
		for _, cue := range track.Cues {
			if cue.End > measured {
				measured = cue.End
			}
			shifted := cue.Start + offset
			if i > 0 && shifted+tieEpsilon < threshold {
				continue
			}
			out.Cues = append(out.Cues, transcript.Cue{
				Start: shifted,
				End:   cue.End + offset,
				Text:  cue.Text,
			})
		}
		offset += advance(measured, item.Descriptor, overlap, i == len(items)-1)
	}
	return transcript.Result{Track: out}, nil
}

func mergeStructured(items []Item, overlap float64) (transcript.Result, error) {
	out := &transcript.Structured{}
	var textParts []string

	offset := 0.0
	for i, item := range items {
		doc := item.Result.Structured
		measured := 0.0
		threshold := offset + overlap
		for _, seg := range doc.Segments {
			if seg.End > measured {
				measured = seg.End
			}
			shifted := seg.Start + offset
			if i > 0 && shifted+tieEpsilon < threshold {
				continue
			}
			out.Segments = append(out.Segments, transcript.SegmentEntry{
				Start: shifted,
				End:   seg.End + offset,
				Text:  seg.Text,
			})
			if text := strings.TrimSpace(seg.Text); text != "" {
				textParts = append(textParts, text)
			}
		}
		for _, word := range doc.Words {
			if word.End > measured {
				measured = word.End
			}
			shifted := word.Start + offset
			if i > 0 && shifted+tieEpsilon < threshold {
				continue
			}
			out.Words = append(out.Words, transcript.Word{
				Text:  word.Text,
				Start: shifted,
				End:   word.End + offset,
			})
		}
		offset += advance(measured, item.Descriptor, overlap, i == len(items)-1)
	}

	out.FullText = strings.Join(textParts, " ")
	return transcript.Result{Structured: out}, nil
}

// advance computes how far the running offset moves past the current
// segment. The measured content end is preferred; a segment with no
// recognized items advances by its nominal length so the timeline keeps
// place. Every non-final segment shares overlap seconds with its successor,
// so that span is not counted twice.
func advance(measured float64, d segment.Descriptor, overlap float64, last bool) float64 {
	span := measured
	if span <= 0 {
		span = d.Length
	}
	if last {
		return span
	}
	step := span - overlap
	if step < 0 {
		step = 0
	}
	return step
}

func checkInvariants(result transcript.Result) error {
	switch {
	case result.Track != nil:
		for i := 1; i < len(result.Track.Cues); i++ {
			prev, cur := result.Track.Cues[i-1], result.Track.Cues[i]
			if cur.Start <= prev.Start {
				return invariantErr("cue", i, prev.Start, cur.Start)
			}
			if prev.End > cur.Start+invariantTolerance {
				return overlapErr("cue", i, prev.End, cur.Start)
			}
		}
	case result.Structured != nil:
		for i := 1; i < len(result.Structured.Segments); i++ {
			prev, cur := result.Structured.Segments[i-1], result.Structured.Segments[i]
			if cur.Start <= prev.Start {
				return invariantErr("segment", i, prev.Start, cur.Start)
			}
			if prev.End > cur.Start+invariantTolerance {
				return overlapErr("segment", i, prev.End, cur.Start)
			}
		}
		for i := 1; i < len(result.Structured.Words); i++ {
			prev, cur := result.Structured.Words[i-1], result.Structured.Words[i]
			if cur.Start <= prev.Start {
				return invariantErr("word", i, prev.Start, cur.Start)
			}
			if prev.End > cur.Start+invariantTolerance {
				return overlapErr("word", i, prev.End, cur.Start)
			}
		}
	}
	return nil
}

func invariantErr(kind string, index int, prevStart, start float64) error {
	return services.Wrap(services.ErrStitchInvariant, "stitch", "order",
		fmt.Sprintf("%s %d start %s not after previous start %s",
			kind, index, timecode.Format(start), timecode.Format(prevStart)), nil)
}

func overlapErr(kind string, index int, prevEnd, start float64) error {
	return services.Wrap(services.ErrStitchInvariant, "stitch", "overlap",
		fmt.Sprintf("%s %d starts %s before previous end %s",
			kind, index, timecode.Format(start), timecode.Format(prevEnd)), nil)
}
