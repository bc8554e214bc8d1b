// Package segment computes the ordered segment plan covering a source
// duration. Each segment after the first begins overlap seconds before its
// nominal boundary so that words spoken across a cut are captured by at
// least one segment; the stitcher removes the duplicated span afterward.
package segment

import (
	"fmt"

	"loom/internal/services"
)

// Descriptor identifies one bounded time slice of the source audio.
type Descriptor struct {
	Index  int
	Start  float64
	Length float64
}

// End returns the exclusive end offset of the descriptor's interval.
func (d Descriptor) End() float64 {
	return d.Start + d.Length
}

// Plan computes the segment descriptors for a source of totalDuration
// seconds. segmentLength and overlap are the policy parameters; overlap must
// be shorter than segmentLength. A source no longer than one segment yields
// a single descriptor spanning the whole duration.
func Plan(totalDuration, segmentLength, overlap float64) ([]Descriptor, error) {
	if segmentLength <= 0 {
		return nil, services.Wrap(services.ErrInvalidPolicy, "segment", "plan",
			fmt.Sprintf("segment length %.3fs must be positive", segmentLength), nil)
	}
	if overlap < 0 || overlap >= segmentLength {
		return nil, services.Wrap(services.ErrInvalidPolicy, "segment", "plan",
			fmt.Sprintf("overlap %.3fs must satisfy 0 <= overlap < segment length %.3fs", overlap, segmentLength), nil)
	}
	if totalDuration <= 0 {
		return nil, services.Wrap(services.ErrInvalidPolicy, "segment", "plan",
			fmt.Sprintf("total duration %.3fs must be positive", totalDuration), nil)
	}

	if totalDuration <= segmentLength {
		return []Descriptor{{Index: 0, Start: 0, Length: totalDuration}}, nil
	}

	// Each boundary is the previous segment's end pulled back by overlap,
	// so starts advance by segmentLength-overlap per step.
	step := segmentLength - overlap
	var plan []Descriptor
	for i := 0; ; i++ {
		start := float64(i) * step
		if start >= totalDuration {
			break
		}
		length := segmentLength
		if start+length > totalDuration {
			length = totalDuration - start
		}
		plan = append(plan, Descriptor{Index: i, Start: start, Length: length})
		if start+length >= totalDuration {
			break
		}
	}
	return plan, nil
}
