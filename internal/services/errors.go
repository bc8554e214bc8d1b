// Package services defines the error taxonomy shared across pipeline stages.
package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPolicy marks segment/overlap configuration rejected before
	// any media or network activity.
	ErrInvalidPolicy = errors.New("invalid policy")
	// ErrExtraction marks a failed clip materialization. Retryable once.
	ErrExtraction = errors.New("extraction failure")
	// ErrTranscriptionUnavailable marks a transient service failure
	// (network, auth, rate limit). The pipeline retries with backoff.
	ErrTranscriptionUnavailable = errors.New("transcription unavailable")
	// ErrMalformedResponse marks a service payload the parser cannot
	// interpret. Always fatal for the run.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrStitchInvariant marks a post-merge ordering or overlap check
	// failure. Surfaced, never recovered.
	ErrStitchInvariant = errors.New("stitch invariant violation")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTranscriptionUnavailable
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the pipeline may retry the failed operation.
// Only transient service failures and clip extraction qualify; everything
// else aborts the run.
func Retryable(err error) bool {
	return errors.Is(err, ErrTranscriptionUnavailable) || errors.Is(err, ErrExtraction)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
