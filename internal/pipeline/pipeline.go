// Package pipeline drives a transcription run end to end: probe the source,
// plan overlapping segments, extract and transcribe each clip in order, then
// stitch the per-segment results into one transcript. Segments are processed
// strictly sequentially so each segment's context hint can carry the tail of
// the previous segment's text.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"loom/internal/logging"
	"loom/internal/scribe"
	"loom/internal/segment"
	"loom/internal/services"
	"loom/internal/stitch"
	"loom/internal/transcript"
)

const (
	defaultContextWords   = 50
	defaultMaxAttempts    = 5
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 30 * time.Second
)

// Status names the stage a run is in.
type Status string

const (
	StatusPending      Status = "pending"
	StatusExtracting   Status = "extracting"
	StatusTranscribing Status = "transcribing"
	StatusMerged       Status = "merged"
	StatusFailed       Status = "failed"
)

// SourceInfo is what the pipeline needs to know about a source file.
type SourceInfo struct {
	DurationSeconds float64
	AudioStreams    int
	SizeBytes       int64
}

// Prober reads source metadata.
type Prober interface {
	Probe(ctx context.Context, path string) (SourceInfo, error)
}

// Extractor cuts one segment's audio clip out of the source.
type Extractor interface {
	Clip(ctx context.Context, source string, d segment.Descriptor, dest string) error
}

// Transcriber turns one clip into a transcript document.
type Transcriber interface {
	Transcribe(ctx context.Context, req scribe.Request) (transcript.Result, error)
}

// Workspace provides scoped storage for the clips of one run.
type Workspace interface {
	ClipPath(index int) string
	Close() error
}

// Deps are the pipeline's collaborators. Logger may be nil.
type Deps struct {
	Prober      Prober
	Extractor   Extractor
	Transcriber Transcriber
	// NewWorkspace creates the clip workspace for a run.
	NewWorkspace func() (Workspace, error)
	Logger       *slog.Logger
	// OnStatus, when set, observes stage transitions.
	OnStatus func(Status)
}

// Options control one run.
type Options struct {
	SegmentSeconds float64
	OverlapSeconds float64
	Shape          transcript.Shape
	// Language is an ISO 639-1 hint forwarded to the service.
	Language string
	// Prompt is the caller's domain context, sent with every segment.
	Prompt string
	// ContextWords caps how many trailing words of the previous segment's
	// text seed the next request. 0 means the default.
	ContextWords int
	// MaxAttempts bounds transcription attempts per segment. 0 means the default.
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	// MaxClipBytes aborts the run when an extracted clip exceeds it. 0
	// disables the guard.
	MaxClipBytes int64
}

// Report summarizes a completed run.
type Report struct {
	Result          transcript.Result
	DurationSeconds float64
	Segments        []segment.Descriptor
	// Attempts counts transcription requests across all segments,
	// including retries.
	Attempts int
	Elapsed  time.Duration
}

// Pipeline runs transcriptions.
type Pipeline struct {
	deps    Deps
	opts    Options
	logger  *slog.Logger
	sleeper func(time.Duration)
}

// Option customizes the pipeline.
type Option func(*Pipeline)

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(p *Pipeline) {
		p.sleeper = sleeper
	}
}

// New constructs a pipeline. Deps must carry a prober, extractor,
// transcriber, and workspace factory.
func New(deps Deps, opts Options, optFns ...Option) (*Pipeline, error) {
	if deps.Prober == nil || deps.Extractor == nil || deps.Transcriber == nil || deps.NewWorkspace == nil {
		return nil, errors.New("pipeline: prober, extractor, transcriber, and workspace factory required")
	}
	if opts.Shape != transcript.ShapeCueTrack && opts.Shape != transcript.ShapeStructured {
		return nil, fmt.Errorf("pipeline: unknown shape %q", opts.Shape)
	}
	if opts.ContextWords <= 0 {
		opts.ContextWords = defaultContextWords
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = defaultRetryBaseDelay
	}
	if opts.RetryMaxDelay <= 0 {
		opts.RetryMaxDelay = defaultRetryMaxDelay
	}
	p := &Pipeline{
		deps:   deps,
		opts:   opts,
		logger: logging.WithComponent(deps.Logger, "pipeline"),
	}
	for _, fn := range optFns {
		fn(p)
	}
	return p, nil
}

// Run transcribes source and returns the stitched transcript.
func (p *Pipeline) Run(ctx context.Context, source string) (*Report, error) {
	report, err := p.run(ctx, source)
	if err != nil {
		p.setStatus(StatusFailed)
		return nil, err
	}
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, source string) (*Report, error) {
	started := time.Now()
	p.setStatus(StatusPending)

	info, err := p.deps.Prober.Probe(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("probe source: %w", err)
	}
	if info.AudioStreams == 0 {
		return nil, fmt.Errorf("probe source: %s has no audio streams", source)
	}
	if info.DurationSeconds <= 0 {
		return nil, fmt.Errorf("probe source: %s reports no duration; cannot plan segments", source)
	}

	plan, err := segment.Plan(info.DurationSeconds, p.opts.SegmentSeconds, p.opts.OverlapSeconds)
	if err != nil {
		return nil, err
	}
	p.logger.Info("run planned",
		logging.String("source", source),
		logging.Float64("duration_seconds", info.DurationSeconds),
		logging.Int("segments", len(plan)),
		logging.String("shape", string(p.opts.Shape)),
	)

	workspace, err := p.deps.NewWorkspace()
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	defer func() {
		if closeErr := workspace.Close(); closeErr != nil {
			p.logger.Warn("workspace cleanup failed", logging.Error(closeErr))
		}
	}()

	items := make([]stitch.Item, 0, len(plan))
	attempts := 0
	contextHint := ""
	for _, d := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p.setStatus(StatusExtracting)
		clip := workspace.ClipPath(d.Index)
		if err := p.extract(ctx, source, d, clip); err != nil {
			return nil, err
		}
		if err := p.checkClipSize(clip, d); err != nil {
			return nil, err
		}

		p.setStatus(StatusTranscribing)
		result, segmentAttempts, err := p.transcribe(ctx, scribe.Request{
			ClipPath: clip,
			Shape:    p.opts.Shape,
			Language: p.opts.Language,
			Prompt:   p.buildPrompt(contextHint),
		}, d)
		attempts += segmentAttempts
		if err != nil {
			return nil, err
		}

		// Clips are large; drop each one as soon as it is transcribed
		// rather than waiting for workspace teardown.
		_ = os.Remove(clip)

		items = append(items, stitch.Item{Descriptor: d, Result: result})
		if text := result.Text(); text != "" {
			contextHint = transcript.TailWords(text, p.opts.ContextWords)
		}
		p.logger.Info("segment transcribed",
			logging.Int("segment", d.Index),
			logging.Int("attempts", segmentAttempts),
			logging.Bool("empty", result.Empty()),
		)
	}

	merged, err := stitch.Merge(items, p.opts.OverlapSeconds)
	if err != nil {
		return nil, err
	}
	p.setStatus(StatusMerged)
	p.logger.Info("run merged",
		logging.Int("segments", len(items)),
		logging.Duration("elapsed", time.Since(started)),
	)

	return &Report{
		Result:          merged,
		DurationSeconds: info.DurationSeconds,
		Segments:        plan,
		Attempts:        attempts,
		Elapsed:         time.Since(started),
	}, nil
}

func (p *Pipeline) setStatus(status Status) {
	if p.deps.OnStatus != nil {
		p.deps.OnStatus(status)
	}
}

// extract runs ffmpeg for one segment, retrying once since extraction
// failures are usually transient disk or process hiccups.
func (p *Pipeline) extract(ctx context.Context, source string, d segment.Descriptor, clip string) error {
	err := p.deps.Extractor.Clip(ctx, source, d, clip)
	if err == nil {
		return nil
	}
	if !errors.Is(err, services.ErrExtraction) || ctx.Err() != nil {
		return err
	}
	p.logger.Warn("extraction failed, retrying once",
		logging.Int("segment", d.Index),
		logging.Error(err),
	)
	return p.deps.Extractor.Clip(ctx, source, d, clip)
}

func (p *Pipeline) checkClipSize(clip string, d segment.Descriptor) error {
	if p.opts.MaxClipBytes <= 0 {
		return nil
	}
	info, err := os.Stat(clip)
	if err != nil {
		return services.Wrap(services.ErrExtraction, "pipeline", "clip-size",
			fmt.Sprintf("segment %d clip missing", d.Index), err)
	}
	if info.Size() > p.opts.MaxClipBytes {
		return services.Wrap(services.ErrExtraction, "pipeline", "clip-size",
			fmt.Sprintf("segment %d clip is %d bytes, limit %d; lower segment_seconds", d.Index, info.Size(), p.opts.MaxClipBytes), nil)
	}
	return nil
}

func (p *Pipeline) transcribe(ctx context.Context, req scribe.Request, d segment.Descriptor) (transcript.Result, int, error) {
	var empty transcript.Result
	for attempt := 1; ; attempt++ {
		result, err := p.deps.Transcriber.Transcribe(ctx, req)
		if err == nil {
			return result, attempt, nil
		}
		if !errors.Is(err, services.ErrTranscriptionUnavailable) {
			return empty, attempt, err
		}
		if attempt >= p.opts.MaxAttempts {
			return empty, attempt, fmt.Errorf("segment %d: failed after %d attempts: %w", d.Index, attempt, err)
		}
		if ctx.Err() != nil {
			return empty, attempt, ctx.Err()
		}

		delay := p.backoffDelay(attempt)
		var statusErr *scribe.StatusError
		if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
			delay = p.capDelay(statusErr.RetryAfter)
		}
		p.logger.Warn("transcription unavailable, backing off",
			logging.Int("segment", d.Index),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if err := p.sleep(ctx, delay); err != nil {
			return empty, attempt, err
		}
	}
}

func (p *Pipeline) buildPrompt(contextHint string) string {
	parts := make([]string, 0, 2)
	if p.opts.Prompt != "" {
		parts = append(parts, p.opts.Prompt)
	}
	if contextHint != "" {
		parts = append(parts, contextHint)
	}
	return strings.Join(parts, " ")
}

// backoffDelay doubles per attempt: attempt 1 -> base, attempt 2 -> base*2, ...
func (p *Pipeline) backoffDelay(attempt int) time.Duration {
	delay := p.opts.RetryBaseDelay
	for i := 1; i < attempt; i++ {
		if delay > p.opts.RetryMaxDelay/2 {
			return p.opts.RetryMaxDelay
		}
		delay *= 2
	}
	return p.capDelay(delay)
}

func (p *Pipeline) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if delay > p.opts.RetryMaxDelay {
		return p.opts.RetryMaxDelay
	}
	return delay
}

func (p *Pipeline) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if p.sleeper != nil {
		p.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
