package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"loom/internal/config"
	"loom/internal/language"
	"loom/internal/media/ffprobe"
	"loom/internal/pipeline"
	"loom/internal/transcript"
)

// ffprobeProber adapts ffprobe inspection to what the pipeline needs.
type ffprobeProber struct {
	binary string
}

func (p *ffprobeProber) Probe(ctx context.Context, path string) (pipeline.SourceInfo, error) {
	result, err := ffprobe.Inspect(ctx, p.binary, path)
	if err != nil {
		return pipeline.SourceInfo{}, err
	}
	return pipeline.SourceInfo{
		DurationSeconds: result.DurationSeconds(),
		AudioStreams:    result.AudioStreamCount(),
		SizeBytes:       result.SizeBytes(),
	}, nil
}

// resolveShape applies the flag override on top of the configured shape.
func resolveShape(cfg *config.Config, flag string) (transcript.Shape, error) {
	value := strings.TrimSpace(flag)
	if value == "" {
		value = cfg.Output.Shape
	}
	shape, ok := transcript.ParseShape(value)
	if !ok {
		return "", fmt.Errorf("unknown shape %q (use cue_track or structured)", value)
	}
	return shape, nil
}

// resolveLanguage normalizes the flag or configured language hint.
func resolveLanguage(cfg *config.Config, flag string) (string, error) {
	value := strings.TrimSpace(flag)
	if value == "" {
		value = cfg.Output.Language
	}
	if value == "" {
		return "", nil
	}
	code := language.ToISO2(value)
	if code == "" {
		return "", fmt.Errorf("unrecognized language %q", value)
	}
	return code, nil
}

// resolveOutputPath picks the transcript destination: the explicit flag, the
// configured output directory, or next to the source file.
func resolveOutputPath(cfg *config.Config, source, flag, extension string) (string, error) {
	if value := strings.TrimSpace(flag); value != "" {
		return config.ExpandPath(value)
	}
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source)) + extension
	if cfg.Output.Dir != "" {
		return filepath.Join(cfg.Output.Dir, base), nil
	}
	return filepath.Join(filepath.Dir(source), base), nil
}
