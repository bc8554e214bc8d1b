// Package extract produces per-segment audio clips with ffmpeg. Clips are
// written inside a scoped workspace directory that is removed when the run
// finishes, whatever the outcome.
package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"loom/internal/segment"
	"loom/internal/services"
	"loom/internal/timecode"
)

// Workspace is a scoped temp directory holding the clips of one run.
type Workspace struct {
	root string
}

// NewWorkspace creates a uniquely named clip directory under parent. An
// empty parent falls back to the system temp directory.
func NewWorkspace(parent string) (*Workspace, error) {
	if strings.TrimSpace(parent) == "" {
		parent = os.TempDir()
	}
	root := filepath.Join(parent, "loom-"+uuid.NewString())
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create clip workspace: %w", err)
	}
	return &Workspace{root: root}, nil
}

// Root returns the workspace directory path.
func (w *Workspace) Root() string {
	return w.root
}

// ClipPath returns the destination path for the clip of one segment.
func (w *Workspace) ClipPath(index int) string {
	return filepath.Join(w.root, fmt.Sprintf("segment-%04d.wav", index))
}

// Close removes the workspace and every clip inside it.
func (w *Workspace) Close() error {
	if w == nil || w.root == "" {
		return nil
	}
	return os.RemoveAll(w.root)
}

// Extractor cuts audio clips out of a source file with ffmpeg.
type Extractor struct {
	// Binary is the ffmpeg executable. Empty means "ffmpeg" on PATH.
	Binary string
}

// Clip extracts the descriptor's time range from source into dest as mono
// 16 kHz PCM WAV, the shape transcription services handle best.
func (e *Extractor) Clip(ctx context.Context, source string, d segment.Descriptor, dest string) error {
	binary := strings.TrimSpace(e.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if d.Length <= 0 {
		return services.Wrap(services.ErrExtraction, "extract", "clip",
			fmt.Sprintf("segment %d has non-positive length %.3f", d.Index, d.Length), nil)
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", timecode.FormatClock(d.Start),
		"-t", timecode.FormatClock(d.Length),
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(dest)
		return services.Wrap(services.ErrExtraction, "extract", "clip",
			fmt.Sprintf("segment %d: %s", d.Index, strings.TrimSpace(string(output))), err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return services.Wrap(services.ErrExtraction, "extract", "clip",
			fmt.Sprintf("segment %d produced no output", d.Index), err)
	}
	if info.Size() == 0 {
		_ = os.Remove(dest)
		return services.Wrap(services.ErrExtraction, "extract", "clip",
			fmt.Sprintf("segment %d produced an empty clip", d.Index), nil)
	}
	return nil
}
