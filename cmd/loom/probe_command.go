package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"loom/internal/config"
	"loom/internal/media/ffprobe"
	"loom/internal/timecode"
)

func newProbeCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <media-file>",
		Short: "Inspect a file's container and audio streams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(source); err != nil {
				return fmt.Errorf("source file: %w", err)
			}

			result, err := ffprobe.Inspect(cmd.Context(), cfg.Tools.FFprobe, source)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:     %s\n", source)
			fmt.Fprintf(out, "Format:   %s\n", valueOr(result.Format.FormatName, "unknown"))
			if duration := result.DurationSeconds(); duration > 0 {
				fmt.Fprintf(out, "Duration: %s\n", timecode.Format(duration))
			} else {
				fmt.Fprintln(out, "Duration: unknown")
			}
			if size := result.SizeBytes(); size > 0 {
				fmt.Fprintf(out, "Size:     %.1f MiB\n", float64(size)/(1<<20))
			}
			fmt.Fprintf(out, "Streams:  %d total, %d audio\n", len(result.Streams), result.AudioStreamCount())

			rows := make([][]string, 0, len(result.Streams))
			for _, stream := range result.Streams {
				if !strings.EqualFold(stream.CodecType, "audio") {
					continue
				}
				rows = append(rows, []string{
					strconv.Itoa(stream.Index),
					valueOr(stream.CodecName, "?"),
					valueOr(stream.SampleRate, "?"),
					strconv.Itoa(stream.Channels),
				})
			}
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"#", "Codec", "Sample Rate", "Channels"}, rows, 1, 4))
			} else {
				fmt.Fprintln(out, "No audio streams found; this file cannot be transcribed.")
			}
			return nil
		},
	}
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
