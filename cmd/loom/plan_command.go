package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"loom/internal/config"
	"loom/internal/media/ffprobe"
	"loom/internal/segment"
	"loom/internal/timecode"
)

func newPlanCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		segmentFlag float64
		overlapFlag float64
	)

	cmd := &cobra.Command{
		Use:   "plan <media-file>",
		Short: "Show how a file would be split into segments without transcribing it",
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
			duration := result.DurationSeconds()
			if duration <= 0 {
				return fmt.Errorf("%s reports no duration; cannot plan segments", source)
			}

			segmentSeconds := cfg.Segmentation.SegmentSeconds
			if segmentFlag > 0 {
				segmentSeconds = segmentFlag
			}
			overlapSeconds := cfg.Segmentation.OverlapSeconds
			if cmd.Flags().Changed("overlap-seconds") {
				overlapSeconds = overlapFlag
			}

			plan, err := segment.Plan(duration, segmentSeconds, overlapSeconds)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(plan))
			for _, d := range plan {
				rows = append(rows, []string{
					strconv.Itoa(d.Index),
					timecode.Format(d.Start),
					timecode.Format(d.End()),
					timecode.Format(d.Length),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s of audio, %d segments (%.0fs length, %.0fs overlap)\n",
				source, timecode.Format(duration), len(plan), segmentSeconds, overlapSeconds)
			fmt.Fprintln(out, renderTable([]string{"#", "Start", "End", "Length"}, rows, 1))
			return nil
		},
	}

	cmd.Flags().Float64Var(&segmentFlag, "segment-seconds", 0, "Segment length override in seconds")
	cmd.Flags().Float64Var(&overlapFlag, "overlap-seconds", 0, "Segment overlap override in seconds")
	return cmd
}
