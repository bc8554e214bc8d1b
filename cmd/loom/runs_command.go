package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"loom/internal/journal"
	"loom/internal/timecode"
)

func newRunsCommand(cmdCtx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the journal of completed transcription runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return err
			}
			return listRuns(cmd, cmdCtx, limit)
		},
	}
	runsCmd.Flags().Int("limit", 20, "Maximum number of runs to show")

	runsCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all journaled runs and cached transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openJournal(cmdCtx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s) from %s\n", removed, store.Path())
			return nil
		},
	})

	return runsCmd
}

func openJournal(cmdCtx *commandContext) (*journal.Store, error) {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Journal.Enabled {
		return nil, fmt.Errorf("journal is disabled in configuration")
	}
	return journal.Open(cfg.Journal.Path)
}

func listRuns(cmd *cobra.Command, cmdCtx *commandContext, limit int) error {
	store, err := openJournal(cmdCtx)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			shortRunID(entry.RunID),
			entry.CreatedAt.Local().Format(time.DateTime),
			filepath.Base(entry.SourcePath),
			entry.Shape,
			timecode.Format(entry.DurationSeconds),
			strconv.Itoa(entry.SegmentCount),
			entry.OutputPath,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Run", "Created", "Source", "Shape", "Duration", "Segments", "Output"},
		rows, 5, 6,
	))
	return nil
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
