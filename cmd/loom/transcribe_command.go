package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"loom/internal/config"
	"loom/internal/fileutil"
	"loom/internal/journal"
	"loom/internal/logging"
	"loom/internal/media/extract"
	"loom/internal/pipeline"
	"loom/internal/scribe"
	"loom/internal/timecode"
)

func newTranscribeCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		shapeFlag    string
		languageFlag string
		outputFlag   string
		promptFlag   string
		segmentFlag  float64
		overlapFlag  float64
		forceFlag    bool
	)

	cmd := &cobra.Command{
		Use:   "transcribe <media-file>",
		Short: "Transcribe an audio or video file into a cue track or structured JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
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

			shape, err := resolveShape(cfg, shapeFlag)
			if err != nil {
				return err
			}
			lang, err := resolveLanguage(cfg, languageFlag)
			if err != nil {
				return err
			}
			prompt := promptFlag
			if prompt == "" {
				prompt = cfg.Output.Prompt
			}
			segmentSeconds := cfg.Segmentation.SegmentSeconds
			if segmentFlag > 0 {
				segmentSeconds = segmentFlag
			}
			overlapSeconds := cfg.Segmentation.OverlapSeconds
			if cmd.Flags().Changed("overlap-seconds") {
				overlapSeconds = overlapFlag
			}

			// One run at a time per work dir; concurrent runs would fight
			// over the journal and the service quota.
			lock := flock.New(filepath.Join(cfg.Paths.WorkDir, "loom.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire run lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another transcription run is already in progress (lock %s)", lock.Path())
			}
			defer func() {
				_ = lock.Unlock()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fingerprint, err := fileutil.Fingerprint(source)
			if err != nil {
				return fmt.Errorf("fingerprint source: %w", err)
			}

			var store *journal.Store
			if cfg.Journal.Enabled {
				store, err = journal.Open(cfg.Journal.Path)
				if err != nil {
					return fmt.Errorf("open journal: %w", err)
				}
				defer store.Close()
			}
			key := journal.Key{
				Fingerprint:    fingerprint,
				Shape:          string(shape),
				Language:       lang,
				SegmentSeconds: segmentSeconds,
				OverlapSeconds: overlapSeconds,
			}

			out := cmd.OutOrStdout()
			if store != nil && !forceFlag {
				entry, ok, err := store.Lookup(ctx, key)
				if err != nil {
					return err
				}
				if ok {
					outputPath, err := resolveOutputPath(cfg, source, outputFlag, shape.Extension())
					if err != nil {
						return err
					}
					if err := fileutil.WriteFileAtomic(outputPath, entry.Artifact, 0o644); err != nil {
						return fmt.Errorf("write transcript: %w", err)
					}
					fmt.Fprintf(out, "Reused transcript from run %s (%s)\n", entry.RunID, entry.CreatedAt.Format(time.RFC3339))
					fmt.Fprintf(out, "Wrote %s\n", outputPath)
					return nil
				}
			}

			p, err := pipeline.New(pipeline.Deps{
				Prober:    &ffprobeProber{binary: cfg.Tools.FFprobe},
				Extractor: &extract.Extractor{Binary: cfg.Tools.FFmpeg},
				Transcriber: scribe.NewClient(scribe.Config{
					APIKey:         cfg.Service.APIKey,
					BaseURL:        cfg.Service.BaseURL,
					Model:          cfg.Service.Model,
					TimeoutSeconds: cfg.Service.TimeoutSeconds,
				}),
				NewWorkspace: func() (pipeline.Workspace, error) {
					return extract.NewWorkspace(cfg.Paths.WorkDir)
				},
				Logger: logger,
			}, pipeline.Options{
				SegmentSeconds: segmentSeconds,
				OverlapSeconds: overlapSeconds,
				Shape:          shape,
				Language:       lang,
				Prompt:         prompt,
				MaxAttempts:    cfg.Service.MaxAttempts,
				RetryBaseDelay: time.Duration(cfg.Service.RetryBaseSeconds) * time.Second,
				RetryMaxDelay:  time.Duration(cfg.Service.RetryMaxSeconds) * time.Second,
				MaxClipBytes:   int64(cfg.Segmentation.MaxClipMiB) << 20,
			})
			if err != nil {
				return err
			}

			runID := uuid.NewString()
			logger.Info("starting run",
				logging.String("run_id", runID),
				logging.String("source", source),
			)
			report, err := p.Run(ctx, source)
			if err != nil {
				return err
			}

			artifact, err := report.Result.Encode()
			if err != nil {
				return err
			}
			outputPath, err := resolveOutputPath(cfg, source, outputFlag, report.Result.Extension())
			if err != nil {
				return err
			}
			if err := fileutil.WriteFileAtomic(outputPath, artifact, 0o644); err != nil {
				return fmt.Errorf("write transcript: %w", err)
			}

			if store != nil {
				entry := journal.Entry{
					RunID:           runID,
					SourcePath:      source,
					Fingerprint:     fingerprint,
					Shape:           string(shape),
					Language:        lang,
					SegmentSeconds:  segmentSeconds,
					OverlapSeconds:  overlapSeconds,
					DurationSeconds: report.DurationSeconds,
					SegmentCount:    len(report.Segments),
					OutputPath:      outputPath,
					Artifact:        artifact,
				}
				if _, err := store.Record(ctx, entry); err != nil {
					logger.Warn("journal record failed", logging.Error(err))
				}
			}

			fmt.Fprintf(out, "Transcribed %s of audio in %d segments (%d requests, %s)\n",
				timecode.Format(report.DurationSeconds), len(report.Segments), report.Attempts,
				report.Elapsed.Round(time.Second))
			fmt.Fprintf(out, "Wrote %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&shapeFlag, "shape", "", "Output shape: cue_track or structured")
	cmd.Flags().StringVar(&languageFlag, "language", "", "Language hint (ISO 639-1 code or name)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file path")
	cmd.Flags().StringVar(&promptFlag, "prompt", "", "Context prompt sent with every segment")
	cmd.Flags().Float64Var(&segmentFlag, "segment-seconds", 0, "Segment length override in seconds")
	cmd.Flags().Float64Var(&overlapFlag, "overlap-seconds", 0, "Segment overlap override in seconds")
	cmd.Flags().BoolVar(&forceFlag, "force", false, "Transcribe even when a cached run exists")
	return cmd
}
