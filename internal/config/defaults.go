package config

const (
	defaultWorkDir             = "~/.local/share/loom/work"
	defaultLogDir              = "~/.local/share/loom/logs"
	defaultJournalPath         = "~/.local/share/loom/journal.db"
	defaultServiceModel        = "whisper-1"
	defaultServiceTimeout      = 300
	defaultServiceMaxAttempts  = 5
	defaultServiceRetryBase    = 1
	defaultServiceRetryMax     = 30
	defaultSegmentSeconds      = 600
	defaultOverlapSeconds      = 20
	defaultMaxClipMiB          = 128
	defaultOutputShape         = "cue_track"
	defaultLogFormat           = "auto"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Tools: Tools{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
		},
		Service: Service{
			Model:            defaultServiceModel,
			TimeoutSeconds:   defaultServiceTimeout,
			MaxAttempts:      defaultServiceMaxAttempts,
			RetryBaseSeconds: defaultServiceRetryBase,
			RetryMaxSeconds:  defaultServiceRetryMax,
		},
		Segmentation: Segmentation{
			SegmentSeconds: defaultSegmentSeconds,
			OverlapSeconds: defaultOverlapSeconds,
			MaxClipMiB:     defaultMaxClipMiB,
		},
		Output: Output{
			Shape: defaultOutputShape,
		},
		Journal: Journal{
			Enabled: true,
			Path:    defaultJournalPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
