package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateService(); err != nil {
		return err
	}
	if err := c.validateSegmentation(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateService() error {
	if c.Service.TimeoutSeconds < 0 {
		return errors.New("service.timeout_seconds must not be negative")
	}
	if c.Service.MaxAttempts < 1 {
		return errors.New("service.max_attempts must be at least 1")
	}
	if c.Service.RetryBaseSeconds < 0 || c.Service.RetryMaxSeconds < 0 {
		return errors.New("service retry delays must not be negative")
	}
	if c.Service.RetryMaxSeconds > 0 && c.Service.RetryBaseSeconds > c.Service.RetryMaxSeconds {
		return errors.New("service.retry_base_seconds must not exceed service.retry_max_seconds")
	}
	return nil
}

func (c *Config) validateSegmentation() error {
	if c.Segmentation.SegmentSeconds <= 0 {
		return errors.New("segmentation.segment_seconds must be positive")
	}
	if c.Segmentation.OverlapSeconds < 0 {
		return errors.New("segmentation.overlap_seconds must not be negative")
	}
	if c.Segmentation.OverlapSeconds >= c.Segmentation.SegmentSeconds {
		return errors.New("segmentation.overlap_seconds must be smaller than segmentation.segment_seconds")
	}
	if c.Segmentation.MaxClipMiB <= 0 {
		return errors.New("segmentation.max_clip_mib must be positive")
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Shape {
	case "cue_track", "structured":
		return nil
	}
	return fmt.Errorf("output.shape must be cue_track or structured, got %q", c.Output.Shape)
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console, or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
