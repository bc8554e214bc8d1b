// Package scribe talks to an OpenAI-compatible audio transcription endpoint.
// The client classifies failures but never retries; retry policy belongs to
// the caller driving the run.
package scribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"loom/internal/services"
	"loom/internal/transcript"
)

const defaultHTTPTimeout = 5 * time.Minute

// Config captures the runtime settings required to talk to the service.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// DefaultHTTPTimeout returns the default timeout used for transcription requests.
func DefaultHTTPTimeout() time.Duration {
	return defaultHTTPTimeout
}

// Client wraps the /audio/transcriptions API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a transcription client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "http://127.0.0.1:9000/v1/audio/transcriptions"
	}
	return client
}

// Request describes one clip transcription.
type Request struct {
	// ClipPath is the audio clip to upload.
	ClipPath string
	// Shape selects the response document shape.
	Shape transcript.Shape
	// Language is an optional ISO 639-1 hint.
	Language string
	// Prompt seeds the service's decoding context. Carries the caller's
	// domain prompt plus the tail of the previous segment's text.
	Prompt string
}

// StatusError reports a non-success HTTP response from the service.
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transcription request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Transcribe uploads one clip and decodes the service response into the
// requested shape. Transport failures and non-success statuses surface as
// service-unavailable errors; a success response that cannot be decoded is
// malformed and must not be retried.
func (c *Client) Transcribe(ctx context.Context, req Request) (transcript.Result, error) {
	var empty transcript.Result
	if strings.TrimSpace(req.ClipPath) == "" {
		return empty, errors.New("transcribe: clip path required")
	}
	if req.Shape != transcript.ShapeCueTrack && req.Shape != transcript.ShapeStructured {
		return empty, fmt.Errorf("transcribe: unknown shape %q", req.Shape)
	}

	body, err := c.send(ctx, req)
	if err != nil {
		return empty, services.Wrap(services.ErrTranscriptionUnavailable, "scribe", "transcribe",
			fmt.Sprintf("clip %s", filepath.Base(req.ClipPath)), err)
	}

	result, err := decodeResponse(req.Shape, body)
	if err != nil {
		return empty, services.Wrap(services.ErrMalformedResponse, "scribe", "decode",
			fmt.Sprintf("clip %s", filepath.Base(req.ClipPath)), err)
	}
	return result, nil
}

func (c *Client) send(ctx context.Context, req Request) ([]byte, error) {
	clip, err := os.Open(req.ClipPath)
	if err != nil {
		return nil, fmt.Errorf("open clip: %w", err)
	}
	defer clip.Close()

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	part, err := writer.CreateFormFile("file", filepath.Base(req.ClipPath))
	if err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if _, err := io.Copy(part, clip); err != nil {
		return nil, fmt.Errorf("read clip: %w", err)
	}
	fields := map[string]string{
		"model":           c.cfg.Model,
		"response_format": responseFormat(req.Shape),
	}
	if lang := strings.TrimSpace(req.Language); lang != "" {
		fields["language"] = lang
	}
	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		fields["prompt"] = prompt
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("build form: %w", err)
		}
	}
	if req.Shape == transcript.ShapeStructured {
		for _, granularity := range []string{"word", "segment"} {
			if err := writer.WriteField("timestamp_granularities[]", granularity); err != nil {
				return nil, fmt.Errorf("build form: %w", err)
			}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, &form)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	return body, nil
}

func responseFormat(shape transcript.Shape) string {
	if shape == transcript.ShapeCueTrack {
		return "vtt"
	}
	return "verbose_json"
}

func decodeResponse(shape transcript.Shape, body []byte) (transcript.Result, error) {
	if shape == transcript.ShapeCueTrack {
		track, err := transcript.ParseVTT(string(body))
		if err != nil {
			return transcript.Result{}, err
		}
		return transcript.Result{Track: track}, nil
	}
	doc, err := transcript.DecodeStructured(body)
	if err != nil {
		return transcript.Result{}, err
	}
	return transcript.Result{Structured: doc}, nil
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
