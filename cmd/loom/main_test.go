package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	workDir    string
	outputDir  string
	binDir     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		workDir:    filepath.Join(base, "work"),
		outputDir:  filepath.Join(base, "out"),
		binDir:     filepath.Join(base, "bin"),
	}
	for _, dir := range []string{env.workDir, env.outputDir, env.binDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	content := fmt.Sprintf(`[paths]
work_dir = %q
log_dir = %q

[tools]
ffmpeg = %q
ffprobe = %q

[output]
dir = %q

[journal]
enabled = true
path = %q

[logging]
format = "json"
level = "warn"
`,
		env.workDir,
		filepath.Join(base, "logs"),
		filepath.Join(env.binDir, "ffmpeg"),
		filepath.Join(env.binDir, "ffprobe"),
		env.outputDir,
		filepath.Join(base, "journal.db"),
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

// stubFFprobe installs an ffprobe stand-in that prints the given JSON.
func (e *cliTestEnv) stubFFprobe(t *testing.T, payload string) {
	t.Helper()
	script := "#!/bin/sh\ncat <<'JSON'\n" + payload + "\nJSON\n"
	if err := os.WriteFile(filepath.Join(e.binDir, "ffprobe"), []byte(script), 0o755); err != nil {
		t.Fatalf("write ffprobe stub: %v", err)
	}
}

// stubFFmpeg installs an ffmpeg stand-in that writes dummy bytes to the
// destination path, which is always the final argument.
func (e *cliTestEnv) stubFFmpeg(t *testing.T) {
	t.Helper()
	script := `#!/bin/sh
for last in "$@"; do :; done
printf 'RIFF0000' > "$last"
`
	if err := os.WriteFile(filepath.Join(e.binDir, "ffmpeg"), []byte(script), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
}

func (e *cliTestEnv) writeSource(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.baseDir, name)
	if err := os.WriteFile(path, []byte("not really media"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

const probeJSON = `{
  "streams": [
    {"index": 0, "codec_name": "aac", "codec_type": "audio", "duration": "1500.0", "sample_rate": "48000", "channels": 2}
  ],
  "format": {"format_name": "mov,mp4", "duration": "1500.000000", "size": "1048576", "nb_streams": 1}
}`

func TestCLIConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(env.baseDir, "fresh", "config.toml")
	out, _, err = runCLI(t, env.configPath, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err = runCLI(t, env.configPath, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
}

func TestCLIProbeAndPlan(t *testing.T) {
	env := setupCLITestEnv(t)
	env.stubFFprobe(t, probeJSON)
	source := env.writeSource(t, "talk.mp4")

	out, _, err := runCLI(t, env.configPath, "probe", source)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	requireContains(t, out, "Duration: 00:25:00.000")
	requireContains(t, out, "1 audio")
	requireContains(t, out, "aac")

	out, _, err = runCLI(t, env.configPath, "plan", source)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireContains(t, out, "3 segments")
	requireContains(t, out, "00:09:40.000")
	requireContains(t, out, "00:19:20.000")

	out, _, err = runCLI(t, env.configPath, "plan", source, "--segment-seconds", "1500")
	if err != nil {
		t.Fatalf("plan single segment: %v", err)
	}
	requireContains(t, out, "1 segments")
}

func TestCLITranscribeAndJournalReuse(t *testing.T) {
	env := setupCLITestEnv(t)
	env.stubFFmpeg(t)
	env.stubFFprobe(t, `{
  "streams": [{"index": 0, "codec_type": "audio", "duration": "30.0", "channels": 1}],
  "format": {"duration": "30.0", "size": "4096"}
}`)
	source := env.writeSource(t, "clip.mp4")

	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, "WEBVTT\n\n00:00:00.000 --> 00:00:05.000\nhello from the stub\n")
	}))
	defer server.Close()

	appendConfig(t, env.configPath, fmt.Sprintf("\n[service]\nbase_url = %q\napi_key = \"test\"\n", server.URL))

	out, _, err := runCLI(t, env.configPath, "transcribe", source)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	requireContains(t, out, "Transcribed 00:00:30.000 of audio in 1 segments")

	outputPath := filepath.Join(env.outputDir, "clip.vtt")
	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	requireContains(t, string(data), "WEBVTT")
	requireContains(t, string(data), "hello from the stub")
	if requests != 1 {
		t.Fatalf("expected 1 service request, got %d", requests)
	}

	out, _, err = runCLI(t, env.configPath, "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "clip.mp4")
	requireContains(t, out, "cue_track")

	// Same source and policy again: the journal serves the cached artifact
	// without touching the service.
	out, _, err = runCLI(t, env.configPath, "transcribe", source)
	if err != nil {
		t.Fatalf("transcribe reuse: %v", err)
	}
	requireContains(t, out, "Reused transcript from run")
	if requests != 1 {
		t.Fatalf("expected cached reuse, service saw %d requests", requests)
	}

	out, _, err = runCLI(t, env.configPath, "transcribe", source, "--force")
	if err != nil {
		t.Fatalf("transcribe --force: %v", err)
	}
	requireContains(t, out, "Transcribed")
	if requests != 2 {
		t.Fatalf("expected --force to hit the service, got %d requests", requests)
	}

	out, _, err = runCLI(t, env.configPath, "runs", "clear")
	if err != nil {
		t.Fatalf("runs clear: %v", err)
	}
	requireContains(t, out, "Removed 2 run(s)")
}

func TestCLIRunsEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env.configPath, "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "No runs recorded yet.")
}

func appendConfig(t *testing.T, path, extra string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(extra); err != nil {
		t.Fatalf("append config: %v", err)
	}
}
