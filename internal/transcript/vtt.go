package transcript

import (
	"fmt"
	"strings"

	"loom/internal/timecode"
)

// VTTHeader is the required first line of a cue-track document.
const VTTHeader = "WEBVTT"

// ParseVTT decodes a WebVTT document into a CueTrack. Cue identifiers and
// style blocks are skipped; only timestamp lines and their text survive.
func ParseVTT(data string) (*CueTrack, error) {
	content := strings.TrimSpace(strings.ReplaceAll(data, "\r\n", "\n"))
	if content == "" {
		return nil, fmt.Errorf("empty cue document")
	}

	blocks := strings.Split(content, "\n\n")
	header := strings.TrimSpace(strings.SplitN(blocks[0], "\n", 2)[0])
	if !strings.HasPrefix(header, VTTHeader) {
		return nil, fmt.Errorf("missing %s header", VTTHeader)
	}

	track := &CueTrack{Header: VTTHeader}
	for _, block := range blocks {
		cue, ok, err := parseCueBlock(block)
		if err != nil {
			return nil, err
		}
		if ok {
			track.Cues = append(track.Cues, cue)
		}
	}
	if len(track.Cues) == 0 {
		return nil, fmt.Errorf("cue document has no cues")
	}
	return track, nil
}

func parseCueBlock(block string) (Cue, bool, error) {
	lines := strings.Split(strings.TrimSpace(block), "\n")
	for i, line := range lines {
		if !strings.Contains(line, "-->") {
			continue
		}
		parts := strings.SplitN(line, "-->", 2)
		start, err := timecode.Parse(parts[0])
		if err != nil {
			return Cue{}, false, fmt.Errorf("cue start: %w", err)
		}
		// Trailing cue settings (position, align) follow the end timestamp.
		endField := strings.Fields(strings.TrimSpace(parts[1]))
		if len(endField) == 0 {
			return Cue{}, false, fmt.Errorf("cue end missing in %q", line)
		}
		end, err := timecode.Parse(endField[0])
		if err != nil {
			return Cue{}, false, fmt.Errorf("cue end: %w", err)
		}
		if end <= start {
			return Cue{}, false, fmt.Errorf("cue end %s not after start %s", timecode.Format(end), timecode.Format(start))
		}
		text := strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
		return Cue{Start: start, End: end, Text: text}, true, nil
	}
	return Cue{}, false, nil
}

// RenderVTT serializes a CueTrack back into WebVTT document text.
func RenderVTT(track *CueTrack) string {
	var b strings.Builder
	header := strings.TrimSpace(track.Header)
	if header == "" {
		header = VTTHeader
	}
	b.WriteString(header)
	b.WriteString("\n")
	for _, cue := range track.Cues {
		b.WriteString("\n")
		b.WriteString(timecode.Format(cue.Start))
		b.WriteString(" --> ")
		b.WriteString(timecode.Format(cue.End))
		b.WriteString("\n")
		b.WriteString(cue.Text)
		b.WriteString("\n")
	}
	return b.String()
}
