// Package timecode converts between textual timestamps and seconds.
//
// Two textual flavors appear in this repository: the cue-track form
// "HH:MM:SS.mmm" used by WebVTT documents, and the clock form passed to
// ffmpeg -ss/-t arguments. Both round-trip through float64 seconds.
package timecode

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse converts an "HH:MM:SS[.mmm]" (or "HH:MM:SS[,mmm]") timestamp to
// seconds. The fractional part is optional; comma and period separators are
// both accepted since SRT-style sources use the comma.
func Parse(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ",", ".")

	var fraction float64
	if idx := strings.IndexByte(value, '.'); idx >= 0 {
		frac, err := strconv.ParseFloat("0"+value[idx:], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		fraction = frac
		value = value[:idx]
	}

	hms := strings.Split(value, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	if errH != nil || errM != nil || errS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + fraction, nil
}

// Format renders seconds as "HH:MM:SS.mmm", the WebVTT cue timestamp form.
// Negative inputs clamp to zero.
func Format(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int64(seconds*1000 + 0.5)
	hours := totalMs / (3600 * 1000)
	totalMs %= 3600 * 1000
	minutes := totalMs / (60 * 1000)
	totalMs %= 60 * 1000
	secs := totalMs / 1000
	millis := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, millis)
}

// FormatClock renders seconds in the form ffmpeg accepts for -ss and -t.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := seconds - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}
