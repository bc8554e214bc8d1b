// Package language normalizes user-supplied language hints to the ISO 639-1
// codes the transcription service expects.
package language

import (
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Full word forms are not BCP 47 tags, so resolve them before parsing.
var words = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
	"ukrainian":  "uk",
	"turkish":    "tr",
}

// ToISO2 converts a language code, BCP 47 tag, or full language name to its
// ISO 639-1 base code. Region and script subtags are stripped. Returns the
// empty string for unrecognized input.
func ToISO2(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return ""
	}
	if code, ok := words[v]; ok {
		return code
	}
	tag, err := xlang.Parse(v)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == xlang.No {
		return ""
	}
	code := base.String()
	if len(code) != 2 {
		return ""
	}
	return code
}

// DisplayName returns the English name of a recognized language code, or the
// uppercased input when the code cannot be resolved.
func DisplayName(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return "Unknown"
	}
	code := ToISO2(v)
	if code == "" {
		return strings.ToUpper(v)
	}
	tag, err := xlang.Parse(code)
	if err != nil {
		return strings.ToUpper(v)
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(v)
}
