package language

import "testing"

func TestToISO2(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"en", "en"},
		{"EN", "en"},
		{" fr ", "fr"},
		{"English", "en"},
		{"portuguese", "pt"},
		{"pt-BR", "pt"},
		{"zh-Hans", "zh"},
		{"", ""},
		{"not a language", ""},
	}
	for _, tc := range cases {
		if got := ToISO2(tc.input); got != tc.want {
			t.Errorf("ToISO2(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"en", "English"},
		{"german", "German"},
		{"", "Unknown"},
	}
	for _, tc := range cases {
		if got := DisplayName(tc.input); got != tc.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
