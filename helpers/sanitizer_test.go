package helpers

import "testing"

func TestStripPathChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Clean display name",
			input:    "Jane Doe",
			expected: "Jane Doe",
		},
		{
			name:     "Email address keeps local structure",
			input:    "jane.doe@example.com",
			expected: "jane.doe@example.com",
		},
		{
			name:     "Windows-reserved characters",
			input:    `a"b<c>d|e:f*g?h`,
			expected: "abcdefgh",
		},
		{
			name:     "Slashes and backslashes",
			input:    `dept\sales/emea`,
			expected: "deptsalesemea",
		},
		{
			name:     "Brackets tab ampersand",
			input:    "A [B]\tC&D",
			expected: "A BCD",
		},
		{
			name:     "Empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripPathChars(tt.input); got != tt.expected {
				t.Errorf("StripPathChars(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestScrubSubject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Reply prefix with punctuation",
			input:    "RE: Q1 Report",
			expected: "RE Q1 Report",
		},
		{
			name:     "Whitespace runs collapse",
			input:    "weekly   status \t report",
			expected: "weekly status report",
		},
		{
			name:     "Leading and trailing whitespace trimmed",
			input:    "  budget  ",
			expected: "budget",
		},
		{
			name:     "Unicode stripped",
			input:    "Überweisung 2012 — final",
			expected: "berweisung 2012 final",
		},
		{
			name:     "Only disallowed characters",
			input:    "!!!???",
			expected: "",
		},
		{
			name:     "Hyphen and dot survive",
			input:    "v1.2 - release",
			expected: "v1.2 - release",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScrubSubject(tt.input); got != tt.expected {
				t.Errorf("ScrubSubject(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{name: "Shorter than limit", input: "abc", n: 10, expected: "abc"},
		{name: "Exact limit", input: "abcde", n: 5, expected: "abcde"},
		{name: "Truncated", input: "abcdef", n: 3, expected: "abc"},
		{name: "Multibyte not split", input: "日本語テキスト", n: 2, expected: "日本"},
		{name: "Zero", input: "abc", n: 0, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateRunes(tt.input, tt.n); got != tt.expected {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.expected)
			}
		})
	}
}

func TestSanitizeUTF8(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Valid passthrough", input: "plain text", expected: "plain text"},
		{name: "NUL removed", input: "a\x00b", expected: "ab"},
		{name: "Invalid byte removed", input: "a\xffb", expected: "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeUTF8(tt.input); got != tt.expected {
				t.Errorf("SanitizeUTF8(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
