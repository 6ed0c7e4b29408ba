package helpers

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// pathDisallowed lists the characters stripped from path segments derived
// from untrusted mail fields (sender names, folder labels). The set matches
// what NTFS and SMB shares reject, plus brackets and ampersand which confuse
// downstream tooling.
const pathDisallowed = "\"<>|:*?\\/[]\t&"

// SanitizeUTF8 removes invalid UTF-8 sequences and NUL bytes from a string.
// PostgreSQL text columns reject NUL even though it is valid UTF-8, so every
// string exported to the sink passes through here first.
func SanitizeUTF8(s string) string {
	if utf8.ValidString(s) && !strings.ContainsRune(s, '\x00') {
		return s
	}

	buf := make([]rune, 0, len(s))
	for i, r := range s {
		if r == '\x00' {
			continue
		}
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue // skip invalid byte
			}
		}
		buf = append(buf, r)
	}
	return string(buf)
}

// StripPathChars removes characters that are not allowed in a single path
// segment. It never removes letters, digits, or plain punctuation, so
// directory display names survive intact.
func StripPathChars(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(pathDisallowed, r) {
			return -1
		}
		return r
	}, s)
}

// ScrubSubject reduces a message subject to a filesystem-safe stem: only
// ASCII letters, digits, whitespace, hyphen and dot survive; whitespace runs
// collapse to a single space; the result is trimmed.
func ScrubSubject(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '.':
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TruncateRunes shortens s to at most n runes without splitting a rune.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
