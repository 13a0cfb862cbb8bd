package logger

import (
	"strings"
	"time"
	"unicode"
)

// Took is RoundMS(time.Since(start)).
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds d to whole milliseconds; negative durations become zero.
func RoundMS(d time.Duration) time.Duration {
	return max(d, 0).Round(time.Millisecond)
}

// SummarizeStrings joins at most limit values with ", ". The bool reports
// that values were dropped.
func SummarizeStrings(values []string, limit int) (string, bool) {
	kept := values[:min(max(limit, 0), len(values))]
	return strings.Join(kept, ", "), len(kept) < len(values)
}

// SanitizeLimit keeps at most limit runes of s, dropping control and
// format runes other than newline and tab.
func SanitizeLimit(s string, limit int) string {
	var b strings.Builder
	for _, r := range s {
		if limit <= 0 {
			break
		}
		if printable(r) {
			b.WriteRune(r)
			limit--
		}
	}
	return b.String()
}

func printable(r rune) bool {
	if r == '\n' || r == '\t' {
		return true
	}
	return !unicode.IsControl(r) && !unicode.Is(unicode.Cf, r)
}
