package util

import (
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBytes formats a byte count into a human-readable string.
func FormatBytes(b int64) string {
	if b < 0 {
		return "?"
	}
	return humanize.IBytes(uint64(b))
}

// FormatCount formats n with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatAge describes when t happened relative to now, or "never" for the zero time.
func FormatAge(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// TruncatePath truncates a string from the left, keeping the rightmost part
// visible. maxLen counts runes.
func TruncatePath(path string, maxLen int) string {
	r := []rune(path)
	if len(r) <= maxLen {
		return path
	}
	if maxLen <= 0 {
		return ""
	}
	if maxLen <= 3 {
		return string(r[len(r)-maxLen:])
	}
	return "..." + string(r[len(r)-maxLen+3:])
}
