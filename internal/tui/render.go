package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderRow renders a name with two right-hand columns, highlighted when selected.
func renderRow(name, count, age string, rowWidth int, isSelected bool) string {
	line := fmt.Sprintf("  %s  %s  %s",
		truncateText(name, max(12, rowWidth-35)),
		countStyle.Render(count),
		ageStyle.Render(age),
	)
	if isSelected {
		return selectedStyle.Render(padToWidth(line, rowWidth))
	}
	return normalStyle.Render(padToWidth(line, rowWidth))
}

func truncateText(s string, maxWidth int) string {
	if maxWidth < 4 {
		return s
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	r := []rune(s)
	if len(r) <= maxWidth {
		return s
	}
	return string(r[:maxWidth-3]) + "..."
}

func padToWidth(s string, width int) string {
	pad := width - lipgloss.Width(s)
	if pad <= 0 {
		return s
	}
	return s + strings.Repeat(" ", pad)
}

// scrollTo returns the viewport offset that keeps cursor visible in rows lines.
func scrollTo(cursor, offset, rows, total int) int {
	if rows < 1 {
		rows = 1
	}
	if cursor < offset {
		offset = cursor
	}
	if cursor >= offset+rows {
		offset = cursor - rows + 1
	}
	maxOffset := max(0, total-rows)
	if offset > maxOffset {
		offset = maxOffset
	}
	return max(0, offset)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
