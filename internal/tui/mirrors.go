package tui

import (
	"fmt"
	"strings"

	"github.com/JohnDeved/otrkey-cli/internal/index"
	"github.com/JohnDeved/otrkey-cli/internal/util"
)

// mirrorsModel lists cached mirrors.
type mirrorsModel struct {
	stats  []index.MirrorStat
	cursor int
	offset int
	height int
}

func newMirrorsModel(stats []index.MirrorStat) mirrorsModel {
	return mirrorsModel{stats: stats, height: 20}
}

func (m *mirrorsModel) moveUp() {
	if m.cursor > 0 {
		m.cursor--
	}
}

func (m *mirrorsModel) moveDown() {
	if m.cursor < len(m.stats)-1 {
		m.cursor++
	}
}

func (m *mirrorsModel) selected() *index.MirrorStat {
	if m.cursor < 0 || m.cursor >= len(m.stats) {
		return nil
	}
	return &m.stats[m.cursor]
}

func (m *mirrorsModel) totalFiles() int {
	n := 0
	for _, s := range m.stats {
		n += s.Files
	}
	return n
}

func (m *mirrorsModel) view(width int) string {
	var sb strings.Builder
	if len(m.stats) == 0 {
		sb.WriteString(padToWidth(helpStyle.Render("  No mirrors cached. Run 'otrkey sync' first."), width))
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(padToWidth(helpStyle.Render(fmt.Sprintf("  %d mirrors, %s files", len(m.stats), util.FormatCount(m.totalFiles()))), width))
	sb.WriteString("\n\n")

	rows := max(1, m.height-3)
	m.offset = scrollTo(m.cursor, m.offset, rows, len(m.stats))
	end := min(m.offset+rows, len(m.stats))
	rowWidth := max(12, width-selectedStyle.GetHorizontalFrameSize())

	for i := m.offset; i < end; i++ {
		s := m.stats[i]
		name := s.Name
		if s.SearchURL == "" {
			name += " (no search url)"
		}
		sb.WriteString(renderRow(name, util.FormatCount(s.Files), util.FormatAge(s.LastFetched), rowWidth, i == m.cursor))
		sb.WriteString("\n")
	}
	return sb.String()
}
