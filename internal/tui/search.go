package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/JohnDeved/otrkey-cli/internal/catalog"
)

// linesPerGroup is the height of one rendered group: heading plus links.
const linesPerGroup = 2

// searchModel manages the search view.
type searchModel struct {
	input     textinput.Model
	result    catalog.Result
	cursor    int // selected group
	link      int // selected link within the group
	offset    int
	height    int
	searching bool
	seq       int // id of the newest dispatched search
	lastQuery string
	hasResult bool
}

func newSearchModel() searchModel {
	ti := textinput.New()
	ti.Placeholder = "Title or filename, e.g. tatort"
	ti.CharLimit = 256
	ti.Width = 60
	ti.Prompt = "Search: "
	ti.PromptStyle = searchPromptStyle
	ti.Focus()
	return searchModel{
		input:  ti,
		height: 20,
		result: catalog.Result{Idle: true},
	}
}

// begin records a newly dispatched search and returns its id.
func (s *searchModel) begin(query string) int {
	s.seq++
	s.searching = true
	s.lastQuery = query
	return s.seq
}

// setResult applies a finished search. Results of superseded searches are
// dropped; it reports whether r was applied.
func (s *searchModel) setResult(seq int, r catalog.Result) bool {
	if seq != s.seq {
		return false
	}
	s.result = r
	s.hasResult = true
	s.searching = false
	s.cursor = 0
	s.link = 0
	s.offset = 0
	return true
}

func (s *searchModel) groups() []catalog.Group {
	return s.result.Groups
}

func (s *searchModel) rows() int {
	return max(1, s.height/linesPerGroup)
}

func (s *searchModel) selectedGroup() *catalog.Group {
	g := s.groups()
	if s.cursor < 0 || s.cursor >= len(g) {
		return nil
	}
	return &g[s.cursor]
}

func (s *searchModel) selectedLink() *catalog.Link {
	g := s.selectedGroup()
	if g == nil || len(g.Links) == 0 {
		return nil
	}
	s.link = clamp(s.link, 0, len(g.Links)-1)
	return &g.Links[s.link]
}

func (s *searchModel) moveUp() {
	if s.cursor > 0 {
		s.cursor--
		s.link = 0
	}
	s.offset = scrollTo(s.cursor, s.offset, s.rows(), len(s.groups()))
}

func (s *searchModel) moveDown() {
	if s.cursor < len(s.groups())-1 {
		s.cursor++
		s.link = 0
	}
	s.offset = scrollTo(s.cursor, s.offset, s.rows(), len(s.groups()))
}

func (s *searchModel) pageUp() {
	s.cursor = clamp(s.cursor-s.rows(), 0, len(s.groups())-1)
	s.link = 0
	s.offset = scrollTo(s.cursor, s.offset, s.rows(), len(s.groups()))
}

func (s *searchModel) pageDown() {
	s.cursor = clamp(s.cursor+s.rows(), 0, len(s.groups())-1)
	s.link = 0
	s.offset = scrollTo(s.cursor, s.offset, s.rows(), len(s.groups()))
}

func (s *searchModel) nextLink() {
	if g := s.selectedGroup(); g != nil && s.link < len(g.Links)-1 {
		s.link++
	}
}

func (s *searchModel) prevLink() {
	if s.link > 0 {
		s.link--
	}
}

func (s *searchModel) view(width int, spin string) string {
	var sb strings.Builder

	sb.WriteString(padToWidth(s.input.View(), width))
	sb.WriteString("\n\n")

	if s.searching {
		sb.WriteString(padToWidth(fmt.Sprintf("  %s Searching...", spin), width))
		sb.WriteString("\n")
		return sb.String()
	}

	if !s.hasResult || s.result.Idle {
		sb.WriteString(padToWidth(helpStyle.Render("  Type a title and press Enter. Run 'otrkey sync' to refresh the catalog."), width))
		sb.WriteString("\n")
		return sb.String()
	}

	groups := s.groups()
	if len(groups) == 0 {
		sb.WriteString(padToWidth(helpStyle.Render("  No results found."), width))
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(padToWidth(helpStyle.Render(fmt.Sprintf("  %d recordings for %q", len(groups), s.lastQuery)), width))
	sb.WriteString("\n\n")

	rows := max(1, (s.height-3)/linesPerGroup)
	s.offset = scrollTo(s.cursor, s.offset, rows, len(groups))
	end := min(s.offset+rows, len(groups))
	rowWidth := max(12, width-selectedStyle.GetHorizontalFrameSize())

	for i := s.offset; i < end; i++ {
		selected := i == s.cursor
		sb.WriteString(renderGroup(groups[i], rowWidth, selected, s.link))
	}

	if len(groups) > rows {
		sb.WriteString(padToWidth(helpStyle.Render(
			fmt.Sprintf("  %d/%d recordings", s.cursor+1, len(groups)),
		), width))
		sb.WriteString("\n")
	}

	return sb.String()
}

func renderGroup(g catalog.Group, rowWidth int, selected bool, activeLink int) string {
	heading := "  " + headingStyle.Render(truncateText(g.Heading(), rowWidth-2))

	var links strings.Builder
	links.WriteString("    ")
	if len(g.Links) == 0 {
		links.WriteString(helpStyle.Render("no mirror link"))
	}
	for i, l := range g.Links {
		label := l.Format + "@" + l.Mirror
		if selected && i == activeLink {
			links.WriteString(linkActiveStyle.Render(label))
		} else {
			links.WriteString(linkStyle.Render(label))
		}
		links.WriteString(" ")
	}

	style := normalStyle
	if selected {
		style = selectedStyle
	}
	return style.Render(padToWidth(heading, rowWidth)) + "\n" +
		normalStyle.Render(padToWidth(links.String(), rowWidth)) + "\n"
}
