package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/JohnDeved/otrkey-cli/internal/catalog"
	"github.com/JohnDeved/otrkey-cli/internal/index"
	"github.com/JohnDeved/otrkey-cli/internal/util"
)

// Tab identifies the active view.
type Tab int

const (
	TabSearch Tab = iota
	TabFilters
	TabMirrors
)

// Messages
type searchResultsMsg struct {
	seq    int
	query  catalog.Query
	result catalog.Result
}

type statusClearMsg struct{ id int }

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

// Model is the main Bubble Tea model.
type Model struct {
	idx        *catalog.Index
	activeTab  Tab
	search     searchModel
	facets     facetsModel
	mirrors    mirrorsModel
	spinner    spinner.Model
	width      int
	height     int
	showHelp   bool
	helpOffset int
	statusMsg  string
	statusID   int
}

// NewModel creates the TUI model over a loaded index.
func NewModel(idx *catalog.Index, stats []index.MirrorStat) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return Model{
		idx:       idx,
		activeTab: TabSearch,
		search:    newSearchModel(),
		facets:    newFacetsModel(idx.MirrorNames()),
		mirrors:   newMirrorsModel(stats),
		spinner:   s,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		viewHeight := m.height - 8 // Account for header, tabs, status bar
		m.search.height = viewHeight
		m.facets.height = viewHeight
		m.mirrors.height = viewHeight
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case searchResultsMsg:
		if m.search.setResult(msg.seq, msg.result) {
			log.Debug().
				Str("query", msg.query.Text).
				Strs("formats", msg.query.Formats).
				Strs("mirrors", msg.query.Mirrors).
				Bool("idle", msg.result.Idle).
				Int("groups", len(msg.result.Groups)).
				Msg("search finished")
		}
		return m, nil

	case statusClearMsg:
		if msg.id == m.statusID {
			m.statusMsg = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.activeTab == TabSearch {
		var cmd tea.Cmd
		m.search.input, cmd = m.search.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	typing := m.activeTab == TabSearch && m.search.input.Focused()

	if m.showHelp {
		switch key {
		case "?", "esc":
			m.showHelp = false
			m.helpOffset = 0
			return m, nil
		case "up", "k":
			if m.helpOffset > 0 {
				m.helpOffset--
			}
			return m, nil
		case "down", "j":
			m.helpOffset++
			return m, nil
		}
	}

	switch key {
	case "ctrl+c":
		return m, tea.Quit

	case "q":
		if !typing {
			return m, tea.Quit
		}

	case "?":
		if !typing {
			m.showHelp = !m.showHelp
			m.helpOffset = 0
			return m, nil
		}

	case "1", "2", "3":
		if !typing {
			m.switchTab(Tab(key[0] - '1'))
			return m, nil
		}

	case "tab":
		m.switchTab((m.activeTab + 1) % 3)
		return m, nil

	case "shift+tab":
		m.switchTab((m.activeTab + 2) % 3)
		return m, nil
	}

	switch m.activeTab {
	case TabSearch:
		return m.handleSearchKey(key, msg)
	case TabFilters:
		return m.handleFiltersKey(key)
	case TabMirrors:
		return m.handleMirrorsKey(key)
	}
	return m, nil
}

func (m *Model) switchTab(t Tab) {
	m.activeTab = t
	if t == TabSearch {
		m.search.input.Focus()
	} else {
		m.search.input.Blur()
	}
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		switch m.activeTab {
		case TabSearch:
			m.search.moveUp()
		case TabFilters:
			m.facets.moveUp()
		case TabMirrors:
			m.mirrors.moveUp()
		}
	case tea.MouseButtonWheelDown:
		switch m.activeTab {
		case TabSearch:
			m.search.moveDown()
		case TabFilters:
			m.facets.moveDown()
		case TabMirrors:
			m.mirrors.moveDown()
		}
	}
	return m, nil
}

func (m Model) handleSearchKey(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.search.input.Focused() {
		switch key {
		case "enter":
			text := m.search.input.Value()
			if strings.TrimSpace(text) != "" {
				m.search.input.Blur()
			}
			return m, m.runSearch(text)
		case "esc":
			m.search.input.Blur()
			return m, nil
		default:
			var cmd tea.Cmd
			m.search.input, cmd = m.search.input.Update(msg)
			return m, cmd
		}
	}

	switch key {
	case "up", "k":
		m.search.moveUp()
	case "down", "j":
		m.search.moveDown()
	case "pgup", "ctrl+u":
		m.search.pageUp()
	case "pgdown", "ctrl+d":
		m.search.pageDown()
	case "left", "h":
		m.search.prevLink()
	case "right", "l":
		m.search.nextLink()
	case "enter":
		if l := m.search.selectedLink(); l != nil {
			return m, m.setStatus(l.URL)
		}
	case "y":
		if l := m.search.selectedLink(); l != nil {
			if err := copyToClipboard(l.URL); err != nil {
				log.Warn().Err(err).Msg("clipboard write failed")
				return m, m.setStatus(fmt.Sprintf("Copy failed: %v", err))
			}
			return m, m.setStatus("Copied: " + l.FileName)
		}
	case "i", "/", "esc":
		m.search.input.Focus()
	}
	return m, nil
}

func (m Model) handleFiltersKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		m.facets.moveUp()
	case "down", "j":
		m.facets.moveDown()
	case " ", "enter":
		if m.facets.toggle() {
			return m, m.rerun()
		}
	case "c":
		if m.facets.clear() {
			return m, tea.Batch(m.rerun(), m.setStatus("Filters cleared"))
		}
	}
	return m, nil
}

func (m Model) handleMirrorsKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		m.mirrors.moveUp()
	case "down", "j":
		m.mirrors.moveDown()
	case "enter":
		if sel := m.mirrors.selected(); sel != nil && sel.SearchURL != "" {
			return m, m.setStatus(sel.SearchURL)
		}
	}
	return m, nil
}

// rerun repeats the last search with the current filters.
func (m *Model) rerun() tea.Cmd {
	if !m.search.hasResult && !m.search.searching {
		return nil
	}
	return m.runSearch(m.search.lastQuery)
}

// Commands

func (m *Model) runSearch(text string) tea.Cmd {
	q := m.facets.apply(catalog.Query{Text: text})
	seq := m.search.begin(text)
	idx := m.idx
	return func() tea.Msg {
		return searchResultsMsg{seq: seq, query: q, result: idx.Search(q)}
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("  otrkey  "))
	sb.WriteString("\n")

	tabs := []struct {
		name string
		tab  Tab
		key  string
	}{
		{"Search", TabSearch, "1"},
		{"Filters", TabFilters, "2"},
		{"Mirrors", TabMirrors, "3"},
	}

	var tabLine strings.Builder
	for _, t := range tabs {
		label := fmt.Sprintf(" %s %s ", t.key, t.name)
		if m.activeTab == t.tab {
			tabLine.WriteString(tabActiveStyle.Render(label))
		} else {
			tabLine.WriteString(tabInactiveStyle.Render(label))
		}
		tabLine.WriteString(" ")
	}
	if n := m.facets.activeCount(); n > 0 {
		tabLine.WriteString(checkedStyle.Render(fmt.Sprintf(" [%d filters]", n)))
	}
	tabLine.WriteString(successStyle.Render(fmt.Sprintf(" %s files", util.FormatCount(m.idx.Len()))))

	sb.WriteString(tabLine.String())
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")

	if m.showHelp {
		sb.WriteString(m.helpView(m.height - 8))
	} else {
		switch m.activeTab {
		case TabSearch:
			sb.WriteString(m.search.view(m.width, m.spinner.View()))
		case TabFilters:
			sb.WriteString(m.facets.view(m.width))
		case TabMirrors:
			sb.WriteString(m.mirrors.view(m.width))
		}
	}

	statusLine := m.statusMsg
	if statusLine == "" {
		statusLine = m.defaultStatus()
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")
	sb.WriteString(statusBarStyle.Width(m.width).Render(util.TruncatePath(statusLine, max(10, m.width-2))))

	return sb.String()
}

func (m Model) defaultStatus() string {
	switch m.activeTab {
	case TabSearch:
		if m.search.input.Focused() {
			return "Enter:search  Esc:results  Tab:next view"
		}
		return "j/k:recording  h/l:link  Enter:show url  y:copy url  /:edit query  ?:help"
	case TabFilters:
		return "j/k:navigate  Space:toggle  c:clear all  ?:help"
	case TabMirrors:
		return "j/k:navigate  Enter:show search url  ?:help"
	}
	return ""
}

func (m Model) helpView(maxLines int) string {
	lines := []string{
		"  Keyboard Shortcuts",
		"  ──────────────────",
		"",
		"  Global:",
		"    Tab / 1-3     Switch views",
		"    Shift+Tab     Reverse view cycle",
		"    ?             Toggle help",
		"    q / Ctrl+C    Quit",
		"",
		"  Search:",
		"    / or i        Edit query",
		"    Enter         Search (when editing)",
		"    j/k           Previous/next recording",
		"    h/l           Previous/next link",
		"    Enter         Show link URL",
		"    y             Copy link URL to clipboard",
		"",
		"  Filters:",
		"    Space         Toggle format or mirror",
		"    c             Clear all filters",
		"",
		"  Mirrors:",
		"    Enter         Show the mirror's search URL",
		"",
		"  Press ? or Esc to close help.",
	}

	maxLines = max(6, maxLines)
	maxOffset := max(0, len(lines)-maxLines)
	offset := clamp(m.helpOffset, 0, maxOffset)
	end := min(offset+maxLines, len(lines))
	return helpStyle.Render(strings.Join(lines[offset:end], "\n"))
}

func (m *Model) setStatus(msg string) tea.Cmd {
	m.statusMsg = msg
	m.statusID++
	id := m.statusID
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return statusClearMsg{id: id}
	})
}

// Run starts the TUI.
func Run(idx *catalog.Index, stats []index.MirrorStat) error {
	p := tea.NewProgram(NewModel(idx, stats), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
