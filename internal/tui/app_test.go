package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JohnDeved/otrkey-cli/internal/catalog"
)

func testIndex() *catalog.Index {
	rows := []catalog.Row{
		{Mirror: "abc", FileName: "Mein_Film_23.05.24_20-15_ard_90_TVOON_DE.mpg.HQ.avi.otrkey"},
		{Mirror: "def", FileName: "Mein_Film_23.05.24_20-15_ard_90_TVOON_DE.mpg.mp4.otrkey"},
		{Mirror: "abc", FileName: "Anderer_Film_23.05.25_21-00_zdf_45_TVOON_DE.mpg.avi.otrkey"},
	}
	mirrors := []catalog.Mirror{
		{Name: "abc", SearchURL: "https://abc.example/?q={query}"},
		{Name: "def", SearchURL: "https://def.example/search/{query}"},
	}
	return catalog.BuildIndex(rows, mirrors)
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// applySearch runs a search command and feeds its result back into m.
func applySearch(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a search command")
	}
	res, ok := cmd().(searchResultsMsg)
	if !ok {
		t.Fatalf("expected searchResultsMsg")
	}
	m, _ = update(m, res)
	return m
}

func search(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.search.input.Focus()
	m.search.input.SetValue(text)
	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	return applySearch(t, m, cmd)
}

func TestModel_SearchAndSelectLink(t *testing.T) {
	m, _ := update(NewModel(testIndex(), nil), tea.WindowSizeMsg{Width: 120, Height: 40})
	m = search(t, m, "mein")

	groups := m.search.groups()
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if len(groups[0].Links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(groups[0].Links))
	}
	if m.search.input.Focused() {
		t.Fatalf("input should blur after a search")
	}

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyRight})
	l := m.search.selectedLink()
	if l == nil || l.Format != catalog.FormatHQ {
		t.Fatalf("expected second link to be HQ, got %+v", l)
	}

	var copied string
	orig := copyToClipboard
	copyToClipboard = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { copyToClipboard = orig })
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	if copied != "https://abc.example/?q=Mein_Film_23.05.24_20-15_ard_90_TVOON_DE.mpg.HQ.avi.otrkey" {
		t.Fatalf("unexpected clipboard content %q", copied)
	}
	if !strings.HasPrefix(m.statusMsg, "Copied:") {
		t.Fatalf("unexpected status %q", m.statusMsg)
	}

	if out := m.View(); !strings.Contains(out, "Mein Film") {
		t.Fatalf("view does not show the group:\n%s", out)
	}
}

func TestModel_IdleAndNoResults(t *testing.T) {
	m, _ := update(NewModel(testIndex(), nil), tea.WindowSizeMsg{Width: 120, Height: 40})

	m = search(t, m, "zzz")
	if m.search.result.Idle || len(m.search.groups()) != 0 {
		t.Fatalf("expected empty non-idle result, got %+v", m.search.result)
	}
	if out := m.View(); !strings.Contains(out, "No results found.") {
		t.Fatalf("expected no-results message:\n%s", out)
	}

	m = search(t, m, "  ")
	if !m.search.result.Idle {
		t.Fatalf("blank query should be idle")
	}
	if out := m.View(); strings.Contains(out, "No results found.") {
		t.Fatalf("idle state should not report no results:\n%s", out)
	}
}

func TestModel_FilterTogglesRerunSearch(t *testing.T) {
	m, _ := update(NewModel(testIndex(), nil), tea.WindowSizeMsg{Width: 120, Height: 40})
	m = search(t, m, "film")
	if len(m.search.groups()) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(m.search.groups()))
	}

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.activeTab != TabFilters {
		t.Fatalf("expected filters tab, got %d", m.activeTab)
	}
	// First item is the mp4 checkbox.
	m, cmd := update(m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	m = applySearch(t, m, cmd)

	groups := m.search.groups()
	if len(groups) != 1 {
		t.Fatalf("expected 1 group with mp4, got %d", len(groups))
	}
	for _, l := range groups[0].Links {
		if l.Format != catalog.FormatMP4 {
			t.Fatalf("unexpected format %q", l.Format)
		}
	}
}

func TestSearchModel_DropsStaleResults(t *testing.T) {
	s := newSearchModel()
	first := s.begin("a")
	second := s.begin("ab")

	if s.setResult(first, catalog.Result{Groups: []catalog.Group{{Title: "old"}}}) {
		t.Fatalf("stale result should be dropped")
	}
	if !s.searching {
		t.Fatalf("newer search still pending")
	}
	if !s.setResult(second, catalog.Result{Groups: []catalog.Group{{Title: "new"}}}) {
		t.Fatalf("latest result should apply")
	}
	if s.groups()[0].Title != "new" {
		t.Fatalf("unexpected groups %+v", s.groups())
	}
}

func TestFacetsModel_Apply(t *testing.T) {
	f := newFacetsModel([]string{"abc", "def"})
	q := f.apply(catalog.Query{Text: "x"})
	if len(q.Formats) != 0 || len(q.Mirrors) != 0 {
		t.Fatalf("nothing checked should not restrict: %+v", q)
	}

	f.cursor = len(catalog.Formats) + 1
	f.toggle()
	q = f.apply(catalog.Query{Text: "x"})
	if len(q.Mirrors) != 1 || q.Mirrors[0] != "def" {
		t.Fatalf("unexpected mirrors %+v", q.Mirrors)
	}
	if !f.clear() || f.activeCount() != 0 {
		t.Fatalf("clear should uncheck everything")
	}
}
