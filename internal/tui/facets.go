package tui

import (
	"fmt"
	"strings"

	"github.com/JohnDeved/otrkey-cli/internal/catalog"
)

type facetKind int

const (
	facetFormat facetKind = iota
	facetMirror
)

type facetItem struct {
	kind    facetKind
	value   string
	checked bool
}

// facetsModel holds the format and mirror checkboxes. A category with
// nothing checked does not restrict results.
type facetsModel struct {
	items  []facetItem
	cursor int
	offset int
	height int
}

func newFacetsModel(mirrors []string) facetsModel {
	items := make([]facetItem, 0, len(catalog.Formats)+len(mirrors))
	for _, f := range catalog.Formats {
		items = append(items, facetItem{kind: facetFormat, value: f})
	}
	for _, m := range mirrors {
		items = append(items, facetItem{kind: facetMirror, value: m})
	}
	return facetsModel{items: items, height: 20}
}

func (f *facetsModel) moveUp() {
	if f.cursor > 0 {
		f.cursor--
	}
}

func (f *facetsModel) moveDown() {
	if f.cursor < len(f.items)-1 {
		f.cursor++
	}
}

// toggle flips the selected checkbox and reports whether anything changed.
func (f *facetsModel) toggle() bool {
	if f.cursor < 0 || f.cursor >= len(f.items) {
		return false
	}
	f.items[f.cursor].checked = !f.items[f.cursor].checked
	return true
}

// clear unchecks everything and reports whether anything was checked.
func (f *facetsModel) clear() bool {
	changed := false
	for i := range f.items {
		if f.items[i].checked {
			f.items[i].checked = false
			changed = true
		}
	}
	return changed
}

func (f *facetsModel) selection(kind facetKind) []string {
	var out []string
	for _, it := range f.items {
		if it.kind == kind && it.checked {
			out = append(out, it.value)
		}
	}
	return out
}

// apply copies the checked facets into q.
func (f *facetsModel) apply(q catalog.Query) catalog.Query {
	q.Formats = f.selection(facetFormat)
	q.Mirrors = f.selection(facetMirror)
	return q
}

func (f *facetsModel) activeCount() int {
	n := 0
	for _, it := range f.items {
		if it.checked {
			n++
		}
	}
	return n
}

func (f *facetsModel) view(width int) string {
	var sb strings.Builder
	rows := max(1, f.height-4)
	f.offset = scrollTo(f.cursor, f.offset, rows, len(f.items))
	end := min(f.offset+rows, len(f.items))
	rowWidth := max(12, width-selectedStyle.GetHorizontalFrameSize())

	for i := f.offset; i < end; i++ {
		it := f.items[i]
		if i == 0 || it.kind != f.items[i-1].kind || i == f.offset {
			sb.WriteString(padToWidth(helpStyle.Render("  "+facetTitle(it.kind)+" (none checked = any)"), width))
			sb.WriteString("\n")
		}
		box := "[ ]"
		if it.checked {
			box = checkedStyle.Render("[x]")
		}
		line := fmt.Sprintf("  %s %s", box, it.value)
		if i == f.cursor {
			sb.WriteString(selectedStyle.Render(padToWidth(line, rowWidth)))
		} else {
			sb.WriteString(normalStyle.Render(padToWidth(line, rowWidth)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func facetTitle(k facetKind) string {
	if k == facetMirror {
		return "Mirrors"
	}
	return "Formats"
}
