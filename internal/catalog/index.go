package catalog

import (
	"github.com/rs/zerolog/log"
)

// Row is one (mirror, filename) pair of the published catalog.
type Row struct {
	Mirror   string `json:"mirror_name"`
	FileName string `json:"file_name"`
}

// Mirror is a download source with a search URL template.
type Mirror struct {
	Name string `json:"name"`
	// SearchURL contains a literal {query} placeholder for the filename.
	SearchURL string `json:"search_url"`
	// ListURL is the page listing the mirror's files, used when scraping.
	ListURL string `json:"list_url,omitempty"`
}

// Entry is a catalog row whose filename parsed successfully.
type Entry struct {
	Row  Row
	Meta Metadata

	normTitle string
	normFile  string
}

// Key returns the recording identity of the entry.
func (e Entry) Key() GroupKey {
	return GroupKey{
		Title:    e.Meta.Title,
		Date:     e.Meta.Date,
		Time:     e.Meta.Time,
		Channel:  e.Meta.Channel,
		Duration: e.Meta.Duration,
	}
}

// Index is the searchable, immutable view of a catalog.
// It is safe for concurrent use.
type Index struct {
	entries   []Entry
	templates map[string]string
	mirrors   []string
	skipped   int
}

// BuildIndex parses every row and keeps the ones following the naming
// convention. Rows that fail to parse are logged at debug level and dropped.
func BuildIndex(rows []Row, mirrors []Mirror) *Index {
	idx := &Index{
		entries:   make([]Entry, 0, len(rows)),
		templates: NewMirrorMap(mirrors),
	}

	seen := make(map[string]struct{})
	for _, m := range mirrors {
		if _, ok := idx.templates[m.Name]; !ok {
			continue
		}
		if _, ok := seen[m.Name]; ok {
			continue
		}
		seen[m.Name] = struct{}{}
		idx.mirrors = append(idx.mirrors, m.Name)
	}

	for _, r := range rows {
		meta, ok := ParseFilename(r.FileName)
		if !ok {
			log.Debug().Str("mirror", r.Mirror).Str("file", r.FileName).Msg("skipping unparsable filename")
			idx.skipped++
			continue
		}
		idx.entries = append(idx.entries, Entry{
			Row:       r,
			Meta:      meta,
			normTitle: Normalize(meta.Title),
			normFile:  Normalize(r.FileName),
		})
		if _, ok := seen[r.Mirror]; !ok {
			seen[r.Mirror] = struct{}{}
			idx.mirrors = append(idx.mirrors, r.Mirror)
		}
	}

	if idx.skipped > 0 {
		log.Debug().Int("skipped", idx.skipped).Int("indexed", len(idx.entries)).Msg("catalog index built")
	}
	return idx
}

// NewMirrorMap maps mirror names to their search URL templates. The first
// template for a name wins; mirrors without a name or template are ignored.
func NewMirrorMap(mirrors []Mirror) map[string]string {
	out := make(map[string]string, len(mirrors))
	for _, m := range mirrors {
		if m.Name == "" || m.SearchURL == "" {
			continue
		}
		if _, ok := out[m.Name]; ok {
			continue
		}
		out[m.Name] = m.SearchURL
	}
	return out
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Skipped returns how many rows were dropped because their filename did not parse.
func (idx *Index) Skipped() int {
	return idx.skipped
}

// MirrorNames returns mirror names known from the mirror list or the rows,
// in first-seen order. Useful for building facet lists.
func (idx *Index) MirrorNames() []string {
	out := make([]string, len(idx.mirrors))
	copy(out, idx.mirrors)
	return out
}
