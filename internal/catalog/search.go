package catalog

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// queryPlaceholder is replaced by the escaped filename in mirror templates.
const queryPlaceholder = "{query}"

// GroupKey identifies one broadcast recording across mirrors and encodings.
type GroupKey struct {
	Title    string
	Date     string
	Time     string
	Channel  string
	Duration string
}

// Less orders keys by title, date, time, channel, then duration.
func (k GroupKey) Less(o GroupKey) bool {
	if k.Title != o.Title {
		return k.Title < o.Title
	}
	if k.Date != o.Date {
		return k.Date < o.Date
	}
	if k.Time != o.Time {
		return k.Time < o.Time
	}
	if k.Channel != o.Channel {
		return k.Channel < o.Channel
	}
	return k.Duration < o.Duration
}

// Link is a resolved download location for one entry of a group.
type Link struct {
	Format   string `json:"format"`
	URL      string `json:"url"`
	Mirror   string `json:"mirror"`
	FileName string `json:"file_name"`
}

// Group is one recording with all of its resolved links.
type Group struct {
	Title    string `json:"title"`
	Season   string `json:"season,omitempty"`
	Episode  string `json:"episode,omitempty"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Channel  string `json:"channel"`
	Duration string `json:"duration"`
	Links    []Link `json:"links"`
}

// Key returns the group's recording identity.
func (g Group) Key() GroupKey {
	return GroupKey{Title: g.Title, Date: g.Date, Time: g.Time, Channel: g.Channel, Duration: g.Duration}
}

// Heading renders the group's metadata on one line.
func (g Group) Heading() string {
	title := g.Title
	if g.Season != "" && g.Episode != "" {
		title += fmt.Sprintf(" (S%sE%s)", g.Season, g.Episode)
	}
	return fmt.Sprintf("%s — %s %s — %s — %s min", title, g.Date, g.Time, g.Channel, g.Duration)
}

// Query is a free-text search plus facet restrictions.
// Empty facet lists do not restrict.
type Query struct {
	Text    string
	Formats []string
	Mirrors []string
}

// Result is the outcome of a search. Idle is set when the query text
// normalizes to nothing; it is not the same as a search without matches.
type Result struct {
	Idle   bool
	Groups []Group
}

// Search filters the index by q, groups matches by recording and orders both
// groups and links deterministically.
func (idx *Index) Search(q Query) Result {
	term := Normalize(strings.TrimSpace(q.Text))
	if term == "" {
		return Result{Idle: true}
	}

	formats := toSet(q.Formats, strings.ToLower)
	mirrors := toSet(q.Mirrors, nil)

	byKey := make(map[GroupKey]int)
	groups := make([]Group, 0)
	for i := range idx.entries {
		e := &idx.entries[i]
		if !strings.Contains(e.normTitle, term) && !strings.Contains(e.normFile, term) {
			continue
		}
		if len(formats) > 0 {
			if _, ok := formats[strings.ToLower(e.Meta.Format)]; !ok {
				continue
			}
		}
		if len(mirrors) > 0 {
			if _, ok := mirrors[e.Row.Mirror]; !ok {
				continue
			}
		}

		key := e.Key()
		gi, ok := byKey[key]
		if !ok {
			gi = len(groups)
			byKey[key] = gi
			groups = append(groups, Group{
				Title:    e.Meta.Title,
				Season:   e.Meta.Season,
				Episode:  e.Meta.Episode,
				Date:     e.Meta.Date,
				Time:     e.Meta.Time,
				Channel:  e.Meta.Channel,
				Duration: e.Meta.Duration,
				Links:    []Link{},
			})
		}

		tmpl, ok := idx.templates[e.Row.Mirror]
		if !ok {
			continue
		}
		groups[gi].Links = append(groups[gi].Links, Link{
			Format:   e.Meta.Format,
			URL:      ResolveURL(tmpl, e.Row.FileName),
			Mirror:   e.Row.Mirror,
			FileName: e.Row.FileName,
		})
	}

	for i := range groups {
		SortLinks(groups[i].Links)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Key().Less(groups[j].Key())
	})

	return Result{Groups: groups}
}

// ResolveURL substitutes the escaped filename into a mirror template.
func ResolveURL(template, fileName string) string {
	return strings.Replace(template, queryPlaceholder, escapeComponent(fileName), 1)
}

// escapeComponent escapes s the way browsers' encodeURIComponent does for
// the characters that occur in filenames (space becomes %20, not +).
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// SortLinks orders links by format priority (see Formats). Formats outside
// the list go last; ties keep their original order.
func SortLinks(links []Link) {
	sort.SliceStable(links, func(i, j int) bool {
		return formatRank(links[i].Format) < formatRank(links[j].Format)
	})
}

func formatRank(format string) int {
	for i, f := range Formats {
		if f == format {
			return i
		}
	}
	return len(Formats)
}

func toSet(values []string, fn func(string) string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		if fn != nil {
			v = fn(v)
		}
		out[v] = struct{}{}
	}
	return out
}
