package catalog

import (
	"regexp"
	"strings"
)

// Format labels an entry can carry.
const (
	FormatMP4 = "mp4"
	FormatAVI = "avi"
	FormatAC3 = "ac3"
	FormatMP3 = "mp3"
	FormatHQ  = "HQ"
	FormatHD  = "HD"
)

// Formats lists every format label in display priority order.
var Formats = []string{FormatMP4, FormatAVI, FormatAC3, FormatMP3, FormatHQ, FormatHD}

var otrkeyRE = regexp.MustCompile(`(?i)^(?P<title>.+?)` +
	`(?:_S(?P<season>\d{2})E(?P<episode>\d{2}))?` +
	`_(?P<date>\d{2}\.\d{2}\.\d{2})` +
	`_(?P<time>\d{2}-\d{2})` +
	`_(?P<channel>[a-z0-9]+)` +
	`_(?P<duration>\d+)` +
	`_TVOON_DE\.mpg` +
	`(?:\.(?P<quality>HQ|HD))?` +
	`(?:\.(?P<fra>fra))?` +
	`(?:\.(?P<auto>auto))?` +
	`(?:\.(?P<cut>cut))?` +
	`\.(?:(?P<video>avi|mp4)|(?P<audio>ac3|mp3))` +
	`\.otrkey$`)

var (
	reTitle    = otrkeyRE.SubexpIndex("title")
	reSeason   = otrkeyRE.SubexpIndex("season")
	reEpisode  = otrkeyRE.SubexpIndex("episode")
	reDate     = otrkeyRE.SubexpIndex("date")
	reTime     = otrkeyRE.SubexpIndex("time")
	reChannel  = otrkeyRE.SubexpIndex("channel")
	reDuration = otrkeyRE.SubexpIndex("duration")
	reQuality  = otrkeyRE.SubexpIndex("quality")
	reFra      = otrkeyRE.SubexpIndex("fra")
	reAuto     = otrkeyRE.SubexpIndex("auto")
	reCut      = otrkeyRE.SubexpIndex("cut")
	reVideo    = otrkeyRE.SubexpIndex("video")
	reAudio    = otrkeyRE.SubexpIndex("audio")
)

// Metadata is the information encoded in an otrkey filename.
type Metadata struct {
	Title string
	// Season and Episode are two-digit strings, both set or both empty.
	Season  string
	Episode string
	Date    string // YYYY-MM-DD
	Time    string // HH:MM
	Channel string
	// Duration is the recording length in minutes, as written in the name.
	Duration string
	Format   string

	French bool
	Auto   bool
	Cut    bool
}

// HasEpisode reports whether the name carried an SxxEyy marker.
func (m Metadata) HasEpisode() bool {
	return m.Season != "" && m.Episode != ""
}

// EpisodeTag returns "S01E02", or "" without an episode marker.
func (m Metadata) EpisodeTag() string {
	if !m.HasEpisode() {
		return ""
	}
	return "S" + m.Season + "E" + m.Episode
}

// ParseFilename extracts Metadata from an otrkey filename such as
// "Mein_Film_23.05.24_20-15_abc_90_TVOON_DE.mpg.HQ.avi.otrkey".
// It reports false when the name does not follow the naming convention.
func ParseFilename(name string) (Metadata, bool) {
	m := otrkeyRE.FindStringSubmatch(name)
	if m == nil {
		return Metadata{}, false
	}

	title := strings.TrimSpace(strings.ReplaceAll(m[reTitle], "_", " "))
	if title == "" {
		return Metadata{}, false
	}

	// DD.MM.YY
	d := strings.Split(m[reDate], ".")
	hm := strings.Split(m[reTime], "-")

	return Metadata{
		Title:    title,
		Season:   m[reSeason],
		Episode:  m[reEpisode],
		Date:     "20" + d[2] + "-" + d[1] + "-" + d[0],
		Time:     hm[0] + ":" + hm[1],
		Channel:  m[reChannel],
		Duration: m[reDuration],
		Format:   resolveFormat(m[reAudio], m[reQuality], m[reVideo]),
		French:   m[reFra] != "",
		Auto:     m[reAuto] != "",
		Cut:      m[reCut] != "",
	}, true
}

// resolveFormat picks audio, then quality, then video container.
func resolveFormat(audio, quality, video string) string {
	switch {
	case audio != "":
		return strings.ToLower(audio)
	case quality != "":
		return strings.ToUpper(quality)
	case video != "":
		return strings.ToLower(video)
	}
	return FormatAVI
}
