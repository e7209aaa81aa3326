package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name string
		file string
		want Metadata
	}{
		{
			name: "hq avi",
			file: "Mein_Film_23.05.24_20-15_abc_90_TVOON_DE.mpg.HQ.avi.otrkey",
			want: Metadata{Title: "Mein Film", Date: "2024-05-23", Time: "20:15", Channel: "abc", Duration: "90", Format: "HQ"},
		},
		{
			name: "plain avi",
			file: "Tagesschau_01.02.25_20-00_ard_15_TVOON_DE.mpg.avi.otrkey",
			want: Metadata{Title: "Tagesschau", Date: "2025-02-01", Time: "20:00", Channel: "ard", Duration: "15", Format: "avi"},
		},
		{
			name: "mp4 with episode",
			file: "Die_Serie_S02E11_15.03.25_21-45_zdfneo_45_TVOON_DE.mpg.mp4.otrkey",
			want: Metadata{Title: "Die Serie", Season: "02", Episode: "11", Date: "2025-03-15", Time: "21:45", Channel: "zdfneo", Duration: "45", Format: "mp4"},
		},
		{
			name: "hd marker",
			file: "Doku_10.10.24_22-00_arte_60_TVOON_DE.mpg.HD.avi.otrkey",
			want: Metadata{Title: "Doku", Date: "2024-10-10", Time: "22:00", Channel: "arte", Duration: "60", Format: "HD"},
		},
		{
			name: "audio wins",
			file: "Konzert_05.06.24_23-30_3sat_120_TVOON_DE.mpg.HD.ac3.otrkey",
			want: Metadata{Title: "Konzert", Date: "2024-06-05", Time: "23:30", Channel: "3sat", Duration: "120", Format: "ac3"},
		},
		{
			name: "modifiers",
			file: "Le_Film_07.07.24_20-15_arte_95_TVOON_DE.mpg.HQ.fra.cut.mp4.otrkey",
			want: Metadata{Title: "Le Film", Date: "2024-07-07", Time: "20:15", Channel: "arte", Duration: "95", Format: "HQ", French: true, Cut: true},
		},
		{
			name: "mp3",
			file: "Hoerspiel_12.12.24_00-05_dlf_55_TVOON_DE.mpg.auto.mp3.otrkey",
			want: Metadata{Title: "Hoerspiel", Date: "2024-12-12", Time: "00:05", Channel: "dlf", Duration: "55", Format: "mp3", Auto: true},
		},
		{
			name: "case insensitive",
			file: "Show_01.01.25_10-00_ABC_30_tvoon_de.MPG.hq.AVI.OTRKEY",
			want: Metadata{Title: "Show", Date: "2025-01-01", Time: "10:00", Channel: "ABC", Duration: "30", Format: "HQ"},
		},
		{
			name: "title keeps inner underscores as spaces",
			file: "_Der__Titel_02.02.25_18-00_ndr_30_TVOON_DE.mpg.avi.otrkey",
			want: Metadata{Title: "Der  Titel", Date: "2025-02-02", Time: "18:00", Channel: "ndr", Duration: "30", Format: "avi"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseFilename(tt.file)
			require.True(t, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseFilename_TitleStopsAtEpisodeMarker(t *testing.T) {
	got, ok := ParseFilename("Akte_X_S09E01_01.01.25_21-00_pro7_60_TVOON_DE.mpg.avi.otrkey")
	require.True(t, ok)
	require.Equal(t, "Akte X", got.Title)
	require.True(t, got.HasEpisode())
	require.Equal(t, "S09E01", got.EpisodeTag())
}

func TestParseFilename_Rejects(t *testing.T) {
	for _, name := range []string{
		"",
		"random.txt",
		"Mein_Film_23.05.24_20-15_abc_90.mpg.HQ.avi.otrkey",
		"Mein_Film_23.05.24_20-15_abc_90_TVOON_DE.mpg.HQ.mkv.otrkey",
		"Mein_Film_23.05.24_20-15_abc_90_TVOON_DE.mpg.HQ.avi",
		"Mein_Film_23.05.24_20-15_abc_90_TVOON_DE.mpg.otrkey",
		"Mein_Film_2023.05.24_20-15_abc_90_TVOON_DE.mpg.avi.otrkey",
		"Mein_Film_23.05.24_2015_abc_90_TVOON_DE.mpg.avi.otrkey",
		"Mein_Film_23.05.24_20-15_a-b_90_TVOON_DE.mpg.avi.otrkey",
		"Mein_Film_23.05.24_20-15_abc_neunzig_TVOON_DE.mpg.avi.otrkey",
		"___23.05.24_20-15_abc_90_TVOON_DE.mpg.avi.otrkey",
	} {
		_, ok := ParseFilename(name)
		require.False(t, ok, name)
	}
}

func TestParseFilename_FormatIsKnown(t *testing.T) {
	names := []string{
		"A_01.01.25_10-00_x_1_TVOON_DE.mpg.avi.otrkey",
		"A_01.01.25_10-00_x_1_TVOON_DE.mpg.mp4.otrkey",
		"A_01.01.25_10-00_x_1_TVOON_DE.mpg.HQ.avi.otrkey",
		"A_01.01.25_10-00_x_1_TVOON_DE.mpg.HD.mp4.otrkey",
		"A_01.01.25_10-00_x_1_TVOON_DE.mpg.ac3.otrkey",
		"A_01.01.25_10-00_x_1_TVOON_DE.mpg.mp3.otrkey",
	}
	for _, n := range names {
		m, ok := ParseFilename(n)
		require.True(t, ok, n)
		require.Contains(t, Formats, m.Format, n)
		require.Regexp(t, `^20\d{2}-\d{2}-\d{2}$`, m.Date)
		require.Regexp(t, `^\d{2}:\d{2}$`, m.Time)
	}
}

func TestResolveFormat(t *testing.T) {
	require.Equal(t, "ac3", resolveFormat("AC3", "HD", ""))
	require.Equal(t, "HQ", resolveFormat("", "hq", "avi"))
	require.Equal(t, "mp4", resolveFormat("", "", "MP4"))
	require.Equal(t, "avi", resolveFormat("", "", ""))
}
