package util

import (
	"testing"
	"time"
	"unicode/utf8"
)

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{
		-1:          "?",
		0:           "0 B",
		512:         "512 B",
		1536:        "1.5 KiB",
		5 * 1 << 20: "5.0 MiB",
	}
	for in, want := range cases {
		if got := FormatBytes(in); got != want {
			t.Fatalf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatCount(t *testing.T) {
	if got := FormatCount(1234567); got != "1,234,567" {
		t.Fatalf("unexpected count %q", got)
	}
}

func TestFormatAge(t *testing.T) {
	if got := FormatAge(time.Time{}); got != "never" {
		t.Fatalf("expected never, got %q", got)
	}
	if got := FormatAge(time.Now().Add(-3 * time.Hour)); got != "3 hours ago" {
		t.Fatalf("unexpected age %q", got)
	}
}

func TestTruncatePath(t *testing.T) {
	if got := TruncatePath("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	if got := TruncatePath("abcdefghij", 6); got != "...hij" {
		t.Fatalf("unexpected %q", got)
	}
	if got := TruncatePath("abcdefghij", 2); got != "ij" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestTruncatePath_Runes(t *testing.T) {
	in := "Überlänge_Fernsehfilm_Ökö"
	for n := 0; n <= utf8.RuneCountInString(in); n++ {
		got := TruncatePath(in, n)
		if !utf8.ValidString(got) {
			t.Fatalf("maxLen %d: invalid UTF-8 %q", n, got)
		}
		if c := utf8.RuneCountInString(got); c != n {
			t.Fatalf("maxLen %d: got %d runes in %q", n, c, got)
		}
	}
	if got := TruncatePath("Grüße aus Köln", 7); got != "...Köln" {
		t.Fatalf("unexpected %q", got)
	}
}
