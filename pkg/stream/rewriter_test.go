package stream

import (
	"strings"
	"testing"
)

func TestRewrite_relativeSegment(t *testing.T) {
	base := "http://cdn.example.com/live/channel1/index.m3u8"

	content := "#EXTM3U\n#EXTINF:10,\nseg001.ts\n"
	got := Rewrite(content, base)

	want := "#EXTM3U\n#EXTINF:10,\nhttp://cdn.example.com/live/channel1/seg001.ts\n"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestRewrite_rootRelativeSegment(t *testing.T) {
	base := "http://cdn.example.com/live/channel1/index.m3u8"

	got := Rewrite("/abs/seg002.ts", base)

	if got != "http://cdn.example.com/abs/seg002.ts" {
		t.Errorf("Expected origin-anchored URL, got %q", got)
	}
}

func TestRewrite_keyURIAttribute(t *testing.T) {
	base := "http://cdn.example.com/live/channel1/index.m3u8"

	got := Rewrite(`#EXT-X-KEY:METHOD=AES-128,URI="key.bin"`, base)

	want := `#EXT-X-KEY:METHOD=AES-128,URI="http://cdn.example.com/live/channel1/key.bin"`
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestRewrite_keyURIAttribute_preservesTagRest(t *testing.T) {
	base := "http://cdn.example.com/live/channel1/index.m3u8"

	got := Rewrite(`#EXT-X-KEY:METHOD=AES-128,URI="/keys/key.bin",IV=0x1234`, base)

	want := `#EXT-X-KEY:METHOD=AES-128,URI="http://cdn.example.com/keys/key.bin",IV=0x1234`
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestRewrite_absoluteLinesUntouched(t *testing.T) {
	base := "http://cdn.example.com/live/channel1/index.m3u8"

	content := strings.Join([]string{
		"#EXTM3U",
		"http://other.cdn/seg003.ts",
		`#EXT-X-KEY:METHOD=AES-128,URI="https://keys.example.com/k1"`,
		"",
	}, "\n")

	if got := Rewrite(content, base); got != content {
		t.Errorf("Expected already-absolute playlist unchanged, got %q", got)
	}
}

func TestRewrite_keyNonePassesThrough(t *testing.T) {
	got := Rewrite("#EXT-X-KEY:NONE", "http://cdn.example.com/a/b.m3u8")
	if got != "#EXT-X-KEY:NONE" {
		t.Errorf("Expected #EXT-X-KEY:NONE untouched, got %q", got)
	}
}

func TestRewrite_tagWithoutURIPassesThrough(t *testing.T) {
	line := "#EXT-X-TARGETDURATION:10"
	if got := Rewrite(line, "http://cdn.example.com/a/b.m3u8"); got != line {
		t.Errorf("Expected tag line untouched, got %q", got)
	}
}

func TestRewrite_trimsTrailingWhitespace(t *testing.T) {
	base := "http://cdn.example.com/live/index.m3u8"

	got := Rewrite("seg001.ts \r", base)

	if got != "http://cdn.example.com/live/seg001.ts" {
		t.Errorf("Expected trimmed and resolved line, got %q", got)
	}
}

func TestRewrite_badBaseLeavesLineUnchanged(t *testing.T) {
	// A base URL that fails to parse must not break the playlist.
	got := Rewrite("seg001.ts", "http://bad url/with spaces")
	if got != "seg001.ts" {
		t.Errorf("Expected line unchanged on resolve error, got %q", got)
	}
}

func TestRewrite_baseEndingInSlash(t *testing.T) {
	got := Rewrite("seg.ts", "http://cdn.example.com/live/channel1/")
	if got != "http://cdn.example.com/live/channel1/seg.ts" {
		t.Errorf("Expected directory base kept as-is, got %q", got)
	}
}

func TestRewrite_segmentWithQuery(t *testing.T) {
	got := Rewrite("seg.ts?token=abc", "http://cdn.example.com/live/index.m3u8")
	if got != "http://cdn.example.com/live/seg.ts?token=abc" {
		t.Errorf("Expected query preserved, got %q", got)
	}
}

func TestRewrite_fullPlaylist(t *testing.T) {
	base := "http://cdn.example.com/live/channel1/index.m3u8"

	content := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-VERSION:3",
		"#EXT-X-TARGETDURATION:10",
		`#EXT-X-KEY:METHOD=AES-128,URI="key.bin"`,
		"#EXTINF:10.0,",
		"seg001.ts",
		"#EXTINF:10.0,",
		"/abs/seg002.ts",
		"#EXTINF:10.0,",
		"http://other.cdn/seg003.ts",
		"#EXT-X-ENDLIST",
	}, "\n")

	want := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-VERSION:3",
		"#EXT-X-TARGETDURATION:10",
		`#EXT-X-KEY:METHOD=AES-128,URI="http://cdn.example.com/live/channel1/key.bin"`,
		"#EXTINF:10.0,",
		"http://cdn.example.com/live/channel1/seg001.ts",
		"#EXTINF:10.0,",
		"http://cdn.example.com/abs/seg002.ts",
		"#EXTINF:10.0,",
		"http://other.cdn/seg003.ts",
		"#EXT-X-ENDLIST",
	}, "\n")

	if got := Rewrite(content, base); got != want {
		t.Errorf("Playlist rewrite mismatch.\nGot:\n%s\nWant:\n%s", got, want)
	}
}

func TestIsPlaylist(t *testing.T) {
	cases := []struct {
		contentType string
		url         string
		want        bool
	}{
		{"application/vnd.apple.mpegurl", "http://x/y", true},
		{"application/x-mpegURL; charset=utf-8", "http://x/y", true},
		{"audio/mpegurl", "http://x/y", true},
		{"video/mp2t", "http://x/seg.ts", false},
		{"", "http://x/index.m3u8", true},
		{"", "http://x/index.m3u8?token=1", true},
		{"", "http://x/seg.ts", false},
		{"text/html", "http://x/index.m3u8", false},
	}

	for _, tc := range cases {
		if got := IsPlaylist(tc.contentType, tc.url); got != tc.want {
			t.Errorf("IsPlaylist(%q, %q) = %v, want %v", tc.contentType, tc.url, got, tc.want)
		}
	}
}
