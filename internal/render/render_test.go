package render

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/iapod/internal/episode"
	"github.com/hpungsan/iapod/internal/errors"
)

func testEpisode() *episode.Episode {
	return &episode.Episode{
		Identifier: "ep42",
		Title:      "Episodio 42",
		Subject:    episode.StringList{"linux", "software libre"},
		Datetime:   time.Date(2023, 7, 22, 23, 30, 0, 0, time.UTC),
		Filename:   "ep42.mp3",
		Length:     301,
		Excerpt:    "Hoy hablamos de <b>Linux</b> &amp; más",
		Slug:       "episodio-42",
		Body:       "Hoy hablamos de **Linux**.",
	}
}

func newTestService(t *testing.T, opts Options) *Service {
	t.Helper()
	if opts.Podcast.Title == "" {
		opts.Podcast = Podcast{Title: "Papá Friki", SiteURL: "https://example.com"}
	}
	s, err := New(opts)
	require.NoError(t, err)
	return s
}

func TestRender_Mastodon(t *testing.T) {
	s := newTestService(t, Options{PublicPath: "/podcast"})

	out, err := s.Render("mastodon", s.DataFor(testEpisode(), ""))
	require.NoError(t, err)
	require.Equal(t,
		"Episodio 42\n\nHoy hablamos de Linux & más\n\nhttps://example.com/podcast/episodio-42/\n\n#linux #softwarelibre",
		out)
}

func TestRender_Telegram(t *testing.T) {
	s := newTestService(t, Options{Timezone: "Europe/Madrid"})

	out, err := s.Render("telegram", s.DataFor(testEpisode(), "https://archive.org/download/ep42/ep42.mp3"))
	require.NoError(t, err)
	require.Contains(t, out, "<b>Episodio 42</b>")
	require.Contains(t, out, "5:01")
	// 23:30 UTC is the next day in Madrid.
	require.Contains(t, out, "23/07/2023")
	require.Contains(t, out, `<a href="https://example.com/episodio-42/">Papá Friki</a>`)
}

func TestRender_TelegramEscapesText(t *testing.T) {
	s := newTestService(t, Options{})
	ep := testEpisode()
	ep.Title = "Linux & Co <3"
	ep.Excerpt = "Tom &amp; Jerry &lt;b&gt;"

	out, err := s.Render("telegram", s.DataFor(ep, ""))
	require.NoError(t, err)
	require.Contains(t, out, "<b>Linux &amp; Co &lt;3</b>")
	require.Contains(t, out, "Tom &amp; Jerry &lt;b&gt;")
	require.NotContains(t, out, "Jerry <b>")
}

func TestRender_MastodonKeepsPlainText(t *testing.T) {
	s := newTestService(t, Options{})
	ep := testEpisode()
	ep.Title = "Linux & Co"

	out, err := s.Render("mastodon", s.DataFor(ep, ""))
	require.NoError(t, err)
	require.Contains(t, out, "Linux & Co\n")
}

func TestRender_UnknownTemplate(t *testing.T) {
	s := newTestService(t, Options{})

	_, err := s.Render("feed", Data{})
	require.True(t, errors.Is(err, errors.ErrRender))
}

func TestRender_ExecutionError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.tmpl"), []byte(`{{ .Missing.Field }}`), 0o644))
	s := newTestService(t, Options{Dir: dir})

	_, err := s.Render("broken", Data{})
	require.True(t, errors.Is(err, errors.ErrRender))
}

func TestNew_OverridesFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mastodon.tmpl"), []byte(`{{ .Post.Title | truncate 8 }}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`ignored`), 0o644))
	s := newTestService(t, Options{Dir: dir})

	out, err := s.Render("mastodon", s.DataFor(testEpisode(), ""))
	require.NoError(t, err)
	require.Equal(t, "Episodio", out)
	require.Equal(t, []string{"mastodon", "telegram"}, s.Names())
}

func TestNew_BadTemplate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.tmpl"), []byte(`{{ if }}`), 0o644))

	_, err := New(Options{Dir: dir})
	require.Error(t, err)
}

func TestNew_BadTimezone(t *testing.T) {
	_, err := New(Options{Timezone: "Mars/Olympus"})
	require.Error(t, err)
}

func TestStripTags(t *testing.T) {
	tests := map[string]string{
		"plain text":                        "plain text",
		"<p>Hola <b>mundo</b></p>":          "Hola mundo",
		"Tom &amp; Jerry":                   "Tom & Jerry",
		"<p>uno</p>\n<p>dos</p>":            "uno\ndos",
		`<a href="https://x.test">web</a>`: "web",
	}
	for in, want := range tests {
		if got := StripTags(in); got != want {
			t.Errorf("StripTags(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "Canci", Truncate(5, "Canción"))
	require.Equal(t, "Canción", Truncate(50, "Canción"))
	require.Equal(t, "", Truncate(0, "abc"))
	require.Equal(t, "", Truncate(-1, "abc"))
}

func TestHashtag(t *testing.T) {
	require.Equal(t, "softwarelibre", Hashtag("software libre"))
	require.Equal(t, "c3po", Hashtag("c-3po!"))
}
