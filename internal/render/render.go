// Package render turns episode records into channel text through named templates.
//
// A Service is built once at startup and shared by every consumer.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"
	_ "time/tzdata"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/hpungsan/iapod/internal/episode"
	"github.com/hpungsan/iapod/internal/errors"
)

const templateExt = ".tmpl"

//go:embed templates/*.tmpl
var embedded embed.FS

// Podcast describes the show for templates.
type Podcast struct {
	Title   string
	Author  string
	SiteURL string
}

// Data is the value templates execute against.
type Data struct {
	// URL is the podcast's path prefix under SiteURL ("" or "/podcast").
	URL     string
	Podcast Podcast
	Post    episode.PublicView

	// Audio is the absolute download URL of the episode's audio file.
	Audio string
}

// Options configures a Service.
type Options struct {
	// Dir optionally holds *.tmpl files that replace or add to the built-in templates.
	Dir string

	// Timezone is the IANA zone used by the date filter. Empty means UTC.
	Timezone string

	Podcast    Podcast
	PublicPath string
}

// Service renders named templates.
type Service struct {
	tmpl       *template.Template
	loc        *time.Location
	podcast    Podcast
	publicPath string
}

// New parses the built-in templates, then any in opts.Dir.
func New(opts Options) (*Service, error) {
	loc := time.UTC
	if opts.Timezone != "" {
		l, err := time.LoadLocation(opts.Timezone)
		if err != nil {
			return nil, fmt.Errorf("timezone %q: %w", opts.Timezone, err)
		}
		loc = l
	}

	s := &Service{
		loc:        loc,
		podcast:    opts.Podcast,
		publicPath: opts.PublicPath,
	}

	root := template.New("").Funcs(s.funcs())
	tmpl, err := root.ParseFS(embedded, "templates/*"+templateExt)
	if err != nil {
		return nil, fmt.Errorf("parse built-in templates: %w", err)
	}

	if opts.Dir != "" {
		matches, err := filepath.Glob(filepath.Join(opts.Dir, "*"+templateExt))
		if err != nil {
			return nil, fmt.Errorf("templates dir: %w", err)
		}
		for _, path := range matches {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read template %s: %w", path, err)
			}
			if _, err := tmpl.New(filepath.Base(path)).Parse(string(data)); err != nil {
				return nil, fmt.Errorf("parse template %s: %w", path, err)
			}
		}
	}

	s.tmpl = tmpl
	return s, nil
}

// Names lists the available template keys.
func (s *Service) Names() []string {
	var names []string
	for _, t := range s.tmpl.Templates() {
		if name, ok := strings.CutSuffix(t.Name(), templateExt); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Render executes the template named key ("mastodon" for mastodon.tmpl).
// The result is trimmed. Failures are RENDER errors.
func (s *Service) Render(key string, data any) (string, error) {
	t := s.tmpl.Lookup(key + templateExt)
	if t == nil {
		return "", errors.NewRender(key, fmt.Errorf("template not found"))
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.NewRender(key, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// DataFor builds template data for ep. audioURL may be empty.
func (s *Service) DataFor(ep *episode.Episode, audioURL string) Data {
	return Data{
		URL:     s.publicPath,
		Podcast: s.podcast,
		Post:    episode.ToPublicView(ep),
		Audio:   audioURL,
	}
}

func (s *Service) funcs() template.FuncMap {
	return template.FuncMap{
		"striptags": StripTags,
		"truncate":  Truncate,
		"date":      func(layout string, v any) (string, error) { return formatDate(layout, s.loc, v) },
		"dateIn":    s.dateIn,
		"duration":  episode.FormatDuration,
		"hashtag":   Hashtag,
		"html":      html.EscapeString,
		"join":      func(sep string, items []string) string { return strings.Join(items, sep) },
	}
}

func (s *Service) dateIn(layout, tz string, v any) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", err
	}
	return formatDate(layout, loc, v)
}

func formatDate(layout string, loc *time.Location, v any) (string, error) {
	var t time.Time
	switch val := v.(type) {
	case time.Time:
		t = val
	case *time.Time:
		if val == nil {
			return "", nil
		}
		t = *val
	case string:
		parsed, err := time.Parse(time.RFC3339, val)
		if err != nil {
			return "", err
		}
		t = parsed
	default:
		return "", fmt.Errorf("date: unsupported value %T", v)
	}
	return t.In(loc).Format(layout), nil
}

// StripTags returns the text content of an HTML fragment, entities decoded.
func StripTags(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// Truncate keeps the first n runes of s.
func Truncate(n int, s string) string {
	if n < 0 {
		n = 0
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Hashtag keeps only the letters and digits of s.
func Hashtag(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
