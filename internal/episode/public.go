package episode

import (
	"bytes"
	"fmt"
	"html"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Bodies come from the podcast's own uploads and often carry inline HTML.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Linkify),
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

// PublicView is the renderable form of a record: markdown already
// converted to HTML, duration formatted.
type PublicView struct {
	Number     int       `json:"number"`
	Identifier string    `json:"identifier"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Subject    []string  `json:"subject"`
	Date       time.Time `json:"date"`
	Version    int       `json:"version"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	Length     int64     `json:"length"`
	Duration   string    `json:"duration"`
	Downloads  uint64    `json:"downloads"`
	Excerpt    string    `json:"excerpt"`
	Content    string    `json:"content"`
}

// ToPublicView converts e for rendering. It does not modify e.
func ToPublicView(e *Episode) PublicView {
	return PublicView{
		Number:     e.Number,
		Identifier: e.Identifier,
		Title:      e.Title,
		Slug:       e.Slug,
		Subject:    append([]string(nil), e.Subject...),
		Date:       e.Datetime,
		Version:    e.Version,
		Filename:   e.Filename,
		Size:       e.Size,
		Length:     e.Length,
		Duration:   FormatDuration(e.Length),
		Downloads:  e.Downloads,
		Excerpt:    MarkdownToHTML(e.Excerpt),
		Content:    MarkdownToHTML(e.Body),
	}
}

// MarkdownToHTML renders md; on failure the escaped source is returned.
func MarkdownToHTML(md string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return html.EscapeString(md)
	}
	return buf.String()
}

// FormatDuration renders seconds as h:mm:ss, m:ss or s.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hrs := seconds / 3600
	mins := (seconds / 60) % 60
	sec := seconds % 60

	switch {
	case hrs > 0:
		return fmt.Sprintf("%d:%02d:%02d", hrs, mins, sec)
	case mins > 0:
		return fmt.Sprintf("%d:%02d", mins, sec)
	default:
		return fmt.Sprintf("%d", sec)
	}
}
