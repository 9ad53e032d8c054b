package archive

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hpungsan/iapod/internal/errors"
	"github.com/hpungsan/iapod/internal/httpx"
	"github.com/hpungsan/iapod/internal/logging"
)

// audioExts are the extensions accepted for the original audio file.
var audioExts = []string{".mp3", ".m4a"}

// Manifest holds the audio fields recovered from an item's file manifest.
// The zero value means no original audio file was listed.
type Manifest struct {
	AudioFilename string `json:"audio_filename"`
	Mtime         int64  `json:"mtime"`
	Size          int64  `json:"size"`

	// Length is the duration truncated to whole seconds.
	Length int64 `json:"length"`

	Title   string `json:"title,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// Incomplete reports whether the manifest lacks the fields a record needs.
func (m Manifest) Incomplete() bool {
	return m.AudioFilename == "" || (m.Size == 0 && m.Length == 0)
}

type manifestFile struct {
	Name    string `xml:"name,attr"`
	Source  string `xml:"source,attr"`
	Mtime   string `xml:"mtime"`
	Size    string `xml:"size"`
	Length  string `xml:"length"`
	Title   string `xml:"title"`
	Comment string `xml:"comment"`
}

// ManifestCompleter fetches and parses per-item file manifests.
type ManifestCompleter struct {
	http    *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewManifestCompleter returns a completer reading manifests under baseURL.
func NewManifestCompleter(client *http.Client, baseURL string, logger *slog.Logger) *ManifestCompleter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &ManifestCompleter{
		http:    client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logging.OrDefault(logger),
	}
}

// ManifestURL returns the manifest location for identifier.
func (m *ManifestCompleter) ManifestURL(identifier string) string {
	id := url.PathEscape(identifier)
	return fmt.Sprintf("%s/download/%s/%s_files.xml", m.baseURL, id, id)
}

// AudioURL returns the download location of an item's file.
func AudioURL(baseURL, identifier, filename string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return fmt.Sprintf("%s/download/%s/%s",
		strings.TrimRight(baseURL, "/"), url.PathEscape(identifier), url.PathEscape(filename))
}

// Complete fetches the manifest for identifier and extracts the first
// original audio file. A manifest without one yields a zero Manifest and
// no error; callers check Incomplete.
func (m *ManifestCompleter) Complete(ctx context.Context, identifier string) (Manifest, error) {
	u := m.ManifestURL(identifier)
	m.logger.Debug("fetching manifest", "identifier", identifier, "url", u)

	body, err := httpx.Get(ctx, m.http, u, "application/xml")
	if err != nil {
		return Manifest{}, err
	}

	manifest, err := ParseManifest(bytes.NewReader(body))
	if err != nil {
		return Manifest{}, errors.NewMalformedResponse("manifest for "+identifier, err)
	}
	if manifest.AudioFilename == "" {
		m.logger.Warn("manifest lists no original audio file", "identifier", identifier)
	}
	return manifest, nil
}

// ParseManifest returns the first <file> element whose name has an audio
// extension and whose source is "original". Scanning stops at that
// element's closing tag.
func ParseManifest(r io.Reader) (Manifest, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return Manifest{}, nil
		}
		if err != nil {
			return Manifest{}, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "file" {
			continue
		}
		if !isOriginalAudio(start) {
			if err := dec.Skip(); err != nil {
				return Manifest{}, err
			}
			continue
		}

		var f manifestFile
		if err := dec.DecodeElement(&f, &start); err != nil {
			return Manifest{}, err
		}
		return Manifest{
			AudioFilename: f.Name,
			Mtime:         parseInt(f.Mtime),
			Size:          parseInt(f.Size),
			Length:        ParseLength(f.Length),
			Title:         strings.TrimSpace(f.Title),
			Comment:       strings.TrimSpace(f.Comment),
		}, nil
	}
}

func isOriginalAudio(start xml.StartElement) bool {
	var name, source string
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "name":
			name = a.Value
		case "source":
			source = a.Value
		}
	}
	if source != "original" {
		return false
	}
	lower := strings.ToLower(name)
	for _, ext := range audioExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ParseLength converts a manifest duration to whole seconds. Decimal
// seconds are truncated at the point ("301.9" is 301); "m:ss" and
// "h:mm:ss" forms are also accepted. Anything else is 0.
func ParseLength(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if whole, _, found := strings.Cut(s, "."); found {
		s = whole
	}
	if !strings.Contains(s, ":") {
		return parseInt(s)
	}

	var total int64
	for _, part := range strings.Split(s, ":") {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
