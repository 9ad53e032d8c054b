// Package archive talks to the remote archive: the paginated advanced
// search API and the per-item file manifests.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/iapod/internal/episode"
	"github.com/hpungsan/iapod/internal/errors"
	"github.com/hpungsan/iapod/internal/httpx"
	"github.com/hpungsan/iapod/internal/logging"
)

const (
	DefaultBaseURL  = "https://archive.org"
	DefaultPageSize = 200
	DefaultSince    = "1970-01-01"
)

// searchFields are requested from the search API, in this order.
var searchFields = []string{
	"description", "downloads", "identifier", "item_size", "name",
	"publicdate", "publisher", "subject", "title",
}

// Entry is one remote catalog item for the duration of a run.
type Entry struct {
	Identifier string `json:"identifier"`

	// SequenceNumber is the 1-based position in ascending publish order
	// as paged by the search API. It is not the rank after sorting.
	SequenceNumber int `json:"sequence_number"`

	Version     int                `json:"version"`
	PublishedAt time.Time          `json:"published_at"`
	Subjects    episode.StringList `json:"subjects"`
	Description string             `json:"description"`
	Title       string             `json:"title"`
	Downloads   uint64             `json:"downloads"`
}

// CatalogOptions configures the search query.
type CatalogOptions struct {
	BaseURL  string
	Uploader string
	Podcast  string
	Since    string
	PageSize int
}

// FetchResult is the merged outcome of one paged fetch.
type FetchResult struct {
	Entries []Entry

	// NumFound is the total reported by the first page.
	NumFound int
	Pages    int

	// Skipped counts documents dropped for malformed structure.
	Skipped int

	// Truncated is set when a page failed and later pages were not fetched.
	Truncated bool
}

// CatalogClient retrieves every catalog entry for a fixed query.
type CatalogClient struct {
	http   *http.Client
	opts   CatalogOptions
	logger *slog.Logger
}

// NewCatalogClient returns a client; zero options take defaults.
func NewCatalogClient(client *http.Client, opts CatalogOptions, logger *slog.Logger) *CatalogClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Since == "" {
		opts.Since = DefaultSince
	}
	return &CatalogClient{http: client, opts: opts, logger: logging.OrDefault(logger)}
}

type searchResponse struct {
	Response struct {
		NumFound int               `json:"numFound"`
		Start    int               `json:"start"`
		Docs     []json.RawMessage `json:"docs"`
	} `json:"response"`
}

type searchDoc struct {
	Identifier  string             `json:"identifier"`
	Version     int                `json:"version"`
	PublicDate  string             `json:"publicdate"`
	Subject     episode.StringList `json:"subject"`
	Description episode.StringList `json:"description"`
	Title       string             `json:"title"`
	Downloads   uint64             `json:"downloads"`
}

// FetchAll pages through the search results and returns them merged,
// most recently published first, without duplicate identifiers.
//
// A page that fails is logged and ends pagination: the entries of earlier
// pages are kept and FetchResult.Truncated is set. Nothing is retried.
func (c *CatalogClient) FetchAll(ctx context.Context) FetchResult {
	var (
		result FetchResult
		pages  [][]Entry
	)

	for page := 1; ; page++ {
		resp, err := c.fetchPage(ctx, page)
		if err != nil {
			c.logger.Error("catalog page failed; remaining pages not fetched",
				"page", page, "truncated", true, logging.Err(err))
			result.Truncated = true
			break
		}
		result.Pages++
		if page == 1 {
			result.NumFound = resp.Response.NumFound
		}

		entries, skipped := c.decodeDocs(resp.Response.Docs, page)
		result.Skipped += skipped
		pages = append(pages, entries)

		if resp.Response.NumFound <= resp.Response.Start+c.opts.PageSize {
			break
		}
		if len(resp.Response.Docs) == 0 {
			c.logger.Warn("catalog page empty before numFound reached",
				"page", page, "num_found", resp.Response.NumFound, "start", resp.Response.Start)
			break
		}
	}

	// Deeper pages are appended ahead of the pages that led to them.
	// The sort below fixes the final order either way.
	var merged []Entry
	for i := len(pages) - 1; i >= 0; i-- {
		merged = append(merged, pages[i]...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})
	result.Entries = dedupe(merged, c.logger)

	c.logger.Info("catalog fetched",
		"entries", len(result.Entries), "num_found", result.NumFound,
		"pages", result.Pages, "skipped", result.Skipped, "truncated", result.Truncated)
	return result
}

// SearchURL returns the search request URL for page.
func (c *CatalogClient) SearchURL(page int) string {
	q := strings.Join([]string{
		fmt.Sprintf("uploader:(%s)", c.opts.Uploader),
		fmt.Sprintf("publicdate:[%s TO 9999-12-31]", c.opts.Since),
		fmt.Sprintf("podcast:(%s)", c.opts.Podcast),
		"mediatype:(audio)",
	}, " AND ")

	v := url.Values{}
	v.Set("q", q)
	for _, f := range searchFields {
		v.Add("fl[]", f)
	}
	v.Set("sort[]", "publicdate asc")
	v.Set("output", "json")
	v.Set("rows", strconv.Itoa(c.opts.PageSize))
	v.Set("page", strconv.Itoa(page))
	return c.opts.BaseURL + "/advancedsearch.php?" + v.Encode()
}

func (c *CatalogClient) fetchPage(ctx context.Context, page int) (*searchResponse, error) {
	u := c.SearchURL(page)
	c.logger.Debug("fetching catalog page", "page", page, "url", u)

	body, err := httpx.Get(ctx, c.http, u, "application/json")
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewMalformedResponse(fmt.Sprintf("search page %d", page), err)
	}
	return &resp, nil
}

// decodeDocs converts one page of raw documents. Malformed documents are
// logged and skipped; they still occupy their position in the page.
func (c *CatalogClient) decodeDocs(docs []json.RawMessage, page int) ([]Entry, int) {
	entries := make([]Entry, 0, len(docs))
	skipped := 0
	for i, raw := range docs {
		entry, err := decodeDoc(raw)
		if err != nil {
			skipped++
			c.logger.Error("skipping catalog entry", "page", page, "index", i, logging.Err(err))
			continue
		}
		entry.SequenceNumber = i + 1 + (page-1)*c.opts.PageSize
		entries = append(entries, entry)
	}
	return entries, skipped
}

func decodeDoc(raw json.RawMessage) (Entry, error) {
	var d searchDoc
	if err := json.Unmarshal(raw, &d); err != nil {
		return Entry{}, errors.NewMalformedResponse("catalog entry", err)
	}
	if strings.TrimSpace(d.Identifier) == "" {
		return Entry{}, errors.NewMalformedResponse("catalog entry", fmt.Errorf("missing identifier"))
	}
	published, err := time.Parse(time.RFC3339, d.PublicDate)
	if err != nil {
		return Entry{}, errors.NewMalformedResponse("catalog entry "+d.Identifier, err)
	}

	return Entry{
		Identifier:  d.Identifier,
		Version:     d.Version,
		PublishedAt: published.UTC(),
		Subjects:    d.Subject,
		Description: strings.Join(d.Description, "\n"),
		Title:       d.Title,
		Downloads:   d.Downloads,
	}, nil
}

// dedupe keeps the first occurrence of each identifier.
func dedupe(entries []Entry, logger *slog.Logger) []Entry {
	seen := make(map[string]bool, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if seen[e.Identifier] {
			logger.Warn("duplicate catalog entry dropped", "identifier", e.Identifier)
			continue
		}
		seen[e.Identifier] = true
		out = append(out, e)
	}
	return out
}
