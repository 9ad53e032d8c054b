// Package reconcile drives one synchronization pass of the remote catalog
// against the local episode store.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/hpungsan/iapod/internal/archive"
	"github.com/hpungsan/iapod/internal/episode"
	"github.com/hpungsan/iapod/internal/errors"
	"github.com/hpungsan/iapod/internal/logging"
	"github.com/hpungsan/iapod/internal/publish"
)

// Store is the subset of the episode store a pass needs.
type Store interface {
	Exists(identifier string) bool
	Load(identifier string) (*episode.Episode, error)
	Save(ep *episode.Episode) error
}

// Catalog returns every remote entry in final order.
type Catalog interface {
	FetchAll(ctx context.Context) archive.FetchResult
}

// Completer recovers audio fields for a new entry.
type Completer interface {
	Complete(ctx context.Context, identifier string) (archive.Manifest, error)
}

// Publisher announces a newly created episode.
type Publisher interface {
	Publish(ctx context.Context, ep *episode.Episode) []publish.Delivery
}

// Outcome is the terminal state of one entry.
type Outcome string

const (
	Unchanged Outcome = "unchanged"
	Updated   Outcome = "updated"
	Published Outcome = "published"
	Skipped   Outcome = "skipped"
)

// Result is what happened to one catalog entry.
type Result struct {
	Identifier string  `json:"identifier"`
	Outcome    Outcome `json:"outcome"`

	// Reason is the error code that caused a skip.
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`

	Deliveries []publish.Delivery `json:"deliveries,omitempty"`
}

// Report summarizes one pass.
type Report struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	NumFound  int  `json:"num_found"`
	Entries   int  `json:"entries"`
	Malformed int  `json:"malformed"`
	Truncated bool `json:"truncated"`

	Results []Result `json:"results"`
}

// Count returns how many entries ended in o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Engine reconciles the catalog against the store, one entry at a time.
type Engine struct {
	store     Store
	catalog   Catalog
	completer Completer
	publisher Publisher
	logger    *slog.Logger
	observer  func(Result)
}

// New returns an engine. A nil publisher means no channels are configured.
func New(store Store, catalog Catalog, completer Completer, publisher Publisher, logger *slog.Logger) *Engine {
	return &Engine{
		store:     store,
		catalog:   catalog,
		completer: completer,
		publisher: publisher,
		logger:    logging.OrDefault(logger),
	}
}

// Observe registers fn to receive each result as soon as it is final.
func (e *Engine) Observe(fn func(Result)) *Engine {
	e.observer = fn
	return e
}

// Run performs one pass. Entry failures are recorded in the report and never
// stop the pass; only a FATAL_IO error or context cancellation returns early,
// together with the partial report.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: time.Now().UTC()}

	fetched := e.catalog.FetchAll(ctx)
	report.NumFound = fetched.NumFound
	report.Entries = len(fetched.Entries)
	report.Malformed = fetched.Skipped
	report.Truncated = fetched.Truncated
	report.Results = make([]Result, 0, len(fetched.Entries))

	e.logger.Info("catalog fetched",
		"entries", report.Entries, "num_found", report.NumFound,
		"pages", fetched.Pages, "malformed", report.Malformed, "truncated", report.Truncated)

	for _, entry := range fetched.Entries {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = time.Now().UTC()
			return report, err
		}

		res, err := e.reconcile(ctx, entry)
		report.Results = append(report.Results, res)
		if e.observer != nil {
			e.observer(res)
		}
		if err != nil && errors.Is(err, errors.ErrFatalIO) {
			e.logger.Error("aborting pass", "identifier", entry.Identifier, logging.Err(err))
			report.FinishedAt = time.Now().UTC()
			return report, err
		}
	}

	report.FinishedAt = time.Now().UTC()
	e.logger.Info("pass finished",
		"unchanged", report.Count(Unchanged), "updated", report.Count(Updated),
		"published", report.Count(Published), "skipped", report.Count(Skipped))
	return report, nil
}

func (e *Engine) reconcile(ctx context.Context, entry archive.Entry) (Result, error) {
	if e.store.Exists(entry.Identifier) {
		return e.refresh(entry)
	}
	return e.create(ctx, entry)
}

// refresh updates the download count of an existing record.
func (e *Engine) refresh(entry archive.Entry) (Result, error) {
	log := e.logger.With("identifier", entry.Identifier)

	ep, err := e.store.Load(entry.Identifier)
	if err != nil {
		log.Error("cannot load record", logging.Err(err))
		return skipped(entry.Identifier, err), err
	}
	if ep.Downloads == entry.Downloads {
		return Result{Identifier: entry.Identifier, Outcome: Unchanged}, nil
	}

	log.Info("download count changed", "from", ep.Downloads, "to", entry.Downloads)
	ep.Downloads = entry.Downloads
	if err := e.store.Save(ep); err != nil {
		log.Error("cannot update record", logging.Err(err))
		return skipped(entry.Identifier, err), err
	}
	return Result{Identifier: entry.Identifier, Outcome: Updated}, nil
}

// create completes, persists and publishes a new entry.
func (e *Engine) create(ctx context.Context, entry archive.Entry) (Result, error) {
	log := e.logger.With("identifier", entry.Identifier)

	manifest, err := e.completer.Complete(ctx, entry.Identifier)
	if err != nil {
		log.Error("cannot complete entry", logging.Err(err))
		return skipped(entry.Identifier, err), err
	}
	if manifest.Incomplete() {
		err := errors.NewManifestIncomplete(entry.Identifier)
		log.Warn("skipping entry", logging.Err(err))
		return skipped(entry.Identifier, err), err
	}

	ep := NewEpisode(entry, manifest)
	if err := e.store.Save(ep); err != nil {
		log.Error("cannot save new record", logging.Err(err))
		return skipped(entry.Identifier, err), err
	}
	log.Info("episode created", "slug", ep.Slug, "filename", ep.Filename, "length", ep.Length)

	res := Result{Identifier: entry.Identifier, Outcome: Published}
	if e.publisher != nil {
		res.Deliveries = e.publisher.Publish(ctx, ep)
	}
	return res, nil
}

// NewEpisode combines a catalog entry with its manifest fields. The manifest
// title and comment fill in a missing title or description.
func NewEpisode(entry archive.Entry, m archive.Manifest) *episode.Episode {
	title := entry.Title
	if title == "" {
		title = m.Title
	}
	description := entry.Description
	if description == "" {
		description = m.Comment
	}

	ep := &episode.Episode{
		Number:     entry.SequenceNumber,
		Identifier: entry.Identifier,
		Title:      title,
		Subject:    append(episode.StringList(nil), entry.Subjects...),
		Downloads:  entry.Downloads,
		Filename:   m.AudioFilename,
		Datetime:   entry.PublishedAt,
		Version:    entry.Version,
		Size:       m.Size,
		Length:     m.Length,
		Mtime:      m.Mtime,
		Body:       description,
	}
	ep.Slug = episode.Slugify(title)
	ep.Excerpt = episode.Excerpt(description)
	return ep
}

func skipped(identifier string, err error) Result {
	return Result{
		Identifier: identifier,
		Outcome:    Skipped,
		Reason:     string(errors.CodeOf(err)),
		Error:      err.Error(),
	}
}
