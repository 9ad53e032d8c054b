package ops

import (
	"strings"
	"time"

	"github.com/hpungsan/iapod/internal/episode"
	"github.com/hpungsan/iapod/internal/store"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Limit  int // default: 20, max: 200
	Offset int // default: 0

	// Subject keeps only episodes tagged with it (case-insensitive).
	Subject string
}

// EpisodeSummary is the listing form of a record, without body or excerpt.
type EpisodeSummary struct {
	Number     int       `json:"number"`
	Identifier string    `json:"identifier"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Datetime   time.Time `json:"datetime"`
	Downloads  uint64    `json:"downloads"`
	Length     int64     `json:"length"`
	Filename   string    `json:"filename"`
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []EpisodeSummary `json:"items"`
	Pagination Pagination       `json:"pagination"`
	Sort       string           `json:"sort"`
}

// List returns episode summaries, most recent first.
func List(st *store.Store, input ListInput) (*ListOutput, error) {
	limit := clampLimit(input.Limit, DefaultListLimit, MaxListLimit)
	offset := max(input.Offset, 0)

	all, err := st.List()
	if err != nil {
		return nil, err
	}

	if subject := strings.TrimSpace(input.Subject); subject != "" {
		filtered := all[:0:0]
		for _, ep := range all {
			if hasSubject(ep, subject) {
				filtered = append(filtered, ep)
			}
		}
		all = filtered
	}

	total := len(all)
	items := []EpisodeSummary{}
	for i := offset; i < total && len(items) < limit; i++ {
		items = append(items, Summarize(all[i]))
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "datetime_desc",
	}, nil
}

// Summarize converts a record to its listing form.
func Summarize(ep *episode.Episode) EpisodeSummary {
	return EpisodeSummary{
		Number:     ep.Number,
		Identifier: ep.Identifier,
		Title:      ep.Title,
		Slug:       ep.Slug,
		Datetime:   ep.Datetime,
		Downloads:  ep.Downloads,
		Length:     ep.Length,
		Filename:   ep.Filename,
	}
}

func hasSubject(ep *episode.Episode, subject string) bool {
	for _, s := range ep.Subject {
		if strings.EqualFold(s, subject) {
			return true
		}
	}
	return false
}
