package ops

import (
	"github.com/hpungsan/iapod/internal/archive"
	"github.com/hpungsan/iapod/internal/episode"
	"github.com/hpungsan/iapod/internal/store"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	Identifier  string
	IncludeBody *bool // default: true (nil means default)

	// Public adds the rendered HTML view.
	Public bool
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	episode.Episode // embedded (copy, not pointer)

	AudioURL string              `json:"audio_url,omitempty"`
	Public   *episode.PublicView `json:"public,omitempty"`
}

// Fetch loads one record by identifier.
func Fetch(st *store.Store, archiveURL string, input FetchInput) (*FetchOutput, error) {
	ep, err := st.Load(input.Identifier)
	if err != nil {
		return nil, err
	}

	output := &FetchOutput{Episode: *ep}
	if ep.Filename != "" {
		output.AudioURL = archive.AudioURL(archiveURL, ep.Identifier, ep.Filename)
	}
	if input.Public {
		view := episode.ToPublicView(ep)
		output.Public = &view
	}

	includeBody := true
	if input.IncludeBody != nil {
		includeBody = *input.IncludeBody
	}
	if !includeBody {
		output.Body = ""
		if output.Public != nil {
			output.Public.Content = ""
		}
	}
	return output, nil
}
