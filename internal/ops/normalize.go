package ops

import "github.com/hpungsan/iapod/internal/store"

// NormalizeOutput reports a normalize pass over the store.
type NormalizeOutput struct {
	Records   int `json:"records"`
	Rewritten int `json:"rewritten"`
}

// Normalize fills missing slugs and excerpts and moves records to their
// canonical file names.
func Normalize(st *store.Store) (*NormalizeOutput, error) {
	rewritten, err := st.Normalize()
	if err != nil {
		return nil, err
	}
	// Second scan is read-only: everything is canonical now.
	episodes, err := st.List()
	if err != nil {
		return nil, err
	}
	return &NormalizeOutput{Records: len(episodes), Rewritten: rewritten}, nil
}
