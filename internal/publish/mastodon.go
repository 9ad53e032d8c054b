package publish

import (
	"context"
	"net/http"
	"strings"

	"github.com/hpungsan/iapod/internal/errors"
	"github.com/hpungsan/iapod/internal/httpx"
)

// Mastodon posts a status to an instance.
type Mastodon struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewMastodon returns a channel for instance ("mastodon.social" or a full URL).
func NewMastodon(instance, token string, client *http.Client) *Mastodon {
	base := strings.TrimRight(strings.TrimSpace(instance), "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &Mastodon{baseURL: base, token: token, http: client}
}

func (m *Mastodon) Name() string     { return "mastodon" }
func (m *Mastodon) Template() string { return "mastodon" }

// Deliver posts p.Text as a public status.
func (m *Mastodon) Deliver(ctx context.Context, p Payload) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+m.token)

	_, err := httpx.PostJSON(ctx, m.http, m.baseURL+"/api/v1/statuses", header, map[string]string{
		"status": p.Text,
	})
	if err != nil {
		return errors.NewDelivery(m.Name(), err)
	}
	return nil
}
