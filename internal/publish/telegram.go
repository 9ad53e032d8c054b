package publish

import (
	"context"
	"net/http"
	"strings"

	"github.com/hpungsan/iapod/internal/errors"
	"github.com/hpungsan/iapod/internal/httpx"
	"github.com/hpungsan/iapod/internal/render"
)

const (
	telegramAPI = "https://api.telegram.org"

	// Telegram rejects longer captions.
	maxCaption = 1024
	maxMessage = 4096
)

// Telegram sends the episode audio with a caption to a chat.
type Telegram struct {
	apiBase string
	token   string
	chatID  string
	http    *http.Client
}

// NewTelegram returns a channel posting as the bot identified by token.
func NewTelegram(token, chatID string, client *http.Client) *Telegram {
	return &Telegram{apiBase: telegramAPI, token: token, chatID: chatID, http: client}
}

// WithAPIBase points the channel at another Bot API endpoint.
func (t *Telegram) WithAPIBase(base string) *Telegram {
	t.apiBase = strings.TrimRight(base, "/")
	return t
}

func (t *Telegram) Name() string     { return "telegram" }
func (t *Telegram) Template() string { return "telegram" }

// Deliver calls sendAudio with p.MediaURL, or sendMessage when there is no media.
func (t *Telegram) Deliver(ctx context.Context, p Payload) error {
	text := prepareCaption(p.Text)

	var (
		method  string
		payload map[string]string
	)
	if p.MediaURL != "" {
		method = "sendAudio"
		payload = map[string]string{
			"chat_id":    t.chatID,
			"audio":      p.MediaURL,
			"caption":    render.Truncate(maxCaption, text),
			"parse_mode": "HTML",
		}
	} else {
		method = "sendMessage"
		payload = map[string]string{
			"chat_id":    t.chatID,
			"text":       render.Truncate(maxMessage, text),
			"parse_mode": "HTML",
		}
	}

	url := t.apiBase + "/bot" + t.token + "/" + method
	if _, err := httpx.PostJSON(ctx, t.http, url, nil, payload); err != nil {
		return errors.NewDelivery(t.Name(), err)
	}
	return nil
}

// prepareCaption swaps double quotes for single ones.
func prepareCaption(s string) string {
	return strings.ReplaceAll(s, `"`, `'`)
}
