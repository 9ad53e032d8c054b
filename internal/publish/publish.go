// Package publish announces newly created episodes on external channels.
package publish

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hpungsan/iapod/internal/archive"
	"github.com/hpungsan/iapod/internal/config"
	"github.com/hpungsan/iapod/internal/episode"
	"github.com/hpungsan/iapod/internal/errors"
	"github.com/hpungsan/iapod/internal/logging"
	"github.com/hpungsan/iapod/internal/render"
)

// Payload is what a channel delivers: rendered text and an optional media reference.
type Payload struct {
	Text     string
	MediaURL string
}

// Channel is one external notification target.
type Channel interface {
	// Name identifies the channel in logs and the ledger.
	Name() string
	// Template is the render key used to build the payload text.
	Template() string
	Deliver(ctx context.Context, p Payload) error
}

// Renderer builds template data and renders named templates.
type Renderer interface {
	DataFor(ep *episode.Episode, audioURL string) render.Data
	Render(key string, data any) (string, error)
}

// Delivery is the outcome of one channel attempt.
type Delivery struct {
	Channel string `json:"channel"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

// Message returns the failure message, or "".
func (d Delivery) Message() string {
	if d.Err == nil {
		return ""
	}
	return d.Err.Error()
}

// Dispatcher invokes every configured channel once per episode.
type Dispatcher struct {
	channels   []Channel
	renderer   Renderer
	archiveURL string
	logger     *slog.Logger
}

// NewDispatcher returns a dispatcher over channels, attempted in order.
func NewDispatcher(renderer Renderer, archiveURL string, logger *slog.Logger, channels ...Channel) *Dispatcher {
	return &Dispatcher{
		channels:   channels,
		renderer:   renderer,
		archiveURL: archiveURL,
		logger:     logging.OrDefault(logger),
	}
}

// Channels returns the configured channel names.
func (d *Dispatcher) Channels() []string {
	names := make([]string, len(d.channels))
	for i, ch := range d.channels {
		names[i] = ch.Name()
	}
	return names
}

// Publish renders and delivers ep on every channel. A failing channel is
// logged and does not stop the others; nothing persisted is touched.
func (d *Dispatcher) Publish(ctx context.Context, ep *episode.Episode) []Delivery {
	if len(d.channels) == 0 {
		return nil
	}

	audio := ""
	if ep.Filename != "" {
		audio = archive.AudioURL(d.archiveURL, ep.Identifier, ep.Filename)
	}
	data := d.renderer.DataFor(ep, audio)

	deliveries := make([]Delivery, 0, len(d.channels))
	for _, ch := range d.channels {
		err := d.deliver(ctx, ch, data, audio)
		if err != nil {
			d.logger.Error("publish failed",
				"identifier", ep.Identifier, "channel", ch.Name(), logging.Err(err))
		} else {
			d.logger.Info("published", "identifier", ep.Identifier, "channel", ch.Name())
		}
		dl := Delivery{Channel: ch.Name(), OK: err == nil, Err: err}
		if err != nil {
			dl.Error = err.Error()
		}
		deliveries = append(deliveries, dl)
	}
	return deliveries
}

func (d *Dispatcher) deliver(ctx context.Context, ch Channel, data render.Data, audio string) error {
	text, err := d.renderer.Render(ch.Template(), data)
	if err != nil {
		return err
	}
	if err := ch.Deliver(ctx, Payload{Text: text, MediaURL: audio}); err != nil {
		if errors.Is(err, errors.ErrDelivery) {
			return err
		}
		return errors.NewDelivery(ch.Name(), err)
	}
	return nil
}

// FromConfig builds the channels whose credentials are present.
// Telegram is attempted before Mastodon.
func FromConfig(cfg *config.Config, client *http.Client) []Channel {
	var channels []Channel
	if cfg.Telegram.Enabled() {
		channels = append(channels, NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, client))
	}
	if cfg.Mastodon.Enabled() {
		channels = append(channels, NewMastodon(cfg.Mastodon.Instance, cfg.Mastodon.Token, client))
	}
	return channels
}
