package web

import (
	"net/http"
	"strconv"

	"github.com/hpungsan/iapod/internal/episode"
	"github.com/hpungsan/iapod/internal/ops"
)

// Handlers contains HTTP route handlers for the preview UI.
type Handlers struct {
	svc      *ops.Services
	renderer *Renderer
}

func (h *Handlers) page(title, nav string) PageData {
	return PageData{
		Title:   title,
		Version: h.renderer.version,
		Podcast: h.svc.Config.PodcastTitle,
		Nav:     nav,
	}
}

// HandleList handles GET /episodes: list local episodes.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	subject := r.URL.Query().Get("subject")
	result, err := ops.List(h.svc.Store, ops.ListInput{
		Limit:   parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:  parseIntParam(r, "offset", 0),
		Subject: subject,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData:   h.page("Episodes", "episodes"),
		Items:      result.Items,
		Pagination: result.Pagination,
		Subject:    subject,
	})
}

// HandleDetail handles GET /episodes/{id}: the rendered public view of one episode.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Fetch(h.svc.Store, h.svc.Config.ArchiveURL, ops.FetchInput{
		Identifier: r.PathValue("id"),
		Public:     true,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	var view episode.PublicView
	if result.Public != nil {
		view = *result.Public
	}
	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData: h.page(result.Title, "episodes"),
		Episode:  view,
		AudioURL: result.AudioURL,
	})
}

// HandleDeliveries handles GET /deliveries: recent publish attempts.
func (h *Handlers) HandleDeliveries(w http.ResponseWriter, r *http.Request) {
	data := DeliveriesPageData{
		PageData:   h.page("Deliveries", "deliveries"),
		Identifier: r.URL.Query().Get("identifier"),
		Channel:    r.URL.Query().Get("channel"),
	}

	if h.svc.DB == nil {
		data.Disabled = true
		h.renderer.renderPage(w, r, "deliveries", data)
		return
	}

	result, err := ops.Deliveries(r.Context(), h.svc.DB, ops.DeliveriesInput{
		Identifier: data.Identifier,
		Channel:    data.Channel,
		Limit:      parseIntParam(r, "limit", ops.DefaultDeliveryLimit),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	data.Items = result.Items
	h.renderer.renderPage(w, r, "deliveries", data)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
