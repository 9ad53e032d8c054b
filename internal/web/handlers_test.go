package web

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/iapod/internal/config"
	"github.com/hpungsan/iapod/internal/db"
	"github.com/hpungsan/iapod/internal/episode"
	"github.com/hpungsan/iapod/internal/logging"
	"github.com/hpungsan/iapod/internal/ops"
)

func setupTest(t *testing.T) *Handlers {
	t.Helper()
	tmpDir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.EpisodesDir = filepath.Join(tmpDir, "episodes")
	cfg.ArchiveURL = "https://archive.test"
	cfg.PodcastTitle = "Atareao"

	svc, err := ops.NewServices(cfg, filepath.Join(tmpDir, ".iapod"), logging.Discard())
	if err != nil {
		t.Fatalf("NewServices: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}
	renderer, err := NewRenderer(templateSub, "test", logging.Discard())
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	return &Handlers{svc: svc, renderer: renderer}
}

func seedEpisode(t *testing.T, h *Handlers, id, title string, day int, downloads uint64) {
	t.Helper()
	ep := &episode.Episode{
		Number:     day,
		Identifier: id,
		Title:      title,
		Subject:    episode.StringList{"linux"},
		Downloads:  downloads,
		Filename:   id + ".mp3",
		Datetime:   time.Date(2023, 7, day, 0, 0, 0, 0, time.UTC),
		Length:     3725,
		Body:       "Hoy hablamos de <b>Linux</b> y **Rust**.\n",
	}
	ep.Derive()
	if err := h.svc.Store.Save(ep); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

// --- HandleList ---

func TestHandleList(t *testing.T) {
	h := setupTest(t)
	seedEpisode(t, h, "ep1", "Primero", 1, 1234567)
	seedEpisode(t, h, "ep2", "Segundo & más", 2, 10)

	req := httptest.NewRequest("GET", "/episodes", nil)
	w := httptest.NewRecorder()
	h.HandleList(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		`href="/episodes/ep1"`,
		"Segundo &amp; más",
		"1,234,567",
		"1:02:05",
		"2 episodes",
		"<title>Episodes · Atareao</title>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Index(body, "ep2") > strings.Index(body, "ep1") {
		t.Error("episodes should be listed most recent first")
	}
}

func TestHandleList_JSON(t *testing.T) {
	h := setupTest(t)
	seedEpisode(t, h, "ep1", "Primero", 1, 1)

	req := httptest.NewRequest("GET", "/episodes?limit=1", nil)
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	h.HandleList(w, req)

	var out ops.ListOutput
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].Identifier != "ep1" {
		t.Errorf("items = %+v", out.Items)
	}
}

func TestHandleList_HTMXPartial(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/episodes", nil)
	req.Header.Set("HX-Request", "true")
	w := httptest.NewRecorder()
	h.HandleList(w, req)

	body := w.Body.String()
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("htmx request should render only the content block")
	}
	if !strings.Contains(body, "No episodes yet") {
		t.Errorf("body = %q", body)
	}
}

// --- HandleDetail ---

func TestHandleDetail(t *testing.T) {
	h := setupTest(t)
	seedEpisode(t, h, "ep42", "Episodio 42", 22, 5)

	req := httptest.NewRequest("GET", "/episodes/ep42", nil)
	req.SetPathValue("id", "ep42")
	w := httptest.NewRecorder()
	h.HandleDetail(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"<h1>Episodio 42</h1>",
		"<b>Linux</b>",
		"<strong>Rust</strong>",
		`src="https://archive.test/download/ep42/ep42.mp3"`,
		`href="/episodes?subject=linux"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestHandleDetail_NotFound(t *testing.T) {
	h := setupTest(t)

	tests := []struct {
		name   string
		accept string
		want   string
	}{
		{"html", "", "Error 404"},
		{"json", "application/json", `"code":"NOT_FOUND"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/episodes/nope", nil)
			req.SetPathValue("id", "nope")
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			w := httptest.NewRecorder()
			h.HandleDetail(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("status = %d, want 404", w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("body missing %q: %s", tt.want, w.Body.String())
			}
		})
	}
}

// --- HandleDeliveries ---

func TestHandleDeliveries(t *testing.T) {
	h := setupTest(t)
	ctx := context.Background()
	run, err := db.StartRun(ctx, h.svc.DB)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	rows := []*db.Delivery{
		{RunID: run.ID, Identifier: "ep42", Channel: "telegram", OK: true},
		{RunID: run.ID, Identifier: "ep42", Channel: "mastodon", Error: "DELIVERY: 401"},
	}
	for _, d := range rows {
		if err := db.InsertDelivery(ctx, h.svc.DB, d); err != nil {
			t.Fatalf("InsertDelivery: %v", err)
		}
	}

	req := httptest.NewRequest("GET", "/deliveries", nil)
	w := httptest.NewRecorder()
	h.HandleDeliveries(w, req)

	body := w.Body.String()
	if !strings.Contains(body, `class="failed"`) || !strings.Contains(body, "DELIVERY: 401") {
		t.Errorf("failed delivery not rendered: %s", body)
	}
	if !strings.Contains(body, "telegram") {
		t.Error("telegram delivery not rendered")
	}
}

func TestHandleDeliveries_LedgerDisabled(t *testing.T) {
	h := setupTest(t)
	h.svc.Close()
	h.svc.DB = nil

	req := httptest.NewRequest("GET", "/deliveries", nil)
	w := httptest.NewRecorder()
	h.HandleDeliveries(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ledger is disabled") {
		t.Errorf("body = %s", w.Body.String())
	}
}

// --- Server ---

func TestServer_RoutesAndHeaders(t *testing.T) {
	h := setupTest(t)
	srv, err := NewServer(h.svc, "test", "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	tests := []struct {
		path string
		want int
	}{
		{"/", http.StatusFound},
		{"/episodes", http.StatusOK},
		{"/static/style.css", http.StatusOK},
		{"/deliveries", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.path, nil)
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, req)

		if w.Code != tt.want {
			t.Errorf("GET %s status = %d, want %d", tt.path, w.Code, tt.want)
		}
		if w.Header().Get("X-Frame-Options") != "DENY" {
			t.Errorf("GET %s missing security headers", tt.path)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[uint64]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		1234567: "1,234,567",
	}
	for in, want := range tests {
		if got := formatNumber(in); got != want {
			t.Errorf("formatNumber(%d) = %q, want %q", in, got, want)
		}
	}
}
