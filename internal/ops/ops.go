package ops

import (
	"database/sql"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/hpungsan/iapod/internal/archive"
	"github.com/hpungsan/iapod/internal/config"
	"github.com/hpungsan/iapod/internal/db"
	"github.com/hpungsan/iapod/internal/errors"
	"github.com/hpungsan/iapod/internal/httpx"
	"github.com/hpungsan/iapod/internal/logging"
	"github.com/hpungsan/iapod/internal/publish"
	"github.com/hpungsan/iapod/internal/reconcile"
	"github.com/hpungsan/iapod/internal/render"
	"github.com/hpungsan/iapod/internal/store"
)

// Pagination limits
const (
	DefaultListLimit     = 20
	MaxListLimit         = 200
	DefaultDeliveryLimit = 50
	MaxDeliveryLimit     = 500
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Services bundles the collaborators every surface (CLI, MCP, web) shares.
// They are built once at startup and passed by reference.
type Services struct {
	Config   *config.Config
	Store    *store.Store
	Renderer *render.Service
	HTTP     *http.Client

	// DB is the run/delivery ledger; nil when disabled.
	DB     *sql.DB
	Logger *slog.Logger
}

// NewServices builds the shared collaborators from cfg.
// baseDir holds the ledger (~/.iapod in production).
func NewServices(cfg *config.Config, baseDir string, logger *slog.Logger) (*Services, error) {
	logger = logging.OrDefault(logger)

	st, err := store.New(cfg.EpisodesDir, logger)
	if err != nil {
		return nil, err
	}

	renderer, err := render.New(render.Options{
		Dir:      cfg.TemplatesDir,
		Timezone: cfg.Timezone,
		Podcast: render.Podcast{
			Title:   cfg.PodcastTitle,
			Author:  cfg.PodcastAuthor,
			SiteURL: cfg.SiteURL,
		},
		PublicPath: cfg.PublicPath(),
	})
	if err != nil {
		return nil, errors.NewRender("templates", err)
	}

	svc := &Services{
		Config:   cfg,
		Store:    st,
		Renderer: renderer,
		HTTP:     httpx.NewClient(time.Duration(cfg.HTTPTimeoutSeconds) * time.Second),
		Logger:   logger,
	}

	if !cfg.LedgerDisabled {
		database, err := db.Init(baseDir)
		if err != nil {
			// The ledger is an audit trail; reconciliation works without it.
			logger.Warn("ledger unavailable", "dir", filepath.Clean(baseDir), logging.Err(err))
		} else {
			svc.DB = database
		}
	}
	return svc, nil
}

// Close releases the ledger.
func (s *Services) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Dispatcher returns the publish dispatcher for the configured channels.
func (s *Services) Dispatcher() *publish.Dispatcher {
	channels := publish.FromConfig(s.Config, s.HTTP)
	return publish.NewDispatcher(s.Renderer, s.Config.ArchiveURL, s.Logger, channels...)
}

// Engine returns a reconciliation engine wired to the archive and channels.
func (s *Services) Engine() *reconcile.Engine {
	catalog := archive.NewCatalogClient(s.HTTP, archive.CatalogOptions{
		BaseURL:  s.Config.ArchiveURL,
		Uploader: s.Config.Uploader,
		Podcast:  s.Config.Podcast,
		Since:    s.Config.Since,
		PageSize: s.Config.PageSize,
	}, s.Logger)
	completer := archive.NewManifestCompleter(s.HTTP, s.Config.ArchiveURL, s.Logger)
	return reconcile.New(s.Store, catalog, completer, s.Dispatcher(), s.Logger)
}

func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}

