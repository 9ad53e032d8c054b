package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Uploader is the archive account whose items make up the podcast.
	Uploader string `json:"uploader"`

	// Podcast is the collection/podcast name matched in the catalog query.
	Podcast string `json:"podcast"`

	// Since is the publish-date lower bound of the catalog query (YYYY-MM-DD).
	Since string `json:"since,omitempty"`

	// PageSize is the number of rows requested per search page.
	PageSize int `json:"page_size,omitempty"`

	// ArchiveURL is the base URL of the remote archive (search, manifests, downloads).
	ArchiveURL string `json:"archive_url,omitempty"`

	// EpisodesDir holds one record file per episode.
	// Relative paths are resolved against the working directory.
	EpisodesDir string `json:"episodes_dir,omitempty"`

	// TemplatesDir optionally overrides the embedded publish templates.
	TemplatesDir string `json:"templates_dir,omitempty"`

	// SiteURL is the public site root used to build episode links (e.g. https://example.com).
	SiteURL string `json:"site_url,omitempty"`

	// BaseURL is the path prefix of the podcast under SiteURL (e.g. "podcast").
	BaseURL string `json:"base_url,omitempty"`

	PodcastTitle  string `json:"podcast_title,omitempty"`
	PodcastAuthor string `json:"podcast_author,omitempty"`

	// Timezone is the IANA zone used by the date template filter when none is given.
	Timezone string `json:"timezone,omitempty"`

	// HTTPTimeoutSeconds bounds every outbound request.
	HTTPTimeoutSeconds int `json:"http_timeout_seconds,omitempty"`

	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`

	// LedgerDisabled turns off the SQLite run/delivery ledger.
	LedgerDisabled bool `json:"ledger_disabled,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool types to disable entirely
	// (e.g. "catalog" removes catalog_sync).
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// Channel credentials are never read from JSON; see LoadChannels.
	Mastodon MastodonConfig `json:"-"`
	Telegram TelegramConfig `json:"-"`
}

// MastodonConfig holds Mastodon channel credentials.
type MastodonConfig struct {
	Instance string
	Token    string
}

// Enabled reports whether both instance and token are present.
func (m MastodonConfig) Enabled() bool {
	return m.Instance != "" && m.Token != ""
}

// TelegramConfig holds Telegram channel credentials.
type TelegramConfig struct {
	Token  string
	ChatID string
}

// Enabled reports whether both token and chat id are present.
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != ""
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Since:              "1970-01-01",
		PageSize:           200,
		ArchiveURL:         "https://archive.org",
		EpisodesDir:        "episodes",
		Timezone:           "UTC",
		HTTPTimeoutSeconds: 20,
		LogLevel:           "info",
		LogFormat:          "auto",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.iapod.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.iapod) and repo (.iapod) directories.
// Repo config is found by walking upward from startDir to find the nearest .iapod/config.json.
// Repo config takes precedence. Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .iapod/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".iapod", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadChannels fills channel credentials from the environment.
// envFiles are loaded first (missing files are ignored); variables already
// set in the process environment win over file values.
func (c *Config) LoadChannels(envFiles ...string) error {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	c.Mastodon = MastodonConfig{
		Instance: strings.TrimSpace(os.Getenv("MASTODON_INSTANCE")),
		Token:    strings.TrimSpace(os.Getenv("MASTODON_TOKEN")),
	}
	c.Telegram = TelegramConfig{
		Token:  strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		ChatID: strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")),
	}
	return nil
}

// PublicPath returns BaseURL as an absolute path prefix ("" or "/podcast").
func (c *Config) PublicPath() string {
	base := strings.Trim(c.BaseURL, "/")
	if base == "" {
		return ""
	}
	return "/" + base
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence when non-zero.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		Uploader:           pickString(overlay.Uploader, base.Uploader),
		Podcast:            pickString(overlay.Podcast, base.Podcast),
		Since:              pickString(overlay.Since, base.Since),
		PageSize:           pickInt(overlay.PageSize, base.PageSize),
		ArchiveURL:         pickString(overlay.ArchiveURL, base.ArchiveURL),
		EpisodesDir:        pickString(overlay.EpisodesDir, base.EpisodesDir),
		TemplatesDir:       pickString(overlay.TemplatesDir, base.TemplatesDir),
		SiteURL:            pickString(overlay.SiteURL, base.SiteURL),
		BaseURL:            pickString(overlay.BaseURL, base.BaseURL),
		PodcastTitle:       pickString(overlay.PodcastTitle, base.PodcastTitle),
		PodcastAuthor:      pickString(overlay.PodcastAuthor, base.PodcastAuthor),
		Timezone:           pickString(overlay.Timezone, base.Timezone),
		HTTPTimeoutSeconds: pickInt(overlay.HTTPTimeoutSeconds, base.HTTPTimeoutSeconds),
		LogLevel:           pickString(overlay.LogLevel, base.LogLevel),
		LogFormat:          pickString(overlay.LogFormat, base.LogFormat),
		Mastodon:           base.Mastodon,
		Telegram:           base.Telegram,
	}

	// Booleans: overlay wins if true, else base
	result.LedgerDisabled = base.LedgerDisabled || overlay.LedgerDisabled

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	if overlay.Mastodon.Enabled() {
		result.Mastodon = overlay.Mastodon
	}
	if overlay.Telegram.Enabled() {
		result.Telegram = overlay.Telegram
	}

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
	}
	return result
}

func pickString(overlay, base string) string {
	if s := strings.TrimSpace(overlay); s != "" {
		return s
	}
	return base
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}
