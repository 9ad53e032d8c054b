package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PageSize != 200 {
		t.Fatalf("PageSize = %d, want %d", cfg.PageSize, 200)
	}
	if cfg.Since != "1970-01-01" {
		t.Fatalf("Since = %q, want %q", cfg.Since, "1970-01-01")
	}
	if cfg.EpisodesDir != "episodes" {
		t.Fatalf("EpisodesDir = %q, want %q", cfg.EpisodesDir, "episodes")
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	data := `{"uploader": "someone@example.com", "podcast": "papafriki", "page_size": 50}`
	if err := os.WriteFile(configPath, []byte(data), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PageSize != 50 {
		t.Fatalf("PageSize = %d, want %d", cfg.PageSize, 50)
	}
	if cfg.Uploader != "someone@example.com" {
		t.Fatalf("Uploader = %q", cfg.Uploader)
	}
	if cfg.ArchiveURL != "https://archive.org" {
		t.Fatalf("ArchiveURL = %q, want default", cfg.ArchiveURL)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	globalConfig := `{"uploader": "global", "podcast": "global-show", "page_size": 100}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	repoDir := filepath.Join(repoRoot, ".iapod")
	if err := os.MkdirAll(repoDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	repoConfig := `{"podcast": "repo-show"}`
	if err := os.WriteFile(filepath.Join(repoDir, "config.json"), []byte(repoConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if cfg.Podcast != "repo-show" {
		t.Errorf("Podcast = %q, want repo-show (repo override)", cfg.Podcast)
	}
	if cfg.Uploader != "global" {
		t.Errorf("Uploader = %q, want global", cfg.Uploader)
	}
	if cfg.PageSize != 100 {
		t.Errorf("PageSize = %d, want 100", cfg.PageSize)
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	cfg, err := LoadWithRepo(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if cfg.PageSize != 200 {
		t.Errorf("PageSize = %d, want 200", cfg.PageSize)
	}
	if cfg.Uploader != "" {
		t.Errorf("Uploader = %q, want empty", cfg.Uploader)
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{PageSize: 200, HTTPTimeoutSeconds: 20}
	overlay := &Config{PageSize: 10}

	result := Merge(base, overlay)

	if result.PageSize != 10 {
		t.Errorf("PageSize = %d, want 10 (overlay)", result.PageSize)
	}
	if result.HTTPTimeoutSeconds != 20 {
		t.Errorf("HTTPTimeoutSeconds = %d, want 20 (base, overlay is zero)", result.HTTPTimeoutSeconds)
	}
}

func TestMerge_BooleanOr(t *testing.T) {
	result := Merge(&Config{LedgerDisabled: true}, &Config{})

	if !result.LedgerDisabled {
		t.Error("LedgerDisabled should be true (base OR overlay)")
	}
}

func TestMerge_DisabledToolsDeduplicated(t *testing.T) {
	result := Merge(
		&Config{DisabledTools: []string{"catalog_sync", " run_list "}},
		&Config{DisabledTools: []string{"run_list", ""}, DisabledTypes: []string{"delivery"}},
	)

	want := []string{"catalog_sync", "run_list"}
	if len(result.DisabledTools) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", result.DisabledTools, want)
	}
	for i := range want {
		if result.DisabledTools[i] != want[i] {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, result.DisabledTools[i], want[i])
		}
	}
	if len(result.DisabledTypes) != 1 || result.DisabledTypes[0] != "delivery" {
		t.Errorf("DisabledTypes = %v, want [delivery]", result.DisabledTypes)
	}
}

func TestMerge_ChannelsKeptFromBase(t *testing.T) {
	base := &Config{Mastodon: MastodonConfig{Instance: "m.example", Token: "t"}}
	result := Merge(base, &Config{})

	if !result.Mastodon.Enabled() {
		t.Error("Mastodon should stay enabled when overlay has no credentials")
	}
	if result.Telegram.Enabled() {
		t.Error("Telegram should be disabled")
	}
}

func TestFindRepoConfig_InParentDir(t *testing.T) {
	tmpDir := t.TempDir()
	repoDir := filepath.Join(tmpDir, ".iapod")
	if err := os.MkdirAll(repoDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	configPath := filepath.Join(repoDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	subdir := filepath.Join(tmpDir, "subdir", "deeper")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	found := FindRepoConfig(subdir)
	if found != configPath {
		t.Errorf("FindRepoConfig() = %q, want %q", found, configPath)
	}
}

func TestFindRepoConfig_NotFound(t *testing.T) {
	if found := FindRepoConfig(t.TempDir()); found != "" {
		t.Errorf("FindRepoConfig() = %q, want empty string", found)
	}
}

func TestLoadChannels_FromEnvFile(t *testing.T) {
	for _, k := range []string{"MASTODON_INSTANCE", "MASTODON_TOKEN", "TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	envPath := filepath.Join(t.TempDir(), ".env")
	content := "MASTODON_INSTANCE=mastodon.example\nMASTODON_TOKEN=secret\nTELEGRAM_TOKEN=bot\n"
	if err := os.WriteFile(envPath, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("MASTODON_INSTANCE")
		os.Unsetenv("MASTODON_TOKEN")
		os.Unsetenv("TELEGRAM_TOKEN")
	})

	cfg := DefaultConfig()
	if err := cfg.LoadChannels(envPath, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadChannels() error = %v", err)
	}

	if !cfg.Mastodon.Enabled() {
		t.Errorf("Mastodon = %+v, want enabled", cfg.Mastodon)
	}
	if cfg.Telegram.Enabled() {
		t.Errorf("Telegram = %+v, want disabled (chat id missing)", cfg.Telegram)
	}
}

func TestPublicPath(t *testing.T) {
	tests := map[string]string{
		"":          "",
		"podcast":   "/podcast",
		"/podcast/": "/podcast",
	}
	for in, want := range tests {
		cfg := &Config{BaseURL: in}
		if got := cfg.PublicPath(); got != want {
			t.Errorf("PublicPath(%q) = %q, want %q", in, got, want)
		}
	}
}
