package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blogctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// validCfg returns defaults with a content dir that actually exists.
func validCfg(t *testing.T) Config {
	t.Helper()
	cfg := Default()
	cfg.Site.ContentDir = t.TempDir()
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "https://softweb-fr.github.io/", cfg.Site.BaseURL)
	assert.Equal(t, "content", cfg.Site.ContentDir)
	assert.Equal(t, 10*time.Second, cfg.Links.Timeout.Std())
	assert.Equal(t, 7*24*time.Hour, cfg.Links.CacheTTL.Std())
	assert.Equal(t, "site.swc", cfg.Snapshot.Path)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	contentDir := t.TempDir()
	path := writeConfig(t, fmt.Sprintf(`
site:
  base_url: https://blog.example.org/
  content_dir: %s
frontmatter:
  require: [description]
  strict: true
fences:
  extra_languages: [abnf]
links:
  skip:
    - twitter.com
  timeout: 30s
  retries: 1
  concurrency: 4
  per_host_rps: 2
  cache_ttl: 24h
log:
  level: debug
`, contentDir))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://blog.example.org/", cfg.Site.BaseURL)
	assert.Equal(t, contentDir, cfg.Site.ContentDir)
	assert.True(t, cfg.FrontMatter.Strict)
	assert.Equal(t, []string{"description"}, cfg.FrontMatter.Require)
	assert.Equal(t, []string{"abnf"}, cfg.Fences.ExtraLanguages)
	assert.Equal(t, []string{"twitter.com"}, cfg.Links.Skip)
	assert.Equal(t, 30*time.Second, cfg.Links.Timeout.Std())
	assert.Equal(t, 1, cfg.Links.Retries)
	assert.Equal(t, 24*time.Hour, cfg.Links.CacheTTL.Std())
	assert.Equal(t, "debug", cfg.Log.Level)

	// Values absent from the file keep their defaults.
	assert.Equal(t, "linkcache.json", cfg.Links.CachePath)
	assert.Equal(t, "site.swc", cfg.Snapshot.Path)
}

func TestLoadMissingDefaultFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "content"), 0o755))
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Site.BaseURL, cfg.Site.BaseURL)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadUnknownKey(t *testing.T) {
	path := writeConfig(t, "site:\n  base_urll: https://example.org/\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_urll")
}

func TestLoadBadDuration(t *testing.T) {
	path := writeConfig(t, "links:\n  timeout: vite\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vite")
}

func TestEnvOverrides(t *testing.T) {
	contentDir := t.TempDir()
	path := writeConfig(t, fmt.Sprintf("site:\n  content_dir: %s\nlinks:\n  retries: 1\n", contentDir))

	t.Setenv("BLOGCTL_BASE_URL", "https://autre.example.org/")
	t.Setenv("BLOGCTL_LINK_TIMEOUT", "90s")
	t.Setenv("BLOGCTL_LOG_LEVEL", "warn")
	t.Setenv("BLOGCTL_LINK_RETRIES", "beaucoup")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://autre.example.org/", cfg.Site.BaseURL)
	assert.Equal(t, 90*time.Second, cfg.Links.Timeout.Std())
	assert.Equal(t, "warn", cfg.Log.Level)
	// The unparseable retries override is ignored.
	assert.Equal(t, 1, cfg.Links.Retries)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ok", func(c *Config) {}, ""},
		{"relative base url", func(c *Config) { c.Site.BaseURL = "/juste/un/chemin" }, "base_url"},
		{"missing content dir", func(c *Config) { c.Site.ContentDir = "/nulle/part" }, "content_dir"},
		{"zero timeout", func(c *Config) { c.Links.Timeout = 0 }, "timeout"},
		{"negative retries", func(c *Config) { c.Links.Retries = -1 }, "retries"},
		{"zero concurrency", func(c *Config) { c.Links.Concurrency = 0 }, "concurrency"},
		{"unknown required field", func(c *Config) { c.FrontMatter.Require = []string{"humeur"} }, "humeur"},
		{"bad log level", func(c *Config) { c.Log.Level = "bavard" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validCfg(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSiteURL(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "softweb-fr.github.io", cfg.SiteURL().Hostname())
}
