// Package config loads blogctl settings. Precedence: built-in defaults,
// then blogctl.yaml, then BLOGCTL_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/softweb-fr/softweb-fr.github.io/internal/log"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "blogctl.yaml"

// Duration decodes YAML values like "30s" or "168h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// SiteConfig locates the site on disk and on the web.
type SiteConfig struct {
	BaseURL    string `yaml:"base_url"`
	ContentDir string `yaml:"content_dir"`
	StaticDir  string `yaml:"static_dir"`
}

// ScanConfig tunes the content scanner.
type ScanConfig struct {
	Ignore []string `yaml:"ignore"` // glob patterns, matched against slash paths
}

// FrontMatterConfig tunes the front matter rules.
type FrontMatterConfig struct {
	Require []string `yaml:"require"` // fields that must be set beyond title and date
	Strict  bool     `yaml:"strict"`  // unknown keys become errors
}

// FencesConfig extends the accepted fence languages.
type FencesConfig struct {
	ExtraLanguages []string `yaml:"extra_languages"`
}

// LinksConfig tunes the external link checker.
type LinksConfig struct {
	Skip        []string `yaml:"skip"` // hosts, or URL substrings when the pattern contains a slash
	Timeout     Duration `yaml:"timeout"`
	Retries     int      `yaml:"retries"`
	Concurrency int      `yaml:"concurrency"`
	PerHostRPS  float64  `yaml:"per_host_rps"`
	CachePath   string   `yaml:"cache_path"`
	CacheTTL    Duration `yaml:"cache_ttl"`
}

// SnapshotConfig locates the corpus snapshot.
type SnapshotConfig struct {
	Path string `yaml:"path"`
}

// LogConfig tunes diagnostics.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Config is the effective blogctl configuration.
type Config struct {
	Site        SiteConfig        `yaml:"site"`
	Scan        ScanConfig        `yaml:"scan"`
	FrontMatter FrontMatterConfig `yaml:"frontmatter"`
	Fences      FencesConfig      `yaml:"fences"`
	Links       LinksConfig       `yaml:"links"`
	Snapshot    SnapshotConfig    `yaml:"snapshot"`
	Log         LogConfig         `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Site: SiteConfig{
			BaseURL:    "https://softweb-fr.github.io/",
			ContentDir: "content",
			StaticDir:  "static",
		},
		Links: LinksConfig{
			Timeout:     Duration(10 * time.Second),
			Retries:     2,
			Concurrency: 8,
			PerHostRPS:  1,
			CachePath:   "linkcache.json",
			CacheTTL:    Duration(7 * 24 * time.Hour),
		},
		Snapshot: SnapshotConfig{Path: "site.swc"},
		Log:      LogConfig{Level: "info"},
	}
}

// ErrNotFound marks a named configuration file that does not exist.
var ErrNotFound = errors.New("configuration file not found")

// Load builds the effective configuration. With an empty path the
// default file is used when present; a named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		logger := log.WithComponent("config")
		logger.Debug().Str("path", path).Msg("configuration file loaded")
	case os.IsNotExist(err) && !explicit:
		logger := log.WithComponent("config")
		logger.Debug().Msg("no configuration file, using defaults")
	case os.IsNotExist(err):
		return Config{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	default:
		return Config{}, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Site.BaseURL = envString("BLOGCTL_BASE_URL", c.Site.BaseURL)
	c.Site.ContentDir = envString("BLOGCTL_CONTENT_DIR", c.Site.ContentDir)
	c.Site.StaticDir = envString("BLOGCTL_STATIC_DIR", c.Site.StaticDir)
	c.Links.Timeout = envDuration("BLOGCTL_LINK_TIMEOUT", c.Links.Timeout)
	c.Links.Retries = envInt("BLOGCTL_LINK_RETRIES", c.Links.Retries)
	c.Links.Concurrency = envInt("BLOGCTL_LINK_CONCURRENCY", c.Links.Concurrency)
	c.Links.CachePath = envString("BLOGCTL_LINK_CACHE", c.Links.CachePath)
	c.Links.CacheTTL = envDuration("BLOGCTL_LINK_CACHE_TTL", c.Links.CacheTTL)
	c.Snapshot.Path = envString("BLOGCTL_SNAPSHOT", c.Snapshot.Path)
	c.Log.Level = envString("BLOGCTL_LOG_LEVEL", c.Log.Level)
}

// requirableFields are the names accepted in frontmatter.require.
var requirableFields = map[string]bool{
	"title":       true,
	"date":        true,
	"description": true,
	"slug":        true,
	"lang":        true,
	"tags":        true,
	"categories":  true,
}

// Validate rejects configurations blogctl cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Site.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("site.base_url %q is not an absolute URL", c.Site.BaseURL)
	}

	if c.Site.ContentDir == "" {
		return errors.New("site.content_dir is empty")
	}
	if info, err := os.Stat(c.Site.ContentDir); err != nil || !info.IsDir() {
		return fmt.Errorf("site.content_dir %q is not a directory", c.Site.ContentDir)
	}

	if c.Links.Timeout <= 0 {
		return errors.New("links.timeout must be positive")
	}
	if c.Links.Retries < 0 {
		return errors.New("links.retries must not be negative")
	}
	if c.Links.Concurrency <= 0 {
		return errors.New("links.concurrency must be positive")
	}
	if c.Links.PerHostRPS <= 0 {
		return errors.New("links.per_host_rps must be positive")
	}

	for _, f := range c.FrontMatter.Require {
		if !requirableFields[f] {
			return fmt.Errorf("frontmatter.require: unknown field %q", f)
		}
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level %q: %w", c.Log.Level, err)
	}

	return nil
}

// SiteURL returns the parsed base URL. Call Validate first.
func (c *Config) SiteURL() *url.URL {
	u, _ := url.Parse(c.Site.BaseURL)
	return u
}
