// Package config resolves docscribe settings from .env files, the
// environment and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
)

const (
	defaultAPIURL      = "http://localhost:8000"
	defaultRenderStyle = "dark"
	defaultEnvFile     = ".env"
	logDisabled        = "off"
)

// Config holds every runtime setting.
type Config struct {
	// APIURL is the base address of the documentation service.
	APIURL string

	// DownloadDir receives saved artifacts.
	DownloadDir string

	// RenderStyle is the glamour style used for generated markdown.
	RenderStyle string

	// LogFile receives log output while the TUI owns the terminal. Empty
	// disables logging.
	LogFile string

	// OpenAfterSave opens each saved artifact with the system viewer.
	OpenAfterSave bool
}

// Overrides carries flag values; zero values mean "not set".
type Overrides struct {
	EnvFile       string
	APIURL        string
	DownloadDir   string
	RenderStyle   string
	LogFile       string
	OpenAfterSave *bool
}

// Load reads the .env file (a missing file is ignored), then the environment,
// then applies overrides.
func Load(o Overrides) (*Config, error) {
	envFile := firstNonEmpty(o.EnvFile, defaultEnvFile)
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	cfg := &Config{
		APIURL:        envOr("DOCSCRIBE_API_URL", defaultAPIURL),
		DownloadDir:   envOr("DOCSCRIBE_DOWNLOAD_DIR", "."),
		RenderStyle:   envOr("DOCSCRIBE_RENDER_STYLE", defaultRenderStyle),
		LogFile:       envOr("DOCSCRIBE_LOG_FILE", defaultLogFile()),
		OpenAfterSave: envOrBool("DOCSCRIBE_OPEN", false),
	}

	cfg.APIURL = firstNonEmpty(o.APIURL, cfg.APIURL)
	cfg.DownloadDir = firstNonEmpty(o.DownloadDir, cfg.DownloadDir)
	cfg.RenderStyle = firstNonEmpty(o.RenderStyle, cfg.RenderStyle)
	cfg.LogFile = firstNonEmpty(o.LogFile, cfg.LogFile)
	if o.OpenAfterSave != nil {
		cfg.OpenAfterSave = *o.OpenAfterSave
	}

	if strings.EqualFold(strings.TrimSpace(cfg.LogFile), logDisabled) {
		cfg.LogFile = ""
	}
	var err error
	if cfg.DownloadDir, err = homedir.Expand(cfg.DownloadDir); err != nil {
		return nil, fmt.Errorf("expanding download dir: %w", err)
	}
	if cfg.LogFile, err = homedir.Expand(cfg.LogFile); err != nil {
		return nil, fmt.Errorf("expanding log file: %w", err)
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the service address is usable.
func (c *Config) Validate() error {
	parsed, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("DOCSCRIBE_API_URL %q: %w", c.APIURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("DOCSCRIBE_API_URL %q must use http or https", c.APIURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("DOCSCRIBE_API_URL %q has no host", c.APIURL)
	}
	return nil
}

func defaultLogFile() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "docscribe", "docscribe.log")
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envOrBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
