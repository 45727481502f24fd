// Package config decodes and merges the pipeline's run-level, platform-
// level, and global configuration: general defaults -> platform-local
// config -> run-supplied config, lowest to highest precedence.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"jobscrape/internal/errs"
)

// GlobalConfig is the process-wide configuration loaded once at startup.
type GlobalConfig struct {
	Logging    LoggingConfig    `toml:"logging"`
	Platforms  PlatformsConfig  `toml:"platforms"`
	Enrichment EnrichmentConfig `toml:"enrichment"`
	Defaults   DefaultsConfig   `toml:"defaults"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level      string `toml:"level"`
	TimeFormat string `toml:"time_format"`
}

// PlatformsConfig holds the plug-in root setting from the config file.
// Platforms register at compile time, so Root is not read by the registry.
type PlatformsConfig struct {
	Root string `toml:"root"`
}

// EnrichmentConfig carries the LLM flag/credential/model settings from the
// config file. The CLI resolves the enrichment engine's feature-gate state
// (disabled / unconfigured / active) from its own flags and does not read
// these values.
type EnrichmentConfig struct {
	Enabled  bool   `toml:"enabled"`
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
}

// DefaultsConfig seeds the lowest tier of the §4.1 config merge.
type DefaultsConfig struct {
	JobDetailConcurrency int           `toml:"job_detail_concurrency"`
	NavigationTimeout    time.Duration `toml:"navigation_timeout"`
	SelectorTimeout      time.Duration `toml:"selector_timeout"`
	InterPageDelay       time.Duration `toml:"inter_page_delay"`
	ScrollSettleDelay    time.Duration `toml:"scroll_settle_delay"`
	ScrollMaxAttempts    int           `toml:"scroll_max_attempts"`
	ScrollNoProgressCap  int           `toml:"scroll_no_progress_cap"`
}

// DefaultGlobalConfig returns the baseline pipeline defaults
// (job_detail_concurrency=10, 60s navigation, etc).
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		Logging: LoggingConfig{Level: "info", TimeFormat: "15:04:05.000"},
		Platforms: PlatformsConfig{
			Root: "platforms",
		},
		Defaults: DefaultsConfig{
			JobDetailConcurrency: 10,
			NavigationTimeout:    60 * time.Second,
			SelectorTimeout:      10 * time.Second,
			InterPageDelay:       2 * time.Second,
			ScrollSettleDelay:    1 * time.Second,
			ScrollMaxAttempts:    20,
			ScrollNoProgressCap:  5,
		},
	}
}

// LoadGlobalConfig decodes a TOML file into a GlobalConfig layered over
// DefaultGlobalConfig, so an absent or partial file still yields usable
// defaults.
func LoadGlobalConfig(path string) (GlobalConfig, error) {
	cfg := DefaultGlobalConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("%w: reading global config %s: %v", errs.ErrConfiguration, path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parsing global config %s: %v", errs.ErrConfiguration, path, err)
	}

	return cfg, nil
}

// RunConfig is the per-run configuration contract.
type RunConfig struct {
	CompanyName          string `validate:"required"`
	TargetURL            string `validate:"required,url"`
	Platform             string `validate:"required"`
	MaxPages             *int   `validate:"omitempty,min=0"`
	JobDetailConcurrency int    `validate:"omitempty,min=1"`
	EnrichmentEnabled    bool
	EnrichmentAPIKey     string
	EnrichmentModel      string
}

var validate = validator.New()

// Validate checks the run config's required fields and constraints,
// returning errs.ErrConfiguration wrapped with the validator's detail.
func (r RunConfig) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrConfiguration, err)
	}
	return nil
}

// Merged is the fully resolved configuration map handed to a Crawler
// constructor, after applying defaults -> platform -> run precedence.
type Merged struct {
	JobDetailConcurrency int
	NavigationTimeout    time.Duration
	SelectorTimeout      time.Duration
	InterPageDelay       time.Duration
	ScrollSettleDelay    time.Duration
	ScrollMaxAttempts    int
	ScrollNoProgressCap  int
	MaxPages             *int
	Selectors            map[string]string
	Extra                map[string]string
}

// MergeConfig applies defaults -> platform config -> run config, lowest to
// highest precedence.
func MergeConfig(defaults DefaultsConfig, platform map[string]string, run RunConfig) Merged {
	m := Merged{
		JobDetailConcurrency: defaults.JobDetailConcurrency,
		NavigationTimeout:    defaults.NavigationTimeout,
		SelectorTimeout:      defaults.SelectorTimeout,
		InterPageDelay:       defaults.InterPageDelay,
		ScrollSettleDelay:    defaults.ScrollSettleDelay,
		ScrollMaxAttempts:    defaults.ScrollMaxAttempts,
		ScrollNoProgressCap:  defaults.ScrollNoProgressCap,
		Selectors:            map[string]string{},
		Extra:                map[string]string{},
	}

	// Platform-local config: all ALL-CAPS keys are lowered and treated as
	// plain config keys, merged in next (overrides defaults).
	for k, v := range platform {
		applyKey(&m, lowerKey(k), v)
	}

	// Run-supplied config has the highest precedence.
	if run.JobDetailConcurrency > 0 {
		m.JobDetailConcurrency = run.JobDetailConcurrency
	}
	if run.MaxPages != nil {
		m.MaxPages = run.MaxPages
	}

	return m
}

func lowerKey(k string) string {
	out := make([]byte, len(k))
	for i := 0; i < len(k); i++ {
		c := k[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// applyKey routes a lowered platform config key either to a known merged
// field or into the free-form selector/extra buckets. Selector keys are
// the nine DOM-contract names (listing_container, listing_item, ...) plus
// any key following the "selector_" / "_selector" naming convention.
func applyKey(m *Merged, key, value string) {
	switch key {
	case "job_detail_concurrency":
		if d, err := parseInt(value); err == nil && d > 0 {
			m.JobDetailConcurrency = d
		}
		return
	case "scroll_max_attempts":
		if d, err := parseInt(value); err == nil && d > 0 {
			m.ScrollMaxAttempts = d
		}
		return
	case "scroll_no_progress_cap":
		if d, err := parseInt(value); err == nil && d > 0 {
			m.ScrollNoProgressCap = d
		}
		return
	}

	if isSelectorKey(key) {
		m.Selectors[key] = value
		return
	}
	m.Extra[key] = value
}

func isSelectorKey(key string) bool {
	return len(key) > 9 && key[len(key)-9:] == "_selector" ||
		len(key) > 9 && key[:9] == "selector_" ||
		key == "listing_container" || key == "listing_item" || key == "title_link" ||
		key == "location_cell" || key == "date_posted_cell" || key == "pagination_container" ||
		key == "next_page_button" || key == "job_description" || key == "job_id_display"
}

func parseInt(s string) (int, error) {
	n := 0
	neg := false
	if len(s) == 0 {
		return 0, fmt.Errorf("empty int")
	}
	for i, c := range s {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid int %q", s)
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}
