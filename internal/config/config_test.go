package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunConfigValidateRequiresCoreFields(t *testing.T) {
	err := RunConfig{}.Validate()
	require.Error(t, err)
}

func TestRunConfigValidateAccepts(t *testing.T) {
	run := RunConfig{
		CompanyName: "Acme",
		TargetURL:   "https://acme.example.com/careers",
		Platform:    "workday",
	}
	assert.NoError(t, run.Validate())
}

func TestMergeConfigPrecedence(t *testing.T) {
	defaults := DefaultsConfig{
		JobDetailConcurrency: 10,
		NavigationTimeout:    60 * time.Second,
	}
	platformDefaults := map[string]string{
		"JOB_DETAIL_CONCURRENCY": "5",
		"LISTING_CONTAINER":      "[data-automation-id='jobResults']",
	}
	run := RunConfig{JobDetailConcurrency: 2}

	merged := MergeConfig(defaults, platformDefaults, run)

	assert.Equal(t, 2, merged.JobDetailConcurrency) // run overrides platform overrides defaults
	assert.Equal(t, 60*time.Second, merged.NavigationTimeout)
	assert.Equal(t, "[data-automation-id='jobResults']", merged.Selectors["listing_container"])
}

func TestMergeConfigPlatformOverridesDefaultsWhenRunUnset(t *testing.T) {
	defaults := DefaultsConfig{JobDetailConcurrency: 10}
	platformDefaults := map[string]string{"JOB_DETAIL_CONCURRENCY": "5"}

	merged := MergeConfig(defaults, platformDefaults, RunConfig{})
	assert.Equal(t, 5, merged.JobDetailConcurrency)
}

func TestDefaultGlobalConfig(t *testing.T) {
	cfg := DefaultGlobalConfig()
	assert.Equal(t, 10, cfg.Defaults.JobDetailConcurrency)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadGlobalConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadGlobalConfig("/nonexistent/path/quaero.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultGlobalConfig(), cfg)
}
