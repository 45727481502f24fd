// Package platform implements the plug-in registry/factory and the
// Crawler/Parser capability contracts that every platform implementation
// must satisfy. Platforms join a compile-time registry instead of being
// discovered by filesystem reflection; the factory reads that registry.
package platform

import (
	"context"

	"jobscrape/internal/config"
	"jobscrape/internal/model"
)

// Page is the minimal browser-page handle a Crawler operates on. It is
// satisfied by *browser.Page; platform code depends only on this interface
// so tests can substitute a fake without a real chromedp context.
type Page interface {
	Context() context.Context
}

// Crawler is the platform-specific component that drives the listing
// index and exposes detail fetching.
type Crawler interface {
	// Paginate walks the listing starting at baseURL, returning every
	// JobSummary found across however many pages/scroll iterations the
	// platform's layout requires. maxPages of nil means unbounded.
	Paginate(ctx context.Context, page Page, companyName, baseURL string, maxPages *int) ([]model.JobSummary, error)

	// FetchDetail loads a single job detail URL and extracts its fields.
	// It never returns an error to the caller for extraction failures —
	// those degrade to the model.NA sentinel inside the JobDetail.
	FetchDetail(ctx context.Context, page Page, url string) (model.JobDetail, error)
}

// Parser is the platform-specific normalizer for raw date/location/job-id
// strings.
type Parser interface {
	// ParseDate interprets a raw "posted ..." string and returns an ISO
	// date (YYYY-MM-DD) or nil if it cannot be interpreted.
	ParseDate(raw string, today Clock) *string

	// ParseLocation strips leading "Locations:" noise and trims the rest.
	ParseLocation(raw string) string

	// ParseJobID trims a raw job-id string and strips known prefixes.
	// Never returns nil.
	ParseJobID(raw string) string
}

// Clock abstracts "today" so relative-date arithmetic can be captured once
// per run, avoiding an off-by-one across a midnight crossing inside a
// long-running fan-out, while remaining trivially fakeable in tests.
type Clock interface {
	Today() (year int, month int, day int)
}

// Factory is the registry/factory contract.
type Factory interface {
	SupportedPlatforms() []string
	CreateCrawler(identifier string, runConfig config.Merged) (Crawler, error)
	CreateParser(identifier string) (Parser, error)
	MergeRunConfig(identifier string, run config.RunConfig) (config.Merged, error)
}
