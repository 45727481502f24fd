// Package model holds the data types that flow through a single crawl run:
// listing summaries, detail pages, merged records, and the enrichment cache
// entries that decorate them. Nothing here survives past the run that
// produced it.
package model

import "time"

// JobSummary is produced by listing-page extraction. DetailURL is always
// absolute by the time it leaves a platform Crawler.
type JobSummary struct {
	Title            string
	DetailURL        string
	LocationRaw      string
	DatePostedRaw    string
	LocationParsed   string
	DatePostedParsed *string // ISO date YYYY-MM-DD, nil if unparsable
}

// JobDetail is produced by detail-page extraction. A JobDetail is always
// emitted for a JobSummary that was attempted, even when every field falls
// back to the "N/A" sentinel.
type JobDetail struct {
	URL             string
	Description     string
	JobID           string
	DetailPageTitle string
}

// NA is the fallback sentinel used when a detail field could not be
// extracted.
const NA = "N/A"

// NewFailedDetail returns a JobDetail with every field set to the N/A
// sentinel, for a URL whose detail fetch failed.
func NewFailedDetail(url string) JobDetail {
	return JobDetail{
		URL:             url,
		Description:     NA,
		JobID:           NA,
		DetailPageTitle: NA,
	}
}

// Location is the structured, LLM-enriched location. City/Country/Region
// are either a non-empty string or nil — the "Unknown" sentinel token is
// never persisted here; it is normalized to nil before this type is built.
type Location struct {
	City       *string
	Country    *string
	Region     *string
	Confidence float64
}

// Equal reports whether two locations carry the same normalized values.
func (l *Location) Equal(other *Location) bool {
	if l == nil || other == nil {
		return l == other
	}
	return strPtrEqual(l.City, other.City) &&
		strPtrEqual(l.Country, other.Country) &&
		strPtrEqual(l.Region, other.Region) &&
		l.Confidence == other.Confidence
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// JobRecord is the merged summary + detail, decorated with enrichment
// fields and the run's company name.
type JobRecord struct {
	JobSummary
	JobDetail

	LocationParsedIntelligent *Location
	CompanyName               string
}

// Clone returns a deep-enough copy for idempotent-decoration comparisons.
func (r JobRecord) Clone() JobRecord {
	clone := r
	if r.LocationParsedIntelligent != nil {
		loc := *r.LocationParsedIntelligent
		for _, field := range []**string{&loc.City, &loc.Country, &loc.Region} {
			if *field != nil {
				v := **field
				*field = &v
			}
		}
		clone.LocationParsedIntelligent = &loc
	}
	if r.DatePostedParsed != nil {
		d := *r.DatePostedParsed
		clone.DatePostedParsed = &d
	}
	return clone
}

// Equal reports whether two records are field-for-field identical,
// used to assert decoration idempotence in tests.
func (r JobRecord) Equal(other JobRecord) bool {
	if r.Title != other.Title ||
		r.DetailURL != other.DetailURL ||
		r.LocationRaw != other.LocationRaw ||
		r.DatePostedRaw != other.DatePostedRaw ||
		r.LocationParsed != other.LocationParsed ||
		!strPtrEqual(r.DatePostedParsed, other.DatePostedParsed) ||
		r.JobDetail != other.JobDetail ||
		r.CompanyName != other.CompanyName {
		return false
	}
	return r.LocationParsedIntelligent.Equal(other.LocationParsedIntelligent)
}

// RunReport is the tally the orchestrator returns to the caller for every
// run, fatal error or not: totals, skipped, failed, enrichments used.
type RunReport struct {
	RunID             string
	Platform          string
	CompanyName       string
	StartedAt         time.Time
	FinishedAt        time.Time
	TotalSummaries    int
	DetailAttempted   int
	DetailFailed      int
	FilteredDuplicate int
	FilteredStale     int
	Persisted         int
	EnrichmentState   string // "disabled", "unconfigured", "active"
	EnrichmentBatched bool
	EnrichmentCalls   int
}
