// Package workday implements the plug-in contract (platform.Crawler,
// platform.Parser, and registered defaults config) for Workday-hosted
// career sites.
package workday

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"jobscrape/internal/platform"
)

// Parser implements platform.Parser for Workday's date/location/job-id
// conventions.
type Parser struct{}

// NewParser satisfies platform.ParserFactoryFunc.
func NewParser() (platform.Parser, error) {
	return &Parser{}, nil
}

var (
	reDaysAgo      = regexp.MustCompile(`(?i)posted\s+(\d+)\s+days?\s+ago`)
	rePlusDaysAgo  = regexp.MustCompile(`(?i)posted\s*(\d+)\+\s*days?\s*ago`)
	rePostedPrefix = regexp.MustCompile(`(?i)^\s*posted\s+on\s*`)
)

// ParseDate accepts, case-insensitively and after stripping an optional
// "posted on" prefix: today/just posted, yesterday (today and yesterday
// also with a leading "posted"), "N days ago", and
// "N+ days ago"; anything else falls back to a best-effort absolute-date
// parse, returning nil on failure. All relative computations use the
// clock's date with no timezone conversion, captured once per run.
func (p *Parser) ParseDate(raw string, clock platform.Clock) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	cleaned := rePostedPrefix.ReplaceAllString(trimmed, "")
	lower := strings.ToLower(strings.TrimSpace(cleaned))

	year, month, day := clock.Today()
	today := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)

	keyword := strings.TrimSpace(strings.TrimPrefix(lower, "posted"))
	switch keyword {
	case "today", "just posted":
		return isoPtr(today)
	case "yesterday":
		return isoPtr(today.AddDate(0, 0, -1))
	}

	if m := rePlusDaysAgo.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return isoPtr(today.AddDate(0, 0, -n))
		}
	}

	if m := reDaysAgo.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return isoPtr(today.AddDate(0, 0, -n))
		}
	}

	return parseAbsoluteDate(cleaned)
}

// absoluteDateLayouts lists the layouts a best-effort absolute-date parser
// tries, in order, before giving up.
var absoluteDateLayouts = []string{
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"01/02/2006",
	"02 Jan 2006",
	"Jan. 2, 2006",
}

func parseAbsoluteDate(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range absoluteDateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return isoPtr(t)
		}
	}
	return nil
}

func isoPtr(t time.Time) *string {
	s := t.Format("2006-01-02")
	return &s
}

var reLocationsPrefix = regexp.MustCompile(`(?i)^\s*locations\s*:?\s*`)

// ParseLocation strips a leading "locations" token (with optional colon)
// and surrounding whitespace. Idempotent: re-applying it to its own
// output is a no-op.
func (p *Parser) ParseLocation(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := reLocationsPrefix.ReplaceAllString(raw, "")
	return strings.TrimSpace(stripped)
}

var (
	reJobIDPrefix = regexp.MustCompile(`(?i)^\s*job\s*id\s*:\s*`)
	reReqPrefix   = regexp.MustCompile(`(?i)^req-?`)
)

// ParseJobID trims, strips a leading "Job ID:" prefix and a leading
// "REQ"/"REQ-" prefix, and never returns nil.
func (p *Parser) ParseJobID(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = reJobIDPrefix.ReplaceAllString(trimmed, "")
	trimmed = strings.TrimSpace(trimmed)
	trimmed = reReqPrefix.ReplaceAllString(trimmed, "")
	return strings.TrimSpace(trimmed)
}
