// Package errs defines the error families from the pipeline's error handling
// design: which causes are fatal for a run and which are recovered locally.
package errs

import "errors"

// Sentinel causes. Wrap these with fmt.Errorf("...: %w", Cause) at the
// call site so callers can still errors.Is against the family while the
// message carries the specific detail (URL, platform, attempt, ...).
var (
	// ErrConfiguration marks invalid or missing required run configuration.
	// Fatal for the run.
	ErrConfiguration = errors.New("configuration error")

	// ErrUnsupportedPlatform marks a platform identifier the registry does
	// not know about. Fatal for the run.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrPlatformLoad marks a registered platform whose crawler or parser
	// factory returned nothing. Fatal for the run.
	ErrPlatformLoad = errors.New("platform load error")

	// ErrPlatformContract marks a platform whose crawler or parser factory
	// failed to build an instance, or a crawler handed a page type it
	// cannot drive. Fatal for the run.
	ErrPlatformContract = errors.New("platform contract error")

	// ErrNavigationTimeout marks a page that did not reach the required
	// state within its budget. Retried by the detail task wrapper;
	// treated as a page-skip at the listing level.
	ErrNavigationTimeout = errors.New("navigation timeout")

	// ErrTargetClosed marks a lost browsing context. Not retried.
	ErrTargetClosed = errors.New("browsing target closed")

	// ErrExtractionMiss marks a required selector that returned nothing
	// where data was expected. Reported as a warning.
	ErrExtractionMiss = errors.New("extraction miss")

	// ErrParseFailure marks a date/id/location the parser could not
	// interpret. Reported as a warning; the raw field is preserved.
	ErrParseFailure = errors.New("parse failure")

	// ErrEnrichment marks a failed or malformed remote enrichment call.
	// Never surfaced to the orchestrator; triggers the fallback chain.
	ErrEnrichment = errors.New("enrichment failure")

	// ErrSink marks a CSV writer or persistence adapter rejecting a batch.
	// Surfaced to the caller after the run completes.
	ErrSink = errors.New("sink failure")
)
