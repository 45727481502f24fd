// Package orchestrator drives the full pipeline: paginate, prepare the
// enrichment cache, fan out detail fetches with decoration, filter, and
// persist.
package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobscrape/internal/browser"
	"jobscrape/internal/config"
	"jobscrape/internal/enrichment"
	"jobscrape/internal/logging"
	"jobscrape/internal/model"
	"jobscrape/internal/platform"
	"jobscrape/internal/sink"
)

// page is a browser.Page plus the Close half of its lifecycle, kept as its
// own narrow interface so tests can substitute a fake instead of a real
// chromedp-backed context.
type page interface {
	platform.Page
	Close()
}

// pageLauncher opens a fresh isolated browsing context. The zero value
// Orchestrator uses browser.Launch; tests inject a fake.
type pageLauncher func(ctx context.Context, userAgent string) (page, error)

// Orchestrator drives one run at a time. Its launcher starts a separate
// browser for the listing crawl and another for every detail-fetch
// attempt; no browser instance is shared between them.
type Orchestrator struct {
	factory   platform.Factory
	userAgent string
	launch    pageLauncher
}

// New builds an Orchestrator over factory, the process's platform registry
// view.
func New(factory platform.Factory) *Orchestrator {
	return &Orchestrator{factory: factory, userAgent: browser.DefaultUserAgent, launch: launchBrowserPage}
}

func launchBrowserPage(ctx context.Context, userAgent string) (page, error) {
	return browser.Launch(ctx, userAgent)
}

// Run executes one full pipeline pass. On success it returns the filtered,
// persisted records plus a tally. On a fatal error (configuration,
// platform, sink) it returns that error and no persisted output.
// Cancellation via ctx also yields no persisted output.
func (o *Orchestrator) Run(ctx context.Context, run config.RunConfig, dest sink.Sink) (model.RunReport, []model.JobRecord, error) {
	report := model.RunReport{RunID: uuid.NewString(), Platform: run.Platform, CompanyName: run.CompanyName, StartedAt: time.Now()}
	logger := logging.ForRun(report.RunID)

	if err := run.Validate(); err != nil {
		return report, nil, err
	}

	merged, err := o.factory.MergeRunConfig(run.Platform, run)
	if err != nil {
		return report, nil, err
	}

	crawler, err := o.factory.CreateCrawler(run.Platform, merged)
	if err != nil {
		return report, nil, err
	}

	listingPage, err := o.launch(ctx, o.userAgent)
	if err != nil {
		return report, nil, err
	}
	defer listingPage.Close()

	summaries, err := crawler.Paginate(ctx, listingPage, run.CompanyName, run.TargetURL, run.MaxPages)
	if err != nil {
		return report, nil, err
	}
	report.TotalSummaries = len(summaries)
	listingPage.Close()

	state := enrichment.Resolve(run.EnrichmentEnabled, run.EnrichmentAPIKey)
	if state == enrichment.StateUnconfigured {
		logger.Warn().Msg("enrichment enabled but no credential configured, continuing without it")
	}
	report.EnrichmentState = string(state)

	var transport enrichment.Transport
	if state == enrichment.StateActive {
		transport = enrichment.NewClaudeTransport(run.EnrichmentAPIKey, run.EnrichmentModel)
	}
	jobs := enrichment.NewBatchJobProcessor(state, transport)
	jobs.PrepareCache(ctx, summaries)
	report.EnrichmentBatched = jobs.Calls() > 0
	report.EnrichmentCalls = jobs.Calls()

	records, detailFailed, err := o.fanOutDetails(ctx, crawler, jobs, run.CompanyName, summaries, merged.JobDetailConcurrency)
	if err != nil {
		return report, nil, err
	}
	report.DetailAttempted = len(summaries)
	report.DetailFailed = detailFailed

	filtered, dup, stale := filterRecords(records)
	report.FilteredDuplicate = dup
	report.FilteredStale = stale

	if err := dest.Persist(ctx, filtered); err != nil {
		return report, nil, err
	}
	report.Persisted = len(filtered)
	report.FinishedAt = time.Now()

	return report, filtered, nil
}

// fanOutDetails runs fetch_detail + decorate for every summary with a
// concurrency limiter of size concurrency, preserving summary order in the
// result slice. A cancelled context stops admitting new work and returns
// ctx.Err() once in-flight tasks drain. A task that exhausts its retries
// contributes no record to the output.
func (o *Orchestrator) fanOutDetails(ctx context.Context, crawler platform.Crawler, jobs *enrichment.BatchJobProcessor, companyName string, summaries []model.JobSummary, concurrency int) ([]model.JobRecord, int, error) {
	if concurrency <= 0 {
		concurrency = 10
	}

	results := make([]model.JobRecord, len(summaries))
	ok := make([]bool, len(summaries))
	var failedCount int
	var failedMu sync.Mutex

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, summary := range summaries {
		if summary.DetailURL == "" {
			continue
		}

		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, 0, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(idx int, s model.JobSummary) {
			defer wg.Done()
			defer func() { <-sem }()

			detail, succeeded := o.fetchDetailWithRetry(ctx, crawler, s.DetailURL)
			if !succeeded {
				failedMu.Lock()
				failedCount++
				failedMu.Unlock()
				return
			}

			rec := model.JobRecord{JobSummary: s, JobDetail: detail, CompanyName: companyName}
			rec = jobs.Decorate(ctx, rec)
			results[idx] = rec
			ok[idx] = true
		}(i, summary)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	out := make([]model.JobRecord, 0, len(results))
	for i, r := range results {
		if !ok[i] {
			continue
		}
		out = append(out, r)
	}
	return out, failedCount, nil
}

// fetchDetailWithRetry retries a detail fetch up to 3 attempts with
// exponential backoff (2s/4s), skipping retry on a target-closed signal.
// Every attempt gets its own isolated browser context, closed on every
// exit path. A task that exhausts its attempts returns ok=false and is
// never allowed to cancel its siblings.
func (o *Orchestrator) fetchDetailWithRetry(ctx context.Context, crawler platform.Crawler, url string) (model.JobDetail, bool) {
	policy := newDetailRetryPolicy()
	logger := logging.Get()

	var lastErr error
	for attempt := 0; attempt < policy.maxAttempts; attempt++ {
		detail, err := o.fetchDetailOnce(ctx, crawler, url)
		if err == nil {
			return detail, true
		}
		lastErr = err

		tag := classify(err)
		logger.Warn().Err(err).Str("url", url).Int("attempt", attempt+1).Str("outcome", string(tag)).Msg("detail fetch attempt failed")

		if tag == outcomeNonRetriableTargetClosed {
			break
		}
		if attempt == policy.maxAttempts-1 {
			break
		}
		if err := policy.sleep(ctx, attempt); err != nil {
			break
		}
	}

	logger.Warn().Err(lastErr).Str("url", url).Msg("detail fetch exhausted retries, dropping job")
	return model.JobDetail{}, false
}

// fetchDetailOnce opens an isolated context for a single attempt and closes
// it on every exit path.
func (o *Orchestrator) fetchDetailOnce(ctx context.Context, crawler platform.Crawler, url string) (model.JobDetail, error) {
	p, err := o.launch(ctx, o.userAgent)
	if err != nil {
		return model.JobDetail{}, err
	}
	defer p.Close()

	return crawler.FetchDetail(ctx, p, url)
}

// filterRecords drops duplicate detail URLs (first occurrence wins) and
// records whose raw posted date case-insensitively contains
// "posted 30+ days ago", preserving first-seen order.
func filterRecords(records []model.JobRecord) (kept []model.JobRecord, duplicates, stale int) {
	seen := make(map[string]struct{}, len(records))
	kept = make([]model.JobRecord, 0, len(records))

	for _, rec := range records {
		if _, ok := seen[rec.DetailURL]; ok {
			duplicates++
			continue
		}
		seen[rec.DetailURL] = struct{}{}

		if strings.Contains(strings.ToLower(rec.DatePostedRaw), "posted 30+ days ago") {
			stale++
			continue
		}

		kept = append(kept, rec)
	}
	return kept, duplicates, stale
}
