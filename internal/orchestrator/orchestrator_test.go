package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobscrape/internal/config"
	"jobscrape/internal/errs"
	"jobscrape/internal/model"
	"jobscrape/internal/platform"
)

type fakePage struct{ ctx context.Context }

func (p *fakePage) Context() context.Context { return p.ctx }
func (p *fakePage) Close()                   {}

func fakeLauncher(ctx context.Context, _ string) (page, error) {
	return &fakePage{ctx: ctx}, nil
}

// fakeCrawler serves a fixed summary list and a per-URL detail map, with an
// optional per-URL failure schedule to exercise the retry policy.
type fakeCrawler struct {
	summaries []model.JobSummary
	details   map[string]model.JobDetail

	failuresLeft map[string]int
	failureErr   map[string]error
	calls        int32
}

func (c *fakeCrawler) Paginate(ctx context.Context, p platform.Page, companyName, baseURL string, maxPages *int) ([]model.JobSummary, error) {
	return c.summaries, nil
}

func (c *fakeCrawler) FetchDetail(ctx context.Context, p platform.Page, url string) (model.JobDetail, error) {
	atomic.AddInt32(&c.calls, 1)
	if n, ok := c.failuresLeft[url]; ok && n > 0 {
		c.failuresLeft[url] = n - 1
		return model.JobDetail{}, c.failureErr[url]
	}
	if d, ok := c.details[url]; ok {
		return d, nil
	}
	return model.NewFailedDetail(url), nil
}

type fakeFactory struct {
	crawler platform.Crawler
	merged  config.Merged
}

func (f *fakeFactory) SupportedPlatforms() []string { return []string{"fake"} }
func (f *fakeFactory) CreateCrawler(identifier string, runConfig config.Merged) (platform.Crawler, error) {
	return f.crawler, nil
}
func (f *fakeFactory) CreateParser(identifier string) (platform.Parser, error) { return nil, nil }
func (f *fakeFactory) MergeRunConfig(identifier string, run config.RunConfig) (config.Merged, error) {
	m := f.merged
	if run.JobDetailConcurrency > 0 {
		m.JobDetailConcurrency = run.JobDetailConcurrency
	}
	return m, nil
}

type fakeSink struct {
	persisted []model.JobRecord
	err       error
}

func (s *fakeSink) Persist(ctx context.Context, records []model.JobRecord) error {
	if s.err != nil {
		return s.err
	}
	s.persisted = records
	return nil
}

func baseRunConfig() config.RunConfig {
	return config.RunConfig{
		CompanyName:          "Acme",
		TargetURL:            "https://acme.example.com/careers",
		Platform:             "fake",
		JobDetailConcurrency: 4,
	}
}

func TestRunHappyPathPreservesOrderAndDisablesEnrichment(t *testing.T) {
	crawler := &fakeCrawler{
		summaries: []model.JobSummary{
			{Title: "A", DetailURL: "https://x/a"},
			{Title: "B", DetailURL: "https://x/b"},
			{Title: "C", DetailURL: "https://x/c"},
		},
		details: map[string]model.JobDetail{
			"https://x/a": {URL: "https://x/a", Description: "da"},
			"https://x/b": {URL: "https://x/b", Description: "db"},
			"https://x/c": {URL: "https://x/c", Description: "dc"},
		},
		failuresLeft: map[string]int{},
		failureErr:   map[string]error{},
	}
	o := New(&fakeFactory{crawler: crawler})
	o.launch = fakeLauncher

	dest := &fakeSink{}
	report, records, err := o.Run(context.Background(), baseRunConfig(), dest)

	require.NoError(t, err)
	assert.Equal(t, "disabled", report.EnrichmentState)
	assert.Equal(t, 0, report.EnrichmentCalls)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{records[0].Title, records[1].Title, records[2].Title})
	assert.Equal(t, records, dest.persisted)
}

func TestRunFiltersDuplicateDetailURLsFirstOccurrenceWins(t *testing.T) {
	crawler := &fakeCrawler{
		summaries: []model.JobSummary{
			{Title: "First", DetailURL: "https://x/dup"},
			{Title: "Second", DetailURL: "https://x/dup"},
		},
		details: map[string]model.JobDetail{
			"https://x/dup": {URL: "https://x/dup"},
		},
		failuresLeft: map[string]int{},
		failureErr:   map[string]error{},
	}
	o := New(&fakeFactory{crawler: crawler})
	o.launch = fakeLauncher

	report, records, err := o.Run(context.Background(), baseRunConfig(), &fakeSink{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "First", records[0].Title)
	assert.Equal(t, 1, report.FilteredDuplicate)
}

func TestRunFiltersStalePostings(t *testing.T) {
	crawler := &fakeCrawler{
		summaries: []model.JobSummary{
			{Title: "Fresh", DetailURL: "https://x/1", DatePostedRaw: "Posted Today"},
			{Title: "Stale", DetailURL: "https://x/2", DatePostedRaw: "Posted 30+ days ago"},
		},
		details:      map[string]model.JobDetail{},
		failuresLeft: map[string]int{},
		failureErr:   map[string]error{},
	}
	o := New(&fakeFactory{crawler: crawler})
	o.launch = fakeLauncher

	report, records, err := o.Run(context.Background(), baseRunConfig(), &fakeSink{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Fresh", records[0].Title)
	assert.Equal(t, 1, report.FilteredStale)
}

func TestRunRetriesTransientDetailFailureThenSucceeds(t *testing.T) {
	crawler := &fakeCrawler{
		summaries: []model.JobSummary{{Title: "Flaky", DetailURL: "https://x/flaky"}},
		details: map[string]model.JobDetail{
			"https://x/flaky": {URL: "https://x/flaky", Description: "eventually"},
		},
		failuresLeft: map[string]int{"https://x/flaky": 1},
		failureErr:   map[string]error{"https://x/flaky": fmt.Errorf("wrap: %w", errs.ErrNavigationTimeout)},
	}
	o := New(&fakeFactory{crawler: crawler})
	o.launch = fakeLauncher

	report, records, err := o.Run(context.Background(), baseRunConfig(), &fakeSink{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "eventually", records[0].Description)
	assert.Equal(t, 0, report.DetailFailed)
	assert.Equal(t, int32(2), crawler.calls)
}

func TestRunDoesNotRetryOnTargetClosed(t *testing.T) {
	crawler := &fakeCrawler{
		summaries:    []model.JobSummary{{Title: "Closed", DetailURL: "https://x/closed"}},
		details:      map[string]model.JobDetail{},
		failuresLeft: map[string]int{"https://x/closed": 99},
		failureErr:   map[string]error{"https://x/closed": fmt.Errorf("wrap: %w", errs.ErrTargetClosed)},
	}
	o := New(&fakeFactory{crawler: crawler})
	o.launch = fakeLauncher

	report, records, err := o.Run(context.Background(), baseRunConfig(), &fakeSink{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 1, report.DetailFailed)
	assert.Equal(t, int32(1), crawler.calls)
}

func TestRunSinkFailureSurfaces(t *testing.T) {
	crawler := &fakeCrawler{
		summaries:    []model.JobSummary{{Title: "A", DetailURL: "https://x/a"}},
		details:      map[string]model.JobDetail{"https://x/a": {URL: "https://x/a"}},
		failuresLeft: map[string]int{},
		failureErr:   map[string]error{},
	}
	o := New(&fakeFactory{crawler: crawler})
	o.launch = fakeLauncher

	dest := &fakeSink{err: errs.ErrSink}
	_, _, err := o.Run(context.Background(), baseRunConfig(), dest)
	require.Error(t, err)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	o := New(&fakeFactory{crawler: &fakeCrawler{}})
	o.launch = fakeLauncher

	_, _, err := o.Run(context.Background(), config.RunConfig{}, &fakeSink{})
	require.Error(t, err)
}

func TestRunMaxPagesZeroYieldsNoRecords(t *testing.T) {
	crawler := &fakeCrawler{summaries: nil, details: map[string]model.JobDetail{}, failuresLeft: map[string]int{}, failureErr: map[string]error{}}
	o := New(&fakeFactory{crawler: crawler})
	o.launch = fakeLauncher

	zero := 0
	run := baseRunConfig()
	run.MaxPages = &zero

	report, records, err := o.Run(context.Background(), run, &fakeSink{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 0, report.TotalSummaries)
}
