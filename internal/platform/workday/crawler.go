package workday

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobscrape/internal/browser"
	"jobscrape/internal/config"
	"jobscrape/internal/errs"
	"jobscrape/internal/logging"
	"jobscrape/internal/model"
	"jobscrape/internal/platform"
)

// selector keys expected in the merged config's Selectors map.
const (
	selListingContainer    = "listing_container"
	selListingItem         = "listing_item"
	selTitleLink           = "title_link"
	selLocationCell        = "location_cell"
	selDatePostedCell      = "date_posted_cell"
	selPaginationContainer = "pagination_container"
	selNextPageButton      = "next_page_button"
	selJobDescription      = "job_description"
	selJobIDDisplay        = "job_id_display"
)

// Crawler implements platform.Crawler for Workday-hosted career sites.
// today is captured once, at construction time, rather than per call —
// a Crawler lives for exactly one run, so relative-date parsing stays
// stable across the run without threading a clock through every method.
type Crawler struct {
	cfg    config.Merged
	parser *Parser
	today  frozenClock
}

// NewCrawler satisfies platform.CrawlerFactoryFunc.
func NewCrawler(cfg config.Merged) (platform.Crawler, error) {
	now := time.Now()
	return &Crawler{
		cfg:    cfg,
		parser: &Parser{},
		today:  frozenClock{year: now.Year(), month: int(now.Month()), day: now.Day()},
	}, nil
}

type frozenClock struct {
	year, month, day int
}

func (f frozenClock) Today() (int, int, int) { return f.year, f.month, f.day }

func (c *Crawler) selector(key string) string {
	if v, ok := c.cfg.Selectors[key]; ok && v != "" {
		return v
	}
	return defaultSelectors[key]
}

// defaultSelectors lets the crawler function against a plausible Workday
// DOM shape out of the box; real deployments override these via the
// platform's registered config (the run config carries no selectors).
var defaultSelectors = map[string]string{
	selListingContainer:    "[data-automation-id='jobResults']",
	selListingItem:         "li.css-1q2dra3",
	selTitleLink:           "a[data-automation-id='jobTitle']",
	selLocationCell:        "[data-automation-id='locations']",
	selDatePostedCell:      "[data-automation-id='postedOn']",
	selPaginationContainer: "nav[aria-label='pagination']",
	selNextPageButton:      "button[data-uxi-widget-type='stepToNextButton']",
	selJobDescription:      "[data-automation-id='jobPostingDescription']",
	selJobIDDisplay:        "[data-automation-id='requisitionId']",
}

// Paginate walks the listing, picking numbered-pagination or
// infinite-scroll handling based on whether the pagination nav container
// is present.
func (c *Crawler) Paginate(ctx context.Context, p platform.Page, companyName, baseURL string, maxPages *int) ([]model.JobSummary, error) {
	page, ok := p.(*browser.Page)
	if !ok {
		return nil, fmt.Errorf("%w: workday crawler requires a *browser.Page", errs.ErrPlatformContract)
	}
	logger := logging.Get()

	if err := page.Navigate(baseURL, 20*time.Second); err != nil {
		return nil, err
	}

	if err := page.WaitVisible(c.selector(selListingContainer), c.cfg.SelectorTimeout); err != nil {
		logger.Warn().Err(err).Msg("listing container did not appear, returning zero summaries")
		return nil, nil
	}

	if maxPages != nil && *maxPages == 0 {
		return nil, nil
	}

	if page.HasPagination(c.selector(selPaginationContainer)) {
		return c.paginateNumbered(ctx, page, companyName, baseURL, maxPages)
	}
	return c.paginateScroll(ctx, page, companyName, baseURL)
}

func (c *Crawler) paginateNumbered(ctx context.Context, page *browser.Page, companyName, baseURL string, maxPages *int) ([]model.JobSummary, error) {
	logger := logging.Get()
	pacer := browser.NewPacer(c.pageDelay())

	var all []model.JobSummary
	currentPage := 1

	for {
		if maxPages != nil && currentPage > *maxPages {
			break
		}

		summaries, err := c.extractSummaries(page, baseURL)
		if err != nil {
			logger.Warn().Err(err).Int("page", currentPage).Msg("page extraction failed, contributing zero summaries")
		} else {
			all = append(all, summaries...)
		}

		clicked, err := page.ClickNext(c.selector(selNextPageButton))
		if err != nil {
			logger.Warn().Err(err).Int("page", currentPage).Msg("next-page click failed, stopping pagination")
			break
		}
		if !clicked {
			break
		}

		if err := pacer.Wait(ctx); err != nil {
			return all, err
		}
		currentPage++
	}

	return all, nil
}

func (c *Crawler) paginateScroll(ctx context.Context, page *browser.Page, companyName, baseURL string) ([]model.JobSummary, error) {
	pacer := browser.NewPacer(c.cfg.ScrollSettleDelay)
	if _, err := page.ScrollToLoad(ctx, c.selector(selListingItem), c.cfg.ScrollMaxAttempts, c.cfg.ScrollNoProgressCap, pacer); err != nil {
		logging.Get().Warn().Err(err).Msg("scroll-to-load did not complete cleanly, extracting what loaded")
	}
	return c.extractSummaries(page, baseURL)
}

func (c *Crawler) pageDelay() time.Duration {
	if c.cfg.InterPageDelay <= 0 {
		return 2 * time.Second
	}
	return c.cfg.InterPageDelay
}

// listingSelectors names the subset of the DOM contract extractSummariesFromHTML
// needs, kept separate from the Crawler so the extraction logic can run
// against a captured HTML fixture without a browser.
type listingSelectors struct {
	item           string
	titleLink      string
	locationCell   string
	datePostedCell string
}

// extractSummaries reads every job card on the current page.
func (c *Crawler) extractSummaries(page *browser.Page, baseURL string) ([]model.JobSummary, error) {
	html, err := page.OuterHTML()
	if err != nil {
		return nil, err
	}
	return extractSummariesFromHTML(html, baseURL, listingSelectors{
		item:           c.selector(selListingItem),
		titleLink:      c.selector(selTitleLink),
		locationCell:   c.selector(selLocationCell),
		datePostedCell: c.selector(selDatePostedCell),
	}, c.parser, c.today)
}

// extractSummariesFromHTML parses an already-rendered listing page and
// builds one JobSummary per card, skipping any card with a missing title
// or href silently. Pure given its inputs, so it runs against a captured
// HTML fixture without a browser.
func extractSummariesFromHTML(html, baseURL string, sel listingSelectors, parser platform.Parser, today platform.Clock) ([]model.JobSummary, error) {
	doc, err := browser.Document(html)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing listing page HTML: %v", errs.ErrExtractionMiss, err)
	}

	origin, err := resolveOrigin(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base URL %q: %v", errs.ErrConfiguration, baseURL, err)
	}

	var summaries []model.JobSummary
	doc.Find(sel.item).Each(func(_ int, card *goquery.Selection) {
		titleSel := card.Find(sel.titleLink).First()
		title := strings.TrimSpace(titleSel.Text())
		href, hasHref := titleSel.Attr("href")
		if title == "" || !hasHref {
			return // missing title or href: skip the card silently
		}

		locationRaw := strings.TrimSpace(card.Find(sel.locationCell).First().Text())
		dateRaw := strings.TrimSpace(card.Find(sel.datePostedCell).First().Text())

		detailURL := resolveDetailURL(href, origin, baseURL)

		summaries = append(summaries, model.JobSummary{
			Title:            title,
			DetailURL:        detailURL,
			LocationRaw:      locationRaw,
			DatePostedRaw:    dateRaw,
			LocationParsed:   parser.ParseLocation(locationRaw),
			DatePostedParsed: parser.ParseDate(dateRaw, today),
		})
	})

	return summaries, nil
}

// resolveDetailURL builds an absolute URL from a card's href: kept as-is
// if it already starts with "http", origin-prefixed if it starts with
// "/", otherwise prepended with baseURL + "/".
func resolveDetailURL(href, origin, baseURL string) string {
	switch {
	case strings.HasPrefix(href, "http"):
		return href
	case strings.HasPrefix(href, "/"):
		return origin + href
	default:
		return strings.TrimSuffix(baseURL, "/") + "/" + href
	}
}

func resolveOrigin(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	return u.Scheme + "://" + u.Host, nil
}

// FetchDetail loads a single job detail page: navigate with a 60s
// ceiling, wait up to 10s for the description element, then extract
// description/title/job-id with a textual fallback for the job id.
// Every failure yields a JobDetail with every field set to model.NA, with
// the cause logged. A navigation failure (or a page that is not a
// *browser.Page) is also returned as an error so the caller's retry
// policy can classify it; extraction failures return a nil error.
func (c *Crawler) FetchDetail(ctx context.Context, p platform.Page, detailURL string) (model.JobDetail, error) {
	page, ok := p.(*browser.Page)
	if !ok {
		return model.NewFailedDetail(detailURL), fmt.Errorf("%w: workday crawler requires a *browser.Page", errs.ErrPlatformContract)
	}
	logger := logging.Get()

	if err := page.NavigateStrict(detailURL, 60*time.Second); err != nil {
		logger.Warn().Err(err).Str("url", detailURL).Msg("detail navigation failed")
		return model.NewFailedDetail(detailURL), err
	}

	if err := page.WaitVisible(c.selector(selJobDescription), 10*time.Second); err != nil {
		logger.Warn().Err(err).Str("url", detailURL).Msg("job description did not appear, returning N/A detail")
		return model.NewFailedDetail(detailURL), nil
	}

	html, err := page.OuterHTML()
	if err != nil {
		logger.Warn().Err(err).Str("url", detailURL).Msg("reading detail page HTML failed, returning N/A detail")
		return model.NewFailedDetail(detailURL), nil
	}

	detail, err := extractDetailFromHTML(html, detailURL, detailSelectors{
		description:  c.selector(selJobDescription),
		titleLink:    c.selector(selTitleLink),
		jobIDDisplay: c.selector(selJobIDDisplay),
	}, c.parser)
	if err != nil {
		logger.Warn().Err(err).Str("url", detailURL).Msg("parsing detail page HTML failed, returning N/A detail")
		return model.NewFailedDetail(detailURL), nil
	}
	return detail, nil
}

// detailSelectors names the subset of the DOM contract extractDetailFromHTML
// needs.
type detailSelectors struct {
	description  string
	titleLink    string
	jobIDDisplay string
}

// extractDetailFromHTML parses an already-rendered detail page into a
// JobDetail, falling back to a textual job-id scan of the description
// body when the dedicated selector misses. Every field defaults to
// model.NA rather than being left blank. Pure given its inputs, so it
// runs against a captured HTML fixture without a browser.
func extractDetailFromHTML(html, detailURL string, sel detailSelectors, parser platform.Parser) (model.JobDetail, error) {
	doc, err := browser.Document(html)
	if err != nil {
		return model.JobDetail{}, fmt.Errorf("%w: parsing detail page HTML: %v", errs.ErrExtractionMiss, err)
	}

	description := browser.TextOrEmpty(doc, sel.description)
	if description == "" {
		description = model.NA
	}

	title := browser.TextOrEmpty(doc, sel.titleLink)
	if title == "" {
		title = model.NA
	}

	jobID := browser.TextOrEmpty(doc, sel.jobIDDisplay)
	if jobID == "" {
		// textual fallback: Workday sometimes only prints the requisition
		// id inside the description body, e.g. "Job ID: R-12345".
		jobID = parser.ParseJobID(extractJobIDFallback(description))
	}
	if jobID == "" {
		jobID = model.NA
	}

	return model.JobDetail{
		URL:             detailURL,
		Description:     description,
		JobID:           jobID,
		DetailPageTitle: title,
	}, nil
}

var reJobIDInBody = regexp.MustCompile(`(?i)(job\s*id|req(?:uisition)?)[\s:#-]*([A-Za-z0-9-]+)`)

// extractJobIDFallback scans free text for a "Job ID: ..." or "Req ..."
// token when the dedicated selector misses.
func extractJobIDFallback(text string) string {
	m := reJobIDInBody.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[2]
}
