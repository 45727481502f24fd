// Package browser wraps chromedp with scrape-optimized settings and
// pagination/scroll helpers. It is the only package in this module that
// talks to the headless browser directly; platform Crawlers depend on
// the Page type, never on chromedp itself.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"jobscrape/internal/errs"
	"jobscrape/internal/logging"
)

// DefaultUserAgent mimics a recent desktop Chrome release.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// blockedResourceURLPatterns aborts image and stylesheet requests so
// listing/detail pages render faster under headless chromium.
var blockedResourceURLPatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico",
	"*.css", "*.woff", "*.woff2", "*.ttf", "*.eot",
}

// Pacer rate-limits the politeness delays (inter-page wait, scroll settle)
// through a single shared limiter instead of bare time.Sleep, so the
// pacing policy is centralized and testable.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer builds a Pacer that allows one event per interval, bursting by
// one — enough to serialize the inter-page/scroll delays without adding
// its own queueing semantics on top of the crawler's own concurrency
// control.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the pacer's rate allows the next event, or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Page is a single browser tab plus the context/cancel pair that owns it.
// Callers must call Close on every exit path.
type Page struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

// Context satisfies platform.Page so platform Crawlers can depend on the
// narrower interface instead of this concrete type.
func (p *Page) Context() context.Context { return p.ctx }

// Launch opens a fresh isolated browsing context: headless, realistic
// user agent, JavaScript enabled, CSP bypassed, image/stylesheet requests
// blocked.
func Launch(parent context.Context, userAgent string) (*Page, error) {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(userAgent),
		)...,
	)

	ctx, cancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(ctx,
		network.Enable(),
		network.SetBlockedURLs(blockedResourceURLPatterns),
		page.SetBypassCSP(true),
	); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("%w: launching browser context: %v", errs.ErrNavigationTimeout, err)
	}

	return &Page{ctx: ctx, cancel: cancel, allocCancel: allocCancel}, nil
}

// Close tears down the tab and its allocator. Safe to call more than once.
func (p *Page) Close() {
	if p == nil {
		return
	}
	if p.cancel != nil {
		p.cancel()
	}
	if p.allocCancel != nil {
		p.allocCancel()
	}
}

// Navigate opens url and waits for the document body to be ready, with a
// 20s ceiling; it does not wait for the network to go idle. On timeout the
// page is still usable and nil is returned — the caller's subsequent
// container wait is authoritative.
func (p *Page) Navigate(url string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	err := chromedp.Run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery))
	if err != nil {
		logging.Get().Debug().Str("url", url).Err(err).Msg("navigation did not reach a ready body within budget, continuing")
	}
	return nil
}

// NavigateStrict is like Navigate but returns errs.ErrNavigationTimeout
// when the `domcontentloaded` wait does not complete in time, used by
// FetchDetail's 60s ceiling.
func (p *Page) NavigateStrict(url string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s: %v", errs.ErrNavigationTimeout, url, err)
		}
		return fmt.Errorf("%w: %s: %v", errs.ErrTargetClosed, url, err)
	}
	return nil
}

// WaitVisible waits up to timeout for selector to appear, returning
// errs.ErrExtractionMiss on expiry.
func (p *Page) WaitVisible(selector string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("%w: selector %q: %v", errs.ErrExtractionMiss, selector, err)
	}
	return nil
}

// HasPagination checks whether selector (the pagination nav container) is
// present within a 5-second budget.
func (p *Page) HasPagination(selector string) bool {
	ctx, cancel := context.WithTimeout(p.ctx, 5*time.Second)
	defer cancel()
	return chromedp.Run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery)) == nil
}

// ClickNext clicks the next-page button if it exists and is enabled, then
// waits for DOMContentLoaded. Returns whether the click happened.
func (p *Page) ClickNext(selector string) (bool, error) {
	var disabled bool
	var exists bool

	checkCtx, cancel := context.WithTimeout(p.ctx, 5*time.Second)
	defer cancel()

	err := chromedp.Run(checkCtx, chromedp.Evaluate(
		fmt.Sprintf(`(() => { const el = document.querySelector(%q); if (!el) return false; window.__jsNextDisabled = !!(el.disabled || el.getAttribute('aria-disabled') === 'true'); return true; })()`, selector),
		&exists,
	))
	if err != nil || !exists {
		return false, nil
	}

	_ = chromedp.Run(checkCtx, chromedp.Evaluate(`window.__jsNextDisabled === true`, &disabled))
	if disabled {
		return false, nil
	}

	clickCtx, clickCancel := context.WithTimeout(p.ctx, 15*time.Second)
	defer clickCancel()

	if err := chromedp.Run(clickCtx,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return false, fmt.Errorf("%w: clicking next page button: %v", errs.ErrNavigationTimeout, err)
	}
	return true, nil
}

// ScrollToLoad scrolls to the document end repeatedly until the item count
// stops increasing for noProgressCap consecutive iterations, or
// maxAttempts is reached. pacer paces the settle delay between
// iterations. Returns the final item count.
func (p *Page) ScrollToLoad(ctx context.Context, itemSelector string, maxAttempts, noProgressCap int, pacer *Pacer) (int, error) {
	if maxAttempts <= 0 {
		maxAttempts = 20
	}
	if noProgressCap <= 0 {
		noProgressCap = 5
	}

	lastCount := 0
	noProgress := 0

	for attempt := 0; attempt < maxAttempts; attempt++ {
		count, err := p.countItems(itemSelector)
		if err != nil {
			return lastCount, err
		}

		if err := chromedp.Run(p.ctx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil)); err != nil {
			return count, fmt.Errorf("%w: scrolling to load more results: %v", errs.ErrNavigationTimeout, err)
		}

		if pacer != nil {
			if err := pacer.Wait(ctx); err != nil {
				return count, err
			}
		}

		newCount, err := p.countItems(itemSelector)
		if err != nil {
			return count, err
		}

		if newCount > lastCount {
			noProgress = 0
		} else {
			noProgress++
		}
		lastCount = newCount

		if noProgress >= noProgressCap {
			break
		}
	}

	return lastCount, nil
}

func (p *Page) countItems(selector string) (int, error) {
	var count int
	ctx, cancel := context.WithTimeout(p.ctx, 5*time.Second)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Evaluate(
		fmt.Sprintf(`document.querySelectorAll(%q).length`, selector), &count,
	)); err != nil {
		return 0, fmt.Errorf("%w: counting items for selector %q: %v", errs.ErrExtractionMiss, selector, err)
	}
	return count, nil
}

// OuterHTML returns the outer HTML of the full document, for downstream
// goquery-based extraction.
func (p *Page) OuterHTML() (string, error) {
	var html string
	if err := chromedp.Run(p.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("%w: reading page HTML: %v", errs.ErrExtractionMiss, err)
	}
	return html, nil
}
