package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/privascan/internal/common"
	"github.com/ternarybob/privascan/internal/ingress"
	"github.com/ternarybob/privascan/internal/models"
)

// Engine drives a headless browser through one multi-page crawl per target.
// One page at a time within a crawl; separate crawls are independent.
type Engine struct {
	cfg    common.CrawlerConfig
	logger arbor.ILogger
}

// NewEngine creates a crawl engine.
func NewEngine(cfg common.CrawlerConfig, logger arbor.ILogger) *Engine {
	return &Engine{cfg: cfg, logger: logger}
}

func (e *Engine) allocatorOptions() []chromedp.ExecAllocatorOption {
	return append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", e.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", e.cfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		// Context-level kill switch; instrumentation also shadows the
		// registration API so usage is still observed.
		chromedp.Flag("disable-features", "ServiceWorker"),
		chromedp.UserAgent(e.cfg.UserAgent),
	)
}

// Crawl loads the homepage plus up to MaxSubPages additional same-host
// pages and returns the aggregate record. A homepage failure aborts the
// crawl; sub-page failures are logged and skipped.
func (e *Engine) Crawl(ctx context.Context, targetURL string) (*models.CrawlRecord, error) {
	record := &models.CrawlRecord{
		TargetURL: targetURL,
		Hostname:  ingress.HostnameOf(targetURL),
		StartedAt: time.Now().UTC(),
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, e.allocatorOptions()...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	homepage, err := e.capturePage(browserCtx, targetURL, true)
	if err != nil {
		return nil, err
	}
	record.Pages = append(record.Pages, *homepage)

	sitemapURLs := fetchSitemap(ctx, targetURL, e.cfg.UserAgent, e.cfg.SitemapTimeout, e.logger)
	candidates := append(append([]string{}, sitemapURLs...), homepage.InternalLinks...)
	subPages := selectSubPages(targetURL, candidates, e.cfg.MaxSubPages)

	for _, pageURL := range subPages {
		capture, err := e.capturePage(browserCtx, pageURL, false)
		if err != nil {
			e.logger.Warn().
				Str("url", pageURL).
				Err(err).
				Msg("Sub-page crawl failed, skipping")
			continue
		}
		record.Pages = append(record.Pages, *capture)
	}

	cookies, err := e.collectCookies(browserCtx, record)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Cookie collection failed")
	} else {
		record.Cookies = cookies
	}

	for _, pg := range record.Pages {
		record.Fingerprints.Merge(pg.Fingerprints)
		record.Beacons = append(record.Beacons, pg.Beacons...)
	}

	record.FinishedAt = time.Now().UTC()
	e.logger.Info().
		Str("url", targetURL).
		Int("pages", len(record.Pages)).
		Int("cookies", len(record.Cookies)).
		Str("duration", record.FinishedAt.Sub(record.StartedAt).String()).
		Msg("Crawl completed")
	return record, nil
}

// collectCookies reads the browser-context cookie jar for every crawled URL.
func (e *Engine) collectCookies(browserCtx context.Context, record *models.CrawlRecord) ([]models.CapturedCookie, error) {
	urls := make([]string, 0, len(record.Pages))
	for _, pg := range record.Pages {
		if pg.FinalURL != "" {
			urls = append(urls, pg.FinalURL)
		} else {
			urls = append(urls, pg.URL)
		}
	}

	var captured []models.CapturedCookie
	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().WithURLs(urls).Do(ctx)
		if err != nil {
			return err
		}
		seen := map[string]bool{}
		for _, c := range cookies {
			key := c.Name + "|" + c.Domain + "|" + c.Path
			if seen[key] {
				continue
			}
			seen[key] = true
			captured = append(captured, models.CapturedCookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
				SameSite: string(c.SameSite),
			})
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return captured, nil
}

// IsUnreachable reports whether an error is a navigation failure rather
// than an infrastructure fault.
func IsUnreachable(err error) bool {
	var unreachable *UnreachableError
	return errors.As(err, &unreachable)
}
