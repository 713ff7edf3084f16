package crawler

import (
	"context"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
)

// fetchSitemap pulls /sitemap.xml from the target's origin and extracts the
// <loc> URLs. Best effort: any failure returns an empty list.
func fetchSitemap(ctx context.Context, targetURL, userAgent string, timeout time.Duration, logger arbor.ILogger) []string {
	base, err := neturl.Parse(targetURL)
	if err != nil {
		return nil
	}
	sitemapURL := base.Scheme + "://" + base.Host + "/sitemap.xml"

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Debug().Str("url", sitemapURL).Err(err).Msg("Sitemap fetch failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil
	}

	var urls []string
	doc.Find("loc").Each(func(_ int, s *goquery.Selection) {
		loc := strings.TrimSpace(s.Text())
		if loc != "" && len(urls) < 500 {
			urls = append(urls, loc)
		}
	})

	logger.Debug().Str("url", sitemapURL).Int("locations", len(urls)).Msg("Sitemap fetched")
	return urls
}
