package analysis

import (
	neturl "net/url"
	"strings"

	"github.com/ternarybob/privascan/internal/models"
)

// isCDNHost reports whether a host serves shared libraries and should be
// excluded from tracker and script analysis.
func isCDNHost(host string) bool {
	host = strings.ToLower(host)
	if _, ok := cdnAllowlist[host]; ok {
		return true
	}
	// Bootstrap CDN entries are keyed without TLD; match on prefix.
	for allowed := range cdnAllowlist {
		if !strings.Contains(allowed, ".") && strings.HasPrefix(host, allowed) {
			return true
		}
	}
	return false
}

// detectTrackers matches script and request URLs against the tracker table.
// One finding per company, first match wins.
func detectTrackers(record *models.CrawlRecord) []models.TrackerFinding {
	urls := map[string]bool{}
	for _, pg := range record.Pages {
		for _, src := range pg.ExternalScripts {
			urls[src] = true
		}
		for _, req := range pg.Requests {
			urls[req.URL] = true
		}
	}

	seen := map[string]bool{}
	var findings []models.TrackerFinding
	for rawURL := range urls {
		u, err := neturl.Parse(rawURL)
		if err != nil {
			continue
		}
		if isCDNHost(u.Hostname()) {
			continue
		}
		lower := strings.ToLower(rawURL)
		for _, pattern := range trackerPatterns {
			if !strings.Contains(lower, pattern.Keyword) {
				continue
			}
			if !seen[pattern.Company] {
				seen[pattern.Company] = true
				findings = append(findings, models.TrackerFinding{
					Company:  pattern.Company,
					Category: pattern.Category,
					Risk:     pattern.Risk,
					Example:  rawURL,
				})
			}
			break
		}
	}
	return findings
}

// externalDomains returns the non-CDN hosts contacted during the crawl that
// differ from the crawled site, www-stripped and deduplicated.
func externalDomains(record *models.CrawlRecord) []string {
	siteHost := strings.TrimPrefix(strings.ToLower(record.Hostname), "www.")

	seen := map[string]bool{}
	var domains []string
	collect := func(rawURL string) {
		u, err := neturl.Parse(rawURL)
		if err != nil {
			return
		}
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		if host == "" || host == siteHost || isCDNHost(u.Hostname()) {
			return
		}
		if !seen[host] {
			seen[host] = true
			domains = append(domains, host)
		}
	}

	for _, pg := range record.Pages {
		for _, req := range pg.Requests {
			collect(req.URL)
		}
		for _, src := range pg.ExternalScripts {
			collect(src)
		}
	}
	return domains
}
