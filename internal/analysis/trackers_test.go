package analysis

import (
	"testing"

	"github.com/ternarybob/privascan/internal/models"
)

func TestDetectTrackers_OneFindingPerCompany(t *testing.T) {
	record := &models.CrawlRecord{
		Hostname: "example.com",
		Pages: []models.PageCapture{
			{
				ExternalScripts: []string{
					"https://www.google-analytics.com/analytics.js",
					"https://connect.facebook.net/en_US/fbevents.js",
				},
				Requests: []models.NetworkRequest{
					{URL: "https://www.google-analytics.com/collect?v=1"},
					{URL: "https://example.com/app.js"},
				},
			},
		},
	}

	findings := detectTrackers(record)
	if len(findings) != 2 {
		t.Fatalf("found %d trackers, want 2 (one per company): %+v", len(findings), findings)
	}

	companies := map[string]bool{}
	for _, f := range findings {
		companies[f.Company] = true
		if f.Example == "" || f.Category == "" || f.Risk == "" {
			t.Errorf("finding for %s missing fields: %+v", f.Company, f)
		}
	}
	if !companies["Google Analytics"] || !companies["Meta Pixel"] {
		t.Errorf("companies = %v, want Google Analytics and Meta Pixel", companies)
	}
}

func TestDetectTrackers_CDNHostsExcluded(t *testing.T) {
	record := &models.CrawlRecord{
		Hostname: "example.com",
		Pages: []models.PageCapture{
			{ExternalScripts: []string{"https://cdnjs.cloudflare.com/ajax/libs/analytics/1.0/analytics.min.js"}},
		},
	}
	if findings := detectTrackers(record); len(findings) != 0 {
		t.Errorf("CDN-hosted library flagged as tracker: %+v", findings)
	}
}

func TestExternalDomains(t *testing.T) {
	record := &models.CrawlRecord{
		Hostname: "www.example.com",
		Pages: []models.PageCapture{
			{
				Requests: []models.NetworkRequest{
					{URL: "https://example.com/page"},                     // same site
					{URL: "https://www.example.com/img.png"},              // same site, www
					{URL: "https://www.doubleclick.net/pixel"},            // external, www stripped
					{URL: "https://fonts.googleapis.com/css?family=Lato"}, // CDN
					{URL: "https://api.stripe.com/v1"},                    // external
				},
				ExternalScripts: []string{
					"https://doubleclick.net/tag.js", // duplicate after stripping
				},
			},
		},
	}

	domains := externalDomains(record)
	if len(domains) != 2 {
		t.Fatalf("externalDomains = %v, want exactly doubleclick.net and api.stripe.com", domains)
	}
	seen := map[string]bool{}
	for _, d := range domains {
		seen[d] = true
	}
	if !seen["doubleclick.net"] || !seen["api.stripe.com"] {
		t.Errorf("externalDomains = %v", domains)
	}
}

func TestIsCDNHost(t *testing.T) {
	if !isCDNHost("cdn.jsdelivr.net") {
		t.Error("cdn.jsdelivr.net not recognized as CDN")
	}
	if !isCDNHost("stackpath.bootstrapcdn.com") {
		t.Error("bootstrapcdn prefix entry not matched")
	}
	if isCDNHost("evil-tracker.com") {
		t.Error("arbitrary host treated as CDN")
	}
}
