package analysis

import (
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/privascan/internal/models"
)

const maxReportedCookies = 30

// Ordering for the cookie report: most severe first.
var riskOrder = map[string]int{
	"critical": 0,
	"high":     1,
	"medium":   2,
	"low":      3,
	"safe":     4,
}

// classifyCookie resolves a cookie name to its company, purpose, and base
// risk. Exact table hit first, then greedy prefix over every known entry,
// then the regex fallbacks.
func classifyCookie(name string) cookieClass {
	if class, ok := knownCookies[name]; ok {
		return class
	}
	for prefix, class := range knownCookies {
		if strings.HasPrefix(name, prefix) {
			return class
		}
	}
	for _, p := range cookiePatterns {
		if p.Pattern.MatchString(name) {
			return p.Class
		}
	}
	return cookieClass{Purpose: "unknown", Risk: "low"}
}

// lifetimeRiskOf buckets a cookie lifetime. Session cookies are safe; risk
// grows monotonically with lifetime.
func lifetimeRiskOf(days *float64) string {
	switch {
	case days == nil:
		return "safe"
	case *days < 30:
		return "low"
	case *days < 365:
		return "medium"
	case *days < 730:
		return "high"
	default:
		return "critical"
	}
}

// isThirdParty compares the cookie's domain to the crawled hostname with
// leading dots and www. stripped. A parent-domain cookie is first-party.
func isThirdParty(cookieDomain, siteHost string) bool {
	domain := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(cookieDomain), "."), "www.")
	site := strings.TrimPrefix(strings.ToLower(siteHost), "www.")
	if domain == "" || domain == site {
		return false
	}
	return !strings.HasSuffix(site, "."+domain)
}

// auditCookies runs the deep cookie analysis over the captured jar.
func auditCookies(cookies []models.CapturedCookie, siteHost string, now time.Time) models.CookieReport {
	summary := models.CookieSummary{
		Total:     len(cookies),
		ByPurpose: map[string]int{},
		ByRisk:    map[string]int{},
	}

	findings := make([]models.CookieFinding, 0, len(cookies))
	for _, c := range cookies {
		class := classifyCookie(c.Name)

		var lifetimeDays *float64
		if c.Expires > 0 {
			days := time.Unix(int64(c.Expires), 0).Sub(now).Hours() / 24
			lifetimeDays = &days
		}
		lifetimeRisk := lifetimeRiskOf(lifetimeDays)

		var issues []string
		if !c.Secure {
			issues = append(issues, "missing Secure attribute")
		}
		if !c.HTTPOnly {
			issues = append(issues, "missing HttpOnly attribute")
		}
		switch c.SameSite {
		case "None":
			issues = append(issues, "SameSite=None allows cross-site sending")
		case "":
			issues = append(issues, "missing SameSite attribute")
		}

		thirdParty := isThirdParty(c.Domain, siteHost)

		risk := class.Risk
		if class.Purpose == "tracking" && (lifetimeRisk == "critical" || thirdParty) {
			risk = "high"
		}

		findings = append(findings, models.CookieFinding{
			Name:         c.Name,
			Domain:       c.Domain,
			Company:      class.Company,
			Purpose:      class.Purpose,
			Risk:         risk,
			LifetimeDays: lifetimeDays,
			LifetimeRisk: lifetimeRisk,
			ThirdParty:   thirdParty,
			Issues:       issues,
		})

		summary.ByPurpose[class.Purpose]++
		summary.ByRisk[risk]++
		summary.SecurityIssues += len(issues)
		if thirdParty && class.Purpose == "tracking" {
			summary.ThirdPartyTracking++
		}
		if lifetimeDays != nil && *lifetimeDays > summary.LongestLivedDays {
			summary.LongestLivedDays = *lifetimeDays
			summary.LongestLivedName = c.Name
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return riskOrder[findings[i].Risk] < riskOrder[findings[j].Risk]
	})
	if len(findings) > maxReportedCookies {
		findings = findings[:maxReportedCookies]
	}

	return models.CookieReport{Cookies: findings, Summary: summary}
}
