package analysis

import (
	"testing"
	"time"

	"github.com/ternarybob/privascan/internal/models"
)

var auditNow = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

func expiresIn(days float64) float64 {
	return float64(auditNow.Add(time.Duration(days*24) * time.Hour).Unix())
}

func TestClassifyCookie_ExactMatch(t *testing.T) {
	class := classifyCookie("_ga")
	if class.Company != "Google Analytics" || class.Purpose != "analytics" {
		t.Errorf("_ga classified as %+v", class)
	}
}

func TestClassifyCookie_GreedyPrefix(t *testing.T) {
	class := classifyCookie("mp_3f8a_mixpanel")
	if class.Company != "Mixpanel" {
		t.Errorf("mp_ prefix not matched: %+v", class)
	}
}

func TestClassifyCookie_RegexFallback(t *testing.T) {
	if class := classifyCookie("sessionid"); class.Purpose != "session" {
		t.Errorf("session pattern not matched: %+v", class)
	}
	if class := classifyCookie("visitor_uid_v2"); class.Purpose != "tracking" {
		t.Errorf("tracking pattern not matched: %+v", class)
	}
}

func TestClassifyCookie_Unknown(t *testing.T) {
	if class := classifyCookie("zzqx"); class.Purpose != "unknown" {
		t.Errorf("unmatchable name classified as %+v", class)
	}
}

func TestLifetimeRisk_Buckets(t *testing.T) {
	days := func(d float64) *float64 { return &d }

	tests := []struct {
		days *float64
		want string
	}{
		{nil, "safe"},
		{days(1), "low"},
		{days(29.9), "low"},
		{days(30), "medium"},
		{days(364), "medium"},
		{days(365), "high"},
		{days(729), "high"},
		{days(730), "critical"},
		{days(4000), "critical"},
	}
	for _, tt := range tests {
		if got := lifetimeRiskOf(tt.days); got != tt.want {
			t.Errorf("lifetimeRiskOf(%v) = %s, want %s", tt.days, got, tt.want)
		}
	}
}

func TestLifetimeRisk_Monotonic(t *testing.T) {
	order := map[string]int{"safe": 0, "low": 1, "medium": 2, "high": 3, "critical": 4}
	prev := 0
	for d := 1.0; d < 2000; d += 25 {
		days := d
		rank := order[lifetimeRiskOf(&days)]
		if rank < prev {
			t.Fatalf("lifetime risk decreased at %.0f days", d)
		}
		prev = rank
	}
}

func TestIsThirdParty(t *testing.T) {
	tests := []struct {
		cookieDomain string
		siteHost     string
		want         bool
	}{
		{"example.com", "example.com", false},
		{".example.com", "www.example.com", false},
		{"example.com", "shop.example.com", false}, // parent-domain cookie
		{"doubleclick.net", "example.com", true},
		{".facebook.com", "example.com", true},
	}
	for _, tt := range tests {
		if got := isThirdParty(tt.cookieDomain, tt.siteHost); got != tt.want {
			t.Errorf("isThirdParty(%q, %q) = %v, want %v", tt.cookieDomain, tt.siteHost, got, tt.want)
		}
	}
}

func TestAuditCookies_AttributeIssues(t *testing.T) {
	// Two first-party cookies: one hardened, one with neither attribute.
	cookies := []models.CapturedCookie{
		{Name: "session_id", Domain: "example.com", Secure: true, HTTPOnly: true, SameSite: "Lax"},
		{Name: "prefs", Domain: "example.com", Secure: false, HTTPOnly: false, SameSite: "Lax"},
	}

	report := auditCookies(cookies, "example.com", auditNow)
	if report.Summary.SecurityIssues < 2 {
		t.Errorf("securityIssues = %d, want >= 2", report.Summary.SecurityIssues)
	}
	if report.Summary.ThirdPartyTracking != 0 {
		t.Errorf("thirdPartyTracking = %d, want 0 for first-party cookies", report.Summary.ThirdPartyTracking)
	}
	if report.Summary.Total != 2 {
		t.Errorf("total = %d, want 2", report.Summary.Total)
	}
}

func TestAuditCookies_TrackingElevation(t *testing.T) {
	// A third-party tracking cookie is always high risk; so is a two-year
	// first-party tracker.
	cookies := []models.CapturedCookie{
		{Name: "_fbp", Domain: ".facebook.com", Expires: expiresIn(90), Secure: true, HTTPOnly: true, SameSite: "Lax"},
		{Name: "visitor_track", Domain: "example.com", Expires: expiresIn(800), Secure: true, HTTPOnly: true, SameSite: "Lax"},
	}

	report := auditCookies(cookies, "example.com", auditNow)
	for _, finding := range report.Cookies {
		if finding.Risk != "high" {
			t.Errorf("cookie %s risk = %s, want high", finding.Name, finding.Risk)
		}
	}
	if report.Summary.ThirdPartyTracking != 1 {
		t.Errorf("thirdPartyTracking = %d, want 1", report.Summary.ThirdPartyTracking)
	}
}

func TestAuditCookies_SessionCookieHasNilLifetime(t *testing.T) {
	report := auditCookies([]models.CapturedCookie{
		{Name: "sid", Domain: "example.com", Expires: 0},
	}, "example.com", auditNow)

	finding := report.Cookies[0]
	if finding.LifetimeDays != nil {
		t.Errorf("session cookie lifetime = %v, want nil", *finding.LifetimeDays)
	}
	if finding.LifetimeRisk != "safe" {
		t.Errorf("session cookie lifetime risk = %s, want safe", finding.LifetimeRisk)
	}
}

func TestAuditCookies_ExpiredCookieNegativeLifetime(t *testing.T) {
	report := auditCookies([]models.CapturedCookie{
		{Name: "old", Domain: "example.com", Expires: expiresIn(-5)},
	}, "example.com", auditNow)

	finding := report.Cookies[0]
	if finding.LifetimeDays == nil || *finding.LifetimeDays >= 0 {
		t.Error("expired cookie should carry a negative lifetime")
	}
}

func TestAuditCookies_SortedMostSevereFirstAndCapped(t *testing.T) {
	cookies := []models.CapturedCookie{}
	for i := 0; i < 40; i++ {
		cookies = append(cookies, models.CapturedCookie{Name: "prefs", Domain: "example.com", Secure: true, HTTPOnly: true, SameSite: "Lax"})
	}
	cookies = append(cookies, models.CapturedCookie{Name: "_fbp", Domain: ".facebook.com", Expires: expiresIn(90)})

	report := auditCookies(cookies, "example.com", auditNow)
	if len(report.Cookies) != maxReportedCookies {
		t.Errorf("reported %d cookies, want cap of %d", len(report.Cookies), maxReportedCookies)
	}
	if report.Cookies[0].Name != "_fbp" {
		t.Errorf("first reported cookie = %s, want the high-risk tracker", report.Cookies[0].Name)
	}
	if report.Summary.Total != 41 {
		t.Errorf("summary total = %d, want full count 41", report.Summary.Total)
	}
}

func TestAuditCookies_LongestLived(t *testing.T) {
	report := auditCookies([]models.CapturedCookie{
		{Name: "short", Domain: "example.com", Expires: expiresIn(10)},
		{Name: "long", Domain: "example.com", Expires: expiresIn(500)},
	}, "example.com", auditNow)

	if report.Summary.LongestLivedName != "long" {
		t.Errorf("longestLivedName = %s, want long", report.Summary.LongestLivedName)
	}
	if report.Summary.LongestLivedDays < 499 || report.Summary.LongestLivedDays > 501 {
		t.Errorf("longestLivedDays = %f, want ~500", report.Summary.LongestLivedDays)
	}
}
