package models

import "time"

// NetworkRequest is one request observed during a page load.
type NetworkRequest struct {
	URL            string   `json:"url"`
	Method         string   `json:"method"`
	ResourceType   string   `json:"resourceType"`
	TrackingParams []string `json:"trackingParams,omitempty"`
	HasPostData    bool     `json:"hasPostData"`
}

// RedirectHop is one entry in a page's redirect chain.
type RedirectHop struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Status int    `json:"status"`
}

// InlineScript describes an inline script without retaining its source.
type InlineScript struct {
	Length                  int  `json:"length"`
	TrackerSignaturePresent bool `json:"trackerSignaturePresent"`
}

// BeaconCall records a navigator.sendBeacon invocation.
type BeaconCall struct {
	URL     string `json:"url"`
	HasData bool   `json:"hasData"`
}

// FingerprintFlags are the per-page detections from the injected
// instrumentation script.
type FingerprintFlags struct {
	Canvas        bool `json:"canvas"`
	WebGL         bool `json:"webgl"`
	Font          bool `json:"font"`
	Keylogger     bool `json:"keylogger"`
	FormSnooping  bool `json:"formSnooping"`
	ServiceWorker bool `json:"serviceWorker"`
}

// Merge ORs another set of flags into this one.
func (f *FingerprintFlags) Merge(other FingerprintFlags) {
	f.Canvas = f.Canvas || other.Canvas
	f.WebGL = f.WebGL || other.WebGL
	f.Font = f.Font || other.Font
	f.Keylogger = f.Keylogger || other.Keylogger
	f.FormSnooping = f.FormSnooping || other.FormSnooping
	f.ServiceWorker = f.ServiceWorker || other.ServiceWorker
}

// PageCapture holds everything observed on a single page. Transient; it
// exists only within one scheduled execution and is never persisted raw.
type PageCapture struct {
	URL             string            `json:"url"`
	FinalURL        string            `json:"finalUrl"`
	IsHomepage      bool              `json:"isHomepage"`
	StatusCode      int               `json:"statusCode"`
	ResponseHeaders map[string]string `json:"responseHeaders"`
	Requests        []NetworkRequest  `json:"requests"`
	Redirects       []RedirectHop     `json:"redirects"`
	WebSocketURLs   []string          `json:"webSocketUrls"`
	ExternalScripts []string          `json:"externalScripts"`
	InlineScripts   []InlineScript    `json:"inlineScripts"`
	LocalStorage    map[string]string `json:"localStorage"`
	SessionStorage  map[string]string `json:"sessionStorage"`
	InternalLinks   []string          `json:"internalLinks"`
	BodyText        string            `json:"bodyText"`
	Fingerprints    FingerprintFlags  `json:"fingerprints"`
	Beacons         []BeaconCall      `json:"beacons"`
}

// CapturedCookie mirrors the browser-context cookie jar entry.
type CapturedCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"` // Unix seconds; <=0 for session cookies
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
	SameSite string  `json:"sameSite"` // "Strict", "Lax", "None", or ""
}

// CrawlRecord is the aggregate result of one multi-page crawl.
type CrawlRecord struct {
	TargetURL    string           `json:"targetUrl"`
	Hostname     string           `json:"hostname"`
	Pages        []PageCapture    `json:"pages"`
	Cookies      []CapturedCookie `json:"cookies"`
	Fingerprints FingerprintFlags `json:"fingerprints"`
	Beacons      []BeaconCall     `json:"beacons"`
	StartedAt    time.Time        `json:"startedAt"`
	FinishedAt   time.Time        `json:"finishedAt"`
}

// Homepage returns the homepage capture, or nil if the crawl has none.
func (c *CrawlRecord) Homepage() *PageCapture {
	for i := range c.Pages {
		if c.Pages[i].IsHomepage {
			return &c.Pages[i]
		}
	}
	return nil
}
