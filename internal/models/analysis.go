package models

// TrackerFinding is one identified tracking company.
type TrackerFinding struct {
	Company  string `json:"company"`
	Category string `json:"category"`
	Risk     string `json:"risk"` // low, medium, high
	Example  string `json:"example"`
}

// CookieFinding is the deep-analysis record for one cookie.
type CookieFinding struct {
	Name         string   `json:"name"`
	Domain       string   `json:"domain"`
	Company      string   `json:"company"`
	Purpose      string   `json:"purpose"` // session, analytics, tracking, functional, unknown
	Risk         string   `json:"risk"`    // safe, low, medium, high, critical
	LifetimeDays *float64 `json:"lifetimeDays"`
	LifetimeRisk string   `json:"lifetimeRisk"`
	ThirdParty   bool     `json:"thirdParty"`
	Issues       []string `json:"issues,omitempty"`
}

// CookieSummary aggregates the cookie audit.
type CookieSummary struct {
	Total               int            `json:"total"`
	ThirdPartyTracking  int            `json:"thirdPartyTracking"`
	ByPurpose           map[string]int `json:"byPurpose"`
	ByRisk              map[string]int `json:"byRisk"`
	SecurityIssues      int            `json:"securityIssues"`
	LongestLivedDays    float64        `json:"longestLivedDays"`
	LongestLivedName    string         `json:"longestLivedName"`
}

// CookieReport combines findings and summary.
type CookieReport struct {
	Cookies []CookieFinding `json:"cookies"`
	Summary CookieSummary   `json:"summary"`
}

// ScriptFinding is the intelligence record for one fetched external script.
type ScriptFinding struct {
	URL              string   `json:"url"`
	SHA256           string   `json:"sha256"`
	KnownBad         bool     `json:"knownBad"`
	Entropy          float64  `json:"entropy"`
	ObfuscationScore int      `json:"obfuscationScore"`
	Obfuscation      []string `json:"obfuscationSignals,omitempty"`
	Exfiltration     []string `json:"exfiltrationSignals,omitempty"`
	Risk             string   `json:"risk"` // low, medium, high
	FetchError       string   `json:"fetchError,omitempty"`
	SizeAnalyzed     int      `json:"sizeAnalyzed"`
}

// OwnershipNode is one company grouping in the ownership graph.
type OwnershipNode struct {
	Parent   string   `json:"parent"`
	Brands   []string `json:"brands"`
	Domains  []string `json:"domains"`
	Category string   `json:"category"`
	Color    string   `json:"color"`
}

// OwnershipEdge links the analyzed site to a parent company.
type OwnershipEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// OwnershipStats summarizes the ownership graph.
type OwnershipStats struct {
	TotalCompanies         int            `json:"totalCompanies"`
	IdentifiedDomains      int            `json:"identifiedDomains"`
	UnknownDomains         int            `json:"unknownDomains"`
	CorporateConcentration int            `json:"corporateConcentration"`
	TopCompanies           []string       `json:"topCompanies"`
	CategoryBreakdown      map[string]int `json:"categoryBreakdown"`
}

// OwnershipGraph maps the site's external traffic to parent corporations.
type OwnershipGraph struct {
	Nodes []OwnershipNode `json:"nodes"`
	Edges []OwnershipEdge `json:"edges"`
	Stats OwnershipStats  `json:"stats"`
}

// SecuritySignal is one observation surfaced to the client.
type SecuritySignal struct {
	Type     string `json:"type"` // safe, info, warning, danger
	Category string `json:"category"`
	Message  string `json:"message"`
}

// AnalysisReport is the full pipeline output, persisted as the result's
// raw data blob.
type AnalysisReport struct {
	TargetURL       string           `json:"targetUrl"`
	Score           int              `json:"score"`
	RiskLevel       RiskLevel        `json:"riskLevel"`
	Summary         string           `json:"summary"`
	Trackers        []TrackerFinding `json:"trackers"`
	CookieReport    CookieReport     `json:"cookieReport"`
	Scripts         []ScriptFinding  `json:"scripts"`
	Ownership       OwnershipGraph   `json:"ownership"`
	Signals         []SecuritySignal `json:"signals"`
	ExternalDomains []string         `json:"externalDomains"`
	PagesCrawled    int              `json:"pagesCrawled"`
	IsHTTPS         bool             `json:"isHttps"`
	HasCSP          bool             `json:"hasCsp"`
	Fingerprints    FingerprintFlags `json:"fingerprints"`
}
