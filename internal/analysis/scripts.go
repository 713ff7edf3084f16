package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"math"
	"net/http"
	neturl "net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/privascan/internal/common"
	"github.com/ternarybob/privascan/internal/models"
)

// KnownBadFunc checks a script body hash against a threat list. The default
// matches nothing; deployments may plug in an external feed.
type KnownBadFunc func(sha256hex string) bool

type signature struct {
	Name    string
	Pattern *regexp.Regexp
	High    bool
}

var obfuscationSignatures = []signature{
	{"eval", regexp.MustCompile(`\beval\s*\(`), true},
	{"new-function", regexp.MustCompile(`new\s+Function\s*\(`), true},
	{"settimeout-string", regexp.MustCompile(`setTimeout\s*\(\s*["']`), true},
	{"hex-escape", regexp.MustCompile(`\\x[0-9a-fA-F]{2}`), true},
	{"unicode-escape", regexp.MustCompile(`\\u[0-9a-fA-F]{4}`), false},
	{"atob", regexp.MustCompile(`\batob\s*\(`), false},
	{"fromcharcode", regexp.MustCompile(`String\.fromCharCode`), false},
	{"bracket-call", regexp.MustCompile(`\[["'][a-zA-Z_$]+["']\]\s*\(`), false},
	{"obfuscated-global", regexp.MustCompile(`(?:window|document)\[["']`), false},
}

var exfiltrationSignatures = []signature{
	{"document-cookie", regexp.MustCompile(`document\.cookie`), false},
	{"storage-access", regexp.MustCompile(`(?:localStorage|sessionStorage)\.(?:getItem|setItem)`), false},
	{"navigator-props", regexp.MustCompile(`navigator\.(?:userAgent|platform|language|plugins|hardwareConcurrency|deviceMemory)`), false},
	{"screen-props", regexp.MustCompile(`screen\.(?:width|height|colorDepth|pixelDepth)`), false},
	{"fetch-xhr", regexp.MustCompile(`(?:\bfetch\s*\(|XMLHttpRequest)`), false},
	{"send-beacon", regexp.MustCompile(`navigator\.sendBeacon`), false},
	{"websocket", regexp.MustCompile(`new\s+WebSocket\s*\(`), false},
	{"geolocation", regexp.MustCompile(`navigator\.geolocation`), false},
	{"battery", regexp.MustCompile(`getBattery\s*\(`), false},
	{"layout-readers", regexp.MustCompile(`(?:getBoundingClientRect|offsetWidth|offsetHeight|clientWidth|clientHeight)`), false},
}

// ScriptAnalyzer fetches and inspects external scripts.
type ScriptAnalyzer struct {
	cfg      common.CrawlerConfig
	client   *http.Client
	knownBad KnownBadFunc
	logger   arbor.ILogger
}

// NewScriptAnalyzer creates an analyzer. A nil knownBad matches nothing.
func NewScriptAnalyzer(cfg common.CrawlerConfig, knownBad KnownBadFunc, logger arbor.ILogger) *ScriptAnalyzer {
	if knownBad == nil {
		knownBad = func(string) bool { return false }
	}
	return &ScriptAnalyzer{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.ScriptTimeout},
		knownBad: knownBad,
		logger:   logger,
	}
}

// Analyze fetches up to ScriptFetchMax non-CDN external scripts and scores
// each for obfuscation and exfiltration behavior.
func (a *ScriptAnalyzer) Analyze(ctx context.Context, record *models.CrawlRecord) []models.ScriptFinding {
	urls := a.candidateScripts(record)

	findings := make([]models.ScriptFinding, 0, len(urls))
	for _, scriptURL := range urls {
		findings = append(findings, a.analyzeOne(ctx, scriptURL))
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return riskOrder[findings[i].Risk] < riskOrder[findings[j].Risk]
	})
	return findings
}

func (a *ScriptAnalyzer) candidateScripts(record *models.CrawlRecord) []string {
	seen := map[string]bool{}
	var urls []string
	for _, pg := range record.Pages {
		for _, src := range pg.ExternalScripts {
			if seen[src] || len(urls) >= a.cfg.ScriptFetchMax {
				continue
			}
			u, err := neturl.Parse(src)
			if err != nil || isCDNHost(u.Hostname()) {
				continue
			}
			seen[src] = true
			urls = append(urls, src)
		}
	}
	return urls
}

func (a *ScriptAnalyzer) analyzeOne(ctx context.Context, scriptURL string) models.ScriptFinding {
	finding := models.ScriptFinding{URL: scriptURL, Risk: "low"}

	body, err := a.fetch(ctx, scriptURL)
	if err != nil {
		finding.FetchError = err.Error()
		return finding
	}

	sum := sha256.Sum256(body)
	finding.SHA256 = hex.EncodeToString(sum[:])
	finding.KnownBad = a.knownBad(finding.SHA256)

	sample := body
	if len(sample) > a.cfg.ScriptBodyCap {
		sample = sample[:a.cfg.ScriptBodyCap]
	}
	text := string(sample)
	finding.SizeAnalyzed = len(sample)
	finding.Entropy = shannonEntropy(text)
	finding.ObfuscationScore = obfuscationScore(text, finding.Entropy)

	highSignatures := 0
	for _, sig := range obfuscationSignatures {
		if sig.Pattern.MatchString(text) {
			finding.Obfuscation = append(finding.Obfuscation, sig.Name)
			if sig.High {
				highSignatures++
			}
		}
	}
	for _, sig := range exfiltrationSignatures {
		if sig.Pattern.MatchString(text) {
			finding.Exfiltration = append(finding.Exfiltration, sig.Name)
		}
	}

	total := len(finding.Obfuscation)
	switch {
	case finding.KnownBad || finding.ObfuscationScore >= 60 || highSignatures >= 2:
		finding.Risk = "high"
	case finding.ObfuscationScore >= 30 || highSignatures >= 1 || total >= 3:
		finding.Risk = "medium"
	}
	return finding
}

func (a *ScriptAnalyzer) fetch(ctx context.Context, scriptURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ScriptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scriptURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", a.cfg.UserAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// The hash covers the full body up to a hard cap well above the
	// analysis sample so identical scripts hash identically.
	return io.ReadAll(io.LimitReader(resp.Body, int64(a.cfg.ScriptBodyCap)*10))
}

// shannonEntropy computes byte-level entropy in bits per symbol.
func shannonEntropy(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	var counts [256]int
	for i := 0; i < len(text); i++ {
		counts[text[i]]++
	}
	total := float64(len(text))
	entropy := 0.0
	for _, count := range counts {
		if count == 0 {
			continue
		}
		p := float64(count) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// obfuscationScore is a 0-100 heuristic over entropy, long-string density,
// non-alphanumeric ratio, and short-identifier density.
func obfuscationScore(text string, entropy float64) int {
	score := 0

	switch {
	case entropy > 5.5:
		score += 40
	case entropy > 4.8:
		score += 20
	case entropy > 4.2:
		score += 10
	}

	longStrings := countLongStringLiterals(text, 100)
	switch {
	case longStrings > 5:
		score += 30
	case longStrings > 2:
		score += 15
	}

	nonAlpha := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') && c != ' ' && c != '\n' && c != '\t' {
			nonAlpha++
		}
	}
	if len(text) > 0 {
		ratio := float64(nonAlpha) / float64(len(text))
		switch {
		case ratio > 0.35:
			score += 20
		case ratio > 0.25:
			score += 10
		}
	}

	if countShortVars(text) > 50 {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score
}

var stringLiteralRe = regexp.MustCompile(`["'][^"']*["']`)

func countLongStringLiterals(text string, minLen int) int {
	count := 0
	for _, lit := range stringLiteralRe.FindAllString(text, -1) {
		if len(lit) >= minLen {
			count++
		}
	}
	return count
}

var shortVarRe = regexp.MustCompile(`\bvar\s+[a-zA-Z_$]{1,2}\b`)

func countShortVars(text string) int {
	return len(shortVarRe.FindAllString(text, -1))
}

// inlineTrackerCount counts inline scripts carrying tracker signatures.
func inlineTrackerCount(record *models.CrawlRecord) int {
	count := 0
	for _, pg := range record.Pages {
		for _, inline := range pg.InlineScripts {
			if inline.TrackerSignaturePresent {
				count++
			}
		}
	}
	return count
}

// hasTrackingParams reports whether any captured request carried a
// cross-site attribution parameter.
func hasTrackingParams(record *models.CrawlRecord) bool {
	for _, pg := range record.Pages {
		for _, req := range pg.Requests {
			if len(req.TrackingParams) > 0 {
				return true
			}
		}
	}
	return false
}

// totalRedirects counts redirect hops across all pages.
func totalRedirects(record *models.CrawlRecord) int {
	total := 0
	for _, pg := range record.Pages {
		total += len(pg.Redirects)
	}
	return total
}

// totalWebSockets counts WebSocket connections across all pages.
func totalWebSockets(record *models.CrawlRecord) int {
	total := 0
	for _, pg := range record.Pages {
		total += len(pg.WebSocketURLs)
	}
	return total
}

// cspOf extracts the Content-Security-Policy header from the homepage.
func cspOf(record *models.CrawlRecord) (present bool, unsafeInline, unsafeEval bool) {
	home := record.Homepage()
	if home == nil {
		return false, false, false
	}
	csp, ok := home.ResponseHeaders["content-security-policy"]
	if !ok || csp == "" {
		return false, false, false
	}
	lower := strings.ToLower(csp)
	return true, strings.Contains(lower, "'unsafe-inline'"), strings.Contains(lower, "'unsafe-eval'")
}
