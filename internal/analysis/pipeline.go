package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/privascan/internal/common"
	"github.com/ternarybob/privascan/internal/models"
)

// Pipeline turns one aggregate crawl record into a scored report. Pure over
// its inputs apart from script fetching; the same record analyzed twice
// yields identical output.
type Pipeline struct {
	scripts *ScriptAnalyzer
	logger  arbor.ILogger
}

// NewPipeline creates the analysis pipeline.
func NewPipeline(cfg common.CrawlerConfig, knownBad KnownBadFunc, logger arbor.ILogger) *Pipeline {
	return &Pipeline{
		scripts: NewScriptAnalyzer(cfg, knownBad, logger),
		logger:  logger,
	}
}

// Run executes every analysis stage and assembles the report.
func (p *Pipeline) Run(ctx context.Context, record *models.CrawlRecord) (*models.AnalysisReport, error) {
	trackers := detectTrackers(record)
	domains := externalDomains(record)
	cookieReport := auditCookies(record.Cookies, record.Hostname, time.Now().UTC())
	scripts := p.scripts.Analyze(ctx, record)
	ownership := buildOwnershipGraph(record.Hostname, domains)

	isHTTPS := strings.HasPrefix(record.TargetURL, "https://")
	hasCSP, unsafeInline, unsafeEval := cspOf(record)
	inlineTrackers := inlineTrackerCount(record)
	trackingParams := hasTrackingParams(record)

	var highRiskTrackers []string
	for _, t := range trackers {
		if t.Risk == "high" {
			highRiskTrackers = append(highRiskTrackers, t.Company)
		}
	}

	signals := buildSignals(signalInput{
		isHTTPS:          isHTTPS,
		hasCSP:           hasCSP,
		cspUnsafeInline:  unsafeInline,
		cspUnsafeEval:    unsafeEval,
		fingerprints:     record.Fingerprints,
		beaconCount:      len(record.Beacons),
		webSocketCount:   totalWebSockets(record),
		redirectCount:    totalRedirects(record),
		trackingParams:   trackingParams,
		cookieCount:      len(record.Cookies),
		inlineTrackers:   inlineTrackers,
		externalDomains:  len(domains),
		highRiskTrackers: highRiskTrackers,
	})

	score := computeScore(scoreInput{
		trackerCount:   len(trackers),
		cookieCount:    len(record.Cookies),
		isHTTPS:        isHTTPS,
		hasCSP:         hasCSP,
		fingerprints:   record.Fingerprints,
		anyBeacon:      len(record.Beacons) > 0,
		trackingParams: trackingParams,
		inlineTrackers: inlineTrackers,
	})
	level := riskLevelOf(score)

	report := &models.AnalysisReport{
		TargetURL:       record.TargetURL,
		Score:           score,
		RiskLevel:       level,
		Summary:         summarize(score, level, len(trackers), len(domains)),
		Trackers:        trackers,
		CookieReport:    cookieReport,
		Scripts:         scripts,
		Ownership:       ownership,
		Signals:         signals,
		ExternalDomains: domains,
		PagesCrawled:    len(record.Pages),
		IsHTTPS:         isHTTPS,
		HasCSP:          hasCSP,
		Fingerprints:    record.Fingerprints,
	}

	p.logger.Info().
		Str("url", record.TargetURL).
		Int("score", score).
		Str("risk", string(level)).
		Int("trackers", len(trackers)).
		Int("external_domains", len(domains)).
		Msg("Analysis completed")
	return report, nil
}

// ToResult flattens a report into the persisted result row.
func ToResult(report *models.AnalysisReport) (*models.ScanResult, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis report: %w", err)
	}
	return &models.ScanResult{
		Score:               report.Score,
		RiskLevel:           report.RiskLevel,
		Summary:             report.Summary,
		TrackerCount:        len(report.Trackers),
		CookieCount:         report.CookieReport.Summary.Total,
		ExternalDomainCount: len(report.ExternalDomains),
		PagesCrawled:        report.PagesCrawled,
		IsHTTPS:             report.IsHTTPS,
		HasCSP:              report.HasCSP,
		CanvasFingerprint:   report.Fingerprints.Canvas,
		WebGLFingerprint:    report.Fingerprints.WebGL,
		FontFingerprint:     report.Fingerprints.Font,
		Keylogger:           report.Fingerprints.Keylogger,
		RawData:             raw,
	}, nil
}
