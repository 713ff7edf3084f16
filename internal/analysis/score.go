package analysis

import (
	"fmt"

	"github.com/ternarybob/privascan/internal/models"
)

type scoreInput struct {
	trackerCount   int
	cookieCount    int
	isHTTPS        bool
	hasCSP         bool
	fingerprints   models.FingerprintFlags
	anyBeacon      bool
	trackingParams bool
	inlineTrackers int
}

// computeScore applies the fixed deduction table starting from 100.
func computeScore(in scoreInput) int {
	score := 100

	score -= 8 * in.trackerCount
	if in.cookieCount > 20 {
		score -= 10
	}
	if !in.isHTTPS {
		score -= 20
	}
	if in.fingerprints.Canvas {
		score -= 15
	}
	if in.fingerprints.WebGL {
		score -= 10
	}
	if in.fingerprints.Font {
		score -= 8
	}
	if in.fingerprints.Keylogger {
		score -= 15
	}
	if in.fingerprints.FormSnooping {
		score -= 8
	}
	if in.anyBeacon {
		score -= 8
	}
	if in.fingerprints.ServiceWorker {
		score -= 5
	}
	if in.trackingParams {
		score -= 10
	}
	if !in.hasCSP {
		score -= 5
	}
	if in.inlineTrackers > 0 {
		score -= 5
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// riskLevelOf maps a score to its risk band.
func riskLevelOf(score int) models.RiskLevel {
	switch {
	case score >= 80:
		return models.RiskLow
	case score >= 60:
		return models.RiskModerate
	case score >= 40:
		return models.RiskElevated
	default:
		return models.RiskHigh
	}
}

// summarize writes the one-line human summary for a result.
func summarize(score int, level models.RiskLevel, trackerCount, externalDomains int) string {
	switch level {
	case models.RiskLow:
		return fmt.Sprintf("Low privacy risk (score %d). %d trackers and %d external domains observed.", score, trackerCount, externalDomains)
	case models.RiskModerate:
		return fmt.Sprintf("Moderate privacy risk (score %d). %d trackers and %d external domains observed.", score, trackerCount, externalDomains)
	case models.RiskElevated:
		return fmt.Sprintf("Elevated privacy risk (score %d). %d trackers and %d external domains observed.", score, trackerCount, externalDomains)
	default:
		return fmt.Sprintf("High privacy risk (score %d). %d trackers and %d external domains observed.", score, trackerCount, externalDomains)
	}
}
