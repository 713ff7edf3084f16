package analysis

import (
	"testing"

	"github.com/ternarybob/privascan/internal/models"
)

func TestComputeScore_CleanSite(t *testing.T) {
	score := computeScore(scoreInput{isHTTPS: true, hasCSP: true})
	if score != 100 {
		t.Errorf("clean HTTPS site with CSP scored %d, want 100", score)
	}
}

func TestComputeScore_DeductionTable(t *testing.T) {
	tests := []struct {
		name string
		in   scoreInput
		want int
	}{
		{"one tracker", scoreInput{isHTTPS: true, hasCSP: true, trackerCount: 1}, 92},
		{"three trackers", scoreInput{isHTTPS: true, hasCSP: true, trackerCount: 3}, 76},
		{"cookie excess", scoreInput{isHTTPS: true, hasCSP: true, cookieCount: 21}, 90},
		{"cookie at boundary", scoreInput{isHTTPS: true, hasCSP: true, cookieCount: 20}, 100},
		{"no https", scoreInput{hasCSP: true}, 80},
		{"no csp", scoreInput{isHTTPS: true}, 95},
		{"canvas", scoreInput{isHTTPS: true, hasCSP: true, fingerprints: models.FingerprintFlags{Canvas: true}}, 85},
		{"keylogger", scoreInput{isHTTPS: true, hasCSP: true, fingerprints: models.FingerprintFlags{Keylogger: true}}, 85},
		{"beacon", scoreInput{isHTTPS: true, hasCSP: true, anyBeacon: true}, 92},
		{"tracking params", scoreInput{isHTTPS: true, hasCSP: true, trackingParams: true}, 90},
		{"inline trackers", scoreInput{isHTTPS: true, hasCSP: true, inlineTrackers: 2}, 95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeScore(tt.in); got != tt.want {
				t.Errorf("score = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComputeScore_ClampedAtZero(t *testing.T) {
	score := computeScore(scoreInput{
		trackerCount:   30,
		cookieCount:    50,
		trackingParams: true,
		anyBeacon:      true,
		inlineTrackers: 5,
		fingerprints: models.FingerprintFlags{
			Canvas: true, WebGL: true, Font: true,
			Keylogger: true, FormSnooping: true, ServiceWorker: true,
		},
	})
	if score != 0 {
		t.Errorf("heavily penalized site scored %d, want clamp at 0", score)
	}
}

func TestRiskLevelOf_Bands(t *testing.T) {
	tests := []struct {
		score int
		want  models.RiskLevel
	}{
		{100, models.RiskLow},
		{80, models.RiskLow},
		{79, models.RiskModerate},
		{60, models.RiskModerate},
		{59, models.RiskElevated},
		{40, models.RiskElevated},
		{39, models.RiskHigh},
		{0, models.RiskHigh},
	}
	for _, tt := range tests {
		if got := riskLevelOf(tt.score); got != tt.want {
			t.Errorf("riskLevelOf(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestComputeScore_Deterministic(t *testing.T) {
	in := scoreInput{
		trackerCount: 4,
		cookieCount:  25,
		isHTTPS:      true,
		fingerprints: models.FingerprintFlags{Canvas: true},
	}
	first := computeScore(in)
	for i := 0; i < 10; i++ {
		if got := computeScore(in); got != first {
			t.Fatalf("score varied across identical inputs: %d vs %d", got, first)
		}
	}
}
