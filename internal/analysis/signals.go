package analysis

import (
	"fmt"

	"github.com/ternarybob/privascan/internal/models"
)

type signalInput struct {
	isHTTPS            bool
	hasCSP             bool
	cspUnsafeInline    bool
	cspUnsafeEval      bool
	fingerprints       models.FingerprintFlags
	beaconCount        int
	webSocketCount     int
	redirectCount      int
	trackingParams     bool
	cookieCount        int
	inlineTrackers     int
	externalDomains    int
	highRiskTrackers   []string
}

// buildSignals emits the client-facing observation list.
func buildSignals(in signalInput) []models.SecuritySignal {
	var signals []models.SecuritySignal
	add := func(sigType, category, message string) {
		signals = append(signals, models.SecuritySignal{Type: sigType, Category: category, Message: message})
	}

	if in.isHTTPS {
		add("safe", "transport", "Site is served over HTTPS")
	} else {
		add("danger", "transport", "Site is not served over HTTPS")
	}

	if in.hasCSP {
		add("safe", "headers", "Content-Security-Policy header is present")
		if in.cspUnsafeInline {
			add("warning", "headers", "CSP allows unsafe-inline scripts")
		}
		if in.cspUnsafeEval {
			add("warning", "headers", "CSP allows unsafe-eval")
		}
	} else {
		add("warning", "headers", "No Content-Security-Policy header")
	}

	if in.fingerprints.Canvas {
		add("danger", "fingerprinting", "Canvas fingerprinting detected")
	}
	if in.fingerprints.WebGL {
		add("warning", "fingerprinting", "WebGL fingerprinting detected")
	}
	if in.fingerprints.Font {
		add("warning", "fingerprinting", "Font enumeration detected")
	}
	if in.fingerprints.Keylogger {
		add("danger", "behavior", "Global keystroke listeners detected")
	}
	if in.fingerprints.FormSnooping {
		add("danger", "behavior", "Form input value access detected")
	}
	if in.fingerprints.ServiceWorker {
		add("info", "behavior", "Service worker registration attempted")
	}

	if in.beaconCount > 0 {
		add("warning", "behavior", fmt.Sprintf("%d beacon calls observed", in.beaconCount))
	}
	if in.webSocketCount > 0 {
		add("info", "behavior", fmt.Sprintf("%d WebSocket connections opened", in.webSocketCount))
	}
	if in.redirectCount > 3 {
		add("warning", "navigation", fmt.Sprintf("%d redirects in the navigation chain", in.redirectCount))
	}
	if in.trackingParams {
		add("warning", "tracking", "Requests carry cross-site tracking parameters")
	}

	switch {
	case in.cookieCount > 20:
		add("warning", "cookies", fmt.Sprintf("%d cookies set during the visit", in.cookieCount))
	case in.cookieCount > 0:
		add("info", "cookies", fmt.Sprintf("%d cookies set during the visit", in.cookieCount))
	}

	if in.inlineTrackers > 0 {
		add("warning", "tracking", fmt.Sprintf("%d inline scripts contain tracker signatures", in.inlineTrackers))
	}

	switch {
	case in.externalDomains > 10:
		add("danger", "third-parties", fmt.Sprintf("Contacts %d external domains", in.externalDomains))
	case in.externalDomains > 5:
		add("warning", "third-parties", fmt.Sprintf("Contacts %d external domains", in.externalDomains))
	case in.externalDomains > 0:
		add("info", "third-parties", fmt.Sprintf("Contacts %d external domains", in.externalDomains))
	}

	if len(in.highRiskTrackers) > 0 {
		add("danger", "tracking", fmt.Sprintf("%d high-risk trackers present", len(in.highRiskTrackers)))
	}

	return signals
}
