package crawler

import (
	"fmt"
	"strings"

	"github.com/ternarybob/privascan/internal/models"
)

// Content markers emitted by browser error pages.
var errorMarkers = []string{
	"ERR_NAME_NOT_RESOLVED",
	"ERR_CONNECTION_REFUSED",
	"ERR_CONNECTION_TIMED_OUT",
	"ERR_TIMED_OUT",
	"ERR_ADDRESS_UNREACHABLE",
	"ERR_INTERNET_DISCONNECTED",
	"ERR_EMPTY_RESPONSE",
	"chrome-error://",
	"neterror",
	"jserrorpage",
	"dns-not-found",
}

// Schemes a real navigation never lands on.
var internalSchemes = []string{
	"chrome-error://",
	"about:",
	"data:text/html",
}

// UnreachableError marks a crawl target that could not be loaded. Its
// message carries the fired signals so the failure is diagnosable from the
// persisted job record.
type UnreachableError struct {
	Signals []string
	URL     string
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("UNREACHABLE:%s:%s", strings.Join(e.Signals, ","), e.URL)
}

// failureSignals evaluates the five independent navigation-failure signals
// against a settled page capture.
func failureSignals(capture *models.PageCapture, gotResponse bool) []string {
	var signals []string

	if !gotResponse {
		signals = append(signals, "no-response")
	}
	if capture.StatusCode >= 400 {
		signals = append(signals, fmt.Sprintf("http-%d", capture.StatusCode))
	}
	for _, scheme := range internalSchemes {
		if strings.HasPrefix(capture.FinalURL, scheme) {
			signals = append(signals, "internal-scheme")
			break
		}
	}

	nonDataRequests := 0
	for _, req := range capture.Requests {
		if !strings.HasPrefix(req.URL, "data:") {
			nonDataRequests++
		}
	}
	if nonDataRequests <= 1 {
		signals = append(signals, "no-subresources")
	}

	for _, marker := range errorMarkers {
		if strings.Contains(capture.BodyText, marker) || strings.Contains(capture.FinalURL, marker) {
			signals = append(signals, "error-marker")
			break
		}
	}

	return signals
}

// checkFailure applies the per-page threshold: the homepage fails on any
// signal, sub-pages only on two or more.
func checkFailure(capture *models.PageCapture, gotResponse bool) error {
	signals := failureSignals(capture, gotResponse)
	threshold := 2
	if capture.IsHomepage {
		threshold = 1
	}
	if len(signals) >= threshold {
		return &UnreachableError{Signals: signals, URL: capture.URL}
	}
	return nil
}
