package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/ternarybob/privascan/internal/models"
)

// pageSession accumulates network-level observations for one tab. Listener
// callbacks run on the CDP event goroutine, so all fields are mutex-guarded.
type pageSession struct {
	mu          sync.Mutex
	requests    []models.NetworkRequest
	redirects   []models.RedirectHop
	webSockets  []string
	status      int
	headers     map[string]string
	gotResponse bool
}

func (s *pageSession) onEvent(ev interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev := ev.(type) {
	case *network.EventRequestWillBeSent:
		if ev.RedirectResponse != nil {
			s.redirects = append(s.redirects, models.RedirectHop{
				From:   ev.RedirectResponse.URL,
				To:     ev.Request.URL,
				Status: int(ev.RedirectResponse.Status),
			})
		}
		if len(s.requests) < 1000 {
			s.requests = append(s.requests, models.NetworkRequest{
				URL:            ev.Request.URL,
				Method:         ev.Request.Method,
				ResourceType:   string(ev.Type),
				TrackingParams: trackingParamsIn(ev.Request.URL),
				HasPostData:    ev.Request.HasPostData,
			})
		}
	case *network.EventResponseReceived:
		if ev.Type == network.ResourceTypeDocument {
			s.gotResponse = true
			s.status = int(ev.Response.Status)
			s.headers = map[string]string{}
			for name, value := range ev.Response.Headers {
				s.headers[strings.ToLower(name)] = fmt.Sprint(value)
			}
		}
	case *network.EventWebSocketCreated:
		if len(s.webSockets) < 100 {
			s.webSockets = append(s.webSockets, ev.URL)
		}
	}
}

func (s *pageSession) sawResponse() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gotResponse
}

func (s *pageSession) apply(capture *models.PageCapture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	capture.Requests = s.requests
	capture.Redirects = s.redirects
	capture.WebSocketURLs = s.webSockets
	capture.StatusCode = s.status
	capture.ResponseHeaders = s.headers
}

// pageExtract is the shape returned by the capture script.
type pageExtract struct {
	FinalURL        string                  `json:"finalUrl"`
	BodyText        string                  `json:"bodyText"`
	ExternalScripts []string                `json:"externalScripts"`
	InlineScripts   []models.InlineScript   `json:"inlineScripts"`
	InternalLinks   []string                `json:"internalLinks"`
	LocalStorage    map[string]string       `json:"localStorage"`
	SessionStorage  map[string]string       `json:"sessionStorage"`
	Fingerprints    models.FingerprintFlags `json:"fingerprints"`
	Beacons         []models.BeaconCall     `json:"beacons"`
}

// capturePage drives one page in a fresh tab: install instrumentation,
// navigate with phased waits, extract artifacts, evaluate failure signals.
func (e *Engine) capturePage(browserCtx context.Context, pageURL string, isHomepage bool) (*models.PageCapture, error) {
	tabCtx, cancel := chromedp.NewContext(browserCtx)
	defer cancel()

	session := &pageSession{}
	domFired := make(chan struct{}, 1)
	loadFired := make(chan struct{}, 1)

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		session.onEvent(ev)
		switch ev.(type) {
		case *page.EventDomContentEventFired:
			select {
			case domFired <- struct{}{}:
			default:
			}
		case *page.EventLoadEventFired:
			select {
			case loadFired <- struct{}{}:
			default:
			}
		}
	})

	capture := &models.PageCapture{URL: pageURL, IsHomepage: isHomepage}

	err := chromedp.Run(tabCtx,
		network.Enable(),
		emulation.SetUserAgentOverride(e.cfg.UserAgent),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(instrumentScript).Do(ctx)
			return err
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, _, errText, _, err := page.Navigate(pageURL).Do(ctx)
			if err != nil {
				return err
			}
			if errText != "" {
				return &UnreachableError{Signals: []string{"navigation-error"}, URL: pageURL}
			}
			return nil
		}),
	)
	if err != nil {
		return nil, asUnreachable(err, pageURL)
	}

	// DOMContentLoaded bounds the navigation. Missing it entirely is a hard
	// failure before settling.
	select {
	case <-domFired:
	case <-time.After(e.cfg.NavTimeout):
		return nil, &UnreachableError{Signals: []string{"navigation-timeout"}, URL: pageURL}
	case <-tabCtx.Done():
		return nil, asUnreachable(tabCtx.Err(), pageURL)
	}

	// Then load, or the settle timeout, whichever first.
	select {
	case <-loadFired:
	case <-time.After(e.cfg.SettleTimeout):
	case <-tabCtx.Done():
		return nil, asUnreachable(tabCtx.Err(), pageURL)
	}

	// Fixed JS-settle window for late-firing trackers.
	select {
	case <-time.After(e.cfg.JSSettleTime):
	case <-tabCtx.Done():
		return nil, asUnreachable(tabCtx.Err(), pageURL)
	}

	var rawExtract string
	script := fmt.Sprintf(captureScript, e.cfg.BodyTextLimit, e.cfg.StorageValueCap)
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(script, &rawExtract)); err != nil {
		return nil, asUnreachable(err, pageURL)
	}

	var extract pageExtract
	if err := json.Unmarshal([]byte(rawExtract), &extract); err != nil {
		return nil, fmt.Errorf("decode page extract for %s: %w", pageURL, err)
	}

	capture.FinalURL = extract.FinalURL
	capture.BodyText = extract.BodyText
	capture.ExternalScripts = extract.ExternalScripts
	capture.InlineScripts = extract.InlineScripts
	capture.InternalLinks = extract.InternalLinks
	capture.LocalStorage = extract.LocalStorage
	capture.SessionStorage = extract.SessionStorage
	capture.Fingerprints = extract.Fingerprints
	capture.Beacons = extract.Beacons
	session.apply(capture)

	if err := checkFailure(capture, session.sawResponse()); err != nil {
		return nil, err
	}
	return capture, nil
}

// asUnreachable wraps driver errors that occur before settling.
func asUnreachable(err error, pageURL string) error {
	var unreachable *UnreachableError
	if errors.As(err, &unreachable) {
		return err
	}
	return &UnreachableError{Signals: []string{"driver-error"}, URL: pageURL}
}
