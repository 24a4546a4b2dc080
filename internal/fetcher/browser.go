package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/newswatch/internal/config"
	"github.com/IshaanNene/newswatch/internal/types"
)

// BrowserFetcher implements Fetcher using a headless Chromium via Rod. It is
// used for homepages whose listings are rendered client-side.
type BrowserFetcher struct {
	browser *rod.Browser
	cfg     *config.Config
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewBrowserFetcher launches a headless browser and connects to it.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger) (*BrowserFetcher, error) {
	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	bf := &BrowserFetcher{
		browser: browser,
		cfg:     cfg,
		logger:  logger.With("component", "browser_fetcher"),
	}
	bf.logger.Info("browser fetcher ready", "stealth", cfg.Fetcher.Stealth)
	return bf, nil
}

// Fetch navigates to a URL and returns the rendered page content. The status
// code is that of the main frame's document response, so a 404 article is
// reported as 404 like the HTTP fetcher does.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	start := time.Now()

	base, err := bf.newPage()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}
	defer func() { _ = base.Close() }()

	timeout := bf.cfg.Article.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	page := base.Context(ctx).Timeout(timeout)

	if len(bf.cfg.Fetcher.UserAgents) > 0 {
		err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: bf.cfg.Fetcher.UserAgents[0],
		})
		if err != nil {
			bf.logger.Warn("failed to set user agent", "error", err)
		}
	}

	status := 0
	waitDocument := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		code, ok := documentStatus(e, page.FrameID)
		if ok {
			status = code
		}
		return ok
	})

	if err := page.Navigate(req.URLString()); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}
	waitDocument()
	if status == 0 {
		return nil, &types.FetchError{URL: req.URLString(), Err: fmt.Errorf("no document response: %w", types.ErrEmptyResponse)}
	}
	if err := page.WaitStable(300 * time.Millisecond); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", req.URLString(), "error", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}

	finalURL := req.URLString()
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	duration := time.Since(start)
	bf.logger.Debug("browser fetch complete",
		"url", req.URLString(),
		"final_url", finalURL,
		"status", status,
		"size", len(html),
		"duration", duration,
	)

	return types.NewBrowserResponse(req, status, []byte(html), finalURL, duration), nil
}

// documentStatus reports the status of e if it is the document response of
// the frame mainFrame. Subresources and iframes are ignored.
func documentStatus(e *proto.NetworkResponseReceived, mainFrame proto.PageFrameID) (int, bool) {
	if e == nil || e.Response == nil || e.Type != proto.NetworkResourceTypeDocument {
		return 0, false
	}
	if mainFrame != "" && e.FrameID != mainFrame {
		return 0, false
	}
	return e.Response.Status, true
}

// newPage opens a blank page, with stealth patches when configured.
func (bf *BrowserFetcher) newPage() (*rod.Page, error) {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if bf.cfg.Fetcher.Stealth {
		return stealth.Page(bf.browser)
	}
	return bf.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

// Close shuts down the browser.
func (bf *BrowserFetcher) Close() error {
	if bf.browser != nil {
		return bf.browser.Close()
	}
	return nil
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}
