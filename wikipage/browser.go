package wikipage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserFetcher renders pages in headless Chrome before reading their
// HTML. It is slower than HTTPFetcher but sees content added by scripts.
type BrowserFetcher struct {
	// Bin is the browser executable. When empty rod locates or downloads one.
	Bin       string
	UserAgent string
	Timeout   time.Duration
}

// NewBrowserFetcher returns a BrowserFetcher with default settings.
func NewBrowserFetcher() *BrowserFetcher {
	return &BrowserFetcher{
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultTimeout,
	}
}

// Fetch launches a browser, loads rawURL, waits for the body element and
// returns the rendered document.
func (f *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	l := launcher.New().Headless(true).Context(ctx)
	if f.Bin != "" {
		l = l.Bin(f.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("creating page: %w", err)
	}
	page = page.Timeout(timeout)

	if f.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: f.UserAgent}); err != nil {
			return nil, fmt.Errorf("setting user agent: %w", err)
		}
	}

	if err := page.Navigate(u); err != nil {
		return nil, fmt.Errorf("navigating to %s: %w", u, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("waiting for %s: %w", u, err)
	}
	if _, err := page.Element("body"); err != nil {
		return nil, fmt.Errorf("waiting for body: %w", err)
	}

	markup, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("reading page HTML: %w", err)
	}

	info, err := page.Info()
	if err == nil && info.URL != "" {
		u = info.URL
	}
	return OpenReader(strings.NewReader(markup), u)
}
