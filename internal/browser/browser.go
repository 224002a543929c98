// Package browser loads pages in headless Chrome and pulls out the parts the
// content-reader tool reports: title, meta description, headings, main content
// as markdown and embedded JSON-LD.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/geo-agent/geo-mcp-server/internal/toolerr"
)

// DefaultSelectorTimeout bounds WaitVisible when the caller gives no timeout.
const DefaultSelectorTimeout = 10 * time.Second

// Wait describes what to wait for after navigation. With a Selector, Timeout
// bounds the wait; without one, Timeout is a fixed sleep.
type Wait struct {
	Selector string
	Timeout  time.Duration
}

// Rendered is the serialized DOM after scripts ran.
type Rendered struct {
	URL  string
	HTML string
}

// Renderer loads a URL and returns the rendered document.
type Renderer interface {
	Render(ctx context.Context, url string, wait Wait) (Rendered, error)
}

// Chrome launches a fresh headless browser per Render call.
type Chrome struct {
	execPath   string
	navTimeout time.Duration
	logger     *logrus.Entry
}

// NewChrome configures a renderer. An empty execPath lets chromedp locate the
// browser; a zero navTimeout falls back to 30s.
func NewChrome(execPath string, navTimeout time.Duration, logger *logrus.Entry) *Chrome {
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Chrome{execPath: execPath, navTimeout: navTimeout, logger: logger}
}

// Render navigates to url, applies wait and returns the outer HTML.
func (c *Chrome) Render(ctx context.Context, url string, wait Wait) (Rendered, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithDebugf(c.logger.Tracef))
	defer cancelTab()

	// Start the browser outside any step deadline.
	if err := chromedp.Run(tabCtx); err != nil {
		return Rendered{}, browserErr("start browser", err)
	}

	if err := runWithin(tabCtx, c.navTimeout, chromedp.Navigate(url)); err != nil {
		return Rendered{}, browserErr("navigate to "+url, err)
	}

	switch {
	case wait.Selector != "":
		timeout := wait.Timeout
		if timeout <= 0 {
			timeout = DefaultSelectorTimeout
		}
		if err := runWithin(tabCtx, timeout, chromedp.WaitVisible(wait.Selector, chromedp.ByQuery)); err != nil {
			return Rendered{}, browserErr(fmt.Sprintf("wait for %q", wait.Selector), err)
		}
	case wait.Timeout > 0:
		if err := chromedp.Run(tabCtx, chromedp.Sleep(wait.Timeout)); err != nil {
			return Rendered{}, browserErr("wait", err)
		}
	}

	var out Rendered
	err := runWithin(tabCtx, c.navTimeout,
		chromedp.Location(&out.URL),
		chromedp.OuterHTML("html", &out.HTML, chromedp.ByQuery),
	)
	if err != nil {
		return Rendered{}, browserErr("read document", err)
	}

	c.logger.WithFields(logrus.Fields{"url": out.URL, "bytes": len(out.HTML)}).Debug("page rendered")
	return out, nil
}

func runWithin(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return chromedp.Run(stepCtx, actions...)
}

func browserErr(step string, err error) error {
	return &toolerr.UpstreamError{Service: "browser", Err: fmt.Errorf("%s: %w", step, err)}
}
