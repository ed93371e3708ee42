// Package browser renders JavaScript-dependent listing pages in a headless
// browser and returns a DOM snapshot for the adapters to parse.
//
// Every render gets an isolated browser context that is torn down on all
// exit paths, so no cookies or page state leak between calls. Infinite
// scroll is bounded: the runner scrolls to the bottom until the page height
// stabilizes or a maximum iteration count is reached.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/atxevents/atx-events/internal/logger"
)

// ScrollPolicy bounds the incremental scroll-to-load pass for one render.
type ScrollPolicy struct {
	// MarkerSelector must appear before the page is considered ready.
	MarkerSelector string
	// MaxScrolls caps scroll iterations against endless feeds.
	MaxScrolls int
	// SettleInterval is the wait between scrolls for content to load.
	SettleInterval time.Duration
	// Timeout bounds the whole render call.
	Timeout time.Duration
}

// DefaultScrollPolicy returns the standard policy for marker.
func DefaultScrollPolicy(marker string) ScrollPolicy {
	return ScrollPolicy{
		MarkerSelector: marker,
		MaxScrolls:     10,
		SettleInterval: 500 * time.Millisecond,
		Timeout:        45 * time.Second,
	}
}

// RenderTimeout reports a page that never reached its ready state.
type RenderTimeout struct {
	URL    string
	Marker string
}

func (e *RenderTimeout) Error() string {
	return fmt.Sprintf("rendering %s: marker %q never appeared", e.URL, e.Marker)
}

// Runner drives headless browser sessions.
type Runner struct {
	userAgent string
}

// NewRunner creates a runner. userAgent is applied to every session.
func NewRunner(userAgent string) *Runner {
	return &Runner{userAgent: userAgent}
}

// Render navigates to rawURL in a fresh browser context, waits for the
// ready marker, performs the bounded scroll pass, and returns the rendered
// outer HTML.
func (r *Runner) Render(ctx context.Context, rawURL string, policy ScrollPolicy) (string, error) {
	if policy.MarkerSelector == "" {
		return "", errors.New("scroll policy requires a marker selector")
	}
	if policy.MaxScrolls <= 0 {
		policy.MaxScrolls = 10
	}
	if policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, policy.Timeout)
		defer cancel()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)
	if r.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(r.userAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	err := chromedp.Run(browserCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitVisible(policy.MarkerSelector, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &RenderTimeout{URL: rawURL, Marker: policy.MarkerSelector}
		}
		return "", fmt.Errorf("rendering %s: %w", rawURL, err)
	}

	if err := r.scrollToBottom(browserCtx, policy); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &RenderTimeout{URL: rawURL, Marker: policy.MarkerSelector}
		}
		return "", fmt.Errorf("scrolling %s: %w", rawURL, err)
	}

	var html string
	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("extracting snapshot of %s: %w", rawURL, err)
	}
	return html, nil
}

// scrollToBottom scrolls until the document height stops growing or the
// iteration cap is reached.
func (r *Runner) scrollToBottom(browserCtx context.Context, policy ScrollPolicy) error {
	var prevHeight float64 = -1
	for i := 0; i < policy.MaxScrolls; i++ {
		var height float64
		if err := chromedp.Run(browserCtx,
			chromedp.Evaluate(`document.body.scrollHeight`, &height),
		); err != nil {
			return err
		}
		if height == prevHeight {
			logger.Debug("page height stabilized", logger.Fields{"scrolls": i})
			return nil
		}
		prevHeight = height

		if err := chromedp.Run(browserCtx,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(policy.SettleInterval),
		); err != nil {
			return err
		}
	}
	return nil
}
