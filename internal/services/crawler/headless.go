package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// renderSettleDelay gives late scripts a moment after document readiness
const renderSettleDelay = time.Second

// HeadlessFetcher renders JavaScript-heavy pages in a shared Chrome
// instance. Tabs are created per fetch from a long-lived allocator.
type HeadlessFetcher struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	userAgent   string
	timeout     time.Duration
	logger      arbor.ILogger
	mu          sync.Mutex
	started     bool
}

// NewHeadlessFetcher creates the fetcher without launching Chrome. The
// browser starts lazily on the first render.
func NewHeadlessFetcher(timeout time.Duration, userAgent string, logger arbor.ILogger) *HeadlessFetcher {
	return &HeadlessFetcher{
		userAgent: userAgent,
		timeout:   timeout,
		logger:    logger,
	}
}

func (h *HeadlessFetcher) ensureStarted() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1280, 800),
		chromedp.UserAgent(h.userAgent),
	)
	h.allocCtx, h.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	h.started = true
	h.logger.Info().Msg("Headless browser allocator started")
	return nil
}

// Render navigates to the URL in a fresh tab, waits for the document to
// settle, and returns the rendered HTML with timing. Render failures leave
// the original HTTP result standing.
func (h *HeadlessFetcher) Render(ctx context.Context, pageURL string) (html string, loadTimeMs int, firstByteMs int, err error) {
	if err := h.ensureStarted(); err != nil {
		return "", 0, 0, err
	}

	tabCtx, tabCancel := chromedp.NewContext(h.allocCtx)
	defer tabCancel()

	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, h.timeout)
	defer timeoutCancel()

	// Propagate scan cancellation into the tab
	go func() {
		select {
		case <-ctx.Done():
			tabCancel()
		case <-tabCtx.Done():
		}
	}()

	start := time.Now()
	var firstByte time.Duration

	// First byte is timed at the response for the navigated URL itself
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if firstByte == 0 && resp.Response != nil && resp.Response.URL == pageURL {
				firstByte = time.Since(start)
			}
		}
	})

	var rendered string
	err = chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(renderSettleDelay),
		chromedp.OuterHTML("html", &rendered),
	)
	elapsed := time.Since(start)
	if err != nil {
		return "", 0, 0, fmt.Errorf("render %s: %w", pageURL, err)
	}

	return rendered, int(elapsed.Milliseconds()), int(firstByte.Milliseconds()), nil
}

// Close shuts down the shared browser
func (h *HeadlessFetcher) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started && h.allocCancel != nil {
		h.allocCancel()
		h.started = false
		h.logger.Info().Msg("Headless browser allocator stopped")
	}
}
