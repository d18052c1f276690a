package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"rent-scraper/utils"
)

// BrowserFetcher renders pages in headless Chrome. One allocator is shared,
// every Fetch opens its own tab so fetch workers never share page state.
type BrowserFetcher struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	timeout     time.Duration
	settle      time.Duration
}

func NewBrowserFetcher(headless bool, userAgent string, timeout time.Duration) *BrowserFetcher {
	utils.Info("Launching Chrome browser...")
	allocCtx, allocCancel := chromedp.NewExecAllocator(
		context.Background(),
		utils.StealthOpts(headless, userAgent)...,
	)
	utils.Success("Browser ready")
	return &BrowserFetcher{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		timeout:     timeout,
		settle:      time.Second,
	}
}

func (b *BrowserFetcher) Close() error {
	utils.Info("Closing browser...")
	b.allocCancel()
	return nil
}

func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.allocCtx)
	defer tabCancel()

	// the tab lives under the allocator, so the caller's cancellation is bridged by hand
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	runCtx := tabCtx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(tabCtx, b.timeout)
		defer cancel()
	}

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		utils.HideWebDriver(),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(b.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp failed: %w", err)
	}
	return html, nil
}
