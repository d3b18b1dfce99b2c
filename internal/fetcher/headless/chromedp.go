// Package headless renders JavaScript-driven pages in a headless browser.
package headless

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const (
	defaultNavigationTimeout = 60 * time.Second
	defaultScrollPause       = 2 * time.Second
)

// Config controls the behavior of the headless renderer.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
	// SettleDelay is waited once after the body is ready, before scrolling.
	SettleDelay time.Duration
	// ScrollPause is waited after every scroll so lazy rows can load.
	ScrollPause time.Duration
	MaxScrolls  int
}

// Browser renders infinite-scroll pages with chromedp. Every Render call
// launches and tears down its own browser process.
type Browser struct {
	cfg       Config
	allocOpts []chromedp.ExecAllocatorOption
}

// NewChromedp creates a renderer backed by chromedp.
func NewChromedp(cfg Config) (*Browser, error) {
	if cfg.MaxScrolls < 0 {
		return nil, fmt.Errorf("max scrolls must be >= 0")
	}
	if cfg.SettleDelay < 0 {
		return nil, fmt.Errorf("settle delay must be >= 0")
	}
	if cfg.ScrollPause <= 0 {
		cfg.ScrollPause = defaultScrollPause
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	return &Browser{cfg: cfg, allocOpts: opts}, nil
}

// Render navigates to rawURL, scrolls until the page stops growing and
// returns the rendered DOM. The browser is shut down before Render returns,
// on success and on every error path.
func (b *Browser) Render(ctx context.Context, rawURL string) (string, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.allocOpts...)
	defer allocCancel()

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	taskCtx, cancel := context.WithTimeout(tabCtx, b.cfg.NavigationTimeout)
	defer cancel()

	meta := newResponseMeta()
	chromedp.ListenTarget(taskCtx, meta.captureEvent)

	var html string
	actions := []chromedp.Action{
		b.networkSetupAction(),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if status := meta.status(); status >= 400 {
				return fmt.Errorf("document status %d", status)
			}
			return sleepCtx(ctx, b.cfg.SettleDelay)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := scrollUntilStable(ctx, cdpPage{}, b.cfg.MaxScrolls, b.cfg.ScrollPause)
			return err
		}),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, nil
}

func (b *Browser) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if b.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(b.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// page is the slice of browser behaviour the scroll loop needs.
type page interface {
	ScrollToBottom(ctx context.Context) error
	Height(ctx context.Context) (int64, error)
}

// scrollUntilStable scrolls at most maxScrolls times, pausing after each one,
// and stops early once the document height no longer grows. It returns the
// number of scrolls performed.
func scrollUntilStable(ctx context.Context, p page, maxScrolls int, pause time.Duration) (int, error) {
	last, err := p.Height(ctx)
	if err != nil {
		return 0, fmt.Errorf("measure height: %w", err)
	}
	for i := 0; i < maxScrolls; i++ {
		if err := p.ScrollToBottom(ctx); err != nil {
			return i, fmt.Errorf("scroll %d: %w", i+1, err)
		}
		if err := sleepCtx(ctx, pause); err != nil {
			return i + 1, err
		}
		height, err := p.Height(ctx)
		if err != nil {
			return i + 1, fmt.Errorf("measure height after scroll %d: %w", i+1, err)
		}
		if height == last {
			return i + 1, nil
		}
		last = height
	}
	return maxScrolls, nil
}

type cdpPage struct{}

func (cdpPage) ScrollToBottom(ctx context.Context) error {
	return chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil).Do(ctx)
}

func (cdpPage) Height(ctx context.Context) (int64, error) {
	var height int64
	if err := chromedp.Evaluate(`document.body.scrollHeight`, &height).Do(ctx); err != nil {
		return 0, err
	}
	return height, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("wait canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

type responseMeta struct {
	mu         sync.RWMutex
	statusCode int
	url        string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) capture(event *network.EventResponseReceived) {
	if event.Type != network.ResourceTypeDocument || event.Response == nil {
		return
	}
	m.mu.Lock()
	m.statusCode = int(event.Response.Status)
	m.url = event.Response.URL
	m.mu.Unlock()
}

func (m *responseMeta) captureEvent(ev any) {
	if resp, ok := ev.(*network.EventResponseReceived); ok {
		m.capture(resp)
	}
}

func (m *responseMeta) status() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusCode
}
