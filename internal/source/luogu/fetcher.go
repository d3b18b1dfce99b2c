package luogu

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/JakeFAU/contest-digest/internal/contest"
	"github.com/JakeFAU/contest-digest/internal/fetcher"
)

// Renderer returns the fully loaded DOM of a JavaScript-driven page.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (string, error)
}

// FallbackObserver is told whenever the API fallback replaces the browser.
type FallbackObserver interface {
	ObserveFallback(source contest.Source)
}

// Fetcher implements the Luogu source with a browser-first, API-second policy.
type Fetcher struct {
	cfg      Config
	renderer Renderer
	fetcher  fetcher.Fetcher
	parser   pageParser
	observer FallbackObserver
	logger   *zap.Logger
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithFallbackObserver registers an observer for fallback activations.
func WithFallbackObserver(o FallbackObserver) Option {
	return func(f *Fetcher) {
		f.observer = o
	}
}

// New builds a Luogu fetcher. renderer drives the primary strategy and
// fetcher the API fallback.
func New(cfg Config, renderer Renderer, f fetcher.Fetcher, logger *zap.Logger, opts ...Option) (*Fetcher, error) {
	cfg = cfg.withDefaults()
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse luogu base url: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	lf := &Fetcher{
		cfg:      cfg,
		renderer: renderer,
		fetcher:  f,
		parser:   pageParser{base: base, loc: cfg.Location, logger: logger},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(lf)
	}
	return lf, nil
}

// Fetch tries the rendered page first. Any failure there discards whatever
// the browser produced and the API result is returned instead.
func (f *Fetcher) Fetch(ctx context.Context, w contest.Window) ([]contest.Record, error) {
	records, err := f.fetchPage(ctx, w)
	if err == nil {
		return records, nil
	}

	f.logger.Warn("luogu browser strategy failed, using api fallback", zap.Error(err))
	if f.observer != nil {
		f.observer.ObserveFallback(contest.SourceLuogu)
	}

	records, err = f.fetchAPI(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", contest.ErrSourceUnavailable, err)
	}
	return records, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, w contest.Window) ([]contest.Record, error) {
	if f.renderer == nil {
		return nil, fmt.Errorf("no renderer configured")
	}
	html, err := f.renderer.Render(ctx, f.cfg.ListURL)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", f.cfg.ListURL, err)
	}
	return f.parser.parse(html, w)
}
