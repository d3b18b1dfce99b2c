// Package app wires configuration into a runnable digest pipeline and owns
// the long-lived services a run needs.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/contest-digest/internal/clock/system"
	"github.com/JakeFAU/contest-digest/internal/config"
	"github.com/JakeFAU/contest-digest/internal/contest"
	"github.com/JakeFAU/contest-digest/internal/digest"
	collyfetcher "github.com/JakeFAU/contest-digest/internal/fetcher/colly"
	"github.com/JakeFAU/contest-digest/internal/fetcher/headless"
	"github.com/JakeFAU/contest-digest/internal/hash/sha256"
	"github.com/JakeFAU/contest-digest/internal/id/uuid"
	"github.com/JakeFAU/contest-digest/internal/metrics"
	"github.com/JakeFAU/contest-digest/internal/policy/ratelimit"
	"github.com/JakeFAU/contest-digest/internal/source/atcoder"
	"github.com/JakeFAU/contest-digest/internal/source/codeforces"
	"github.com/JakeFAU/contest-digest/internal/source/luogu"
	"github.com/JakeFAU/contest-digest/internal/storage"
	"github.com/JakeFAU/contest-digest/internal/storage/gcs"
	"github.com/JakeFAU/contest-digest/internal/storage/local"
)

// App holds the services built from configuration.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	recorder *metrics.Recorder
	pipeline *Pipeline
	closers  []func() error
}

type options struct {
	clock    Clock
	renderer luogu.Renderer
	store    storage.BlobStore
}

// Option overrides a service New would otherwise build from configuration.
type Option func(*options)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithRenderer replaces the browser used for the Luogu listing.
func WithRenderer(r luogu.Renderer) Option {
	return func(o *options) {
		o.renderer = r
	}
}

// WithBlobStore replaces the configured output provider.
func WithBlobStore(s storage.BlobStore) Option {
	return func(o *options) {
		o.store = s
	}
}

// New builds every service named by cfg. It fails fast on the first service
// that cannot be initialised.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger, recorder: metrics.NewRecorder()}

	store := o.store
	if store == nil {
		store, err = a.openStore(ctx)
		if err != nil {
			return nil, err
		}
	}

	renderer := o.renderer
	if renderer == nil {
		renderer, err = newBrowser(cfg.Browser)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	sources, err := a.buildSources(loc, renderer)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	clock := o.clock
	if clock == nil {
		clock = system.New()
	}

	a.pipeline, err = NewPipeline(Deps{
		Sources:  sources,
		Clock:    clock,
		Location: loc,
		Renderer: digest.NewRenderer(digest.UnavailablePolicy(cfg.Digest.UnavailablePolicy), loc),
		Store:    store,
		Path:     cfg.Output.Path,
		IDs:      uuid.New(),
		Hasher:   sha256.New(),
		Observer: a.recorder,
		Logger:   logger,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// Run executes one digest and flushes metrics to the textfile, if configured.
// A metrics flush failure is logged and does not fail the run.
func (a *App) Run(ctx context.Context) (Report, error) {
	report, runErr := a.pipeline.Run(ctx)
	if path := a.cfg.Metrics.TextfilePath; path != "" {
		if err := a.recorder.WriteTextfile(path); err != nil {
			a.logger.Warn("metrics flush failed", zap.String("path", path), zap.Error(err))
		}
	}
	return report, runErr
}

// Close releases services that hold external resources.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openStore(ctx context.Context) (storage.BlobStore, error) {
	switch a.cfg.Output.Provider {
	case config.OutputGCS:
		a.logger.Info("using gcs output", zap.String("bucket", a.cfg.Output.GCSBucket))
		store, err := gcs.Open(ctx, gcs.Config{Bucket: a.cfg.Output.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs output: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.OutputLocal, "":
		store, err := local.New(local.Config{BaseDir: a.cfg.Output.Dir})
		if err != nil {
			return nil, fmt.Errorf("init local output: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown output provider: %s", a.cfg.Output.Provider)
	}
}

func newBrowser(cfg config.BrowserConfig) (luogu.Renderer, error) {
	if !cfg.Enabled {
		return headless.NewNoop(), nil
	}
	b, err := headless.NewChromedp(headless.Config{
		UserAgent:         cfg.UserAgent,
		NavigationTimeout: cfg.NavigationTimeout,
		SettleDelay:       cfg.SettleDelay,
		ScrollPause:       cfg.ScrollPause,
		MaxScrolls:        cfg.MaxScrolls,
	})
	if err != nil {
		return nil, fmt.Errorf("init browser: %w", err)
	}
	return b, nil
}

func (a *App) buildSources(loc *time.Location, renderer luogu.Renderer) ([]Source, error) {
	src := a.cfg.Sources
	limiter := ratelimit.New(ratelimit.Config{RPS: a.cfg.HTTP.RatePerHost, Burst: a.cfg.HTTP.Burst})
	pages := ratelimit.Wrap(limiter, collyfetcher.New(collyfetcher.Config{
		UserAgent: a.cfg.HTTP.UserAgent,
		Timeout:   a.cfg.HTTP.Timeout,
	}))

	cf := codeforces.New(codeforces.Config{
		URL:         src.Codeforces.URL,
		ContestBase: src.Codeforces.ContestBaseURL,
	}, pages, a.logger.Named("codeforces"))

	ac, err := atcoder.New(atcoder.Config{
		URL:     src.AtCoder.URL,
		BaseURL: src.AtCoder.BaseURL,
	}, pages, a.logger.Named("atcoder"))
	if err != nil {
		return nil, fmt.Errorf("init atcoder source: %w", err)
	}

	lg, err := luogu.New(luogu.Config{
		ListURL: src.Luogu.ListURL,
		BaseURL: src.Luogu.BaseURL,
		APIURL:  src.Luogu.APIURL,
		Headers: luogu.Headers{
			UserAgent: src.Luogu.Headers.UserAgent,
			Cookie:    src.Luogu.Headers.Cookie,
			Referer:   src.Luogu.Headers.Referer,
			CSRFToken: src.Luogu.Headers.CSRFToken,
		},
		Location: loc,
	}, renderer, pages, a.logger.Named("luogu"), luogu.WithFallbackObserver(a.recorder))
	if err != nil {
		return nil, fmt.Errorf("init luogu source: %w", err)
	}

	return []Source{
		{ID: contest.SourceCodeforces, Fetcher: cf, Normalize: true},
		{ID: contest.SourceAtCoder, Fetcher: ac, Normalize: true},
		{ID: contest.SourceLuogu, Fetcher: lg},
	}, nil
}
