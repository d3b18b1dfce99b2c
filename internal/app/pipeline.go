package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/contest-digest/internal/contest"
	"github.com/JakeFAU/contest-digest/internal/digest"
	"github.com/JakeFAU/contest-digest/internal/normalize"
	"github.com/JakeFAU/contest-digest/internal/storage"
	"github.com/JakeFAU/contest-digest/internal/window"
)

// Clock supplies the instant a run is anchored to.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// SourceFetcher returns the contests of one source that start inside w.
type SourceFetcher interface {
	Fetch(ctx context.Context, w contest.Window) ([]contest.Record, error)
}

// Hasher fingerprints the rendered digest.
type Hasher interface {
	Hash(r io.Reader) (string, error)
}

// Observer receives per-source and per-run outcomes.
type Observer interface {
	ObserveSource(res contest.Result)
	ObserveRun(started time.Time, finished time.Time, written bool)
}

// Source binds a fetcher to the section it fills.
type Source struct {
	ID      contest.Source
	Fetcher SourceFetcher
	// Normalize shortens contest names before rendering.
	Normalize bool
}

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Sources  []Source
	Clock    Clock
	Location *time.Location
	Renderer *digest.Renderer
	Store    storage.BlobStore
	// Path is the object path the digest is written to.
	Path     string
	IDs      IDGenerator
	Hasher   Hasher
	Observer Observer
	Logger   *zap.Logger
}

// Report describes one completed run.
type Report struct {
	RunID   string
	Window  contest.Window
	Results []contest.Result
	Digest  string
	// SHA256 is the hex digest of Digest, empty without a Hasher.
	SHA256  string
	URI     string
}

// Pipeline runs one digest: window, sources, rendering and persistence.
type Pipeline struct {
	deps Deps
}

// NewPipeline validates deps and builds a Pipeline.
func NewPipeline(deps Deps) (*Pipeline, error) {
	if deps.Clock == nil {
		return nil, errors.New("clock is required")
	}
	if deps.Renderer == nil {
		return nil, errors.New("renderer is required")
	}
	if deps.Store == nil {
		return nil, errors.New("blob store is required")
	}
	if deps.IDs == nil {
		return nil, errors.New("id generator is required")
	}
	if strings.TrimSpace(deps.Path) == "" {
		return nil, errors.New("output path is required")
	}
	for _, src := range deps.Sources {
		if src.Fetcher == nil {
			return nil, fmt.Errorf("source %s has no fetcher", src.ID)
		}
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Pipeline{deps: deps}, nil
}

// Run computes the window once, fetches every source in order and writes the
// digest. A failing source becomes an empty section; only a failure to write
// the digest is returned as an error.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	runID, err := p.deps.IDs.NewID()
	if err != nil {
		return Report{}, fmt.Errorf("run id: %w", err)
	}
	logger := p.deps.Logger.With(zap.String("run_id", runID))

	started := p.deps.Clock.Now()
	w := window.Compute(started, p.deps.Location)
	logger.Info("digest run started", zap.Time("window_start", w.Start), zap.Time("window_end", w.End))

	results := make([]contest.Result, 0, len(p.deps.Sources))
	for _, src := range p.deps.Sources {
		res := p.fetchSource(ctx, src, w, logger)
		if p.deps.Observer != nil {
			p.deps.Observer.ObserveSource(res)
		}
		results = append(results, res)
	}

	text := p.deps.Renderer.Render(results)
	report := Report{RunID: runID, Window: w, Results: results, Digest: text}
	if p.deps.Hasher != nil {
		sum, err := p.deps.Hasher.Hash(strings.NewReader(text))
		if err != nil {
			logger.Warn("digest hash failed", zap.Error(err))
		}
		report.SHA256 = sum
	}

	uri, err := p.deps.Store.PutObject(ctx, p.deps.Path, storage.ContentTypeText, strings.NewReader(text))
	if p.deps.Observer != nil {
		p.deps.Observer.ObserveRun(started, p.deps.Clock.Now(), err == nil)
	}
	if err != nil {
		logger.Error("digest write failed", zap.String("path", p.deps.Path), zap.Error(err))
		return report, fmt.Errorf("write digest: %w", err)
	}
	report.URI = uri
	logger.Info("digest written", zap.String("uri", uri), zap.String("sha256", report.SHA256))
	return report, nil
}

func (p *Pipeline) fetchSource(ctx context.Context, src Source, w contest.Window, logger *zap.Logger) contest.Result {
	records, err := src.Fetcher.Fetch(ctx, w)
	if err != nil {
		logger.Error("source unavailable", zap.String("source", string(src.ID)), zap.Error(err))
		return contest.Result{Source: src.ID, Err: err}
	}
	if src.Normalize {
		records = normalizeNames(records)
	}
	logger.Info("source fetched", zap.String("source", string(src.ID)), zap.Int("records", len(records)))
	return contest.Result{Source: src.ID, Records: records}
}

func normalizeNames(records []contest.Record) []contest.Record {
	out := make([]contest.Record, len(records))
	for i, r := range records {
		r.Name = normalize.Name(r.Name)
		out[i] = r
	}
	return out
}
