// Package codeforces fetches upcoming rounds from the Codeforces contest.list API.
package codeforces

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/contest-digest/internal/contest"
	"github.com/JakeFAU/contest-digest/internal/fetcher"
)

// Defaults for the public API.
const (
	DefaultURL         = "https://codeforces.com/api/contest.list"
	DefaultContestBase = "https://codeforces.com"

	statusOK    = "OK"
	phaseBefore = "BEFORE"
)

// Config locates the API.
type Config struct {
	URL         string
	ContestBase string
}

// Fetcher implements the Codeforces source.
type Fetcher struct {
	cfg     Config
	fetcher fetcher.Fetcher
	logger  *zap.Logger
}

type listResponse struct {
	Status  string       `json:"status"`
	Comment string       `json:"comment"`
	Result  []apiContest `json:"result"`
}

type apiContest struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Phase            string `json:"phase"`
	StartTimeSeconds int64  `json:"startTimeSeconds"`
	DurationSeconds  int64  `json:"durationSeconds"`
}

// New builds a Codeforces fetcher.
func New(cfg Config, f fetcher.Fetcher, logger *zap.Logger) *Fetcher {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.ContestBase == "" {
		cfg.ContestBase = DefaultContestBase
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{cfg: cfg, fetcher: f, logger: logger}
}

// Fetch returns not-yet-started rounds starting inside w.
func (f *Fetcher) Fetch(ctx context.Context, w contest.Window) ([]contest.Record, error) {
	resp, err := f.fetcher.Fetch(ctx, fetcher.Request{URL: f.cfg.URL})
	if err != nil {
		return nil, fmt.Errorf("%w: codeforces fetch: %w", contest.ErrSourceUnavailable, err)
	}

	var payload listResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("%w: codeforces decode: %w", contest.ErrSourceUnavailable, err)
	}
	if payload.Status != statusOK {
		return nil, fmt.Errorf("%w: codeforces status %q: %s", contest.ErrSourceUnavailable, payload.Status, payload.Comment)
	}

	records := filter(payload.Result, w, f.cfg.ContestBase)
	f.logger.Debug("codeforces contests selected",
		zap.Int("listed", len(payload.Result)),
		zap.Int("selected", len(records)),
	)
	return records, nil
}

func filter(contests []apiContest, w contest.Window, base string) []contest.Record {
	base = strings.TrimRight(base, "/")
	records := make([]contest.Record, 0)
	for _, c := range contests {
		if c.Phase != phaseBefore {
			continue
		}
		start := time.Unix(c.StartTimeSeconds, 0).UTC()
		if !w.Contains(start) {
			continue
		}
		records = append(records, contest.Record{
			Name: c.Name,
			When: contest.RawInterval{
				Start:    start,
				Duration: time.Duration(c.DurationSeconds) * time.Second,
			},
			Link: fmt.Sprintf("%s/contest/%d", base, c.ID),
		})
	}
	return records
}
