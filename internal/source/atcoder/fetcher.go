// Package atcoder scrapes the upcoming-contests table from atcoder.jp.
package atcoder

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/contest-digest/internal/contest"
	"github.com/JakeFAU/contest-digest/internal/fetcher"
)

// Defaults for the public listing.
const (
	DefaultURL     = "https://atcoder.jp/contests/"
	DefaultBaseURL = "https://atcoder.jp"

	timeLayout     = "2006-01-02 15:04:05-0700"
	upcomingTable  = "#contest-table-upcoming table"
	minCellsPerRow = 3
)

// displayShift turns the JST wall clock into the Shanghai wall clock. It is a
// fixed offset rather than a zone conversion, matching what the site shows.
const displayShift = -1 * time.Hour

// Config locates the listing.
type Config struct {
	URL     string
	BaseURL string
}

// Fetcher implements the AtCoder source.
type Fetcher struct {
	cfg     Config
	base    *url.URL
	fetcher fetcher.Fetcher
	logger  *zap.Logger
}

// New builds an AtCoder fetcher.
func New(cfg Config, f fetcher.Fetcher, logger *zap.Logger) (*Fetcher, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse atcoder base url: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{cfg: cfg, base: base, fetcher: f, logger: logger}, nil
}

// Fetch returns contests from the upcoming table that start inside w.
func (f *Fetcher) Fetch(ctx context.Context, w contest.Window) ([]contest.Record, error) {
	resp, err := f.fetcher.Fetch(ctx, fetcher.Request{URL: f.cfg.URL})
	if err != nil {
		return nil, fmt.Errorf("%w: atcoder fetch: %w", contest.ErrSourceUnavailable, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: atcoder parse: %w", contest.ErrSourceUnavailable, err)
	}
	return f.parse(doc, w)
}

func (f *Fetcher) parse(doc *goquery.Document, w contest.Window) ([]contest.Record, error) {
	table := doc.Find(upcomingTable).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: atcoder upcoming table not found", contest.ErrSourceUnavailable)
	}

	records := make([]contest.Record, 0)
	table.Find("tr").Slice(1, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
		record, ok := f.parseRow(row, w)
		if ok {
			records = append(records, record)
		}
	})
	return records, nil
}

func (f *Fetcher) parseRow(row *goquery.Selection, w contest.Window) (contest.Record, bool) {
	cells := row.Find("td")
	if cells.Length() < minCellsPerRow {
		return contest.Record{}, false
	}

	timeText := strings.TrimSpace(cells.Eq(0).Text())
	nameCell := cells.Eq(1)
	name := strings.TrimSpace(nameCell.Text())

	href, ok := nameCell.Find("a").Attr("href")
	if !ok {
		f.logger.Debug("atcoder row without link", zap.String("name", name))
		return contest.Record{}, false
	}
	link, err := f.resolve(href)
	if err != nil {
		f.logger.Debug("atcoder row with bad link", zap.String("href", href), zap.Error(err))
		return contest.Record{}, false
	}

	start, err := time.Parse(timeLayout, timeText)
	if err != nil {
		f.logger.Debug("atcoder row with unparsable time", zap.String("time", timeText), zap.Error(err))
		return contest.Record{}, false
	}
	if !w.Contains(start.UTC()) {
		return contest.Record{}, false
	}

	return contest.Record{
		Name: name,
		When: contest.Label{Text: contest.FormatLabel(start.Add(displayShift))},
		Link: link,
	}, true
}

func (f *Fetcher) resolve(href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return f.base.ResolveReference(ref).String(), nil
}
