package luogu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/JakeFAU/contest-digest/internal/contest"
	"github.com/JakeFAU/contest-digest/internal/fetcher"
)

// ErrBadResponse is returned when the API answers with something other than
// a successful contest list.
var ErrBadResponse = errors.New("luogu api: unexpected response")

const (
	apiCodeOK         = 200
	apiStatusUpcoming = 0
	apiTypeStandard   = 0
)

type apiResponse struct {
	Code int `json:"code"`
	Data struct {
		Contests []apiContest `json:"contests"`
	} `json:"data"`
}

type apiContest struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status int    `json:"status"`
	Type   int    `json:"type"`
	// StartTime is in epoch milliseconds.
	StartTime int64 `json:"startTime"`
	// Duration is in minutes.
	Duration int64 `json:"duration"`
}

func (h Headers) toHTTP() http.Header {
	header := http.Header{}
	set := func(key, value string) {
		if value != "" {
			header.Set(key, value)
		}
	}
	set("User-Agent", h.UserAgent)
	set("Cookie", h.Cookie)
	set("Referer", h.Referer)
	set("X-CSRF-Token", h.CSRFToken)
	return header
}

// fetchAPI queries the paginated list endpoint with the configured headers.
func (f *Fetcher) fetchAPI(ctx context.Context, w contest.Window) ([]contest.Record, error) {
	resp, err := f.fetcher.Fetch(ctx, fetcher.Request{
		URL:     f.cfg.APIURL,
		Headers: f.cfg.Headers.toHTTP(),
	})
	if err != nil {
		return nil, fmt.Errorf("luogu api fetch: %w", err)
	}

	var payload apiResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrBadResponse, err)
	}
	if payload.Code != apiCodeOK {
		return nil, fmt.Errorf("%w: code %d", ErrBadResponse, payload.Code)
	}

	base := strings.TrimRight(f.cfg.BaseURL, "/")
	records := make([]contest.Record, 0)
	for _, c := range payload.Data.Contests {
		if c.Status != apiStatusUpcoming || c.Type != apiTypeStandard {
			continue
		}
		start := time.UnixMilli(c.StartTime).In(f.cfg.Location)
		if !w.Contains(start.UTC()) {
			continue
		}
		end := start.Add(time.Duration(c.Duration) * time.Minute)
		records = append(records, contest.Record{
			Name: c.Name,
			When: contest.Label{Text: contest.FormatLabelRange(start, end)},
			Link: fmt.Sprintf("%s/contest/%d", base, c.ID),
		})
	}
	return records, nil
}
