package luogu

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/contest-digest/internal/contest"
)

const (
	statusNotStarted = "未开始"
	pageTimeLayout   = "2006-01-02 15:04"
)

// pageParser turns the rendered contest list into records.
type pageParser struct {
	base   *url.URL
	loc    *time.Location
	logger *zap.Logger
}

func (p pageParser) parse(html string, w contest.Window) ([]contest.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(html)))
	if err != nil {
		return nil, fmt.Errorf("parse rendered page: %w", err)
	}

	// The page only shows month and day; the year comes from the run itself.
	year := w.Start.In(p.loc).Year()

	records := make([]contest.Record, 0)
	doc.Find("div.row").Each(func(_ int, row *goquery.Selection) {
		if record, ok := p.parseRow(row, year, w); ok {
			records = append(records, record)
		}
	})
	return records, nil
}

func (p pageParser) parseRow(row *goquery.Selection, year int, w contest.Window) (contest.Record, bool) {
	status := strings.TrimSpace(row.Find("span.status").First().Text())
	if status != statusNotStarted {
		return contest.Record{}, false
	}

	anchor := row.Find("a.name").First()
	if anchor.Length() == 0 {
		return contest.Record{}, false
	}
	name := strings.TrimSpace(anchor.Text())
	href, _ := anchor.Attr("href")
	ref, err := url.Parse(href)
	if err != nil {
		p.logger.Debug("luogu row with bad link", zap.String("name", name), zap.Error(err))
		return contest.Record{}, false
	}
	link := p.base.ResolveReference(ref).String()

	times := row.Find("time")
	if times.Length() < 2 {
		p.logger.Debug("luogu row with fewer than two time markers", zap.String("name", name), zap.Int("markers", times.Length()))
		return contest.Record{}, false
	}
	startText := strings.TrimSpace(times.Eq(0).Text())
	endText := strings.TrimSpace(times.Eq(1).Text())

	start, err := time.ParseInLocation(pageTimeLayout, fmt.Sprintf("%d-%s", year, startText), p.loc)
	if err != nil {
		p.logger.Debug("luogu row with unparsable start", zap.String("name", name), zap.String("start", startText), zap.Error(err))
		return contest.Record{}, false
	}
	if !w.Contains(start.UTC()) {
		return contest.Record{}, false
	}

	label := contest.FormatLabel(start)
	if end, err := parseEnd(year, startText, endText, p.loc); err == nil {
		label = contest.FormatLabelRange(start, end)
	} else {
		p.logger.Debug("luogu end time unresolved", zap.String("name", name), zap.String("end", endText), zap.Error(err))
	}

	return contest.Record{
		Name: name,
		When: contest.Label{Text: label},
		Link: link,
	}, true
}

// parseEnd accepts "MM-DD HH:MM" or a bare "HH:MM" that inherits the start date.
func parseEnd(year int, startText, endText string, loc *time.Location) (time.Time, error) {
	if strings.Contains(endText, "-") {
		return time.ParseInLocation(pageTimeLayout, fmt.Sprintf("%d-%s", year, endText), loc)
	}
	if len(startText) < 5 {
		return time.Time{}, fmt.Errorf("start %q has no date prefix", startText)
	}
	return time.ParseInLocation(pageTimeLayout, fmt.Sprintf("%d-%s %s", year, startText[:5], endText), loc)
}
