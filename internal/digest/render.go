// Package digest renders the weekly contest announcement text.
package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/contest-digest/internal/contest"
)

// Header opens every digest.
const Header = "本周赛事预告~"

// UnavailablePolicy decides how a source that failed outright is shown.
type UnavailablePolicy string

// Supported policies.
const (
	// PolicyEmpty renders a failed source like one with no contests.
	PolicyEmpty UnavailablePolicy = "empty"
	// PolicyUnavailable renders a distinct "source unavailable" line.
	PolicyUnavailable UnavailablePolicy = "unavailable"
)

// Valid reports whether p is a known policy.
func (p UnavailablePolicy) Valid() bool {
	return p == PolicyEmpty || p == PolicyUnavailable
}

var labels = map[contest.Source]string{
	contest.SourceCodeforces: "Codeforces",
	contest.SourceAtCoder:    "Atcoder",
	contest.SourceLuogu:      "Luogu",
}

// Renderer formats fetch results into the digest text.
type Renderer struct {
	policy UnavailablePolicy
	loc    *time.Location
}

// NewRenderer builds a Renderer. loc is the zone raw intervals are shown in.
func NewRenderer(policy UnavailablePolicy, loc *time.Location) *Renderer {
	if !policy.Valid() {
		policy = PolicyEmpty
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{policy: policy, loc: loc}
}

// Render lays out sections in fixed source order. Results for unknown sources
// are ignored and missing sources render as empty.
func (r *Renderer) Render(results []contest.Result) string {
	bySource := make(map[contest.Source]contest.Result, len(results))
	for _, res := range results {
		bySource[res.Source] = res
	}

	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\n\n")
	for i, source := range contest.Sources {
		if i > 0 {
			b.WriteString("\n")
		}
		r.writeSection(&b, source, bySource[source])
	}
	return b.String()
}

func (r *Renderer) writeSection(b *strings.Builder, source contest.Source, res contest.Result) {
	label := labels[source]
	fmt.Fprintf(b, "%s:\n", label)

	switch {
	case res.Unavailable() && r.policy == PolicyUnavailable:
		fmt.Fprintf(b, "%s数据源暂不可用。\n", label)
	case len(res.Records) == 0:
		fmt.Fprintf(b, "本周暂无%s比赛。\n", label)
	default:
		for _, rec := range res.Records {
			fmt.Fprintf(b, "%s  %s\n", rec.Name, r.display(rec.When))
		}
	}
}

func (r *Renderer) display(when contest.DisplayTime) string {
	switch v := when.(type) {
	case contest.Label:
		return v.Text
	case contest.RawInterval:
		return FormatInterval(v.Start, v.Duration, r.loc)
	default:
		return ""
	}
}

// FormatInterval renders "M.D H:MM-M.D H:MM" in loc with only minutes padded.
func FormatInterval(start time.Time, d time.Duration, loc *time.Location) string {
	s := start.In(loc)
	e := s.Add(d)
	return fmt.Sprintf("%d.%d %d:%02d-%d.%d %d:%02d",
		int(s.Month()), s.Day(), s.Hour(), s.Minute(),
		int(e.Month()), e.Day(), e.Hour(), e.Minute())
}
