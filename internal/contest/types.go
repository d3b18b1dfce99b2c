// Package contest defines the record types shared by every source and the renderer.
package contest

import (
	"errors"
	"time"
)

// ErrSourceUnavailable marks a source that could not be fetched or decoded at all.
var ErrSourceUnavailable = errors.New("source unavailable")

// Source identifies one of the upstream contest listings.
type Source string

// Known sources, in digest order.
const (
	SourceCodeforces Source = "codeforces"
	SourceAtCoder    Source = "atcoder"
	SourceLuogu      Source = "luogu"
)

// Sources lists every source in the order the digest renders them.
var Sources = []Source{SourceCodeforces, SourceAtCoder, SourceLuogu}

// Window is a half-open [Start, End) interval in UTC.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// DisplayTime is either a RawInterval or a pre-rendered Label.
type DisplayTime interface {
	isDisplayTime()
}

// RawInterval is a start instant plus duration, formatted at render time.
type RawInterval struct {
	Start    time.Time
	Duration time.Duration
}

// Label is a display string already rendered by the fetcher.
type Label struct {
	Text string
}

func (RawInterval) isDisplayTime() {}
func (Label) isDisplayTime()       {}

// Record is one upcoming contest.
type Record struct {
	Name string
	When DisplayTime
	Link string
}

// Result is the outcome of fetching one source.
type Result struct {
	Source  Source
	Records []Record
	// Err is set when the source could not be fetched; Records is then empty.
	Err error
}

// Unavailable reports whether the source failed as a whole.
func (r Result) Unavailable() bool {
	return r.Err != nil
}
