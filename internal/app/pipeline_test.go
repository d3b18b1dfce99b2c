package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/contest-digest/internal/contest"
	"github.com/JakeFAU/contest-digest/internal/digest"
	digesthash "github.com/JakeFAU/contest-digest/internal/hash/sha256"
	"github.com/JakeFAU/contest-digest/internal/storage/memory"
	"github.com/JakeFAU/contest-digest/internal/window"
)

var shanghai = time.FixedZone("CST", 8*3600)

// 12:00 in Shanghai.
var fixedNow = time.Date(2025, 7, 12, 4, 0, 30, 0, time.UTC)

const emptyDigest = "本周赛事预告~\n\n" +
	"Codeforces:\n本周暂无Codeforces比赛。\n\n" +
	"Atcoder:\n本周暂无Atcoder比赛。\n\n" +
	"Luogu:\n本周暂无Luogu比赛。\n"

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type staticIDs struct {
	id  string
	err error
}

func (s staticIDs) NewID() (string, error) { return s.id, s.err }

type stubSource struct {
	records []contest.Record
	err     error
	windows []contest.Window
}

func (s *stubSource) Fetch(_ context.Context, w contest.Window) ([]contest.Record, error) {
	s.windows = append(s.windows, w)
	return s.records, s.err
}

type recordingObserver struct {
	sources []contest.Result
	runs    int
	written bool
}

func (o *recordingObserver) ObserveSource(res contest.Result) {
	o.sources = append(o.sources, res)
}

func (o *recordingObserver) ObserveRun(_ time.Time, _ time.Time, written bool) {
	o.runs++
	o.written = written
}

type failingStore struct{}

func (failingStore) PutObject(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("disk full")
}

type fixture struct {
	cf, ac, lg *stubSource
	store      *memory.BlobStore
	observer   *recordingObserver
	deps       Deps
}

func newFixture(policy digest.UnavailablePolicy) *fixture {
	f := &fixture{
		cf:       &stubSource{},
		ac:       &stubSource{},
		lg:       &stubSource{},
		store:    memory.NewBlobStore(),
		observer: &recordingObserver{},
	}
	f.deps = Deps{
		Sources: []Source{
			{ID: contest.SourceCodeforces, Fetcher: f.cf, Normalize: true},
			{ID: contest.SourceAtCoder, Fetcher: f.ac, Normalize: true},
			{ID: contest.SourceLuogu, Fetcher: f.lg},
		},
		Clock:    fixedClock{now: fixedNow},
		Location: shanghai,
		Renderer: digest.NewRenderer(policy, shanghai),
		Store:    f.store,
		Path:     "output.txt",
		IDs:      staticIDs{id: "run-1"},
		Hasher:   digesthash.New(),
		Observer: f.observer,
		Logger:   zap.NewNop(),
	}
	return f
}

func (f *fixture) run(t *testing.T) Report {
	t.Helper()
	p, err := NewPipeline(f.deps)
	require.NoError(t, err)
	report, err := p.Run(context.Background())
	require.NoError(t, err)
	return report
}

func (f *fixture) written(t *testing.T) string {
	t.Helper()
	data, ok := f.store.Get("output.txt")
	require.True(t, ok)
	return string(data)
}

func TestRunAllSourcesEmpty(t *testing.T) {
	t.Parallel()

	f := newFixture(digest.PolicyEmpty)
	report := f.run(t)

	assert.Equal(t, emptyDigest, f.written(t))
	assert.Equal(t, emptyDigest, report.Digest)
	assert.Equal(t, "memory://output.txt", report.URI)
	assert.Equal(t, "run-1", report.RunID)
	sum := sha256.Sum256([]byte(emptyDigest))
	assert.Equal(t, hex.EncodeToString(sum[:]), report.SHA256)

	// A second run over the same inputs overwrites with identical bytes.
	f.run(t)
	assert.Equal(t, emptyDigest, f.written(t))
}

func TestRunComputesWindowOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(digest.PolicyEmpty)
	report := f.run(t)

	want := window.Compute(fixedNow, shanghai)
	assert.Equal(t, want, report.Window)
	for _, s := range []*stubSource{f.cf, f.ac, f.lg} {
		require.Len(t, s.windows, 1)
		assert.Equal(t, want, s.windows[0])
	}
}

func TestRunNormalizesCodeforcesAndAtCoderOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(digest.PolicyEmpty)
	f.cf.records = []contest.Record{{
		Name: "Codeforces Round 1000 (Div. 2)",
		When: contest.RawInterval{Start: time.Date(2025, 7, 13, 6, 35, 0, 0, time.UTC), Duration: 2 * time.Hour},
		Link: "https://codeforces.com/contest/1000",
	}}
	f.ac.records = []contest.Record{{
		Name: "Ⓐ AtCoder Beginner Contest 414",
		When: contest.Label{Text: "7/12(Sat) 20:00"},
		Link: "https://atcoder.jp/contests/abc414",
	}}
	f.lg.records = []contest.Record{{
		Name: "【LGR-240】Codeforces mirror",
		When: contest.Label{Text: "7/14(Mon) 19:00-22:30"},
		Link: "https://www.luogu.com.cn/contest/300",
	}}

	report := f.run(t)

	want := "本周赛事预告~\n\n" +
		"Codeforces:\nCF Round 1000 (Div. 2)  7.13 14:35-7.13 16:35\n\n" +
		"Atcoder:\nABC 414  7/12(Sat) 20:00\n\n" +
		"Luogu:\n【LGR-240】Codeforces mirror  7/14(Mon) 19:00-22:30\n"
	assert.Equal(t, want, f.written(t))
	assert.Equal(t, "Codeforces Round 1000 (Div. 2)", f.cf.records[0].Name, "source records are not mutated")
	require.Len(t, report.Results, 3)
	assert.Equal(t, "https://codeforces.com/contest/1000", report.Results[0].Records[0].Link)
}

func TestRunDegradesFailingSource(t *testing.T) {
	t.Parallel()

	f := newFixture(digest.PolicyEmpty)
	f.ac.err = errors.New("connection refused")
	f.cf.records = []contest.Record{{
		Name: "Codeforces Round 1001",
		When: contest.RawInterval{Start: time.Date(2025, 7, 15, 14, 35, 0, 0, time.UTC), Duration: 2*time.Hour + 15*time.Minute},
	}}

	report := f.run(t)

	want := "本周赛事预告~\n\n" +
		"Codeforces:\nCF Round 1001  7.15 22:35-7.16 0:50\n\n" +
		"Atcoder:\n本周暂无Atcoder比赛。\n\n" +
		"Luogu:\n本周暂无Luogu比赛。\n"
	assert.Equal(t, want, f.written(t))

	require.Len(t, report.Results, 3)
	assert.False(t, report.Results[0].Unavailable())
	assert.True(t, report.Results[1].Unavailable())
	assert.Empty(t, report.Results[1].Records)
	assert.Len(t, f.lg.windows, 1, "later sources still run")

	require.Len(t, f.observer.sources, 3)
	assert.True(t, f.observer.sources[1].Unavailable())
	assert.Equal(t, 1, f.observer.runs)
	assert.True(t, f.observer.written)
}

func TestRunUnavailablePolicy(t *testing.T) {
	t.Parallel()

	f := newFixture(digest.PolicyUnavailable)
	f.lg.err = contest.ErrSourceUnavailable
	f.run(t)

	out := f.written(t)
	assert.Contains(t, out, "Luogu:\nLuogu数据源暂不可用。\n")
	assert.Contains(t, out, "Codeforces:\n本周暂无Codeforces比赛。\n")
}

func TestRunWriteFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(digest.PolicyEmpty)
	f.deps.Store = failingStore{}
	p, err := NewPipeline(f.deps)
	require.NoError(t, err)

	report, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, emptyDigest, report.Digest)
	assert.Empty(t, report.URI)
	assert.Equal(t, 1, f.observer.runs)
	assert.False(t, f.observer.written)
}

func TestRunIDFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(digest.PolicyEmpty)
	f.deps.IDs = staticIDs{err: errors.New("entropy")}
	p, err := NewPipeline(f.deps)
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, f.cf.windows)
	_, ok := f.store.Get("output.txt")
	assert.False(t, ok)
}

func TestNewPipelineValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Deps)
		errMsg string
	}{
		{"missing clock", func(d *Deps) { d.Clock = nil }, "clock"},
		{"missing renderer", func(d *Deps) { d.Renderer = nil }, "renderer"},
		{"missing store", func(d *Deps) { d.Store = nil }, "blob store"},
		{"missing ids", func(d *Deps) { d.IDs = nil }, "id generator"},
		{"blank path", func(d *Deps) { d.Path = "  " }, "output path"},
		{"nil fetcher", func(d *Deps) { d.Sources[2].Fetcher = nil }, "luogu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(digest.PolicyEmpty)
			tt.mutate(&f.deps)
			_, err := NewPipeline(f.deps)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.errMsg), err.Error())
		})
	}
}

func TestNewPipelineDefaults(t *testing.T) {
	t.Parallel()

	f := newFixture(digest.PolicyEmpty)
	f.deps.Location = nil
	f.deps.Logger = nil
	f.deps.Observer = nil
	p, err := NewPipeline(f.deps)
	require.NoError(t, err)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, window.Compute(fixedNow, time.UTC), report.Window)
}
