package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/contest-digest/internal/contest"
)

func TestObserveSource(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.ObserveSource(contest.Result{
		Source:  contest.SourceCodeforces,
		Records: []contest.Record{{Name: "a"}, {Name: "b"}},
	})
	r.ObserveSource(contest.Result{Source: contest.SourceLuogu, Err: errors.New("down")})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.sourceFetches.WithLabelValues("codeforces", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sourceFetches.WithLabelValues("luogu", OutcomeUnavailable)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.sourceRecords.WithLabelValues("codeforces")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.sourceRecords.WithLabelValues("luogu")))
}

func TestObserveFallbackAndRun(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.ObserveFallback(contest.SourceLuogu)
	r.ObserveFallback(contest.SourceLuogu)
	assert.Equal(t, 2.0, testutil.ToFloat64(r.fallbacks.WithLabelValues("luogu")))

	started := time.Unix(1_750_000_000, 0)
	r.ObserveRun(started, started.Add(12*time.Second), false)
	assert.Equal(t, 12.0, testutil.ToFloat64(r.runDuration))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.lastRunSuccess))

	r.ObserveRun(started, started.Add(3*time.Second), true)
	assert.Equal(t, float64(started.Add(3*time.Second).Unix()), testutil.ToFloat64(r.lastRunSuccess))
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.ObserveSource(contest.Result{Source: contest.SourceAtCoder})

	path := filepath.Join(t.TempDir(), "digest.prom")
	require.NoError(t, r.WriteTextfile(path))

	// #nosec G304 -- test reads from the controlled temp directory.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `digest_source_fetch_total{outcome="ok",source="atcoder"} 1`), string(data))

	require.Error(t, r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "digest.prom")))
}
