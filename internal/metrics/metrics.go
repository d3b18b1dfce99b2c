// Package metrics exposes Prometheus collectors for a digest run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/contest-digest/internal/contest"
)

// Fetch outcomes recorded per source.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
)

// Recorder owns a private registry so a batch run can flush exactly its own
// series to a node_exporter textfile.
type Recorder struct {
	registry       *prometheus.Registry
	sourceFetches  *prometheus.CounterVec
	sourceRecords  *prometheus.GaugeVec
	fallbacks      *prometheus.CounterVec
	runDuration    prometheus.Gauge
	lastRunSuccess prometheus.Gauge
}

// NewRecorder registers the digest collectors on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		sourceFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digest_source_fetch_total",
				Help: "Source fetch attempts, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		),
		sourceRecords: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "digest_source_records",
				Help: "Contests kept from each source in the last run.",
			},
			[]string{"source"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digest_fallback_total",
				Help: "Times a source abandoned its primary strategy for its fallback.",
			},
			[]string{"source"},
		),
		runDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "digest_run_duration_seconds",
				Help: "Wall time of the last digest run.",
			},
		),
		lastRunSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "digest_last_run_success_timestamp_seconds",
				Help: "Unix time the digest was last written.",
			},
		),
	}
	r.registry.MustRegister(r.sourceFetches, r.sourceRecords, r.fallbacks, r.runDuration, r.lastRunSuccess)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveSource records one source's fetch result.
func (r *Recorder) ObserveSource(res contest.Result) {
	outcome := OutcomeOK
	if res.Unavailable() {
		outcome = OutcomeUnavailable
	}
	r.sourceFetches.WithLabelValues(string(res.Source), outcome).Inc()
	r.sourceRecords.WithLabelValues(string(res.Source)).Set(float64(len(res.Records)))
}

// ObserveFallback records a switch to a fallback strategy.
func (r *Recorder) ObserveFallback(source contest.Source) {
	r.fallbacks.WithLabelValues(string(source)).Inc()
}

// ObserveRun records the run duration and, on success, its completion time.
func (r *Recorder) ObserveRun(started time.Time, finished time.Time, written bool) {
	r.runDuration.Set(finished.Sub(started).Seconds())
	if written {
		r.lastRunSuccess.Set(float64(finished.Unix()))
	}
}

// WriteTextfile atomically writes all series in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
