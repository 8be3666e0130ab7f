// Package metrics - Prometheus instrumentation for detection runs.
package metrics

import (
	"bytes"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "yolo"

// Outcome labels for RunsTotal.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector groups the metrics recorded by a detector.
type Collector struct {
	RunsTotal        *prometheus.CounterVec
	InferenceSeconds prometheus.Histogram
	DetectionsTotal  *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg leaves them
// unregistered, which is useful in tests.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Detection runs by outcome.",
		}, []string{"outcome"}),
		InferenceSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_seconds",
			Help:      "Wall time of engine runs.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		DetectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Detections returned, by class.",
		}, []string{"class"}),
	}
	if reg == nil {
		return c, nil
	}
	for _, col := range []prometheus.Collector{c.RunsTotal, c.InferenceSeconds, c.DetectionsTotal} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is New for a registry known to be free of these collectors. It
// panics on a registration conflict.
func MustNew(reg prometheus.Registerer) *Collector {
	c, err := New(reg)
	if err != nil {
		panic(err)
	}
	return c
}

// Render gathers g and returns it in the Prometheus text exposition format.
func Render(g prometheus.Gatherer) (string, error) {
	families, err := g.Gather()
	if err != nil {
		return "", errors.Wrap(err, "failed to gather metrics")
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return "", errors.Wrapf(err, "failed to encode %s", mf.GetName())
		}
	}
	return buf.String(), nil
}

// ObserveRun records the outcome and latency of one engine run.
// Safe to call on a nil Collector.
func (c *Collector) ObserveRun(start time.Time, err error) {
	if c == nil {
		return
	}
	c.InferenceSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		c.RunsTotal.WithLabelValues(OutcomeFailure).Inc()
		return
	}
	c.RunsTotal.WithLabelValues(OutcomeSuccess).Inc()
}

// ObserveDetection counts one returned detection of class.
func (c *Collector) ObserveDetection(class string) {
	if c == nil {
		return
	}
	c.DetectionsTotal.WithLabelValues(class).Inc()
}
