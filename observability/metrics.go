// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "safires"

// Metrics holds the counters and gauges of one pipeline run. Each Metrics has
// its own registry so a run can be written out as a node-exporter textfile.
type Metrics struct {
	Registry *prometheus.Registry

	RecordsRead     prometheus.Counter
	RecordsAssigned prometheus.Counter
	HighConfidence  prometheus.Counter
	NearBorder      prometheus.Counter
	Mismatches      *prometheus.CounterVec // labels: reason={none,multiple}
	BorderSegments  prometheus.Gauge
	Countries       prometheus.Gauge
	StageDuration   *prometheus.GaugeVec // labels: stage
	LastRunSuccess  prometheus.Gauge
	LastRunTime     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RecordsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_read_total",
			Help:      "Fire detections read from the input CSV.",
		}),
		RecordsAssigned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_assigned_total",
			Help:      "Fire detections assigned to exactly one country.",
		}),
		HighConfidence: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_high_confidence_total",
			Help:      "Fire detections at or above the confidence threshold.",
		}),
		NearBorder: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_near_border_total",
			Help:      "Fire detections within the border radius.",
		}),
		Mismatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geometry_mismatches_total",
			Help:      "Fire detections contained by zero or several countries.",
		}, []string{"reason"}),
		BorderSegments: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "border_segments",
			Help:      "Border segments used for the proximity test.",
		}),
		Countries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "countries",
			Help:      "Reference countries loaded.",
		}),
		StageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage in the last run.",
		}, []string{"stage"}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 when the last run completed, 0 when it failed.",
		}),
		LastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	m.Registry.MustRegister(
		m.RecordsRead,
		m.RecordsAssigned,
		m.HighConfidence,
		m.NearBorder,
		m.Mismatches,
		m.BorderSegments,
		m.Countries,
		m.StageDuration,
		m.LastRunSuccess,
		m.LastRunTime,
	)

	return m
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// Finish marks the run as done at t.
func (m *Metrics) Finish(t time.Time, success bool) {
	if success {
		m.LastRunSuccess.Set(1)
	} else {
		m.LastRunSuccess.Set(0)
	}

	m.LastRunTime.Set(float64(t.Unix()))
}

// WriteTextfile writes every metric in the text exposition format, the way
// the node-exporter textfile collector reads them.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}

	return nil
}
