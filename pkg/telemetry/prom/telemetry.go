// Package prom records wizard telemetry as Prometheus metrics.
package prom

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Telemetry counts recorded events by name and tracks the step reached by
// sessions. It satisfies the Telemetry interfaces of the wizard, commands
// and activity packages.
type Telemetry struct {
	events *prometheus.CounterVec
	steps  *prometheus.HistogramVec
}

// Options configures metric names.
type Options struct {
	Namespace string
	// Registerer defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// New builds and registers the collectors.
func New(opts Options) (*Telemetry, error) {
	if opts.Namespace == "" {
		opts.Namespace = "wizard"
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	t := &Telemetry{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: opts.Namespace,
				Name:      "events_total",
				Help:      "Total number of wizard telemetry events",
			},
			[]string{"event"},
		),
		steps: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: opts.Namespace,
				Name:      "current_step",
				Help:      "Step index reported by wizard events",
				Buckets:   []float64{0, 1, 2, 3},
			},
			[]string{"event"},
		),
	}
	for _, c := range []prometheus.Collector{t.events, t.steps} {
		if err := opts.Registerer.Register(c); err != nil {
			return nil, fmt.Errorf("prom: register collector: %w", err)
		}
	}
	return t, nil
}

// Record increments the event counter and observes the step index when the
// payload carries one.
func (t *Telemetry) Record(_ context.Context, event string, payload map[string]any) {
	event = strings.TrimSpace(event)
	if t == nil || event == "" {
		return
	}
	t.events.WithLabelValues(event).Inc()
	if step, ok := stepFrom(payload); ok {
		t.steps.WithLabelValues(event).Observe(float64(step))
	}
}

func stepFrom(payload map[string]any) (int, bool) {
	switch v := payload["current_step"].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
